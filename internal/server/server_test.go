package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/banking/sanctions-screening/internal/cache"
	"github.com/banking/sanctions-screening/internal/config"
	"github.com/banking/sanctions-screening/internal/domain"
	"github.com/banking/sanctions-screening/internal/pkg/logger"
	"github.com/banking/sanctions-screening/internal/pkg/metrics"
	"github.com/banking/sanctions-screening/internal/screening"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingPublisher struct {
	runs atomic.Int32
}

func (p *recordingPublisher) PublishRun(context.Context, *domain.ScreeningRun) error {
	p.runs.Add(1)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixedCacheStatus struct {
	updated time.Time
	err     error
}

func (f fixedCacheStatus) GetLastUpdate(context.Context) (time.Time, error) {
	return f.updated, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{MaxRequestSize: "1M"},
		Security: config.SecurityConfig{AllowedOrigins: []string{"*"}},
	}
}

func testWatchlist() *screening.PreparedWatchlist {
	return screening.Prepare(&domain.Watchlist{
		Metadata: domain.WatchlistMetadata{FileHashSHA256: "abc", TotalEntries: 1},
		Individuals: []domain.IdentityRecord{
			{DataID: "ID9", FirstName: "Santos", FullName: "Carlos Santos", AliasNames: []string{"Maria Santos"}},
		},
	})
}

type HandlerSuite struct {
	suite.Suite
	handler   *Handler
	engine    *screening.Engine
	publisher *recordingPublisher
	router    http.Handler
	registry  *prometheus.Registry
	logs      *observer.ObservedLogs
}

func (s *HandlerSuite) SetupTest() {
	core, logs := observer.New(zap.DebugLevel)
	s.logs = logs
	log := &logger.Logger{Logger: zap.New(core)}

	s.registry = prometheus.NewRegistry()
	s.engine = screening.NewEngine(&config.ScreeningConfig{MaxNameTokens: 6, ParallelWorkers: 2}, log).
		WithMetrics(metrics.New(s.registry))
	s.publisher = &recordingPublisher{}
	s.handler = NewHandler(s.engine, s.publisher, log)
	s.router = New(testConfig(), s.handler, s.registry)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestHealth() {
	var health HealthResponse
	rec := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &health))
	s.Equal("degraded", health.Status)

	s.handler.SetWatchlist(testWatchlist(), "archive")
	s.do(http.MethodPost, "/api/v1/screenings", `{"clients":[{"sn":"C1","officer":"Jane Roe"}]}`)

	rec = s.do(http.MethodGet, "/health", "")
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &health))
	s.Equal("ok", health.Status)
	s.Equal(int64(1), health.Screenings)
}

func (s *HandlerSuite) TestWatchlist_NotLoaded() {
	rec := s.do(http.MethodGet, "/api/v1/watchlist", "")
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *HandlerSuite) TestWatchlist_Loaded() {
	s.handler.SetWatchlist(testWatchlist(), "download")

	rec := s.do(http.MethodGet, "/api/v1/watchlist", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp WatchlistResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("download", resp.Source)
	s.Equal("abc", resp.Metadata.FileHashSHA256)
	s.Equal(3, resp.IndexSize)
}

func (s *HandlerSuite) TestScreening_InvalidJSON() {
	s.handler.SetWatchlist(testWatchlist(), "archive")
	rec := s.do(http.MethodPost, "/api/v1/screenings", "not json")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestScreening_EmptyClients() {
	s.handler.SetWatchlist(testWatchlist(), "archive")
	rec := s.do(http.MethodPost, "/api/v1/screenings", `{"clients":[]}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestScreening_ValidationNamesJSONField() {
	s.handler.SetWatchlist(testWatchlist(), "archive")
	rec := s.do(http.MethodPost, "/api/v1/screenings", `{}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "clients")
}

func (s *HandlerSuite) TestMetricsEndpoint() {
	s.handler.SetWatchlist(testWatchlist(), "archive")
	rec := s.do(http.MethodPost, "/api/v1/screenings", `{"clients":[{"sn":"C1","officer":"Maria Santos"}]}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `sanctions_screenings_total{outcome="suspicious"} 1`)
}

func (s *HandlerSuite) TestScreening_OverCandidateBudget() {
	s.handler.SetWatchlist(testWatchlist(), "archive")
	s.handler.SetCandidateBudget(5000)

	// Three six-token names expand to 3 * 1956 candidates
	body := `{"clients":[` +
		`{"sn":"C1","officer":"a1 b c d e f"},` +
		`{"sn":"C2","officer":"a2 b c d e f"},` +
		`{"sn":"C3","officer":"a3 b c d e f"}]}`
	rec := s.do(http.MethodPost, "/api/v1/screenings", body)

	s.Equal(http.StatusRequestEntityTooLarge, rec.Code)
	s.Contains(rec.Body.String(), "5868")
	s.Zero(s.engine.GetScreeningCount())
	s.Zero(s.publisher.runs.Load())
}

func (s *HandlerSuite) TestScreening_WithinCandidateBudget() {
	s.handler.SetWatchlist(testWatchlist(), "archive")
	s.handler.SetCandidateBudget(1956)

	rec := s.do(http.MethodPost, "/api/v1/screenings", `{"clients":[{"sn":"C1","officer":"a b c d e f"}]}`)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestScreening_BlankSerialIsSkipped() {
	s.handler.SetWatchlist(testWatchlist(), "archive")

	rec := s.do(http.MethodPost, "/api/v1/screenings",
		`{"clients":[{"sn":"   ","officer":"Maria Santos"},{"sn":" C1 ","officer":"Maria Santos","company":"Acme"}]}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	var run domain.ScreeningRun
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &run))
	s.Equal(1, run.ClientsScreened)
	s.Require().NotEmpty(run.Matches)
	for _, m := range run.Matches {
		s.Equal("C1", m.ClientSN)
	}
	s.Require().Len(run.SuspiciousClients, 1)
	s.Equal("Acme", run.SuspiciousClients[0].Company)
}

func (s *HandlerSuite) TestWatchlist_CacheFreshness() {
	s.handler.SetWatchlist(testWatchlist(), "cache")
	updated := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	s.handler.SetCacheStatus(fixedCacheStatus{updated: updated})

	rec := s.do(http.MethodGet, "/api/v1/watchlist", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp WatchlistResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().NotNil(resp.CacheUpdatedAt)
	s.True(updated.Equal(*resp.CacheUpdatedAt))

	s.handler.SetCacheStatus(fixedCacheStatus{err: cache.ErrCacheMiss})
	rec = s.do(http.MethodGet, "/api/v1/watchlist", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.NotContains(rec.Body.String(), "cache_updated_at")
}

func (s *HandlerSuite) TestRequestsAreLogged() {
	s.do(http.MethodGet, "/health", "")
	s.do(http.MethodGet, "/api/v1/watchlist", "")

	entries := s.logs.FilterMessage("request").AllUntimed()
	s.Require().Len(entries, 2)
	s.Equal("/health", entries[0].ContextMap()["uri"])
	s.EqualValues(http.StatusOK, entries[0].ContextMap()["status"])
	s.EqualValues(http.StatusServiceUnavailable, entries[1].ContextMap()["status"])
}

func (s *HandlerSuite) TestScreening_NoWatchlist() {
	rec := s.do(http.MethodPost, "/api/v1/screenings", `{"clients":[{"sn":"C1","officer":"Maria Santos"}]}`)
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *HandlerSuite) TestScreening_Matches() {
	s.handler.SetWatchlist(testWatchlist(), "archive")

	rec := s.do(http.MethodPost, "/api/v1/screenings",
		`{"clients":[{"sn":"C1","officer":"Maria Santos","company":"Acme"},{"sn":"C2","officer":"Jane Roe"}]}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	var run domain.ScreeningRun
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &run))
	s.Equal([]string{"ID9"}, run.MatchedIdentityKeys)
	s.Equal(2, run.ClientsScreened)
	s.Require().Len(run.SuspiciousIdentities, 1)
	s.Len(run.SuspiciousIdentities[0].ClientMatches, 2)
	s.Require().Len(run.SuspiciousClients, 1)
	s.Equal("Acme", run.SuspiciousClients[0].Company)
	s.Equal(int32(1), s.publisher.runs.Load())
}

func TestRunRefresh(t *testing.T) {
	h := NewHandler(nil, nil, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	var loads atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.RunRefresh(ctx, 5*time.Millisecond, func(context.Context) (*screening.PreparedWatchlist, string, error) {
			loads.Add(1)
			return testWatchlist(), "download", nil
		})
	}()

	require.Eventually(t, func() bool { return loads.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	pw, source, _ := h.watchlist()
	assert.NotNil(t, pw)
	assert.Equal(t, "download", source)
}
