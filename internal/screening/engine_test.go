package screening

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/banking/sanctions-screening/internal/config"
	"github.com/banking/sanctions-screening/internal/domain"
	"github.com/banking/sanctions-screening/internal/pkg/logger"
	"github.com/banking/sanctions-screening/internal/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEngine(maxTokens int) *Engine {
	return NewEngine(&config.ScreeningConfig{
		MaxNameTokens:       maxTokens,
		ParallelWorkers:     4,
		MaxScreeningLatency: time.Minute,
		LogMatches:          true,
	}, logger.NewNop())
}

func testWatchlist() *domain.Watchlist {
	return &domain.Watchlist{
		Metadata: domain.WatchlistMetadata{FileHashSHA256: "abc123"},
		Individuals: []domain.IdentityRecord{
			{DataID: "ID9", FirstName: "Santos", FullName: "Carlos Santos", AliasNames: []string{"Maria Santos"}},
			identity("ID10", "John", "Smith"),
			identity("ID11", "Nobody", "Matches"),
		},
	}
}

func testRoster() []domain.ClientRecord {
	return []domain.ClientRecord{
		{SerialNumber: "C1", Company: "Acme", Officer: "Maria Santos", Role: "Director"},
		{SerialNumber: "C2", Company: "Globex", Officer: "Jane Roe", Role: "Secretary"},
		{SerialNumber: "C3", Company: "Initech", Officer: "Smith John", Role: "Director"},
		{SerialNumber: "C4", Company: "Hooli", Officer: "A B C D E F G", Role: "Director"},
		{SerialNumber: "C3", Company: "Initech", Officer: "Smith John", Role: "Shareholder"},
	}
}

func TestEngine_Screen(t *testing.T) {
	e := newTestEngine(5)

	run, err := e.Screen(context.Background(), testRoster(), testWatchlist())
	require.NoError(t, err)

	assert.Equal(t, []string{"ID9", "ID10"}, run.MatchedIdentityKeys)
	assert.Equal(t, 3, run.ClientsScreened)
	assert.Equal(t, "abc123", run.WatchlistHash)
	assert.True(t, run.HasMatches())

	require.Len(t, run.SuspiciousIdentities, 2)
	assert.Equal(t, "ID9", run.SuspiciousIdentities[0].DataID)
	for _, m := range run.SuspiciousIdentities[0].ClientMatches {
		assert.Equal(t, "C1", m.ClientSN)
	}

	assert.Equal(t, []string{"C1", "C3"}, run.SuspiciousSerials())
	// Both roster rows for C3 are reported
	require.Len(t, run.SuspiciousClients, 3)
	assert.Equal(t, "Shareholder", run.SuspiciousClients[2].Role)

	require.Len(t, run.Skipped, 1)
	assert.Equal(t, "C4", run.Skipped[0].ClientSN)
	assert.Equal(t, 7, run.Skipped[0].TokenCount)

	assert.Equal(t, int64(1), e.GetScreeningCount())
}

func TestEngine_ScreenPreparedMatchesScreen(t *testing.T) {
	e := newTestEngine(5)
	wl := testWatchlist()

	direct, err := e.Screen(context.Background(), testRoster(), wl)
	require.NoError(t, err)
	prepared, err := e.ScreenPrepared(context.Background(), testRoster(), Prepare(wl))
	require.NoError(t, err)

	assert.Equal(t, direct.Matches, prepared.Matches)
	assert.Equal(t, direct.MatchedIdentityKeys, prepared.MatchedIdentityKeys)
	assert.Equal(t, direct.SuspiciousIdentities, prepared.SuspiciousIdentities)
	assert.NotEqual(t, direct.ID, prepared.ID)
	assert.Equal(t, int64(2), e.GetScreeningCount())
}

func TestEngine_NoMatchesIsNotAnError(t *testing.T) {
	e := newTestEngine(5)

	run, err := e.Screen(context.Background(),
		[]domain.ClientRecord{{SerialNumber: "C1", Officer: "Jane Roe"}}, testWatchlist())
	require.NoError(t, err)

	assert.False(t, run.HasMatches())
	assert.Empty(t, run.MatchedIdentityKeys)
	assert.Empty(t, run.SuspiciousIdentities)
	assert.Empty(t, run.SuspiciousClients)
}

func TestEngine_CancelledContext(t *testing.T) {
	e := newTestEngine(5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Screen(ctx, testRoster(), testWatchlist())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_RecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	e := newTestEngine(5).WithMetrics(m)

	_, err := e.Screen(context.Background(), testRoster(), testWatchlist())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Screenings.WithLabelValues("suspicious")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedNames))
	assert.Positive(t, testutil.ToFloat64(m.Matches))
}
