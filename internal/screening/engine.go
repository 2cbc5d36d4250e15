package screening

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/banking/sanctions-screening/internal/config"
	"github.com/banking/sanctions-screening/internal/domain"
	"github.com/banking/sanctions-screening/internal/pkg/logger"
	"github.com/banking/sanctions-screening/internal/pkg/metrics"
	"github.com/banking/sanctions-screening/internal/pkg/telemetry"
)

// PreparedWatchlist is a parsed watchlist with its read-only lookup structures.
// It can be shared by concurrent screening runs.
type PreparedWatchlist struct {
	Watchlist *domain.Watchlist
	Index     *IdentityIndex
	Resolver  *WatchlistResolver
}

// Prepare builds the identity index and resolver for a watchlist
func Prepare(wl *domain.Watchlist) *PreparedWatchlist {
	return &PreparedWatchlist{
		Watchlist: wl,
		Index:     BuildIndex(wl.Individuals),
		Resolver:  NewWatchlistResolver(wl.Individuals),
	}
}

// Engine runs roster screenings against a watchlist
type Engine struct {
	generator *CandidateGenerator
	cfg       *config.ScreeningConfig
	log       *logger.Logger
	tracer    trace.Tracer
	metrics   *metrics.Metrics

	// Metrics
	screeningCount int64
	avgLatencyMs   float64
	latencyMu      sync.RWMutex
}

// NewEngine creates a new screening engine
func NewEngine(cfg *config.ScreeningConfig, log *logger.Logger) *Engine {
	return &Engine{
		generator: NewCandidateGenerator(cfg.MaxNameTokens),
		cfg:       cfg,
		log:       log.Named("screening_engine"),
		tracer:    telemetry.Tracer("screening"),
	}
}

// WithMetrics records run metrics into m
func (e *Engine) WithMetrics(m *metrics.Metrics) *Engine {
	e.metrics = m
	return e
}

// CandidateBudget estimates the candidate strings a run over clients would generate
func (e *Engine) CandidateBudget(clients []domain.ClientRecord) int {
	return CandidateBudget(e.generator, clients)
}

// Screen prepares the watchlist and generates client candidates in parallel, then matches
func (e *Engine) Screen(ctx context.Context, clients []domain.ClientRecord, wl *domain.Watchlist) (*domain.ScreeningRun, error) {
	ctx, span := e.tracer.Start(ctx, "screening.Screen")
	defer span.End()

	start := time.Now()
	var (
		prepared *PreparedWatchlist
		combos   *ClientCombinations
		skipped  []domain.SkippedName
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, s := e.tracer.Start(gctx, "screening.BuildIndex")
		defer s.End()
		prepared = Prepare(wl)
		return nil
	})
	g.Go(func() error {
		var err error
		combos, skipped, err = e.buildCombinations(gctx, clients)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("prepare screening: %w", err)
	}

	return e.match(ctx, clients, prepared, combos, skipped, start)
}

// ScreenPrepared screens clients against a watchlist whose index is already built
func (e *Engine) ScreenPrepared(ctx context.Context, clients []domain.ClientRecord, pw *PreparedWatchlist) (*domain.ScreeningRun, error) {
	ctx, span := e.tracer.Start(ctx, "screening.ScreenPrepared")
	defer span.End()

	start := time.Now()
	combos, skipped, err := e.buildCombinations(ctx, clients)
	if err != nil {
		return nil, fmt.Errorf("build client combinations: %w", err)
	}
	return e.match(ctx, clients, pw, combos, skipped, start)
}

func (e *Engine) buildCombinations(ctx context.Context, clients []domain.ClientRecord) (*ClientCombinations, []domain.SkippedName, error) {
	ctx, span := e.tracer.Start(ctx, "screening.BuildClientCombinations")
	defer span.End()

	combos, skipped, err := BuildClientCombinationsParallel(ctx, e.generator, clients, e.cfg.ParallelWorkers)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range skipped {
		e.log.NameSkipped(s.ClientSN, s.TokenCount, e.generator.MaxTokens())
	}
	span.SetAttributes(
		attribute.Int("clients", combos.Len()),
		attribute.Int("skipped", len(skipped)),
	)
	return combos, skipped, nil
}

func (e *Engine) match(
	ctx context.Context,
	clients []domain.ClientRecord,
	pw *PreparedWatchlist,
	combos *ClientCombinations,
	skipped []domain.SkippedName,
	start time.Time,
) (*domain.ScreeningRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := uuid.New()
	log := e.log.WithContext(ctx).WithScreening(runID.String())
	log.ScreeningStarted(runID.String(), len(clients))

	_, span := e.tracer.Start(ctx, "screening.FindMatches")
	result := FindMatches(combos, pw.Index)
	span.SetAttributes(attribute.Int("matches", len(result.Matches)))
	span.End()

	if e.cfg.LogMatches {
		for _, m := range result.Matches {
			log.MatchFound(m.ClientSN, m.MatchedCombo, m.IdentityKey)
		}
	}

	run := &domain.ScreeningRun{
		ID:                   runID,
		WatchlistHash:        pw.Watchlist.Metadata.FileHashSHA256,
		ClientsScreened:      combos.Len(),
		CandidatesTested:     combos.CandidateCount(),
		IndexSize:            pw.Index.Len(),
		MatchedIdentityKeys:  result.MatchedKeys,
		Matches:              result.Matches,
		SuspiciousIdentities: pw.Resolver.Resolve(result.MatchedKeys, result.Matches),
		Skipped:              skipped,
		CreatedAt:            time.Now().UTC(),
	}
	run.SuspiciousClients = clientsBySerial(clients, run.SuspiciousSerials())

	durationMs := time.Since(start).Milliseconds()
	run.DurationMs = durationMs
	e.recordLatency(durationMs)
	e.metrics.ObserveScreening(run.HasMatches(), len(run.Matches), len(run.Skipped), time.Since(start))

	if e.cfg.MaxScreeningLatency > 0 && durationMs > e.cfg.MaxScreeningLatency.Milliseconds() {
		log.LatencyWarning("full_screening", durationMs, e.cfg.MaxScreeningLatency.Milliseconds())
	}

	log.ScreeningCompleted(
		runID.String(),
		run.ClientsScreened,
		len(run.Matches),
		len(run.SuspiciousIdentities),
		durationMs,
	)

	return run, nil
}

// clientsBySerial returns every roster row whose serial is in serials, in roster order
func clientsBySerial(clients []domain.ClientRecord, serials []string) []domain.ClientRecord {
	wanted := make(map[string]struct{}, len(serials))
	for _, sn := range serials {
		wanted[sn] = struct{}{}
	}
	out := make([]domain.ClientRecord, 0, len(serials))
	for _, c := range clients {
		if _, ok := wanted[c.Key()]; ok {
			out = append(out, c)
		}
	}
	return out
}

// recordLatency records screening latency for metrics
func (e *Engine) recordLatency(durationMs int64) {
	e.latencyMu.Lock()
	defer e.latencyMu.Unlock()

	e.screeningCount++
	// Exponential moving average
	e.avgLatencyMs = e.avgLatencyMs*0.9 + float64(durationMs)*0.1
}

// GetAverageLatency returns the average screening latency
func (e *Engine) GetAverageLatency() float64 {
	e.latencyMu.RLock()
	defer e.latencyMu.RUnlock()
	return e.avgLatencyMs
}

// GetScreeningCount returns total screenings performed
func (e *Engine) GetScreeningCount() int64 {
	e.latencyMu.RLock()
	defer e.latencyMu.RUnlock()
	return e.screeningCount
}
