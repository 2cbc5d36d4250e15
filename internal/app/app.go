// Package app wires configuration into the screening components shared by
// the HTTP service and the batch CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/banking/sanctions-screening/internal/cache"
	"github.com/banking/sanctions-screening/internal/config"
	"github.com/banking/sanctions-screening/internal/events"
	"github.com/banking/sanctions-screening/internal/pkg/logger"
	"github.com/banking/sanctions-screening/internal/pkg/metrics"
	"github.com/banking/sanctions-screening/internal/pkg/telemetry"
	"github.com/banking/sanctions-screening/internal/screening"
	"github.com/banking/sanctions-screening/internal/watchlist"
)

// App holds the long-lived components built from configuration.
// Cache is nil when Redis is disabled or unreachable.
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	Engine    *screening.Engine
	Loader    *watchlist.Loader
	Publisher events.AlertPublisher
	Cache     *cache.RedisWatchlistCache
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics

	redis             *redis.Client
	shutdownTelemetry telemetry.ShutdownFunc
}

// New builds every component. Close releases them.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	a := &App{
		Config:            cfg,
		Log:               log,
		Engine:            screening.NewEngine(&cfg.Screening, log).WithMetrics(m),
		Registry:          reg,
		Metrics:           m,
		shutdownTelemetry: shutdown,
	}

	// Left as a nil interface when disabled so the loader skips it
	var wlCache watchlist.Cache
	if cfg.Redis.Enabled {
		a.redis = cache.NewRedisClient(cfg.Redis)
		rc := cache.NewRedisWatchlistCache(a.redis)
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unavailable, continuing without watchlist cache", logger.ErrorField(err))
		} else {
			wlCache = rc
			a.Cache = rc
		}
	}

	archive := watchlist.NewArchive(cfg.Watchlist.DataDir)
	downloader := watchlist.NewDownloader(cfg.Watchlist, archive, log)
	a.Loader = watchlist.NewLoader(wlCache, archive, downloader, cfg.Redis.WatchlistCacheTTL, log)

	a.Publisher, err = events.NewPublisher(cfg.Kafka, log)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("create alert publisher: %w", err)
	}
	return a, nil
}

// LoadWatchlist resolves the watchlist and prepares its index
func (a *App) LoadWatchlist(ctx context.Context, opts watchlist.LoadOptions) (*screening.PreparedWatchlist, watchlist.Source, error) {
	wl, source, err := a.Loader.Load(ctx, opts)
	if err != nil {
		return nil, "", err
	}
	pw := screening.Prepare(wl)
	a.Log.WatchlistLoaded(string(source), len(wl.Individuals), pw.Index.Len())
	a.Metrics.ObserveWatchlistLoad(string(source), pw.Index.Len())
	return pw, source, nil
}

// Close releases external connections and flushes traces
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.shutdownTelemetry != nil {
		errs = append(errs, a.shutdownTelemetry(ctx))
	}
	return errors.Join(errs...)
}
