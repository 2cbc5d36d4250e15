package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/banking/sanctions-screening/internal/app"
	"github.com/banking/sanctions-screening/internal/config"
	"github.com/banking/sanctions-screening/internal/pkg/logger"
	"github.com/banking/sanctions-screening/internal/screening"
	"github.com/banking/sanctions-screening/internal/server"
	"github.com/banking/sanctions-screening/internal/watchlist"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load(os.Getenv("SCREENING_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	log, err := logger.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Environment, cfg.Telemetry.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Wire components
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize", logger.ErrorField(err))
	}

	handler := server.NewHandler(a.Engine, a.Publisher, log)
	handler.SetCandidateBudget(cfg.Server.MaxRequestCandidates)
	if a.Cache != nil {
		handler.SetCacheStatus(a.Cache)
	}

	// 4. Initial watchlist load. The service starts degraded if nothing is available.
	pw, source, err := a.LoadWatchlist(ctx, watchlist.LoadOptions{})
	if err != nil {
		log.Error("no watchlist available at startup", logger.ErrorField(err))
	} else {
		handler.SetWatchlist(pw, string(source))
	}

	go handler.RunRefresh(ctx, cfg.Watchlist.RefreshInterval, func(ctx context.Context) (*screening.PreparedWatchlist, string, error) {
		pw, source, err := a.LoadWatchlist(ctx, watchlist.LoadOptions{Fresh: true})
		return pw, string(source), err
	})

	// 5. Start Server (Graceful Shutdown)
	e := server.New(cfg, handler, a.Registry)
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)

	go func() {
		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("shutting down the server", logger.ErrorField(err))
		}
	}()

	log.Info("server started", zap.String("addr", serverAddr))

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", logger.ErrorField(err))
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Error("failed to release resources", logger.ErrorField(err))
	}

	log.Info("server exited properly")
}
