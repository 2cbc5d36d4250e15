package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banking/sanctions-screening/internal/app"
	"github.com/banking/sanctions-screening/internal/config"
	"github.com/banking/sanctions-screening/internal/pkg/logger"
	"github.com/banking/sanctions-screening/internal/report"
	"github.com/banking/sanctions-screening/internal/roster"
	"github.com/banking/sanctions-screening/internal/watchlist"
)

type runOptions struct {
	configPath string
	offline    bool
	dataDir    string
	clientsDir string
	reportsDir string
	maxTokens  int
	verbose    bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "screener",
		Short:         "Screen client officers against the UN consolidated sanctions list",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Screen the latest client roster and write a report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runScreening(ctx, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "path to a config file")
	f.BoolVar(&opts.offline, "offline", false, "never download; use the cache or the newest archived list")
	f.StringVar(&opts.dataDir, "data-dir", "", "watchlist archive directory (overrides config)")
	f.StringVar(&opts.clientsDir, "clients-dir", "", "directory holding YYYYMMDD_clients.csv files (overrides config)")
	f.StringVar(&opts.reportsDir, "reports-dir", "", "directory for generated reports (overrides config)")
	f.IntVar(&opts.maxTokens, "max-name-tokens", 0, "skip officer names with more distinct tokens than this (overrides config)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func (o *runOptions) apply(cfg *config.Config) {
	if o.dataDir != "" {
		cfg.Watchlist.DataDir = o.dataDir
	}
	if o.clientsDir != "" {
		cfg.Roster.ClientsDir = o.clientsDir
	}
	if o.reportsDir != "" {
		cfg.Report.ReportsDir = o.reportsDir
	}
	if o.maxTokens > 0 {
		cfg.Screening.MaxNameTokens = o.maxTokens
	}
	if o.verbose {
		cfg.Telemetry.Debug = true
	}
}

func runScreening(ctx context.Context, opts *runOptions, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts.apply(cfg)

	log, err := logger.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Environment, cfg.Telemetry.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Warn("failed to release resources", logger.ErrorField(err))
		}
	}()

	pw, _, err := a.LoadWatchlist(ctx, watchlist.LoadOptions{Offline: opts.offline, Fresh: !opts.offline})
	if err != nil {
		return fmt.Errorf("load watchlist: %w", err)
	}

	rosterPath, rosterDate, err := roster.FindLatest(cfg.Roster.ClientsDir)
	if err != nil {
		return err
	}
	clients, err := roster.Load(rosterPath)
	if err != nil {
		return err
	}
	log.Info("roster loaded",
		zap.String("path", rosterPath),
		zap.String("roster_date", rosterDate.Format("2006-01-02")),
		zap.Int("rows", len(clients)),
	)

	run, err := a.Engine.ScreenPrepared(ctx, clients, pw)
	if err != nil {
		return err
	}

	path, err := report.WriteFile(cfg.Report.ReportsDir, run, time.Now())
	if err != nil {
		return err
	}
	log.ReportWritten(path, len(run.SuspiciousIdentities))

	if err := a.Publisher.PublishRun(ctx, run); err != nil {
		log.Warn("failed to publish alerts", logger.ErrorField(err))
	}

	fmt.Fprintf(out, "screened %d clients, %d suspicious identities, %d skipped names\nreport: %s\n",
		run.ClientsScreened, len(run.SuspiciousIdentities), len(run.Skipped), path)
	return nil
}
