package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"upstox-chainwatch/internal/engine"
	"upstox-chainwatch/internal/errors"
	"upstox-chainwatch/internal/meta"
	"upstox-chainwatch/internal/refdata"
	"upstox-chainwatch/internal/snapshot"
	"upstox-chainwatch/internal/state"
	"upstox-chainwatch/internal/store"
	"upstox-chainwatch/internal/stream"
	"upstox-chainwatch/internal/upstox"
	"upstox-chainwatch/pkg/utils"
)

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tracker and the broadcast server",
		Long: `Starts the refresh loops (metadata, quotes, volatility), the snapshot
journal, and the HTTP server exposing the websocket feed on /ws.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(app)
		},
	}
}

func runServe(app *App) error {
	cfg := app.Config
	logger := app.Logger

	if !cfg.Authenticated() {
		return errors.Wrap(errors.ErrNotAuthenticated, "set upstox.access_token in credentials.toml or UPSTOX_ACCESS_TOKEN")
	}

	tables, err := refdata.Load(cfg.ConfigDir)
	if err != nil {
		return errors.Wrap(err, "loading reference tables")
	}
	targets := buildTargets(cfg, tables)
	if len(targets) == 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "no tracked underlyings")
	}

	client := upstox.NewClient(upstox.Config{
		AccessToken: cfg.Credentials.Upstox.AccessToken,
		Timeout:     cfg.Refresh.FetchTimeout,
		Retry: utils.RetryConfig{
			MaxAttempts:   cfg.Refresh.RetryAttempts,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			BackoffFactor: 2.0,
		},
	}, logger)

	st := state.NewStore()
	resolver := meta.NewResolver(meta.Config{
		Concurrency: cfg.Refresh.MetaWorkers,
		Timeout:     cfg.Refresh.FetchTimeout,
	}, client, logger)
	builder := snapshot.NewBuilder(st, tables, logger)

	var sink engine.SnapshotSink
	var journal *store.SnapshotJournal
	if cfg.Journal.Enabled {
		journal, err = store.NewSnapshotJournal(cfg.Journal.Path, logger)
		if err != nil {
			// Journaling is a side effect; the tracker runs without it.
			logger.Warn().Err(err).Msg("snapshot journal unavailable")
		} else {
			sink = journal
			defer journal.Close()
		}
	}

	eng := engine.New(engine.Config{
		QuoteInterval: cfg.Refresh.QuoteInterval,
		MetaInterval:  cfg.Refresh.MetaInterval,
		VIXInterval:   cfg.Refresh.VIXInterval,
		BatchSize:     cfg.Refresh.BatchSize,
		QuoteWorkers:  cfg.Refresh.QuoteWorkers,
		FetchTimeout:  cfg.Refresh.FetchTimeout,
	}, st, resolver, targets, client, builder, sink, logger)

	hub := stream.NewHub(stream.HubConfig{PollInterval: cfg.Server.PollInterval}, st, logger)
	server := stream.NewServer(stream.ServerConfig{
		Addr:      cfg.Server.Addr,
		IndexPage: cfg.Server.IndexPage,
	}, hub, st, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !utils.IsMarketOpen() {
		logger.Warn().Msg("market is closed; quotes will sit on yesterday's close")
	}

	eng.Start(ctx)
	server.Start()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	eng.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
