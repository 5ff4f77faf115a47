package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"gametrack/internal/config"
	"gametrack/internal/logging"
	"gametrack/internal/metrics"
	"gametrack/internal/runner"
	"gametrack/internal/store"
)

// Run builds the daemon from cfg, serves the API, and blocks until ctx ends.
// The runner is paused and its session flushed before Run returns.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, logHub *logging.StreamHub) error {
	if cfg == nil {
		return fmt.Errorf("daemon run: config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	collector := metrics.New()
	set := BuildProviders(cfg, st, logger)
	r := runner.New(set,
		runner.WithConfig(cfg),
		runner.WithStore(st),
		runner.WithLimiter(BuildLimiter(cfg, collector.ObserveWait)),
		runner.WithIdentityResolver(NewIdentityResolver(st)),
		runner.WithSink(st),
		runner.WithMetrics(collector),
		runner.WithLogger(logger),
	)

	d, err := New(cfg, logger, Dependencies{
		Store:           st,
		Runner:          r,
		Metrics:         collector,
		LogHub:          logHub,
		BridgeAvailable: set.Available(),
	})
	if err != nil {
		_ = r.Close()
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return err
	}

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return err
	}
	if err := srv.listen(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.serve)
	g.Go(func() error {
		<-gctx.Done()
		srv.stop()
		return nil
	})
	g.Go(func() error {
		purgeCache(gctx, cfg, st, logger)
		return nil
	})

	err = g.Wait()
	logger.Info("gametrack daemon shutting down")
	return err
}

// purgeCache drops provider cache entries older than the configured TTL.
func purgeCache(ctx context.Context, cfg *config.Config, cache *store.Store, logger *slog.Logger) {
	ttl := cfg.CacheTTL()
	if !cfg.Cache.Enabled || ttl <= 0 {
		return
	}
	removed, err := cache.PurgeCache(ctx, time.Now().Add(-ttl))
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("provider cache purge failed", logging.Error(err))
		}
		return
	}
	if removed > 0 {
		logger.Info("provider cache purged", logging.Int64("entries", removed))
	}
}
