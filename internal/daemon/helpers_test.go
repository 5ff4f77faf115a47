package daemon

import (
	"context"
	"testing"

	"gametrack/internal/api"
	"gametrack/internal/config"
	"gametrack/internal/logging"
	"gametrack/internal/metrics"
	"gametrack/internal/provider"
	"gametrack/internal/runner"
	"gametrack/internal/store"
	"gametrack/internal/testsupport"
)

type priceFunc func(ctx context.Context, appID int64, region string) (*provider.PriceQuote, error)

func (f priceFunc) FetchPrice(ctx context.Context, appID int64, region string) (*provider.PriceQuote, error) {
	return f(ctx, appID, region)
}

type playtimeFunc func(ctx context.Context, title string) (*provider.Playtime, error)

func (f playtimeFunc) FetchPlaytime(ctx context.Context, title string) (*provider.Playtime, error) {
	return f(ctx, title)
}

type criticFunc func(ctx context.Context, title string) (*provider.CriticScore, error)

func (f criticFunc) FetchCriticScore(ctx context.Context, title string) (*provider.CriticScore, error) {
	return f(ctx, title)
}

func staticProviders() provider.Set {
	return provider.Set{
		Price: priceFunc(func(context.Context, int64, string) (*provider.PriceQuote, error) {
			return &provider.PriceQuote{Price: 19.99, Currency: "USD"}, nil
		}),
		RemotePlaytime: playtimeFunc(func(context.Context, string) (*provider.Playtime, error) {
			return &provider.Playtime{Hours: 12.5, Source: "hltb"}, nil
		}),
		RemoteCritic: criticFunc(func(context.Context, string) (*provider.CriticScore, error) {
			return &provider.CriticScore{Score: 88, Source: "opencritic"}, nil
		}),
		Environment: provider.StaticEnvironment(true),
	}
}

// blockingProviders parks every price lookup until the caller's context ends.
func blockingProviders() provider.Set {
	set := staticProviders()
	set.Price = priceFunc(func(ctx context.Context, _ int64, _ string) (*provider.PriceQuote, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	return set
}

type testEnv struct {
	cfg    *config.Config
	store  *store.Store
	daemon *Daemon
	server *apiServer
	hub    *logging.StreamHub
}

func (e *testEnv) client(token string) *api.Client {
	return api.NewClient(e.server.addr(), token)
}

func newTestEnv(t *testing.T, set provider.Set, opts ...testsupport.ConfigOption) *testEnv {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithFastTimings()}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	collector := metrics.New()
	hub := logging.NewStreamHub(64)
	r := runner.New(set,
		runner.WithConfig(cfg),
		runner.WithStore(st),
		runner.WithSink(st),
		runner.WithMetrics(collector),
	)
	d, err := New(cfg, logging.NewNop(), Dependencies{
		Store:           st,
		Runner:          r,
		Metrics:         collector,
		LogHub:          hub,
		BridgeAvailable: set.Available(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	srv, err := newAPIServer(cfg, d, logging.NewNop())
	if err != nil {
		t.Fatalf("newAPIServer: %v", err)
	}
	if err := srv.listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = srv.serve() }()
	t.Cleanup(func() {
		srv.stop()
		_ = d.Close()
	})
	return &testEnv{cfg: cfg, store: st, daemon: d, server: srv, hub: hub}
}
