package daemon

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gametrack/internal/bridge"
	"gametrack/internal/config"
	"gametrack/internal/dataset"
	"gametrack/internal/logging"
	"gametrack/internal/provider"
	"gametrack/internal/ratelimit"
	"gametrack/internal/runner"
	"gametrack/internal/store"
)

// BuildProviders assembles the provider set described by cfg. Offline
// datasets that fail to load are logged and left out. When cache is non-nil
// and caching is enabled, title lookups go through the response cache.
func BuildProviders(cfg *config.Config, cache bridge.Cache, logger *slog.Logger) provider.Set {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "providers")

	client := bridge.NewConfiguredClient(cfg)
	set := provider.Set{
		Price:          client,
		RemotePlaytime: client,
		RemoteCritic:   client,
		Estimator:      client,
		Environment:    client,
	}
	if cfg == nil {
		return set
	}

	if path := strings.TrimSpace(cfg.Datasets.PlaytimeCSV); path != "" {
		index, err := dataset.LoadPlaytimeFile(path)
		if err != nil {
			warnDataset(logger, "playtime", path, err)
		} else {
			set.LocalPlaytime = index
			logger.Info("playtime dataset loaded", logging.String("path", path), logging.Int("titles", index.Len()))
		}
	}
	if path := strings.TrimSpace(cfg.Datasets.CriticCSV); path != "" {
		index, err := dataset.LoadCriticFile(path)
		if err != nil {
			warnDataset(logger, "critic", path, err)
		} else {
			set.CriticIndex = index
			logger.Info("critic dataset loaded", logging.String("path", path), logging.Int("titles", index.Len()))
		}
	}

	if cfg.Cache.Enabled && cache != nil {
		cached := bridge.NewCachedProviders(client, client, client, cache, cfg.CacheTTL(), logger)
		set.RemotePlaytime = cached
		set.RemoteCritic = cached
		set.Estimator = cached
	}

	if !client.Available() {
		logging.WarnWithContext(logger, "desktop bridge not configured", "bridge_unavailable",
			logging.String(logging.FieldErrorHint, "set bridge.url or "+config.EnvBridgeURL),
			logging.String(logging.FieldImpact, "sessions finish immediately without live lookups"),
		)
	}
	return set
}

func warnDataset(logger *slog.Logger, name, path string, err error) {
	logging.WarnWithContext(logger, "dataset load failed", "dataset_load_failed",
		logging.String("dataset", name),
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the datasets section of the config"),
		logging.String(logging.FieldImpact, "rows fall through to live lookups"),
	)
}

// BuildLimiter creates the per provider class limiter from [rate_limits]. A
// nil observer disables wait reporting.
func BuildLimiter(cfg *config.Config, observer ratelimit.Observer) *ratelimit.Limiter {
	intervals := map[provider.Class]time.Duration{}
	if cfg != nil {
		intervals[provider.ClassPrice] = millis(cfg.RateLimits.PriceMS)
		intervals[provider.ClassPlaytime] = millis(cfg.RateLimits.PlaytimeMS)
		intervals[provider.ClassCritic] = millis(cfg.RateLimits.CriticMS)
		intervals[provider.ClassCatalog] = millis(cfg.RateLimits.CatalogMS)
	}
	limiter := ratelimit.New(intervals)
	if observer != nil {
		limiter.SetObserver(observer)
	}
	return limiter
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// identityResolver refreshes row identity from previously resolved metadata.
type identityResolver struct {
	store *store.Store
}

// NewIdentityResolver returns a runner.IdentityResolver backed by st.
func NewIdentityResolver(st *store.Store) runner.IdentityResolver {
	return identityResolver{store: st}
}

func (r identityResolver) ResolveIdentity(ctx context.Context, identityID string) (*runner.Identity, error) {
	meta, err := r.store.LatestForIdentity(ctx, identityID)
	if err != nil || meta == nil {
		return nil, err
	}
	return &runner.Identity{Title: meta.Title, AppID: meta.AppID}, nil
}
