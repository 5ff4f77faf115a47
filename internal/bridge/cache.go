package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"gametrack/internal/logging"
	"gametrack/internal/provider"
	"gametrack/internal/titlekey"
)

const cacheSuffix = "-cache"

// Cache stores provider answers keyed by provider and lookup key.
type Cache interface {
	CacheGet(ctx context.Context, provider, key string, maxAge time.Duration) ([]byte, bool, error)
	CachePut(ctx context.Context, provider, key string, payload []byte) error
}

// cachedAnswer is the stored form of one lookup. A nil Value records that the
// provider answered without data.
type cachedAnswer[T any] struct {
	Value *T `json:"value"`
}

// CachedProviders wraps the live title lookups with a response cache. Cache
// hits report their source with a "-cache" suffix. Cache failures are logged
// and fall through to the live provider.
type CachedProviders struct {
	playtime  provider.PlaytimeFetcher
	critic    provider.CriticFetcher
	estimator provider.Estimator
	cache     Cache
	ttl       time.Duration
	logger    *slog.Logger
}

// NewCachedProviders wraps the given lookups. Any lookup may be nil.
func NewCachedProviders(playtime provider.PlaytimeFetcher, critic provider.CriticFetcher, estimator provider.Estimator, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedProviders {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CachedProviders{
		playtime:  playtime,
		critic:    critic,
		estimator: estimator,
		cache:     cache,
		ttl:       ttl,
		logger:    logging.NewComponentLogger(logger, "provider-cache"),
	}
}

// FetchPlaytime implements provider.PlaytimeFetcher.
func (p *CachedProviders) FetchPlaytime(ctx context.Context, title string) (*provider.Playtime, error) {
	return cached(ctx, p, "playtime", title, p.playtime.FetchPlaytime, markPlaytime)
}

// FetchCriticScore implements provider.CriticFetcher.
func (p *CachedProviders) FetchCriticScore(ctx context.Context, title string) (*provider.CriticScore, error) {
	return cached(ctx, p, "critic", title, p.critic.FetchCriticScore, markCritic)
}

// EstimatePlaytime implements provider.Estimator.
func (p *CachedProviders) EstimatePlaytime(ctx context.Context, title string) (*provider.Playtime, error) {
	return cached(ctx, p, "estimate-playtime", title, p.estimator.EstimatePlaytime, markPlaytime)
}

// EstimateCriticScore implements provider.Estimator.
func (p *CachedProviders) EstimateCriticScore(ctx context.Context, title string) (*provider.CriticScore, error) {
	return cached(ctx, p, "estimate-critic", title, p.estimator.EstimateCriticScore, markCritic)
}

func markPlaytime(v *provider.Playtime) { v.Source = withCacheSuffix(v.Source) }

func markCritic(v *provider.CriticScore) { v.Source = withCacheSuffix(v.Source) }

func withCacheSuffix(source string) string {
	if strings.HasSuffix(source, cacheSuffix) {
		return source
	}
	return source + cacheSuffix
}

func cached[T any](ctx context.Context, p *CachedProviders, name, title string, fetch func(context.Context, string) (*T, error), mark func(*T)) (*T, error) {
	key := titlekey.Normalize(title)
	if p.cache == nil || key == "" {
		return fetch(ctx, title)
	}

	raw, ok, err := p.cache.CacheGet(ctx, name, key, p.ttl)
	if err != nil {
		logging.WarnWithContext(p.logger, "provider cache read failed", "provider_cache_read_failed",
			logging.String(logging.FieldProvider, name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the sqlite database"),
			logging.String(logging.FieldImpact, "lookup goes to the live provider"),
		)
	}
	if ok {
		var answer cachedAnswer[T]
		if err := json.Unmarshal(raw, &answer); err == nil {
			if answer.Value != nil {
				mark(answer.Value)
			}
			p.logger.Debug("provider cache hit",
				logging.String(logging.FieldProvider, name),
				logging.String("cache_key", key),
				logging.Bool("found", answer.Value != nil),
			)
			return answer.Value, nil
		}
	}

	value, err := fetch(ctx, title)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(cachedAnswer[T]{Value: value})
	if err == nil {
		err = p.cache.CachePut(ctx, name, key, payload)
	}
	if err != nil {
		logging.WarnWithContext(p.logger, "provider cache write failed", "provider_cache_write_failed",
			logging.String(logging.FieldProvider, name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the sqlite database"),
			logging.String(logging.FieldImpact, "the next lookup repeats the live call"),
		)
	}
	return value, nil
}
