package runner

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"gametrack/internal/config"
	"gametrack/internal/provider"
	"gametrack/internal/ratelimit"
	"gametrack/internal/retry"
)

const (
	defaultConcurrency = 3
	defaultRecentLimit = 10
	defaultInitDwell   = 600 * time.Millisecond
	defaultDoneHold    = 5 * time.Second
)

// defaultIntervals space provider calls when no limiter is supplied.
var defaultIntervals = map[provider.Class]time.Duration{
	provider.ClassPrice:    1000 * time.Millisecond,
	provider.ClassPlaytime: 800 * time.Millisecond,
	provider.ClassCritic:   800 * time.Millisecond,
	provider.ClassCatalog:  1000 * time.Millisecond,
}

// Option configures optional Runner behavior.
type Option func(*options)

type options struct {
	store         SessionStore
	limiter       *ratelimit.Limiter
	policy        retry.Policy
	concurrency   int
	initDwell     time.Duration
	doneHold      time.Duration
	recentLimit   int
	defaultRegion string
	identity      IdentityResolver
	sink          LibrarySink
	metrics       Metrics
	logger        *slog.Logger
	clock         func() time.Time
	newID         func() string
}

func defaultOptions() options {
	return options{
		limiter:     ratelimit.New(defaultIntervals),
		policy:      retry.Default(),
		concurrency: defaultConcurrency,
		initDwell:   defaultInitDwell,
		doneHold:    defaultDoneHold,
		recentLimit: defaultRecentLimit,
		clock:       time.Now,
		newID:       uuid.NewString,
	}
}

// WithConfig applies the [enrichment] section of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		if cfg == nil {
			return
		}
		e := cfg.Enrichment
		if e.Concurrency > 0 {
			o.concurrency = e.Concurrency
		}
		if e.MaxAttempts > 0 {
			o.policy.MaxAttempts = e.MaxAttempts
		}
		o.policy.Base = cfg.BackoffBase()
		o.policy.Jitter = cfg.BackoffJitter()
		o.initDwell = cfg.InitDwell()
		o.doneHold = cfg.DoneHold()
		if e.RecentLimit > 0 {
			o.recentLimit = e.RecentLimit
		}
		o.defaultRegion = strings.TrimSpace(e.DefaultRegion)
	}
}

// WithStore persists sessions through store.
func WithStore(store SessionStore) Option {
	return func(o *options) { o.store = store }
}

// WithLimiter replaces the default per class spacing. Nil disables limiting.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithRetryPolicy overrides the attempt budget and backoff. Gate and OnAttempt
// are owned by the runner and ignored.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *options) {
		p.Gate = nil
		p.OnAttempt = nil
		o.policy = p
	}
}

// WithConcurrency caps the number of rows in flight.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithInitDwell sets the minimum time spent in the init phase before active.
func WithInitDwell(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.initDwell = d
		}
	}
}

// WithDoneHold sets how long a finished session stays visible before the
// runner returns to idle.
func WithDoneHold(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.doneHold = d
		}
	}
}

// WithRecentLimit bounds the recent completions list.
func WithRecentLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.recentLimit = n
		}
	}
}

// WithDefaultRegion is used when Start receives no region.
func WithDefaultRegion(region string) Option {
	return func(o *options) { o.defaultRegion = strings.TrimSpace(region) }
}

// WithIdentityResolver refreshes row titles and app ids before the first call.
func WithIdentityResolver(r IdentityResolver) Option {
	return func(o *options) { o.identity = r }
}

// WithSink receives resolved fields as soon as they are known.
func WithSink(s LibrarySink) Option {
	return func(o *options) { o.sink = s }
}

// WithMetrics records provider and row counters.
func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock replaces time.Now for row and session timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithSessionIDs replaces the session id generator.
func WithSessionIDs(next func() string) Option {
	return func(o *options) {
		if next != nil {
			o.newID = next
		}
	}
}
