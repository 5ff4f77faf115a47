package runner

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"gametrack/internal/enrich"
	"gametrack/internal/logging"
	"gametrack/internal/provider"
	"gametrack/internal/ratelimit"
	"gametrack/internal/retry"
)

var (
	// ErrNoRows is returned by Start when the submission is empty.
	ErrNoRows = errors.New("runner: no rows to enrich")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("runner: closed")
)

const (
	msgFinished    = "Enrichment finished."
	msgPaused      = "Paused."
	msgReady       = "Ready to resume enrichment."
	msgUnavailable = "Live enrichment is unavailable. Start the desktop bridge to fetch metadata."
	msgNoResume    = "Live enrichment is unavailable. Start the desktop bridge to resume."
	msgShutdown    = "Paused for shutdown."
)

// Runner coordinates enrichment sessions. It is safe for concurrent use.
type Runner struct {
	providers     provider.Set
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

	hub     *hub
	persist *persister

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	sess    *session
	message string
	seq     uint64
	closed  bool
}

// session is the mutable state of one run. Guarded by Runner.mu.
type session struct {
	id          string
	startedAt   time.Time
	lastUpdated time.Time
	paused      bool
	region      string
	queue       *rowQueue
	recent      []enrich.RowSummary
	phase       enrich.Phase
	finished    bool

	initStarted   time.Time
	activateTimer *time.Timer
	holdTimer     *time.Timer

	epoch  context.Context
	stop   context.CancelFunc
	active map[string]uint64
	lease  uint64

	done     chan struct{}
	doneOnce sync.Once
	final    enrich.Snapshot
}

// New constructs a Runner over the given providers.
func New(providers provider.Set, opts ...Option) *Runner {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.NewComponentLogger(o.logger, "runner")
	metrics := o.metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		providers:     providers,
		limiter:       o.limiter,
		policy:        o.policy,
		concurrency:   o.concurrency,
		initDwell:     o.initDwell,
		doneHold:      o.doneHold,
		recentLimit:   o.recentLimit,
		defaultRegion: o.defaultRegion,
		identity:      o.identity,
		sink:          o.sink,
		metrics:       metrics,
		logger:        logger,
		clock:         o.clock,
		newID:         o.newID,
		hub:           newHub(),
		persist:       newPersister(o.store, logger),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Snapshot returns the current state.
func (r *Runner) Snapshot() enrich.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buildLocked()
}

// Subscribe streams snapshots, starting with the current one. The channel is
// closed by the returned cancel func or when the runner closes.
func (r *Runner) Subscribe() (<-chan enrich.Snapshot, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hub.subscribe(r.buildLocked())
}

// Wait blocks until the current session finishes or is cancelled and returns
// the final snapshot. With no session it returns immediately.
func (r *Runner) Wait(ctx context.Context) (enrich.Snapshot, error) {
	r.mu.Lock()
	s := r.sess
	if s == nil {
		snap := r.buildLocked()
		r.mu.Unlock()
		return snap, nil
	}
	r.mu.Unlock()

	select {
	case <-s.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return s.final, nil
	case <-ctx.Done():
		return r.Snapshot(), ctx.Err()
	}
}

// Flush waits for pending persistence writes.
func (r *Runner) Flush(ctx context.Context) error {
	return r.persist.flush(ctx)
}

// Close pauses any running session, waits for workers to unwind, and flushes
// persistence. The runner cannot be restarted.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	if s := r.sess; s != nil {
		if !s.finished && !s.paused {
			r.pauseLocked(s, msgShutdown)
			r.publishLocked()
		}
		stopTimer(s.activateTimer)
		stopTimer(s.holdTimer)
	}
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	r.hub.close()
	r.persist.close()
	return nil
}

func (r *Runner) stamp() time.Time {
	return r.clock().UTC().Truncate(time.Millisecond)
}

// touch advances a row timestamp without ever moving it backwards.
func (r *Runner) touch(s *session, row *enrich.Row) {
	now := r.stamp()
	if now.Before(row.UpdatedAt) {
		now = row.UpdatedAt
	}
	row.UpdatedAt = now
	if now.After(s.lastUpdated) {
		s.lastUpdated = now
	}
}

func (r *Runner) buildLocked() enrich.Snapshot {
	snap := enrich.Snapshot{
		Seq:     r.seq,
		Phase:   enrich.PhaseIdle,
		Paused:  false,
		Message: r.message,
		Capable: r.providers.Available(),
		Queue:   []enrich.Row{},
		Recent:  []enrich.RowSummary{},

		ActiveRowIDs: []string{},
	}
	s := r.sess
	if s == nil {
		return snap
	}
	startedAt := s.startedAt
	lastUpdated := s.lastUpdated
	snap.SessionID = s.id
	snap.StartedAt = &startedAt
	snap.LastUpdated = &lastUpdated
	snap.Paused = s.paused
	snap.TotalRows = s.queue.Len()
	snap.CompletedCount = s.queue.Count(enrich.StatusDone)
	snap.Region = s.region
	snap.Queue = s.queue.Rows()
	snap.Recent = slices.Clone(s.recent)
	if snap.Recent == nil {
		snap.Recent = []enrich.RowSummary{}
	}
	for id := range s.active {
		snap.ActiveRowIDs = append(snap.ActiveRowIDs, id)
	}
	slices.Sort(snap.ActiveRowIDs)
	snap.Phase = s.phase
	snap.Finished = s.finished
	return snap
}

func (r *Runner) sessionLocked(s *session) enrich.Session {
	return enrich.Session{
		SessionID:      s.id,
		StartedAt:      s.startedAt,
		LastUpdated:    s.lastUpdated,
		Paused:         s.paused,
		TotalRows:      s.queue.Len(),
		CompletedCount: s.queue.Count(enrich.StatusDone),
		Region:         s.region,
		Queue:          s.queue.Rows(),
		Recent:         slices.Clone(s.recent),
		Phase:          s.phase,
	}
}

// publishLocked bumps the sequence, notifies observers, and persists the open
// session. Finished sessions are cleared by finishLocked instead.
func (r *Runner) publishLocked() enrich.Snapshot {
	r.seq++
	snap := r.buildLocked()
	r.hub.publish(snap)
	if s := r.sess; s != nil && !s.finished {
		r.persist.save(r.sessionLocked(s))
	}
	return snap
}

func (s *session) isActive(id string) bool {
	_, ok := s.active[id]
	return ok
}

func (s *session) closeDone(final enrich.Snapshot) {
	s.doneOnce.Do(func() {
		s.final = final
		close(s.done)
	})
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
