package runner

import (
	"context"
	"log/slog"
	"sync"

	"gametrack/internal/enrich"
	"gametrack/internal/logging"
)

// SessionStore persists the single resumable session. Load returns (nil, nil)
// when nothing is stored.
type SessionStore interface {
	Save(ctx context.Context, session enrich.Session) error
	Load(ctx context.Context) (*enrich.Session, error)
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process SessionStore.
type MemoryStore struct {
	mu      sync.Mutex
	session *enrich.Session
	saves   int
	clears  int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements SessionStore.
func (m *MemoryStore) Save(_ context.Context, session enrich.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := session.Clone()
	m.session = &clone
	m.saves++
	return nil
}

// Load implements SessionStore.
func (m *MemoryStore) Load(_ context.Context) (*enrich.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	clone := m.session.Clone()
	return &clone, nil
}

// Clear implements SessionStore.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	m.clears++
	return nil
}

// Stats reports how many saves and clears the store has seen.
func (m *MemoryStore) Stats() (saves, clears int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves, m.clears
}

type persistOp struct {
	clear   bool
	session enrich.Session
	gen     uint64
}

// persister writes the latest session state in the background. Only the most
// recent operation is kept; an older pending save is replaced, never queued.
type persister struct {
	store  SessionStore
	logger *slog.Logger

	mu      sync.Mutex
	pending *persistOp
	queued  uint64
	written uint64
	changed chan struct{}
	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

func newPersister(store SessionStore, logger *slog.Logger) *persister {
	p := &persister{
		store:   store,
		logger:  logger,
		changed: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if store == nil {
		close(p.stopped)
		return p
	}
	go p.run()
	return p
}

func (p *persister) save(session enrich.Session) {
	p.enqueue(persistOp{session: session})
}

func (p *persister) clear() {
	p.enqueue(persistOp{clear: true})
}

func (p *persister) enqueue(op persistOp) {
	if p.store == nil {
		return
	}
	p.mu.Lock()
	p.queued++
	op.gen = p.queued
	p.pending = &op
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.stopped)
	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.stop:
			p.drain()
			return
		}
	}
}

func (p *persister) drain() {
	for {
		p.mu.Lock()
		op := p.pending
		p.pending = nil
		p.mu.Unlock()
		if op == nil {
			return
		}
		p.write(*op)

		p.mu.Lock()
		p.written = op.gen
		close(p.changed)
		p.changed = make(chan struct{})
		p.mu.Unlock()
	}
}

func (p *persister) write(op persistOp) {
	ctx := context.Background()
	if op.clear {
		if err := p.store.Clear(ctx); err != nil {
			logging.WarnWithContext(p.logger, "session clear failed", "session_persist_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the data directory is writable"),
				logging.String(logging.FieldImpact, "a finished session may be restored on next start"),
			)
		}
		return
	}
	if err := p.store.Save(ctx, op.session); err != nil {
		logging.WarnWithContext(p.logger, "session save failed", "session_persist_failed",
			logging.String(logging.FieldSessionID, op.session.SessionID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the data directory is writable"),
			logging.String(logging.FieldImpact, "progress is kept in memory only"),
		)
	}
}

// flush waits until every operation enqueued before the call has been written.
func (p *persister) flush(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	p.mu.Lock()
	target := p.queued
	p.mu.Unlock()
	for {
		p.mu.Lock()
		if p.written >= target {
			p.mu.Unlock()
			return nil
		}
		changed := p.changed
		p.mu.Unlock()
		select {
		case <-changed:
		case <-p.stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *persister) close() {
	if p.store == nil {
		return
	}
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	<-p.stopped
}
