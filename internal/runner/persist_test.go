package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gametrack/internal/enrich"
	"gametrack/internal/logging"
)

type flakyStore struct {
	mu    sync.Mutex
	saves []string
	fail  bool
	gate  chan struct{}
}

func (f *flakyStore) Save(_ context.Context, s enrich.Session) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, s.SessionID)
	if f.fail {
		return errors.New("disk full")
	}
	return nil
}

func (f *flakyStore) Load(context.Context) (*enrich.Session, error) { return nil, nil }

func (f *flakyStore) Clear(context.Context) error { return nil }

func (f *flakyStore) Saved() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.saves...)
}

func TestPersisterCoalescesToLatest(t *testing.T) {
	gate := make(chan struct{})
	store := &flakyStore{gate: gate}
	p := newPersister(store, logging.NewNop())
	defer p.close()

	p.save(enrich.Session{SessionID: "s1"})
	// Let the writer pick up s1 and block on the gate before queueing more.
	time.Sleep(20 * time.Millisecond)
	p.save(enrich.Session{SessionID: "s2"})
	p.save(enrich.Session{SessionID: "s3"})
	close(gate)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	saved := store.Saved()
	if len(saved) != 2 || saved[0] != "s1" || saved[1] != "s3" {
		t.Fatalf("expected s1 then s3, got %v", saved)
	}
}

func TestPersisterFailureDoesNotBlock(t *testing.T) {
	store := &flakyStore{fail: true}
	p := newPersister(store, logging.NewNop())
	defer p.close()

	p.save(enrich.Session{SessionID: "s1"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	p.save(enrich.Session{SessionID: "s2"})
	if err := p.flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := len(store.Saved()); got != 2 {
		t.Fatalf("expected both saves attempted, got %d", got)
	}
}

func TestPersisterWithoutStore(t *testing.T) {
	p := newPersister(nil, logging.NewNop())
	p.save(enrich.Session{SessionID: "s1"})
	p.clear()
	if err := p.flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	p.close()
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if s, err := m.Load(ctx); err != nil || s != nil {
		t.Fatalf("expected empty store, got %v %v", s, err)
	}
	price := 4.5
	in := enrich.Session{SessionID: "x", Queue: []enrich.Row{{ID: "a", Price: &price}}}
	if err := m.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	price = 100
	out, err := m.Load(ctx)
	if err != nil || out == nil {
		t.Fatalf("Load: %v %v", out, err)
	}
	if *out.Queue[0].Price != 4.5 {
		t.Fatalf("store must keep its own copy, got %v", *out.Queue[0].Price)
	}
	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	saves, clears := m.Stats()
	if saves != 1 || clears != 1 {
		t.Fatalf("unexpected stats %d/%d", saves, clears)
	}
}
