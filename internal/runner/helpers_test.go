package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gametrack/internal/enrich"
	"gametrack/internal/provider"
	"gametrack/internal/ratelimit"
	"gametrack/internal/retry"
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

type playtimeIndex map[string]float64

func (p playtimeIndex) LookupPlaytime(title, _ string) (float64, bool) {
	h, ok := p[title]
	return h, ok
}

type criticIndex map[string]int

func (c criticIndex) LookupCriticScore(title, _ string) (int, bool) {
	s, ok := c[title]
	return s, ok
}

// blockingPrice parks every call until release fires or ctx ends.
type blockingPrice struct {
	calls   atomic.Int32
	release chan struct{}
	quote   provider.PriceQuote
}

func newBlockingPrice() *blockingPrice {
	return &blockingPrice{
		release: make(chan struct{}),
		quote:   provider.PriceQuote{Price: 19.99, Currency: "USD"},
	}
}

func (b *blockingPrice) FetchPrice(ctx context.Context, _ int64, _ string) (*provider.PriceQuote, error) {
	b.calls.Add(1)
	select {
	case <-b.release:
		q := b.quote
		return &q, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type recordingSink struct {
	mu     sync.Mutex
	fields []string
}

func (s *recordingSink) record(field string, row enrich.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = append(s.fields, row.ID+":"+field)
	return nil
}

func (s *recordingSink) ApplyPrice(_ context.Context, row enrich.Row) error {
	return s.record("price", row)
}

func (s *recordingSink) ApplyPlaytime(_ context.Context, row enrich.Row) error {
	return s.record("playtime", row)
}

func (s *recordingSink) ApplyCriticScore(_ context.Context, row enrich.Row) error {
	return s.record("critic", row)
}

func (s *recordingSink) Fields() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fields...)
}

type identityMap map[string]Identity

func (m identityMap) ResolveIdentity(_ context.Context, id string) (*Identity, error) {
	ident, ok := m[id]
	if !ok {
		return nil, nil
	}
	return &ident, nil
}

func appID(v int64) *int64 { return &v }

func rowsN(n int) []enrich.RowInput {
	rows := make([]enrich.RowInput, 0, n)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		rows = append(rows, enrich.RowInput{
			ID:         id,
			IdentityID: "ident-" + id,
			Title:      "Game " + id,
			AppID:      appID(int64(100 + i)),
		})
	}
	return rows
}

func newTestRunner(t *testing.T, providers provider.Set, opts ...Option) *Runner {
	t.Helper()
	base := []Option{
		WithRetryPolicy(retry.Policy{MaxAttempts: 3}),
		WithLimiter(ratelimit.New(nil)),
		WithInitDwell(0),
		WithDoneHold(time.Hour),
	}
	r := New(providers, append(base, opts...)...)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func waitFor(t *testing.T, r *Runner, desc string, cond func(enrich.Snapshot) bool) enrich.Snapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		snap := r.Snapshot()
		if cond(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last snapshot phase=%s queue=%+v", desc, snap.Phase, snap.Queue)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitDone(t *testing.T, r *Runner) enrich.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	snap, err := r.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v (phase=%s)", err, snap.Phase)
	}
	return snap
}

func countStatus(snap enrich.Snapshot, status enrich.RowStatus) int {
	return snap.Counts()[status]
}

func mustRow(t *testing.T, snap enrich.Snapshot, id string) enrich.Row {
	t.Helper()
	row, ok := snap.Row(id)
	if !ok {
		t.Fatalf("row %q missing from snapshot", id)
	}
	return row
}
