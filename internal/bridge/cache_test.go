package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gametrack/internal/provider"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	failGet bool
}

func (m *memoryCache) CacheGet(_ context.Context, name, key string, _ time.Duration) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, false, errors.New("db locked")
	}
	payload, ok := m.entries[name+"/"+key]
	return payload, ok, nil
}

func (m *memoryCache) CachePut(_ context.Context, name, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[name+"/"+key] = payload
	return nil
}

type countingPlaytime struct {
	calls  int
	answer *provider.Playtime
}

func (c *countingPlaytime) FetchPlaytime(context.Context, string) (*provider.Playtime, error) {
	c.calls++
	if c.answer == nil {
		return nil, nil
	}
	out := *c.answer
	return &out, nil
}

func TestCachedPlaytimeHitReportsCacheSource(t *testing.T) {
	live := &countingPlaytime{answer: &provider.Playtime{Hours: 12, Source: "hltb"}}
	cache := &memoryCache{}
	p := NewCachedProviders(live, nil, nil, cache, time.Hour, nil)
	ctx := context.Background()

	first, err := p.FetchPlaytime(ctx, "Hollow Knight")
	if err != nil || first == nil || first.Source != "hltb" {
		t.Fatalf("unexpected first answer %#v %v", first, err)
	}
	second, err := p.FetchPlaytime(ctx, "hollow knight™")
	if err != nil || second == nil {
		t.Fatalf("unexpected cached answer %#v %v", second, err)
	}
	if second.Hours != 12 || second.Source != "hltb-cache" {
		t.Fatalf("expected cached hltb answer, got %#v", second)
	}
	if live.calls != 1 {
		t.Fatalf("expected one live call, got %d", live.calls)
	}
}

func TestCachedMissIsRemembered(t *testing.T) {
	live := &countingPlaytime{}
	p := NewCachedProviders(live, nil, nil, &memoryCache{}, time.Hour, nil)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		got, err := p.FetchPlaytime(ctx, "Nothing Here")
		if err != nil || got != nil {
			t.Fatalf("expected cached miss, got %#v %v", got, err)
		}
	}
	if live.calls != 1 {
		t.Fatalf("expected a single live call, got %d", live.calls)
	}
}

func TestCacheReadFailureFallsThrough(t *testing.T) {
	live := &countingPlaytime{answer: &provider.Playtime{Hours: 3, Source: "hltb"}}
	p := NewCachedProviders(live, nil, nil, &memoryCache{failGet: true}, time.Hour, nil)
	got, err := p.FetchPlaytime(context.Background(), "Celeste")
	if err != nil || got == nil || got.Source != "hltb" {
		t.Fatalf("expected live answer, got %#v %v", got, err)
	}
}
