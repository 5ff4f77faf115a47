package ratelimit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"gametrack/internal/provider"
)

func TestWaitSpacesConcurrentCallers(t *testing.T) {
	interval := 40 * time.Millisecond
	lim := New(map[provider.Class]time.Duration{provider.ClassPlaytime: interval})

	const callers = 4
	var (
		mu      sync.Mutex
		granted []time.Time
		wg      sync.WaitGroup
	)
	start := time.Now()
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := lim.Wait(context.Background(), provider.ClassPlaytime); err != nil {
				t.Errorf("wait: %v", err)
				return
			}
			mu.Lock()
			granted = append(granted, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(granted) != callers {
		t.Fatalf("expected %d grants, got %d", callers, len(granted))
	}
	sort.Slice(granted, func(i, j int) bool { return granted[i].Before(granted[j]) })
	minTotal := time.Duration(callers-1) * interval
	if elapsed := granted[len(granted)-1].Sub(start); elapsed < minTotal {
		t.Fatalf("calls not spaced: last grant after %v, want >= %v", elapsed, minTotal)
	}
}

func TestClassesAreIndependent(t *testing.T) {
	lim := New(map[provider.Class]time.Duration{
		provider.ClassPrice:  time.Hour,
		provider.ClassCritic: time.Hour,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := lim.Wait(ctx, provider.ClassPrice); err != nil {
		t.Fatalf("first price call should not wait: %v", err)
	}
	if err := lim.Wait(ctx, provider.ClassCritic); err != nil {
		t.Fatalf("first critic call should not wait: %v", err)
	}
	if err := lim.Wait(ctx, provider.ClassCatalog); err != nil {
		t.Fatalf("unconfigured class should not wait: %v", err)
	}
}

func TestWaitHonoursCancellation(t *testing.T) {
	lim := New(map[provider.Class]time.Duration{provider.ClassPrice: time.Hour})
	if err := lim.Wait(context.Background(), provider.ClassPrice); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := lim.Wait(ctx, provider.ClassPrice); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestObserverReceivesWait(t *testing.T) {
	lim := New(map[provider.Class]time.Duration{provider.ClassCritic: 20 * time.Millisecond})
	var observed []time.Duration
	lim.SetObserver(func(class provider.Class, waited time.Duration) {
		if class != provider.ClassCritic {
			t.Errorf("unexpected class %s", class)
		}
		observed = append(observed, waited)
	})
	for i := 0; i < 2; i++ {
		if err := lim.Wait(context.Background(), provider.ClassCritic); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if len(observed) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(observed))
	}
	if observed[1] <= 0 {
		t.Fatalf("second call should have waited, got %v", observed[1])
	}
}

func TestIntervalReportsConfiguration(t *testing.T) {
	lim := New(map[provider.Class]time.Duration{provider.ClassPrice: time.Second, provider.ClassCatalog: 0})
	if got := lim.Interval(provider.ClassPrice); got != time.Second {
		t.Fatalf("price interval = %v", got)
	}
	if got := lim.Interval(provider.ClassCatalog); got != 0 {
		t.Fatalf("catalog interval = %v", got)
	}
}
