// Package ratelimit spaces provider calls per provider class.
//
// Each class owns a token bucket with burst 1 so back-to-back calls are
// separated by at least the configured interval regardless of how many rows
// are in flight. Waits are context-aware suspension points.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"gametrack/internal/provider"
)

// Observer is notified with the time a caller spent waiting for a slot.
type Observer func(class provider.Class, waited time.Duration)

// Limiter enforces a minimum spacing between calls of the same class.
type Limiter struct {
	mu       sync.Mutex
	limiters map[provider.Class]*rate.Limiter
	observe  Observer
}

// New builds a limiter from per-class intervals. A zero or negative interval
// disables limiting for that class; classes not listed are unlimited.
func New(intervals map[provider.Class]time.Duration) *Limiter {
	l := &Limiter{limiters: make(map[provider.Class]*rate.Limiter, len(intervals))}
	for class, interval := range intervals {
		l.limiters[class] = newClassLimiter(interval)
	}
	return l
}

// SetObserver installs a wait observer. Nil clears it.
func (l *Limiter) SetObserver(fn Observer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.observe = fn
	l.mu.Unlock()
}

// Wait blocks until the class may issue its next call or ctx is done.
func (l *Limiter) Wait(ctx context.Context, class provider.Class) error {
	if l == nil {
		return ctx.Err()
	}
	l.mu.Lock()
	lim := l.limiters[class]
	observe := l.observe
	l.mu.Unlock()
	if lim == nil {
		return ctx.Err()
	}

	start := time.Now()
	if err := lim.Wait(ctx); err != nil {
		return err
	}
	if observe != nil {
		observe(class, time.Since(start))
	}
	return nil
}

// Interval reports the configured spacing for a class.
func (l *Limiter) Interval(class provider.Class) time.Duration {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	lim := l.limiters[class]
	l.mu.Unlock()
	if lim == nil || lim.Limit() == rate.Inf {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(lim.Limit()))
}

func newClassLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
