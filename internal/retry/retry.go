// Package retry runs provider calls with a bounded attempt budget and jittered
// backoff, converting every failure into an Outcome value.
//
// Cancellation of the supplied context is treated as a pause signal: Do stops
// at the next checkpoint and reports StatusPaused without spending further
// attempts. A call that is still running when the context ends is abandoned and
// its late result discarded.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"gametrack/internal/provider"
)

// Status classifies how a retried call ended.
type Status string

const (
	StatusOK          Status = "ok"
	StatusNotFound    Status = "not_found"
	StatusFailed      Status = "error"
	StatusUnavailable Status = "unavailable"
	StatusPaused      Status = "paused"
)

// Outcome is the result of a retried call.
type Outcome[T any] struct {
	Value    T
	Status   Status
	Err      error
	Attempts int
}

// OK reports whether the call produced a value.
func (o Outcome[T]) OK() bool { return o.Status == StatusOK }

// Policy configures Do.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Jitter      time.Duration

	// Gate runs before every attempt, typically a rate-limiter wait.
	Gate func(ctx context.Context) error
	// OnAttempt is called once per attempt actually issued.
	OnAttempt func(attempt int)
	// Rand returns a value in [0,1). Defaults to math/rand/v2.
	Rand func() float64
}

// Default mirrors the engine defaults: 3 attempts, 700ms base, 300ms jitter.
func Default() Policy {
	return Policy{MaxAttempts: 3, Base: 700 * time.Millisecond, Jitter: 300 * time.Millisecond}
}

// Backoff returns the pause before the next attempt.
func (p Policy) Backoff() time.Duration {
	d := p.Base
	if p.Jitter > 0 {
		r := rand.Float64
		if p.Rand != nil {
			r = p.Rand
		}
		d += time.Duration(r() * float64(p.Jitter))
	}
	if d < 0 {
		return 0
	}
	return d
}

type callResult[T any] struct {
	value T
	err   error
}

// Do invokes fn until it succeeds, fails permanently, the budget runs out, or
// ctx is done.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) Outcome[T] {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var out Outcome[T]
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			out.Status = StatusPaused
			return out
		}
		if p.Gate != nil {
			if err := p.Gate(ctx); err != nil {
				if ctx.Err() != nil {
					out.Status = StatusPaused
					return out
				}
				out.Status = StatusFailed
				out.Err = err
				return out
			}
		}
		if ctx.Err() != nil {
			out.Status = StatusPaused
			return out
		}

		out.Attempts = attempt
		if p.OnAttempt != nil {
			p.OnAttempt(attempt)
		}
		res, paused := call(ctx, fn)
		value, err := res.value, res.err
		if paused {
			out.Status = StatusPaused
			out.Err = nil
			return out
		}
		if err == nil {
			out.Value = value
			out.Status = StatusOK
			out.Err = nil
			return out
		}
		out.Err = err
		switch {
		case errors.Is(err, provider.ErrNotFound):
			out.Status = StatusNotFound
			return out
		case errors.Is(err, provider.ErrUnavailable):
			out.Status = StatusUnavailable
			return out
		case !provider.IsTransient(err):
			out.Status = StatusFailed
			return out
		}
		if attempt == attempts {
			break
		}
		if !sleep(ctx, p.Backoff()) {
			out.Status = StatusPaused
			out.Err = nil
			return out
		}
	}
	out.Status = StatusFailed
	return out
}

// call runs fn in its own goroutine so a pause never waits on a slow provider.
func call[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (callResult[T], bool) {
	done := make(chan callResult[T], 1)
	go func() {
		value, err := fn(ctx)
		done <- callResult[T]{value: value, err: err}
	}()
	select {
	case res := <-done:
		if res.err != nil && ctx.Err() != nil {
			return callResult[T]{}, true
		}
		return res, false
	case <-ctx.Done():
		return callResult[T]{}, true
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return ctx.Err() == nil
	case <-ctx.Done():
		return false
	}
}
