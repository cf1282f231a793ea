package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Clock abstracts time so the window can be driven from tests
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock
var SystemClock Clock = systemClock{}

// Limiter allows at most Limit requests per fixed window. One Limiter is
// shared by every caller of a remote service so they draw from one budget.
type Limiter struct {
	limit  int
	window time.Duration
	clock  Clock

	mu          sync.Mutex
	count       int
	windowStart time.Time
}

// New creates a limiter permitting limit requests per window
func New(limit int, window time.Duration, clock Clock) *Limiter {
	if clock == nil {
		clock = SystemClock
	}
	if limit < 1 {
		limit = 1
	}
	return &Limiter{
		limit:       limit,
		window:      window,
		clock:       clock,
		windowStart: clock.Now(),
	}
}

type reservationKey struct{}

type reservation struct {
	limiter *Limiter
	used    atomic.Bool
}

// Reserve blocks like Acquire and returns a context holding the slot it took.
// The first Acquire on this limiter under that context spends the held slot
// instead of taking a new one, so callers can wait for budget before starting
// a deadline for the request itself.
func (l *Limiter) Reserve(ctx context.Context) (context.Context, error) {
	if err := l.Acquire(ctx); err != nil {
		return ctx, err
	}
	return context.WithValue(ctx, reservationKey{}, &reservation{limiter: l}), nil
}

// Acquire takes one slot from the current window, blocking until the window
// resets when the budget is spent. It returns ctx.Err() if ctx ends first.
func (l *Limiter) Acquire(ctx context.Context) error {
	if held, ok := ctx.Value(reservationKey{}).(*reservation); ok && held.limiter == l && held.used.CompareAndSwap(false, true) {
		return nil
	}
	for {
		wait := l.reserve()
		if wait <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(wait):
		}
	}
}

// reserve returns 0 when a slot was taken, otherwise how long until the
// current window ends.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if elapsed := now.Sub(l.windowStart); elapsed >= l.window {
		l.windowStart = now
		l.count = 0
	}
	if l.count < l.limit {
		l.count++
		return 0
	}
	return l.window - now.Sub(l.windowStart)
}

// Remaining reports how many requests are left in the current window
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.clock.Now().Sub(l.windowStart) >= l.window {
		return l.limit
	}
	return l.limit - l.count
}
