// Package ratelimit implements per-caller request counting over a fixed
// UTC-day window. Counters live behind an injectable store so tests and
// single-node deployments use memory while clustered deployments share a
// Redis counter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/marketbeam/taskgate/internal/domain"
)

// CounterStore is the per-key counter the limiter runs on. Incr must
// atomically increment the counter at key and return the new value; expiry
// bounds how long the key outlives its window.
type CounterStore interface {
	Incr(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// Limiter counts requests per (caller, UTC day) and evaluates them against
// a limit. The increment happens before evaluation, so the request being
// checked is always included in the count.
type Limiter struct {
	store CounterStore
	now   func() time.Time
}

// New creates a Limiter over the given store.
func New(store CounterStore) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// WithClock overrides the limiter's clock. Test hook.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Check increments the caller's counter for the current window and
// evaluates it against limit. ResetAt is always the next window boundary
// in absolute time, independent of when the key was first seen.
func (l *Limiter) Check(ctx context.Context, callerID string, limit int) (domain.RateLimitSnapshot, error) {
	now := l.now().UTC()
	windowEnd := nextUTCMidnight(now)

	// Keys carry the window date, so a new window gets a fresh counter
	// even if the old key has not expired yet. The expiry adds a small
	// grace margin past the boundary.
	key := fmt.Sprintf("ratelimit:%s:%s", callerID, now.Format("2006-01-02"))
	expiry := windowEnd.Sub(now) + time.Hour

	count, err := l.store.Incr(ctx, key, expiry)
	if err != nil {
		return domain.RateLimitSnapshot{}, fmt.Errorf("increment rate counter: %w", err)
	}

	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateLimitSnapshot{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: int(remaining),
		ResetAt:   windowEnd,
	}, nil
}

func nextUTCMidnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
