// Package ratelimit enforces fixed-window quotas over a shared counter store,
// so limits hold across all server processes.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Store is the atomic counter backend. Consume must increment the window's
// counter in a single storage operation and return the post-increment count;
// read-then-write implementations would let concurrent requests slip past the
// limit.
type Store interface {
	Consume(ctx context.Context, windowID, key string, windowStart, expiresAt time.Time) (int, error)
}

// Decision is the outcome of one quota check. RetryAfter is only meaningful
// when Allowed is false and tells the caller when the window resets.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter hands out slots from fixed windows anchored at multiples of the
// window duration. A slot is consumed on every call, allowed or not; denied
// calls only push the count further past the limit within the same window.
type Limiter struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// NewWithClock is used by tests to control window rollover.
func NewWithClock(store Store, now func() time.Time) *Limiter {
	return &Limiter{store: store, now: now}
}

// Allow consumes one slot from the key's current window. A store error denies
// the request: an unreachable counter must never mean unlimited sends.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	now := l.now()
	windowStart := now.Truncate(window)
	windowEnd := windowStart.Add(window)
	windowID := fmt.Sprintf("%s:%d", key, windowStart.Unix())

	count, err := l.store.Consume(ctx, windowID, key, windowStart, windowEnd)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit consume %s: %w", key, err)
	}

	if count > limit {
		return Decision{Allowed: false, RetryAfter: windowEnd.Sub(now)}, nil
	}
	return Decision{Allowed: true, Remaining: limit - count}, nil
}
