package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{counts: make(map[string]int)}
}

func (m *memoryStore) Consume(ctx context.Context, windowID, key string, windowStart, expiresAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.counts[windowID]++
	return m.counts[windowID], nil
}

func TestAllowDeniesAfterLimit(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	limiter := NewWithClock(store, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		dec, err := limiter.Allow(context.Background(), "sms:phone:+40722123456", 3, 24*time.Hour)
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "call %d should be allowed", i+1)
		assert.Equal(t, 3-(i+1), dec.Remaining)
	}

	dec, err := limiter.Allow(context.Background(), "sms:phone:+40722123456", 3, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Greater(t, dec.RetryAfter, time.Duration(0))
}

func TestAllowResetsOnNewWindow(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	limiter := NewWithClock(store, func() time.Time { return now })

	for i := 0; i < 4; i++ {
		_, err := limiter.Allow(context.Background(), "sms:ip:10.0.0.1", 3, time.Hour)
		require.NoError(t, err)
	}

	now = now.Add(time.Hour)
	dec, err := limiter.Allow(context.Background(), "sms:ip:10.0.0.1", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, dec.Allowed, "fresh window should allow again")
	assert.Equal(t, 2, dec.Remaining)
}

func TestAllowKeysAreIndependent(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	limiter := NewWithClock(store, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(context.Background(), "sms:phone:+40722123456", 3, 24*time.Hour)
		require.NoError(t, err)
	}

	dec, err := limiter.Allow(context.Background(), "sms:phone:+40733999888", 3, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, dec.Allowed, "another phone must have its own quota")
}

func TestAllowFailsClosedOnStoreError(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("store down")
	limiter := NewWithClock(store, time.Now)

	dec, err := limiter.Allow(context.Background(), "sms:phone:+40722123456", 3, 24*time.Hour)
	require.Error(t, err)
	assert.False(t, dec.Allowed)
}

func TestRetryAfterPointsAtWindowEnd(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2025, 3, 10, 9, 40, 0, 0, time.UTC)
	limiter := NewWithClock(store, func() time.Time { return now })

	for i := 0; i < 2; i++ {
		_, err := limiter.Allow(context.Background(), "sms:ip:10.0.0.9", 1, time.Hour)
		require.NoError(t, err)
	}
	dec, err := limiter.Allow(context.Background(), "sms:ip:10.0.0.9", 1, time.Hour)
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	assert.Equal(t, 20*time.Minute, dec.RetryAfter)
}
