package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimitCounting(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	store, err := NewRateLimitStore(ctx, pool)
	require.NoError(t, err)

	for i := 1; i <= 6; i++ {
		state, err := store.RecordAttempt(ctx, "verify-otp", "x@y.com", 900)
		require.NoError(t, err)
		require.Equal(t, i, state.Attempts)
		// The remainder comes from the database clock and stays in bounds.
		require.Greater(t, state.Remaining, time.Duration(0))
		require.LessOrEqual(t, state.Remaining, 900*time.Second)
	}
}

func TestRateLimitWindowReset(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	store, err := NewRateLimitStore(ctx, pool)
	require.NoError(t, err)

	state, err := store.RecordAttempt(ctx, "verify-otp", "reset@y.com", 1)
	require.NoError(t, err)
	require.Equal(t, 1, state.Attempts)

	state, err = store.RecordAttempt(ctx, "verify-otp", "reset@y.com", 1)
	require.NoError(t, err)
	require.Equal(t, 2, state.Attempts)

	time.Sleep(1100 * time.Millisecond)

	state, err = store.RecordAttempt(ctx, "verify-otp", "reset@y.com", 1)
	require.NoError(t, err)
	require.Equal(t, 1, state.Attempts)
}

func TestRateLimitConcurrentAttempts(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	store, err := NewRateLimitStore(ctx, pool)
	require.NoError(t, err)

	const attempts = 20
	seen := make([]int, attempts)
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			state, err := store.RecordAttempt(ctx, "portal-login", "race@y.com", 900)
			if err != nil {
				t.Errorf("record attempt: %v", err)
				return
			}
			seen[slot] = state.Attempts
		}(i)
	}
	wg.Wait()

	// The upsert is atomic at the row, so every attempt must observe a distinct count.
	distinct := make(map[int]bool, attempts)
	for _, count := range seen {
		require.False(t, distinct[count], "attempt count %d observed twice", count)
		distinct[count] = true
	}
	require.True(t, distinct[attempts], "final attempt count must reach %d", attempts)
}

func TestRateLimitIdentifiersIsolated(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	store, err := NewRateLimitStore(ctx, pool)
	require.NoError(t, err)

	_, err = store.RecordAttempt(ctx, "verify-otp", "a@y.com", 900)
	require.NoError(t, err)

	state, err := store.RecordAttempt(ctx, "verify-otp", "b@y.com", 900)
	require.NoError(t, err)
	require.Equal(t, 1, state.Attempts)

	state, err = store.RecordAttempt(ctx, "issue-otp", "a@y.com", 900)
	require.NoError(t, err)
	require.Equal(t, 1, state.Attempts)
}
