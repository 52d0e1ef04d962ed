package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOTPSingleUse(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	store, err := NewOTPStore(ctx, pool, 10*time.Minute)
	require.NoError(t, err)

	code, expiry, err := store.IssueCode(ctx, "User@Example.com")
	require.NoError(t, err)
	require.Len(t, code, 6)
	require.True(t, expiry.After(time.Now()))

	// Email comparison is case-insensitive via lowercasing on both paths.
	ok, err := store.ConsumeCode(ctx, "user@example.com", code)
	require.NoError(t, err)
	require.True(t, ok)

	// A replay of the consumed code must fail.
	ok, err = store.ConsumeCode(ctx, "user@example.com", code)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOTPWrongCode(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	store, err := NewOTPStore(ctx, pool, 10*time.Minute)
	require.NoError(t, err)

	code, _, err := store.IssueCode(ctx, "wrong@example.com")
	require.NoError(t, err)

	ok, err := store.ConsumeCode(ctx, "wrong@example.com", "000000")
	require.NoError(t, err)
	if code == "000000" {
		t.Skip("generated code collided with the wrong-code fixture")
	}
	require.False(t, ok)
}

func TestOTPExpiry(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	store, err := NewOTPStore(ctx, pool, 50*time.Millisecond)
	require.NoError(t, err)

	code, _, err := store.IssueCode(ctx, "expired@example.com")
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	ok, err := store.ConsumeCode(ctx, "expired@example.com", code)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOTPNewIssueInvalidatesPrior(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	store, err := NewOTPStore(ctx, pool, 10*time.Minute)
	require.NoError(t, err)

	first, _, err := store.IssueCode(ctx, "rotate@example.com")
	require.NoError(t, err)

	second, _, err := store.IssueCode(ctx, "rotate@example.com")
	require.NoError(t, err)

	if first == second {
		t.Skip("consecutive codes collided")
	}

	ok, err := store.ConsumeCode(ctx, "rotate@example.com", first)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = store.ConsumeCode(ctx, "rotate@example.com", second)
	require.NoError(t, err)
	require.True(t, ok)
}
