package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCleanupSweepConverges(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	tenant := seedTenant(t, pool)
	client := seedPortalClient(t, pool, tenant.TenantID)

	otpStore, err := NewOTPStore(ctx, pool, 50*time.Millisecond)
	require.NoError(t, err)
	_, _, err = otpStore.IssueCode(ctx, "sweep@example.com")
	require.NoError(t, err)

	rlStore, err := NewRateLimitStore(ctx, pool)
	require.NoError(t, err)
	_, err = rlStore.RecordAttempt(ctx, "verify-otp", "sweep@example.com", 900)
	require.NoError(t, err)

	sessionStore, err := NewPortalSessionStore(ctx, pool)
	require.NoError(t, err)
	_, _, err = sessionStore.IssueSession(ctx, client.ClientID, 50*time.Millisecond)
	require.NoError(t, err)

	// Let the OTP and the session expire, and make the window look old.
	time.Sleep(100 * time.Millisecond)
	_, err = pool.Exec(ctx,
		"UPDATE rate_limit_windows SET window_started_at = now() - interval '2 hours'")
	require.NoError(t, err)

	store, err := NewCleanupStore(ctx, pool)
	require.NoError(t, err)

	first, err := store.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), first.OTPCodes)
	require.Equal(t, int64(1), first.RateLimits)
	require.Equal(t, int64(1), first.PortalSessions)

	// With no new data the second sweep deletes nothing.
	second, err := store.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	require.Zero(t, second.OTPCodes)
	require.Zero(t, second.RateLimits)
	require.Zero(t, second.PortalSessions)
}

func TestCleanupKeepsLiveState(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	tenant := seedTenant(t, pool)
	client := seedPortalClient(t, pool, tenant.TenantID)

	otpStore, err := NewOTPStore(ctx, pool, 10*time.Minute)
	require.NoError(t, err)
	code, _, err := otpStore.IssueCode(ctx, "live@example.com")
	require.NoError(t, err)

	sessionStore, err := NewPortalSessionStore(ctx, pool)
	require.NoError(t, err)
	raw, _, err := sessionStore.IssueSession(ctx, client.ClientID, time.Hour)
	require.NoError(t, err)

	store, err := NewCleanupStore(ctx, pool)
	require.NoError(t, err)
	_, err = store.Sweep(ctx, time.Hour)
	require.NoError(t, err)

	ok, err := otpStore.ConsumeCode(ctx, "live@example.com", code)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = sessionStore.ValidateSession(ctx, client.ClientID, raw)
	require.NoError(t, err)
}
