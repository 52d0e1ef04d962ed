package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPortalSessionLifecycle(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	tenant := seedTenant(t, pool)
	client := seedPortalClient(t, pool, tenant.TenantID)

	store, err := NewPortalSessionStore(ctx, pool)
	require.NoError(t, err)

	raw, expiry, err := store.IssueSession(ctx, client.ClientID, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.True(t, expiry.After(time.Now()))

	validated, err := store.ValidateSession(ctx, client.ClientID, raw)
	require.NoError(t, err)
	require.Equal(t, client.ClientID, validated.ClientID)
	require.Equal(t, tenant.TenantID, validated.TenantID)

	// Any bit flip of the raw token must fail validation.
	flipped := []byte(raw)
	flipped[0] ^= 0x01
	_, err = store.ValidateSession(ctx, client.ClientID, string(flipped))
	require.ErrorIs(t, err, ErrPortalSessionInvalid)

	// Valid token against another client id must fail too.
	_, err = store.ValidateSession(ctx, uuid.New(), raw)
	require.ErrorIs(t, err, ErrPortalSessionInvalid)
}

func TestPortalSessionRevoke(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	tenant := seedTenant(t, pool)
	client := seedPortalClient(t, pool, tenant.TenantID)

	store, err := NewPortalSessionStore(ctx, pool)
	require.NoError(t, err)

	raw, _, err := store.IssueSession(ctx, client.ClientID, time.Hour)
	require.NoError(t, err)

	// A wrong token must not revoke the session.
	require.NoError(t, store.RevokeSession(ctx, client.ClientID, "not-the-token"))
	_, err = store.ValidateSession(ctx, client.ClientID, raw)
	require.NoError(t, err)

	require.NoError(t, store.RevokeSession(ctx, client.ClientID, raw))
	_, err = store.ValidateSession(ctx, client.ClientID, raw)
	require.ErrorIs(t, err, ErrPortalSessionInvalid)

	// Revoking again, or revoking a non-existent session, still succeeds.
	require.NoError(t, store.RevokeSession(ctx, client.ClientID, raw))
	require.NoError(t, store.RevokeSession(ctx, uuid.New(), raw))
}

func TestPortalSessionExpiry(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	tenant := seedTenant(t, pool)
	client := seedPortalClient(t, pool, tenant.TenantID)

	store, err := NewPortalSessionStore(ctx, pool)
	require.NoError(t, err)

	raw, _, err := store.IssueSession(ctx, client.ClientID, 50*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	_, err = store.ValidateSession(ctx, client.ClientID, raw)
	require.ErrorIs(t, err, ErrPortalSessionInvalid)
}

func TestPortalSessionInactiveClient(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	tenant := seedTenant(t, pool)
	client := seedPortalClient(t, pool, tenant.TenantID)

	store, err := NewPortalSessionStore(ctx, pool)
	require.NoError(t, err)

	raw, _, err := store.IssueSession(ctx, client.ClientID, time.Hour)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, "UPDATE portal_clients SET is_active = FALSE WHERE client_id = $1", client.ClientID)
	require.NoError(t, err)

	_, err = store.ValidateSession(ctx, client.ClientID, raw)
	require.ErrorIs(t, err, ErrPortalSessionInvalid)
}
