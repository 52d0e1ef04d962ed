package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUserCreateNormalizesEmail(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	tenant := seedTenant(t, pool)
	store, err := NewUserStore(ctx, pool)
	require.NoError(t, err)

	user, err := store.CreateUser(ctx, CreateUserParams{
		UserID:   uuid.New(),
		TenantID: tenant.TenantID,
		Email:    "  PM@Acme.COM ",
		FullName: "Pat Miller",
		Role:     "member",
	})
	require.NoError(t, err)
	require.Equal(t, "pm@acme.com", user.Email)

	byEmail, err := store.GetUserByEmail(ctx, "pm@ACME.com")
	require.NoError(t, err)
	require.Equal(t, user.UserID, byEmail.UserID)
}

func TestUserEmailConflict(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	tenant := seedTenant(t, pool)
	store, err := NewUserStore(ctx, pool)
	require.NoError(t, err)

	params := CreateUserParams{
		UserID:   uuid.New(),
		TenantID: tenant.TenantID,
		Email:    "dup@acme.com",
		FullName: "First",
		Role:     "member",
	}
	_, err = store.CreateUser(ctx, params)
	require.NoError(t, err)

	params.UserID = uuid.New()
	params.FullName = "Second"
	_, err = store.CreateUser(ctx, params)
	require.ErrorIs(t, err, ErrUserConflict)
}

func TestUserListScopedToTenant(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	tenantA := seedTenant(t, pool)
	tenantB := seedTenant(t, pool)
	store, err := NewUserStore(ctx, pool)
	require.NoError(t, err)

	for i, tid := range []uuid.UUID{tenantA.TenantID, tenantA.TenantID, tenantB.TenantID} {
		_, err := store.CreateUser(ctx, CreateUserParams{
			UserID:   uuid.New(),
			TenantID: tid,
			Email:    fmt.Sprintf("user%d-%s@acme.com", i, uuid.New().String()[:8]),
			FullName: "Someone",
			Role:     "member",
		})
		require.NoError(t, err)
	}

	result, err := store.ListUsers(ctx, tenantA.TenantID, ListUsersParams{})
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalItems)
	for _, u := range result.Users {
		require.Equal(t, tenantA.TenantID, u.TenantID)
	}
}

func TestUserUpdateWrongTenant(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	tenantA := seedTenant(t, pool)
	tenantB := seedTenant(t, pool)
	store, err := NewUserStore(ctx, pool)
	require.NoError(t, err)

	user, err := store.CreateUser(ctx, CreateUserParams{
		UserID:   uuid.New(),
		TenantID: tenantA.TenantID,
		Email:    fmt.Sprintf("owner-%s@acme.com", uuid.New().String()[:8]),
		FullName: "Owner",
		Role:     "owner",
	})
	require.NoError(t, err)

	name := "Hijacked"
	_, err = store.UpdateUser(ctx, tenantB.TenantID, user.UserID, UpdateUserParams{FullName: &name})
	require.ErrorIs(t, err, ErrUserNotFound)

	require.ErrorIs(t, store.DeactivateUser(ctx, tenantB.TenantID, user.UserID), ErrUserNotFound)

	// The right tenant still can.
	updated, err := store.UpdateUser(ctx, tenantA.TenantID, user.UserID, UpdateUserParams{FullName: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.FullName)
}
