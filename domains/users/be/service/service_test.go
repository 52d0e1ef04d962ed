package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/agencydesk/platform/go/authz"
	"github.com/loomworks/agencydesk/platform/go/persistence"
)

type fakeRepo struct {
	createFn     func(params persistence.CreateUserParams) (persistence.User, error)
	listFn       func(params persistence.ListUsersParams) (persistence.ListUsersResult, error)
	getFn        func(id uuid.UUID) (persistence.User, error)
	updateFn     func(id uuid.UUID, params persistence.UpdateUserParams) (persistence.User, error)
	deactivateFn func(id uuid.UUID) error
}

func (f *fakeRepo) Create(_ context.Context, params persistence.CreateUserParams) (persistence.User, error) {
	return f.createFn(params)
}

func (f *fakeRepo) List(_ context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error) {
	return f.listFn(params)
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID) (persistence.User, error) {
	return f.getFn(id)
}

func (f *fakeRepo) Update(_ context.Context, id uuid.UUID, params persistence.UpdateUserParams) (persistence.User, error) {
	return f.updateFn(id, params)
}

func (f *fakeRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	return f.deactivateFn(id)
}

func TestCreateDefaultsRole(t *testing.T) {
	t.Parallel()

	svc := New(&fakeRepo{createFn: func(params persistence.CreateUserParams) (persistence.User, error) {
		require.Equal(t, "pm@acme.com", params.Email)
		require.Equal(t, authz.RoleMember, params.Role)
		return persistence.User{
			UserID:   params.UserID,
			Email:    params.Email,
			FullName: params.FullName,
			Role:     params.Role,
		}, nil
	}})

	created, err := svc.Create(t.Context(), CreateInput{
		Email:    " PM@acme.com ",
		FullName: "Project Manager",
	})
	require.NoError(t, err)
	require.Equal(t, authz.RoleMember, created.Role)
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	svc := New(&fakeRepo{createFn: func(persistence.CreateUserParams) (persistence.User, error) {
		t.Fatal("repo must not be called")
		return persistence.User{}, nil
	}})

	_, err := svc.Create(t.Context(), CreateInput{Email: "not-an-email", Role: "superuser"})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "email")
	require.Contains(t, validationErr.Fields, "fullName")
	require.Contains(t, validationErr.Fields, "role")
}

func TestCreateMapsConflict(t *testing.T) {
	t.Parallel()

	svc := New(&fakeRepo{createFn: func(persistence.CreateUserParams) (persistence.User, error) {
		return persistence.User{}, persistence.ErrUserConflict
	}})

	_, err := svc.Create(t.Context(), CreateInput{Email: "pm@acme.com", FullName: "PM"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestUpdateRoleChange(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := New(&fakeRepo{updateFn: func(gotID uuid.UUID, params persistence.UpdateUserParams) (persistence.User, error) {
		require.Equal(t, id, gotID)
		require.Nil(t, params.FullName)
		require.NotNil(t, params.Role)
		require.Equal(t, authz.RoleAdmin, *params.Role)
		return persistence.User{UserID: id, Role: *params.Role}, nil
	}})

	role := authz.RoleAdmin
	updated, err := svc.Update(t.Context(), id, UpdateInput{Role: &role})
	require.NoError(t, err)
	require.Equal(t, authz.RoleAdmin, updated.Role)
}

func TestUpdateRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	svc := New(&fakeRepo{updateFn: func(uuid.UUID, persistence.UpdateUserParams) (persistence.User, error) {
		t.Fatal("repo must not be called")
		return persistence.User{}, nil
	}})

	role := "superuser"
	_, err := svc.Update(t.Context(), uuid.New(), UpdateInput{Role: &role})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "role")
}

func TestGetMapsNotFound(t *testing.T) {
	t.Parallel()

	svc := New(&fakeRepo{getFn: func(uuid.UUID) (persistence.User, error) {
		return persistence.User{}, persistence.ErrUserNotFound
	}})

	_, err := svc.Get(t.Context(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListNormalizesEmailFilter(t *testing.T) {
	t.Parallel()

	svc := New(&fakeRepo{listFn: func(params persistence.ListUsersParams) (persistence.ListUsersResult, error) {
		require.NotNil(t, params.Email)
		require.Equal(t, "pm@acme.com", *params.Email)
		return persistence.ListUsersResult{TotalItems: 0}, nil
	}})

	email := " PM@Acme.com "
	_, err := svc.List(t.Context(), ListOptions{Email: &email})
	require.NoError(t, err)
}
