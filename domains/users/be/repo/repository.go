package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/loomworks/agencydesk/platform/go/persistence"
	"github.com/loomworks/agencydesk/platform/go/tenant"
)

// Repository defines the persistence operations required by the users
// service. Every call is scoped to the tenant resolved on the context.
type Repository interface {
	Create(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error)
	List(ctx context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.User, error)
	Update(ctx context.Context, id uuid.UUID, params persistence.UpdateUserParams) (persistence.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	store *persistence.UserStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.UserStore) Repository {
	if store == nil {
		panic("user store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error) {
	tenantID, err := requireTenantID(ctx)
	if err != nil {
		return persistence.User{}, err
	}
	params.TenantID = tenantID
	return r.store.CreateUser(ctx, params)
}

func (r *postgresRepository) List(ctx context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error) {
	tenantID, err := requireTenantID(ctx)
	if err != nil {
		return persistence.ListUsersResult{}, err
	}
	return r.store.ListUsers(ctx, tenantID, params)
}

// Get checks the record's tenant against the context tenant so ids from
// another workspace read as missing.
func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	tenantID, err := requireTenantID(ctx)
	if err != nil {
		return persistence.User{}, err
	}
	user, err := r.store.GetUser(ctx, id)
	if err != nil {
		return persistence.User{}, err
	}
	if user.TenantID != tenantID {
		return persistence.User{}, persistence.ErrUserNotFound
	}
	return user, nil
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateUserParams) (persistence.User, error) {
	tenantID, err := requireTenantID(ctx)
	if err != nil {
		return persistence.User{}, err
	}
	return r.store.UpdateUser(ctx, tenantID, id, params)
}

func (r *postgresRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tenantID, err := requireTenantID(ctx)
	if err != nil {
		return err
	}
	return r.store.DeactivateUser(ctx, tenantID, id)
}

func requireTenantID(ctx context.Context) (uuid.UUID, error) {
	info, ok := tenant.FromContext(ctx)
	if !ok {
		return uuid.Nil, errors.New("tenant missing from context")
	}
	return info.TenantID, nil
}
