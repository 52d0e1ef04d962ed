package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/loomworks/agencydesk/platform/go/persistence"
)

// Repository defines the persistence operations required by the tenants service.
type Repository interface {
	Create(ctx context.Context, params persistence.CreateTenantParams) (persistence.TenantRecord, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.TenantRecord, error)
	List(ctx context.Context, limit, offset int) ([]persistence.TenantRecord, int, error)
	Update(ctx context.Context, id uuid.UUID, params persistence.UpdateTenantParams) (persistence.TenantRecord, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	store *persistence.TenantStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.TenantStore) Repository {
	if store == nil {
		panic("tenant store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreateTenantParams) (persistence.TenantRecord, error) {
	return r.store.CreateTenant(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.TenantRecord, error) {
	return r.store.GetTenant(ctx, id)
}

func (r *postgresRepository) List(ctx context.Context, limit, offset int) ([]persistence.TenantRecord, int, error) {
	return r.store.ListTenants(ctx, limit, offset)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateTenantParams) (persistence.TenantRecord, error) {
	return r.store.UpdateTenant(ctx, id, params)
}

func (r *postgresRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.store.DeactivateTenant(ctx, id)
}
