package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/loomworks/agencydesk/platform/go/persistence"
	"github.com/loomworks/agencydesk/platform/go/tenant"
)

// Repository defines the persistence operations required by the
// contracts service. Platform calls are scoped to the context tenant;
// RecordView takes an explicit tenant because it serves a public route.
type Repository interface {
	Create(ctx context.Context, params persistence.CreateContractParams) (persistence.Contract, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Contract, error)
	List(ctx context.Context, clientID *uuid.UUID) ([]persistence.Contract, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Contract, error)
	RecordView(ctx context.Context, tenantID, id uuid.UUID) error
}

type postgresRepository struct {
	store *persistence.ContractStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.ContractStore) Repository {
	if store == nil {
		panic("contract store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreateContractParams) (persistence.Contract, error) {
	tenantID, err := requireTenantID(ctx)
	if err != nil {
		return persistence.Contract{}, err
	}
	params.TenantID = tenantID
	return r.store.CreateContract(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Contract, error) {
	tenantID, err := requireTenantID(ctx)
	if err != nil {
		return persistence.Contract{}, err
	}
	return r.store.GetContract(ctx, tenantID, id)
}

func (r *postgresRepository) List(ctx context.Context, clientID *uuid.UUID) ([]persistence.Contract, error) {
	tenantID, err := requireTenantID(ctx)
	if err != nil {
		return nil, err
	}
	return r.store.ListContracts(ctx, tenantID, clientID)
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Contract, error) {
	tenantID, err := requireTenantID(ctx)
	if err != nil {
		return persistence.Contract{}, err
	}
	return r.store.UpdateContractStatus(ctx, tenantID, id, status)
}

func (r *postgresRepository) RecordView(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.store.RecordView(ctx, tenantID, id)
}

func requireTenantID(ctx context.Context) (uuid.UUID, error) {
	info, ok := tenant.FromContext(ctx)
	if !ok {
		return uuid.Nil, errors.New("tenant missing from context")
	}
	return info.TenantID, nil
}
