package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/agencydesk/platform/go/persistence"
)

type fakeRepo struct {
	createFn       func(params persistence.CreateContractParams) (persistence.Contract, error)
	getFn          func(id uuid.UUID) (persistence.Contract, error)
	listFn         func(clientID *uuid.UUID) ([]persistence.Contract, error)
	updateStatusFn func(id uuid.UUID, status string) (persistence.Contract, error)
	recordViewFn   func(tenantID, id uuid.UUID) error
}

func (f *fakeRepo) Create(_ context.Context, params persistence.CreateContractParams) (persistence.Contract, error) {
	return f.createFn(params)
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID) (persistence.Contract, error) {
	return f.getFn(id)
}

func (f *fakeRepo) List(_ context.Context, clientID *uuid.UUID) ([]persistence.Contract, error) {
	return f.listFn(clientID)
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) (persistence.Contract, error) {
	return f.updateStatusFn(id, status)
}

func (f *fakeRepo) RecordView(_ context.Context, tenantID, id uuid.UUID) error {
	return f.recordViewFn(tenantID, id)
}

func TestCreateDefaultsToDraft(t *testing.T) {
	t.Parallel()

	svc := New(&fakeRepo{createFn: func(params persistence.CreateContractParams) (persistence.Contract, error) {
		require.Equal(t, StatusDraft, params.Status)
		require.Equal(t, "Website redesign", params.Title)
		return persistence.Contract{ContractID: params.ContractID, Title: params.Title, Status: params.Status}, nil
	}})

	created, err := svc.Create(t.Context(), CreateInput{Title: " Website redesign ", AmountCents: 250000})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, created.Status)
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	svc := New(&fakeRepo{createFn: func(persistence.CreateContractParams) (persistence.Contract, error) {
		t.Fatal("repo must not be called")
		return persistence.Contract{}, nil
	}})

	_, err := svc.Create(t.Context(), CreateInput{Title: "  ", AmountCents: -1})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "title")
	require.Contains(t, validationErr.Fields, "amountCents")
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	t.Parallel()

	svc := New(&fakeRepo{updateStatusFn: func(uuid.UUID, string) (persistence.Contract, error) {
		t.Fatal("repo must not be called")
		return persistence.Contract{}, nil
	}})

	_, err := svc.UpdateStatus(t.Context(), uuid.New(), "archived")

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "status")
}

func TestGetMapsNotFound(t *testing.T) {
	t.Parallel()

	svc := New(&fakeRepo{getFn: func(uuid.UUID) (persistence.Contract, error) {
		return persistence.Contract{}, persistence.ErrContractNotFound
	}})

	_, err := svc.Get(t.Context(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecordViewTenantMismatchReadsAsNotFound(t *testing.T) {
	t.Parallel()

	svc := New(&fakeRepo{recordViewFn: func(uuid.UUID, uuid.UUID) error {
		return persistence.ErrContractNotFound
	}})

	err := svc.RecordView(t.Context(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecordViewPassesTenant(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	contractID := uuid.New()
	svc := New(&fakeRepo{recordViewFn: func(gotTenant, gotID uuid.UUID) error {
		require.Equal(t, tenantID, gotTenant)
		require.Equal(t, contractID, gotID)
		return nil
	}})

	require.NoError(t, svc.RecordView(t.Context(), tenantID, contractID))
}
