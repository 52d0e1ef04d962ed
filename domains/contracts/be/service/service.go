package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loomworks/agencydesk/domains/contracts/be/repo"
	"github.com/loomworks/agencydesk/platform/go/persistence"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// ErrNotFound covers missing contracts and cross-tenant ids alike.
var ErrNotFound = errors.New("contract not found")

// Contract statuses follow the signing lifecycle.
const (
	StatusDraft    = "draft"
	StatusSent     = "sent"
	StatusSigned   = "signed"
	StatusDeclined = "declined"
)

var knownStatuses = map[string]bool{
	StatusDraft:    true,
	StatusSent:     true,
	StatusSigned:   true,
	StatusDeclined: true,
}

// Contract represents the domain view of a contract.
type Contract struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	ClientID     *uuid.UUID
	Title        string
	Status       string
	AmountCents  int64
	ViewCount    int
	LastViewedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateInput represents the payload required to create a contract.
type CreateInput struct {
	Title       string
	ClientID    *uuid.UUID
	AmountCents int64
}

// Service implements contract operations for platform users plus the
// public view counter.
type Service struct {
	repo repo.Repository
}

// New constructs a contracts Service.
func New(r repo.Repository) *Service {
	if r == nil {
		panic("contracts repository is required")
	}
	return &Service{repo: r}
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Contract, error) {
	fieldErrors := FieldErrors{}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		fieldErrors.add("title", "title is required")
	}
	if input.AmountCents < 0 {
		fieldErrors.add("amountCents", "amountCents cannot be negative")
	}

	if len(fieldErrors) > 0 {
		return Contract{}, &ValidationError{Fields: fieldErrors}
	}

	record, err := s.repo.Create(ctx, persistence.CreateContractParams{
		ContractID:  uuid.New(),
		ClientID:    input.ClientID,
		Title:       title,
		Status:      StatusDraft,
		AmountCents: input.AmountCents,
	})
	if err != nil {
		return Contract{}, err
	}
	return mapContract(record), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Contract, error) {
	if id == uuid.Nil {
		return Contract{}, ErrNotFound
	}
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Contract{}, mapPersistenceError(err)
	}
	return mapContract(record), nil
}

func (s *Service) List(ctx context.Context, clientID *uuid.UUID) ([]Contract, error) {
	records, err := s.repo.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	contracts := make([]Contract, 0, len(records))
	for _, record := range records {
		contracts = append(contracts, mapContract(record))
	}
	return contracts, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Contract, error) {
	if id == uuid.Nil {
		return Contract{}, ErrNotFound
	}
	status = strings.TrimSpace(status)
	if !knownStatuses[status] {
		return Contract{}, &ValidationError{Fields: FieldErrors{
			"status": {fmt.Sprintf("unknown status %q", status)},
		}}
	}

	record, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return Contract{}, mapPersistenceError(err)
	}
	return mapContract(record), nil
}

// RecordView bumps the view counter for a contract under the resolved
// public tenant. A tenant mismatch reads as not found so a stray
// x-tenant-id header cannot touch another workspace's rows.
func (s *Service) RecordView(ctx context.Context, tenantID, id uuid.UUID) error {
	if tenantID == uuid.Nil || id == uuid.Nil {
		return ErrNotFound
	}
	if err := s.repo.RecordView(ctx, tenantID, id); err != nil {
		return mapPersistenceError(err)
	}
	return nil
}

func mapContract(record persistence.Contract) Contract {
	return Contract{
		ID:           record.ContractID,
		TenantID:     record.TenantID,
		ClientID:     record.ClientID,
		Title:        record.Title,
		Status:       record.Status,
		AmountCents:  record.AmountCents,
		ViewCount:    record.ViewCount,
		LastViewedAt: record.LastViewedAt,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	if errors.Is(err, persistence.ErrContractNotFound) {
		return ErrNotFound
	}
	return err
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
