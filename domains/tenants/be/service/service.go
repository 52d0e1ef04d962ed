package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loomworks/agencydesk/domains/tenants/be/repo"
	"github.com/loomworks/agencydesk/platform/go/authz"
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

// Domain sentinel errors.
var (
	ErrNotFound = errors.New("tenant not found")
	ErrConflict = errors.New("tenant slug or subdomain already exists")
)

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// Tenant represents the domain view of a registry entry.
type Tenant struct {
	ID           uuid.UUID
	Slug         string
	DisplayName  string
	Subdomain    string
	LogoURL      *string
	PrimaryColor *string
	Plan         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateInput represents the payload required to register a tenant.
type CreateInput struct {
	Slug        string
	DisplayName string
	Subdomain   string
	Plan        string
}

// UpdateInput encapsulates mutable tenant fields; nil leaves a field untouched.
type UpdateInput struct {
	DisplayName  *string
	LogoURL      *string
	PrimaryColor *string
	Plan         *string
}

// ListOptions controls pagination.
type ListOptions struct {
	Page     int
	PageSize int
}

// ListResult wraps a page of tenants with pagination metadata.
type ListResult struct {
	Tenants    []Tenant
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Service provides tenant registry operations.
type Service struct {
	repo    repo.Repository
	storage StorageProvisioner
}

// New constructs a Service. The storage provisioner may be nil when no
// branding asset backend is configured.
func New(r repo.Repository, storage StorageProvisioner) *Service {
	if r == nil {
		panic("tenants repository is required")
	}
	return &Service{repo: r, storage: storage}
}

// Create registers a new tenant and checks its branding prefix.
func (s *Service) Create(ctx context.Context, input CreateInput) (Tenant, error) {
	fieldErrors := FieldErrors{}

	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" {
		fieldErrors.add("slug", "slug is required")
	} else if !slugPattern.MatchString(slug) {
		fieldErrors.add("slug", "slug must be lowercase alphanumeric with dashes")
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		fieldErrors.add("displayName", "displayName is required")
	}

	subdomain := strings.ToLower(strings.TrimSpace(input.Subdomain))
	if subdomain == "" {
		subdomain = slug
	} else if !slugPattern.MatchString(subdomain) {
		fieldErrors.add("subdomain", "subdomain must be lowercase alphanumeric with dashes")
	}

	plan := strings.TrimSpace(input.Plan)
	if plan == "" {
		plan = authz.PlanStarter
	} else if !authz.KnownPlan(plan) {
		fieldErrors.add("plan", fmt.Sprintf("unknown plan %q", plan))
	}

	if len(fieldErrors) > 0 {
		return Tenant{}, &ValidationError{Fields: fieldErrors}
	}

	id := uuid.New()
	record, err := s.repo.Create(ctx, persistence.CreateTenantParams{
		TenantID:    id,
		Slug:        slug,
		DisplayName: displayName,
		Subdomain:   subdomain,
		Plan:        plan,
	})
	if err != nil {
		return Tenant{}, mapPersistenceError(err)
	}

	if s.storage != nil {
		prefix := BrandingPrefix(record.TenantID, record.Slug)
		if _, provErr := s.storage.Check(ctx, prefix); provErr != nil {
			return Tenant{}, fmt.Errorf("branding storage check for %s: %w", record.Slug, provErr)
		}
	}

	return mapTenant(record), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Tenant, error) {
	if id == uuid.Nil {
		return Tenant{}, ErrNotFound
	}
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Tenant{}, mapPersistenceError(err)
	}
	return mapTenant(record), nil
}

func (s *Service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	records, total, err := s.repo.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return ListResult{}, err
	}

	tenants := make([]Tenant, 0, len(records))
	for _, record := range records {
		tenants = append(tenants, mapTenant(record))
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	return ListResult{
		Tenants:    tenants,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// Update applies a partial update covering branding and plan changes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Tenant, error) {
	if id == uuid.Nil {
		return Tenant{}, ErrNotFound
	}

	params, err := buildUpdateParams(input)
	if err != nil {
		return Tenant{}, err
	}

	record, repoErr := s.repo.Update(ctx, id, params)
	if repoErr != nil {
		return Tenant{}, mapPersistenceError(repoErr)
	}

	return mapTenant(record), nil
}

// Deactivate soft-disables a tenant. Existing sessions keep failing tenant
// resolution from then on.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrNotFound
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return mapPersistenceError(err)
	}
	return nil
}

// BrandingPrefix is the storage location for a tenant's logo and theme
// assets, e.g. "tenants/acme-1a2b3c4d/branding".
func BrandingPrefix(id uuid.UUID, slug string) string {
	short := strings.ReplaceAll(id.String(), "-", "")[:8]
	return fmt.Sprintf("tenants/%s-%s/branding", slug, short)
}

func buildUpdateParams(input UpdateInput) (persistence.UpdateTenantParams, error) {
	fieldErrors := FieldErrors{}
	params := persistence.UpdateTenantParams{}
	fieldsSet := 0

	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if name == "" {
			fieldErrors.add("displayName", "displayName cannot be empty")
		} else {
			params.DisplayName = &name
			fieldsSet++
		}
	}

	if input.LogoURL != nil {
		logo := strings.TrimSpace(*input.LogoURL)
		params.LogoURL = &logo
		fieldsSet++
	}

	if input.PrimaryColor != nil {
		color := strings.TrimSpace(*input.PrimaryColor)
		if !colorPattern.MatchString(color) {
			fieldErrors.add("primaryColor", "primaryColor must be a #RRGGBB value")
		} else {
			params.PrimaryColor = &color
			fieldsSet++
		}
	}

	if input.Plan != nil {
		plan := strings.TrimSpace(*input.Plan)
		if !authz.KnownPlan(plan) {
			fieldErrors.add("plan", fmt.Sprintf("unknown plan %q", plan))
		} else {
			params.Plan = &plan
			fieldsSet++
		}
	}

	if fieldsSet == 0 && len(fieldErrors) == 0 {
		fieldErrors.add("payload", "at least one field must be provided")
	}

	if len(fieldErrors) > 0 {
		return persistence.UpdateTenantParams{}, &ValidationError{Fields: fieldErrors}
	}

	return params, nil
}

func mapTenant(record persistence.TenantRecord) Tenant {
	return Tenant{
		ID:           record.TenantID,
		Slug:         record.Slug,
		DisplayName:  record.DisplayName,
		Subdomain:    record.Subdomain,
		LogoURL:      record.LogoURL,
		PrimaryColor: record.PrimaryColor,
		Plan:         record.Plan,
		IsActive:     record.IsActive,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrTenantNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrTenantConflict):
		return ErrConflict
	default:
		return err
	}
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
