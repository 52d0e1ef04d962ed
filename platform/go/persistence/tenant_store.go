package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantsTable holds the tenant registry.
const TenantsTable = "tenants"

// TenantRecord represents a row in the tenants table.
type TenantRecord struct {
	TenantID     uuid.UUID `db:"tenant_id"`
	Slug         string    `db:"slug"`
	DisplayName  string    `db:"display_name"`
	Subdomain    string    `db:"subdomain"`
	LogoURL      *string   `db:"logo_url"`
	PrimaryColor *string   `db:"primary_color"`
	Plan         string    `db:"plan"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

var (
	// ErrTenantNotFound indicates a missing or inactive tenant record.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrTenantConflict indicates a slug or subdomain collision.
	ErrTenantConflict = errors.New("tenant conflict")
)

// TenantStore exposes persistence helpers for the tenant registry.
type TenantStore struct {
	pool *pgxpool.Pool
}

// NewTenantStore creates a store; assumes migrations already created the table.
func NewTenantStore(ctx context.Context, pool *pgxpool.Pool) (*TenantStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &TenantStore{pool: pool}, nil
}

const tenantColumns = `tenant_id, slug, display_name, subdomain, logo_url, primary_color, plan, is_active, created_at, updated_at`

// CreateTenantParams captures the fields required to register a tenant.
type CreateTenantParams struct {
	TenantID    uuid.UUID
	Slug        string
	DisplayName string
	Subdomain   string
	Plan        string
}

// CreateTenant inserts a new tenant and returns the persisted record.
func (s *TenantStore) CreateTenant(ctx context.Context, params CreateTenantParams) (TenantRecord, error) {
	if params.TenantID == uuid.Nil {
		return TenantRecord{}, errors.New("tenant id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (tenant_id, slug, display_name, subdomain, plan)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING %s
    `, TenantsTable, tenantColumns),
		params.TenantID,
		strings.TrimSpace(strings.ToLower(params.Slug)),
		strings.TrimSpace(params.DisplayName),
		strings.TrimSpace(strings.ToLower(params.Subdomain)),
		params.Plan,
	)

	rec, err := scanTenant(row)
	if err != nil {
		if isUniqueViolation(err) {
			return TenantRecord{}, ErrTenantConflict
		}
		return TenantRecord{}, err
	}
	return rec, nil
}

// GetTenant fetches an active tenant by id.
func (s *TenantStore) GetTenant(ctx context.Context, id uuid.UUID) (TenantRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE tenant_id = $1 AND is_active = TRUE
    `, tenantColumns, TenantsTable), id)
	return scanTenant(row)
}

// GetTenantBySubdomain fetches an active tenant by its subdomain label.
func (s *TenantStore) GetTenantBySubdomain(ctx context.Context, subdomain string) (TenantRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE subdomain = $1 AND is_active = TRUE
    `, tenantColumns, TenantsTable), strings.ToLower(strings.TrimSpace(subdomain)))
	return scanTenant(row)
}

// GetTenantBySlug fetches an active tenant by slug.
func (s *TenantStore) GetTenantBySlug(ctx context.Context, slug string) (TenantRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE slug = $1 AND is_active = TRUE
    `, tenantColumns, TenantsTable), strings.ToLower(strings.TrimSpace(slug)))
	return scanTenant(row)
}

// ListTenants returns active tenants ordered by creation time, newest first.
func (s *TenantStore) ListTenants(ctx context.Context, limit, offset int) ([]TenantRecord, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE is_active = TRUE", TenantsTable,
	)).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE is_active = TRUE
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2
    `, tenantColumns, TenantsTable), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []TenantRecord
	for rows.Next() {
		rec, err := scanTenant(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// UpdateTenantParams captures the mutable tenant fields; nil leaves a field untouched.
type UpdateTenantParams struct {
	DisplayName  *string
	LogoURL      *string
	PrimaryColor *string
	Plan         *string
}

// UpdateTenant applies a partial update and returns the new record.
func (s *TenantStore) UpdateTenant(ctx context.Context, id uuid.UUID, params UpdateTenantParams) (TenantRecord, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.DisplayName != nil {
		appendSet("display_name", strings.TrimSpace(*params.DisplayName))
	}
	if params.LogoURL != nil {
		appendSet("logo_url", *params.LogoURL)
	}
	if params.PrimaryColor != nil {
		appendSet("primary_color", *params.PrimaryColor)
	}
	if params.Plan != nil {
		appendSet("plan", *params.Plan)
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET %s
        WHERE tenant_id = $1 AND is_active = TRUE
        RETURNING %s
    `, TenantsTable, strings.Join(sets, ", "), tenantColumns), args...)

	return scanTenant(row)
}

// DeactivateTenant soft-disables a tenant; its data stays behind the tenant filter.
func (s *TenantStore) DeactivateTenant(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET is_active = FALSE, updated_at = now() WHERE tenant_id = $1 AND is_active = TRUE
    `, TenantsTable), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func scanTenant(row pgx.Row) (TenantRecord, error) {
	var rec TenantRecord
	err := row.Scan(
		&rec.TenantID, &rec.Slug, &rec.DisplayName, &rec.Subdomain,
		&rec.LogoURL, &rec.PrimaryColor, &rec.Plan, &rec.IsActive,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TenantRecord{}, ErrTenantNotFound
		}
		return TenantRecord{}, err
	}
	return rec, nil
}
