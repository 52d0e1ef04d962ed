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

// PortalClientsTable holds external portal clients and their session credentials.
const PortalClientsTable = "portal_clients"

// PortalClient represents a row in the portal_clients table. The session token
// hash and expiry live on the client row; revocation nulls both.
type PortalClient struct {
	ClientID         uuid.UUID  `db:"client_id"`
	TenantID         uuid.UUID  `db:"tenant_id"`
	Email            string     `db:"email"`
	DisplayName      string     `db:"display_name"`
	IsActive         bool       `db:"is_active"`
	SessionExpiresAt *time.Time `db:"session_expires_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

var (
	// ErrPortalClientNotFound indicates a missing or inactive portal client.
	ErrPortalClientNotFound = errors.New("portal client not found")
	// ErrPortalClientConflict indicates a duplicated email within a tenant.
	ErrPortalClientConflict = errors.New("portal client conflict")
	// ErrPortalSessionInvalid covers every validation failure: unknown client,
	// inactive client, digest mismatch and expired session. Callers must not be
	// able to tell which check failed.
	ErrPortalSessionInvalid = errors.New("portal session invalid")
)

// PortalSessionStore exposes persistence helpers for portal clients and their sessions.
type PortalSessionStore struct {
	pool *pgxpool.Pool
}

// NewPortalSessionStore returns a store instance; assumes migrations already created the table.
func NewPortalSessionStore(ctx context.Context, pool *pgxpool.Pool) (*PortalSessionStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &PortalSessionStore{pool: pool}, nil
}

// portalClientColumns deliberately excludes session_token_hash: the digest
// never leaves the store.
const portalClientColumns = `client_id, tenant_id, email, display_name, is_active, session_expires_at, created_at, updated_at`

// CreatePortalClientParams captures the fields required to register a portal client.
type CreatePortalClientParams struct {
	ClientID    uuid.UUID
	TenantID    uuid.UUID
	Email       string
	DisplayName string
}

// CreateClient inserts a new portal client without an active session.
func (s *PortalSessionStore) CreateClient(ctx context.Context, params CreatePortalClientParams) (PortalClient, error) {
	if params.ClientID == uuid.Nil {
		return PortalClient{}, errors.New("client id is required")
	}
	if params.TenantID == uuid.Nil {
		return PortalClient{}, errors.New("tenant id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (client_id, tenant_id, email, display_name)
        VALUES ($1, $2, $3, $4)
        RETURNING %s
    `, PortalClientsTable, portalClientColumns),
		params.ClientID,
		params.TenantID,
		strings.ToLower(strings.TrimSpace(params.Email)),
		strings.TrimSpace(params.DisplayName),
	)

	client, err := scanPortalClient(row)
	if err != nil {
		if isUniqueViolation(err) {
			return PortalClient{}, ErrPortalClientConflict
		}
		return PortalClient{}, err
	}
	return client, nil
}

// GetClient fetches an active portal client by id.
func (s *PortalSessionStore) GetClient(ctx context.Context, clientID uuid.UUID) (PortalClient, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE client_id = $1 AND is_active = TRUE
    `, portalClientColumns, PortalClientsTable), clientID)

	client, err := scanPortalClient(row)
	if err != nil {
		return PortalClient{}, err
	}
	return client, nil
}

// GetClientByEmail fetches an active portal client by tenant and lowercased email.
func (s *PortalSessionStore) GetClientByEmail(ctx context.Context, tenantID uuid.UUID, email string) (PortalClient, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE tenant_id = $1 AND email = $2 AND is_active = TRUE
    `, portalClientColumns, PortalClientsTable), tenantID, strings.ToLower(strings.TrimSpace(email)))

	client, err := scanPortalClient(row)
	if err != nil {
		return PortalClient{}, err
	}
	return client, nil
}

// IssueSession generates a fresh session token for the client, persists only
// its digest together with the expiry, and returns the raw token exactly once.
func (s *PortalSessionStore) IssueSession(ctx context.Context, clientID uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, errors.New("session ttl must be positive")
	}

	raw, err := NewSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expiry := time.Now().UTC().Add(ttl)

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s
        SET session_token_hash = $2, session_expires_at = $3, updated_at = now()
        WHERE client_id = $1 AND is_active = TRUE
    `, PortalClientsTable), clientID, HashToken(raw), expiry)
	if err != nil {
		return "", time.Time{}, err
	}
	if tag.RowsAffected() == 0 {
		return "", time.Time{}, ErrPortalClientNotFound
	}

	return raw, expiry, nil
}

// ValidateSession returns the client when the id exists, the client is active,
// the token digest matches exactly and the session has not expired. Every
// failure mode returns ErrPortalSessionInvalid.
func (s *PortalSessionStore) ValidateSession(ctx context.Context, clientID uuid.UUID, rawToken string) (PortalClient, error) {
	if clientID == uuid.Nil || rawToken == "" {
		return PortalClient{}, ErrPortalSessionInvalid
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s
        WHERE client_id = $1
          AND is_active = TRUE
          AND session_token_hash = $2
          AND session_expires_at > now()
    `, portalClientColumns, PortalClientsTable), clientID, HashToken(rawToken))

	client, err := scanPortalClient(row)
	if err != nil {
		if errors.Is(err, ErrPortalClientNotFound) {
			return PortalClient{}, ErrPortalSessionInvalid
		}
		return PortalClient{}, err
	}
	return client, nil
}

// RevokeSession clears the stored digest and expiry when the supplied token
// matches the current session. It is idempotent and reports no error when no
// matching session exists, so logout never leaks session existence.
func (s *PortalSessionStore) RevokeSession(ctx context.Context, clientID uuid.UUID, rawToken string) error {
	if clientID == uuid.Nil || rawToken == "" {
		return nil
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s
        SET session_token_hash = NULL, session_expires_at = NULL, updated_at = now()
        WHERE client_id = $1 AND session_token_hash = $2
    `, PortalClientsTable), clientID, HashToken(rawToken))
	return err
}

func scanPortalClient(row pgx.Row) (PortalClient, error) {
	var client PortalClient
	err := row.Scan(
		&client.ClientID, &client.TenantID, &client.Email, &client.DisplayName,
		&client.IsActive, &client.SessionExpiresAt, &client.CreatedAt, &client.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PortalClient{}, ErrPortalClientNotFound
		}
		return PortalClient{}, err
	}
	return client, nil
}
