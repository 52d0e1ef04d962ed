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

// ContractsTable holds tenant-scoped contract records.
const ContractsTable = "contracts"

// Contract represents a row in the contracts table.
type Contract struct {
	ContractID   uuid.UUID  `db:"contract_id"`
	TenantID     uuid.UUID  `db:"tenant_id"`
	ClientID     *uuid.UUID `db:"client_id"`
	Title        string     `db:"title"`
	Status       string     `db:"status"`
	AmountCents  int64      `db:"amount_cents"`
	ViewCount    int        `db:"view_count"`
	LastViewedAt *time.Time `db:"last_viewed_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// ErrContractNotFound indicates a missing contract or a tenant mismatch.
// The two cases are deliberately the same error.
var ErrContractNotFound = errors.New("contract not found")

// ContractStore exposes persistence helpers for the contracts table. Every
// query predicate includes the tenant id; there is no unscoped access path.
type ContractStore struct {
	pool *pgxpool.Pool
}

// NewContractStore returns a store instance; assumes migrations already created the table.
func NewContractStore(ctx context.Context, pool *pgxpool.Pool) (*ContractStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ContractStore{pool: pool}, nil
}

const contractColumns = `contract_id, tenant_id, client_id, title, status, amount_cents, view_count, last_viewed_at, created_at, updated_at`

// CreateContractParams captures the fields required to insert a contract.
type CreateContractParams struct {
	ContractID  uuid.UUID
	TenantID    uuid.UUID
	ClientID    *uuid.UUID
	Title       string
	Status      string
	AmountCents int64
}

// CreateContract inserts a new contract and returns the persisted record.
func (s *ContractStore) CreateContract(ctx context.Context, params CreateContractParams) (Contract, error) {
	if params.ContractID == uuid.Nil {
		return Contract{}, errors.New("contract id is required")
	}
	if params.TenantID == uuid.Nil {
		return Contract{}, errors.New("tenant id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (contract_id, tenant_id, client_id, title, status, amount_cents)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING %s
    `, ContractsTable, contractColumns),
		params.ContractID,
		params.TenantID,
		params.ClientID,
		strings.TrimSpace(params.Title),
		params.Status,
		params.AmountCents,
	)

	return scanContract(row)
}

// GetContract fetches a contract by id within the tenant.
func (s *ContractStore) GetContract(ctx context.Context, tenantID, contractID uuid.UUID) (Contract, error) {
	if tenantID == uuid.Nil {
		return Contract{}, ErrContractNotFound
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE contract_id = $1 AND tenant_id = $2
    `, contractColumns, ContractsTable), contractID, tenantID)
	return scanContract(row)
}

// ListContracts returns the tenant's contracts, optionally narrowed to one portal client.
func (s *ContractStore) ListContracts(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID) ([]Contract, error) {
	if tenantID == uuid.Nil {
		return nil, errors.New("tenant id is required")
	}

	whereParts := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if clientID != nil {
		args = append(args, *clientID)
		whereParts = append(whereParts, fmt.Sprintf("client_id = $%d", len(args)))
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE %s ORDER BY created_at DESC
    `, contractColumns, ContractsTable, strings.Join(whereParts, " AND ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []Contract
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, contract)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return contracts, nil
}

// UpdateContractStatus transitions a contract within the tenant.
func (s *ContractStore) UpdateContractStatus(ctx context.Context, tenantID, contractID uuid.UUID, status string) (Contract, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET status = $3, updated_at = now()
        WHERE contract_id = $1 AND tenant_id = $2
        RETURNING %s
    `, ContractsTable, contractColumns), contractID, tenantID, status)
	return scanContract(row)
}

// RecordView bumps the view counter for a contract. The tenant id must match
// the row's own tenant id; a client-supplied hint that points at another
// tenant finds no row and reports not found.
func (s *ContractStore) RecordView(ctx context.Context, tenantID, contractID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return ErrContractNotFound
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET view_count = view_count + 1, last_viewed_at = now()
        WHERE contract_id = $1 AND tenant_id = $2
    `, ContractsTable), contractID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrContractNotFound
	}
	return nil
}

func scanContract(row pgx.Row) (Contract, error) {
	var contract Contract
	err := row.Scan(
		&contract.ContractID, &contract.TenantID, &contract.ClientID, &contract.Title,
		&contract.Status, &contract.AmountCents, &contract.ViewCount, &contract.LastViewedAt,
		&contract.CreatedAt, &contract.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contract{}, ErrContractNotFound
		}
		return Contract{}, err
	}
	return contract, nil
}
