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

// UsersTable holds platform user profiles.
const UsersTable = "users"

// User represents a row in the users table. The tenant id on the profile is the
// authoritative tenant for every authenticated platform request.
type User struct {
	UserID    uuid.UUID `db:"user_id"`
	TenantID  uuid.UUID `db:"tenant_id"`
	Email     string    `db:"email"`
	FullName  string    `db:"full_name"`
	Role      string    `db:"role"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

var (
	// ErrUserNotFound indicates a missing user record.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserConflict indicates a uniqueness violation (duplicated email).
	ErrUserConflict = errors.New("user conflict")
)

// UserStore exposes persistence helpers for the users table.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore returns a store instance; assumes migrations already created the table.
func NewUserStore(ctx context.Context, pool *pgxpool.Pool) (*UserStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &UserStore{pool: pool}, nil
}

const userColumns = `user_id, tenant_id, email, full_name, role, is_active, created_at, updated_at`

// CreateUserParams captures the fields required to insert a new user record.
type CreateUserParams struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Email    string
	FullName string
	Role     string
}

// CreateUser inserts a new user and returns the persisted record.
func (s *UserStore) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	if params.UserID == uuid.Nil {
		return User{}, errors.New("user id is required")
	}
	if params.TenantID == uuid.Nil {
		return User{}, errors.New("tenant id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (user_id, tenant_id, email, full_name, role)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING %s
    `, UsersTable, userColumns),
		params.UserID,
		params.TenantID,
		strings.ToLower(strings.TrimSpace(params.Email)),
		strings.TrimSpace(params.FullName),
		params.Role,
	)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUserConflict
		}
		return User{}, err
	}
	return user, nil
}

// GetUser fetches an active user by id.
func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE user_id = $1 AND is_active = TRUE
    `, userColumns, UsersTable), id)
	return scanUser(row)
}

// GetUserByEmail fetches an active user by lowercased email.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE email = $1 AND is_active = TRUE
    `, userColumns, UsersTable), strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// ListUsersParams captures filters and pagination for ListUsers.
type ListUsersParams struct {
	Page     int
	PageSize int
	Email    *string
}

// ListUsersResult includes the rows and the total count for pagination metadata.
type ListUsersResult struct {
	Users      []User
	TotalItems int
}

// ListUsers returns a tenant's users matching the filters with pagination applied.
// TenantID is mandatory: there is no unscoped listing path.
func (s *UserStore) ListUsers(ctx context.Context, tenantID uuid.UUID, params ListUsersParams) (ListUsersResult, error) {
	if tenantID == uuid.Nil {
		return ListUsersResult{}, errors.New("tenant id is required")
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	whereParts := []string{"tenant_id = $1", "is_active = TRUE"}
	args := []any{tenantID}

	if params.Email != nil && strings.TrimSpace(*params.Email) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*params.Email))+"%")
		whereParts = append(whereParts, fmt.Sprintf("email LIKE $%d", len(args)))
	}

	whereSQL := strings.Join(whereParts, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE %s", UsersTable, whereSQL,
	), args...).Scan(&total); err != nil {
		return ListUsersResult{}, err
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE %s
        ORDER BY created_at DESC
        LIMIT %d OFFSET %d
    `, userColumns, UsersTable, whereSQL, params.PageSize, offset), args...)
	if err != nil {
		return ListUsersResult{}, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return ListUsersResult{}, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return ListUsersResult{}, err
	}

	return ListUsersResult{Users: users, TotalItems: total}, nil
}

// UpdateUserParams captures the mutable user fields; nil leaves a field untouched.
type UpdateUserParams struct {
	FullName *string
	Role     *string
}

// UpdateUser applies a partial update scoped to the tenant and returns the new record.
func (s *UserStore) UpdateUser(ctx context.Context, tenantID, id uuid.UUID, params UpdateUserParams) (User, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id, tenantID}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.FullName != nil {
		appendSet("full_name", strings.TrimSpace(*params.FullName))
	}
	if params.Role != nil {
		appendSet("role", *params.Role)
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET %s
        WHERE user_id = $1 AND tenant_id = $2 AND is_active = TRUE
        RETURNING %s
    `, UsersTable, strings.Join(sets, ", "), userColumns), args...)

	return scanUser(row)
}

// DeactivateUser soft-deletes a user within the tenant.
func (s *UserStore) DeactivateUser(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET is_active = FALSE, updated_at = now()
        WHERE user_id = $1 AND tenant_id = $2 AND is_active = TRUE
    `, UsersTable), id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.UserID, &user.TenantID, &user.Email, &user.FullName,
		&user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return user, nil
}
