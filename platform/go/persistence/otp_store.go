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

// OTPCodesTable holds short-lived email verification codes.
const OTPCodesTable = "otp_codes"

// OTPStore issues and verifies single-use numeric codes bound to an email.
//
// Issuance policy: a new code invalidates every prior outstanding code for the
// same email in the same transaction, so at most one code is authoritative.
type OTPStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewOTPStore returns a store with the given code lifetime.
func NewOTPStore(ctx context.Context, pool *pgxpool.Pool, ttl time.Duration) (*OTPStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &OTPStore{pool: pool, ttl: ttl}, nil
}

// IssueCode generates a fresh code for the lowercased email, consuming any
// prior unconsumed codes, and returns the code with its expiry.
func (s *OTPStore) IssueCode(ctx context.Context, email string) (string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", time.Time{}, errors.New("email is required")
	}

	code, err := NewOTPCode()
	if err != nil {
		return "", time.Time{}, err
	}
	expiry := time.Now().UTC().Add(s.ttl)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", time.Time{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET consumed_at = now() WHERE email = $1 AND consumed_at IS NULL
    `, OTPCodesTable), email); err != nil {
		return "", time.Time{}, err
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(`
        INSERT INTO %s (otp_id, email, code, expires_at) VALUES ($1, $2, $3, $4)
    `, OTPCodesTable), uuid.New(), email, code, expiry); err != nil {
		return "", time.Time{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", time.Time{}, err
	}

	return code, expiry, nil
}

// ConsumeCode atomically marks a matching, unexpired, unconsumed code as
// consumed and reports whether a code was consumed. The conditional UPDATE is
// the single check-and-consume step: two concurrent calls with the same code
// cannot both observe a row to update.
func (s *OTPStore) ConsumeCode(ctx context.Context, email, code string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return false, nil
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET consumed_at = now()
        WHERE email = $1
          AND code = $2
          AND consumed_at IS NULL
          AND expires_at > now()
    `, OTPCodesTable), email, code)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}
