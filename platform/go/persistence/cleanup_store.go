package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CleanupStore deletes aged-out OTP, rate-limit and portal session state.
// It backs the scheduled cleanup endpoint; hot paths never sweep.
type CleanupStore struct {
	pool *pgxpool.Pool
}

// NewCleanupStore returns a store instance.
func NewCleanupStore(ctx context.Context, pool *pgxpool.Pool) (*CleanupStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &CleanupStore{pool: pool}, nil
}

// CleanupResult reports how many rows each sweep removed.
type CleanupResult struct {
	OTPCodes       int64 `json:"otpCodes"`
	RateLimits     int64 `json:"rateLimits"`
	PortalSessions int64 `json:"portalSessions"`
}

// Sweep removes expired or consumed OTP rows, rate-limit windows older than
// maxWindowAge, and clears expired portal session credentials. Running it
// twice in a row with no new data deletes nothing the second time.
func (s *CleanupStore) Sweep(ctx context.Context, maxWindowAge time.Duration) (CleanupResult, error) {
	if maxWindowAge <= 0 {
		maxWindowAge = time.Hour
	}

	var result CleanupResult

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        DELETE FROM %s WHERE expires_at <= now() OR consumed_at IS NOT NULL
    `, OTPCodesTable))
	if err != nil {
		return CleanupResult{}, fmt.Errorf("sweep otp codes: %w", err)
	}
	result.OTPCodes = tag.RowsAffected()

	tag, err = s.pool.Exec(ctx, fmt.Sprintf(`
        DELETE FROM %s WHERE window_started_at <= now() - make_interval(secs => $1)
    `, RateLimitWindowsTable), int(maxWindowAge.Seconds()))
	if err != nil {
		return CleanupResult{}, fmt.Errorf("sweep rate limit windows: %w", err)
	}
	result.RateLimits = tag.RowsAffected()

	tag, err = s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET session_token_hash = NULL, session_expires_at = NULL, updated_at = now()
        WHERE session_expires_at IS NOT NULL AND session_expires_at <= now()
    `, PortalClientsTable))
	if err != nil {
		return CleanupResult{}, fmt.Errorf("sweep portal sessions: %w", err)
	}
	result.PortalSessions = tag.RowsAffected()

	return result, nil
}
