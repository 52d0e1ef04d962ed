package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RateLimitWindowsTable holds fixed-window attempt counters keyed by (operation, identifier).
const RateLimitWindowsTable = "rate_limit_windows"

// RateLimitStore records attempts against fixed windows. The counter update is
// a single upsert so concurrent attempts within the same window can never
// under-count.
type RateLimitStore struct {
	pool *pgxpool.Pool
}

// NewRateLimitStore returns a store instance; assumes migrations already created the table.
func NewRateLimitStore(ctx context.Context, pool *pgxpool.Pool) (*RateLimitStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &RateLimitStore{pool: pool}, nil
}

// WindowState is the counter state after an attempt has been recorded.
// Remaining is computed by the database against its own clock, so callers
// never mix it with the application clock.
type WindowState struct {
	Attempts        int
	WindowStartedAt time.Time
	Remaining       time.Duration
}

// RecordAttempt increments the window counter for (operation, identifier),
// starting a new window when the previous one has aged past windowSeconds.
// The returned state includes the attempt being recorded.
func (s *RateLimitStore) RecordAttempt(ctx context.Context, operation, identifier string, windowSeconds int) (WindowState, error) {
	if operation == "" || identifier == "" {
		return WindowState{}, errors.New("operation and identifier are required")
	}
	if windowSeconds <= 0 {
		return WindowState{}, errors.New("window seconds must be positive")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %[1]s (operation, identifier, window_started_at, attempts)
        VALUES ($1, $2, now(), 1)
        ON CONFLICT (operation, identifier) DO UPDATE
        SET attempts = CASE
                WHEN %[1]s.window_started_at <= now() - make_interval(secs => $3)
                THEN 1
                ELSE %[1]s.attempts + 1
            END,
            window_started_at = CASE
                WHEN %[1]s.window_started_at <= now() - make_interval(secs => $3)
                THEN now()
                ELSE %[1]s.window_started_at
            END
        RETURNING attempts, window_started_at,
            GREATEST(EXTRACT(EPOCH FROM (window_started_at + make_interval(secs => $3) - now())), 0)::float8
    `, RateLimitWindowsTable), operation, identifier, windowSeconds)

	var state WindowState
	var remainingSeconds float64
	if err := row.Scan(&state.Attempts, &state.WindowStartedAt, &remainingSeconds); err != nil {
		return WindowState{}, err
	}
	state.Remaining = time.Duration(remainingSeconds * float64(time.Second))
	return state, nil
}
