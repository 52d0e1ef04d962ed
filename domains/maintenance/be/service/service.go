package service

import (
	"context"
	"time"

	"github.com/loomworks/agencydesk/platform/go/persistence"
)

// rate-limit windows older than this are dead weight; the limiter only
// ever reads windows younger than its policy span.
const maxWindowAge = time.Hour

// Sweeper is the persistence surface. Implemented by persistence.CleanupStore.
type Sweeper interface {
	Sweep(ctx context.Context, maxWindowAge time.Duration) (persistence.CleanupResult, error)
}

// Service runs the expired-state sweep. Repeated runs converge to zero
// deletions; the sweep never touches live rows.
type Service struct {
	sweeper Sweeper
}

// New constructs a maintenance Service.
func New(sweeper Sweeper) *Service {
	if sweeper == nil {
		panic("sweeper is required")
	}
	return &Service{sweeper: sweeper}
}

// Cleanup deletes expired one-time codes, stale rate-limit windows and
// expired portal session credentials, returning per-table counts.
func (s *Service) Cleanup(ctx context.Context) (persistence.CleanupResult, error) {
	return s.sweeper.Sweep(ctx, maxWindowAge)
}
