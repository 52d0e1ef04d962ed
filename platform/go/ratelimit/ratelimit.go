// Package ratelimit applies fixed-window attempt limits on top of a
// shared counter store. Every sensitive operation declares a policy
// here; callers check before doing the work.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/loomworks/agencydesk/platform/go/persistence"
)

// Op names a rate-limited operation. The value is the row key in the
// counter store, so it must stay stable across releases.
type Op string

const (
	OpIssueOTP    Op = "issue-otp"
	OpVerifyOTP   Op = "verify-otp"
	OpPortalLogin Op = "portal-login"
)

// Policy is the fixed window applied to one operation.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

var defaultPolicies = map[Op]Policy{
	OpIssueOTP:    {MaxAttempts: 3, Window: 15 * time.Minute},
	OpVerifyOTP:   {MaxAttempts: 5, Window: 15 * time.Minute},
	OpPortalLogin: {MaxAttempts: 10, Window: 15 * time.Minute},
}

// Store is the persistence surface the limiter needs. Implemented by
// persistence.RateLimitStore.
type Store interface {
	RecordAttempt(ctx context.Context, operation, identifier string, windowSeconds int) (persistence.WindowState, error)
}

// Decision is the outcome of a single attempt.
type Decision struct {
	Allowed bool
	// RetryAfter is how long until the current window expires. Only
	// meaningful when Allowed is false.
	RetryAfter time.Duration
}

type Limiter struct {
	store    Store
	policies map[Op]Policy
}

func NewLimiter(store Store) *Limiter {
	if store == nil {
		panic("ratelimit: store is required")
	}
	return &Limiter{store: store, policies: defaultPolicies}
}

// Check records one attempt for (op, identifier) and reports whether it
// is within the operation's window budget. The attempt is counted even
// when the answer is no.
func (l *Limiter) Check(ctx context.Context, op Op, identifier string) (Decision, error) {
	policy, ok := l.policies[op]
	if !ok {
		return Decision{}, fmt.Errorf("no rate limit policy for operation %q", op)
	}

	state, err := l.store.RecordAttempt(ctx, string(op), identifier, int(policy.Window.Seconds()))
	if err != nil {
		return Decision{}, fmt.Errorf("recording attempt for %s: %w", op, err)
	}

	if state.Attempts <= policy.MaxAttempts {
		return Decision{Allowed: true}, nil
	}

	// The store computes the window remainder against its own clock, so
	// skew between app and database cannot distort the hint.
	retryAfter := state.Remaining
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}
