package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loomworks/agencydesk/platform/go/persistence"
	"github.com/loomworks/agencydesk/platform/go/ratelimit"
)

// ErrLoginInvalid covers every login failure: unknown email, wrong or
// expired code, deactivated client. Callers cannot tell them apart.
var ErrLoginInvalid = errors.New("login invalid")

// RateLimitedError reports a throttled login with a retry hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// SessionRepository is the portal client/session surface. Implemented by
// persistence.PortalSessionStore.
type SessionRepository interface {
	GetClientByEmail(ctx context.Context, tenantID uuid.UUID, email string) (persistence.PortalClient, error)
	IssueSession(ctx context.Context, clientID uuid.UUID, ttl time.Duration) (string, time.Time, error)
	RevokeSession(ctx context.Context, clientID uuid.UUID, rawToken string) error
}

// CodeRepository consumes one-time codes. Implemented by persistence.OTPStore.
type CodeRepository interface {
	ConsumeCode(ctx context.Context, email, code string) (bool, error)
}

// ContractRepository lists a client's contracts. Implemented by
// persistence.ContractStore.
type ContractRepository interface {
	ListContracts(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID) ([]persistence.Contract, error)
}

// Session is the payload returned once per successful login. The raw
// token is never derivable again.
type Session struct {
	Client    persistence.PortalClient
	Token     string
	ExpiresAt time.Time
}

// Service implements the portal client flows.
type Service struct {
	sessions   SessionRepository
	codes      CodeRepository
	contracts  ContractRepository
	limiter    *ratelimit.Limiter
	sessionTTL time.Duration
}

// New constructs a portal Service.
func New(sessions SessionRepository, codes CodeRepository, contracts ContractRepository, limiter *ratelimit.Limiter, sessionTTL time.Duration) *Service {
	if sessions == nil {
		panic("portal session repository is required")
	}
	if codes == nil {
		panic("code repository is required")
	}
	if contracts == nil {
		panic("contract repository is required")
	}
	if limiter == nil {
		panic("rate limiter is required")
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &Service{
		sessions:   sessions,
		codes:      codes,
		contracts:  contracts,
		limiter:    limiter,
		sessionTTL: sessionTTL,
	}
}

// Login exchanges a verified email code for a fresh session token under
// the resolved tenant. Attempts count against the portal-login window
// per tenant and email, successful or not.
func (s *Service) Login(ctx context.Context, tenantID uuid.UUID, email, otp string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	otp = strings.TrimSpace(otp)
	if email == "" || otp == "" {
		return Session{}, ErrLoginInvalid
	}

	decision, err := s.limiter.Check(ctx, ratelimit.OpPortalLogin, tenantID.String()+":"+email)
	if err != nil {
		return Session{}, err
	}
	if !decision.Allowed {
		return Session{}, &RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	client, err := s.sessions.GetClientByEmail(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, persistence.ErrPortalClientNotFound) {
			// Burn the code anyway so the outcome does not reveal
			// whether the email exists.
			_, _ = s.codes.ConsumeCode(ctx, email, otp)
			return Session{}, ErrLoginInvalid
		}
		return Session{}, err
	}

	ok, err := s.codes.ConsumeCode(ctx, email, otp)
	if err != nil {
		return Session{}, fmt.Errorf("consuming code: %w", err)
	}
	if !ok {
		return Session{}, ErrLoginInvalid
	}

	token, expiresAt, err := s.sessions.IssueSession(ctx, client.ClientID, s.sessionTTL)
	if err != nil {
		if errors.Is(err, persistence.ErrPortalClientNotFound) {
			return Session{}, ErrLoginInvalid
		}
		return Session{}, fmt.Errorf("issuing session: %w", err)
	}

	return Session{Client: client, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout revokes the supplied session. A token that matches nothing is
// already logged out, so that is not an error.
func (s *Service) Logout(ctx context.Context, clientID uuid.UUID, rawToken string) error {
	if clientID == uuid.Nil || rawToken == "" {
		return nil
	}
	return s.sessions.RevokeSession(ctx, clientID, rawToken)
}

// Contracts lists the contracts shared with the authenticated client.
func (s *Service) Contracts(ctx context.Context, client persistence.PortalClient) ([]persistence.Contract, error) {
	clientID := client.ClientID
	return s.contracts.ListContracts(ctx, client.TenantID, &clientID)
}
