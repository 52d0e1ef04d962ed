package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/loomworks/agencydesk/platform/go/ratelimit"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// ErrCodeInvalid covers every verification failure: wrong code, expired
// code, already-consumed code and unknown email all read the same.
var ErrCodeInvalid = errors.New("code expired or invalid")

// RateLimitedError reports a throttled operation with a retry hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Repository is the code store surface. Implemented by persistence.OTPStore.
type Repository interface {
	IssueCode(ctx context.Context, email string) (string, time.Time, error)
	ConsumeCode(ctx context.Context, email, code string) (bool, error)
}

// CodeSender delivers an issued code to its email address. Production
// wires a mail provider; development logs the code.
type CodeSender interface {
	SendCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// Service issues and verifies one-time email codes.
type Service struct {
	repo    Repository
	limiter *ratelimit.Limiter
	sender  CodeSender
}

// New constructs a verification Service.
func New(repo Repository, limiter *ratelimit.Limiter, sender CodeSender) *Service {
	if repo == nil {
		panic("verification repository is required")
	}
	if limiter == nil {
		panic("rate limiter is required")
	}
	if sender == nil {
		panic("code sender is required")
	}
	return &Service{repo: repo, limiter: limiter, sender: sender}
}

// RequestCode issues a fresh code for the email and hands it to the
// sender. Issuing is counted against the issue-otp window before any
// work happens.
func (s *Service) RequestCode(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	decision, err := s.limiter.Check(ctx, ratelimit.OpIssueOTP, email)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return &RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	code, expiresAt, err := s.repo.IssueCode(ctx, email)
	if err != nil {
		return fmt.Errorf("issuing code: %w", err)
	}

	return s.sender.SendCode(ctx, email, code, expiresAt)
}

// VerifyCode consumes the code for the email. Every attempt is counted
// against the verify-otp window, successful or not.
func (s *Service) VerifyCode(ctx context.Context, email, code string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return &ValidationError{Fields: FieldErrors{"otp": {"otp is required"}}}
	}

	decision, err := s.limiter.Check(ctx, ratelimit.OpVerifyOTP, email)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return &RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	ok, err := s.repo.ConsumeCode(ctx, email, code)
	if err != nil {
		return fmt.Errorf("consuming code: %w", err)
	}
	if !ok {
		return ErrCodeInvalid
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", &ValidationError{Fields: FieldErrors{"email": {"a valid email is required"}}}
	}
	return email, nil
}
