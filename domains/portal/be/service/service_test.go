package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/agencydesk/platform/go/persistence"
	"github.com/loomworks/agencydesk/platform/go/ratelimit"
)

type fakeSessions struct {
	getByEmailFn func(tenantID uuid.UUID, email string) (persistence.PortalClient, error)
	issueFn      func(clientID uuid.UUID, ttl time.Duration) (string, time.Time, error)
	revokeFn     func(clientID uuid.UUID, rawToken string) error
}

func (f *fakeSessions) GetClientByEmail(_ context.Context, tenantID uuid.UUID, email string) (persistence.PortalClient, error) {
	return f.getByEmailFn(tenantID, email)
}

func (f *fakeSessions) IssueSession(_ context.Context, clientID uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	return f.issueFn(clientID, ttl)
}

func (f *fakeSessions) RevokeSession(_ context.Context, clientID uuid.UUID, rawToken string) error {
	return f.revokeFn(clientID, rawToken)
}

type fakeCodes struct {
	consumeFn func(email, code string) (bool, error)
}

func (f *fakeCodes) ConsumeCode(_ context.Context, email, code string) (bool, error) {
	return f.consumeFn(email, code)
}

type fakeContracts struct {
	listFn func(tenantID uuid.UUID, clientID *uuid.UUID) ([]persistence.Contract, error)
}

func (f *fakeContracts) ListContracts(_ context.Context, tenantID uuid.UUID, clientID *uuid.UUID) ([]persistence.Contract, error) {
	return f.listFn(tenantID, clientID)
}

type countingStore struct {
	attempts map[string]int
}

func (c *countingStore) RecordAttempt(_ context.Context, operation, identifier string, _ int) (persistence.WindowState, error) {
	if c.attempts == nil {
		c.attempts = map[string]int{}
	}
	key := operation + "|" + identifier
	c.attempts[key]++
	return persistence.WindowState{Attempts: c.attempts[key], WindowStartedAt: time.Now(), Remaining: 10 * time.Minute}, nil
}

func TestLoginHappyPath(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	client := persistence.PortalClient{ClientID: uuid.New(), TenantID: tenantID, Email: "client@example.com", IsActive: true}

	sessions := &fakeSessions{
		getByEmailFn: func(gotTenant uuid.UUID, email string) (persistence.PortalClient, error) {
			require.Equal(t, tenantID, gotTenant)
			require.Equal(t, "client@example.com", email)
			return client, nil
		},
		issueFn: func(clientID uuid.UUID, ttl time.Duration) (string, time.Time, error) {
			require.Equal(t, client.ClientID, clientID)
			require.Equal(t, time.Hour, ttl)
			return "raw-token", time.Now().Add(ttl), nil
		},
	}
	codes := &fakeCodes{consumeFn: func(email, code string) (bool, error) {
		require.Equal(t, "client@example.com", email)
		require.Equal(t, "123456", code)
		return true, nil
	}}

	svc := New(sessions, codes, &fakeContracts{}, ratelimit.NewLimiter(&countingStore{}), time.Hour)

	session, err := svc.Login(t.Context(), tenantID, " Client@Example.com ", "123456")
	require.NoError(t, err)
	require.Equal(t, "raw-token", session.Token)
	require.Equal(t, client.ClientID, session.Client.ClientID)
}

func TestLoginUnknownEmailBurnsCode(t *testing.T) {
	t.Parallel()

	consumed := false
	sessions := &fakeSessions{getByEmailFn: func(uuid.UUID, string) (persistence.PortalClient, error) {
		return persistence.PortalClient{}, persistence.ErrPortalClientNotFound
	}}
	codes := &fakeCodes{consumeFn: func(string, string) (bool, error) {
		consumed = true
		return false, nil
	}}

	svc := New(sessions, codes, &fakeContracts{}, ratelimit.NewLimiter(&countingStore{}), time.Hour)

	_, err := svc.Login(t.Context(), uuid.New(), "nobody@example.com", "123456")
	require.ErrorIs(t, err, ErrLoginInvalid)
	require.True(t, consumed)
}

func TestLoginWrongCode(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{
		getByEmailFn: func(uuid.UUID, string) (persistence.PortalClient, error) {
			return persistence.PortalClient{ClientID: uuid.New()}, nil
		},
		issueFn: func(uuid.UUID, time.Duration) (string, time.Time, error) {
			t.Fatal("session must not be issued")
			return "", time.Time{}, nil
		},
	}
	codes := &fakeCodes{consumeFn: func(string, string) (bool, error) { return false, nil }}

	svc := New(sessions, codes, &fakeContracts{}, ratelimit.NewLimiter(&countingStore{}), time.Hour)

	_, err := svc.Login(t.Context(), uuid.New(), "client@example.com", "000000")
	require.ErrorIs(t, err, ErrLoginInvalid)
}

func TestLoginRateLimitedPerTenantAndEmail(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	store := &countingStore{}
	sessions := &fakeSessions{
		getByEmailFn: func(uuid.UUID, string) (persistence.PortalClient, error) {
			return persistence.PortalClient{ClientID: uuid.New()}, nil
		},
		issueFn: func(uuid.UUID, time.Duration) (string, time.Time, error) {
			return "tok", time.Now().Add(time.Hour), nil
		},
	}
	codes := &fakeCodes{consumeFn: func(string, string) (bool, error) { return true, nil }}

	svc := New(sessions, codes, &fakeContracts{}, ratelimit.NewLimiter(store), time.Hour)

	for i := 0; i < 10; i++ {
		_, err := svc.Login(t.Context(), tenantID, "client@example.com", "123456")
		require.NoError(t, err)
	}

	_, err := svc.Login(t.Context(), tenantID, "client@example.com", "123456")
	var rateLimited *RateLimitedError
	require.ErrorAs(t, err, &rateLimited)

	// A different tenant with the same email has its own window.
	_, err = svc.Login(t.Context(), uuid.New(), "client@example.com", "123456")
	require.NoError(t, err)
}

func TestLogoutSwallowsMissingCredentials(t *testing.T) {
	t.Parallel()

	svc := New(&fakeSessions{revokeFn: func(uuid.UUID, string) error {
		t.Fatal("revoke must not be called")
		return nil
	}}, &fakeCodes{}, &fakeContracts{}, ratelimit.NewLimiter(&countingStore{}), time.Hour)

	require.NoError(t, svc.Logout(t.Context(), uuid.Nil, ""))
}

func TestContractsScopedToClient(t *testing.T) {
	t.Parallel()

	client := persistence.PortalClient{ClientID: uuid.New(), TenantID: uuid.New()}
	contracts := &fakeContracts{listFn: func(tenantID uuid.UUID, clientID *uuid.UUID) ([]persistence.Contract, error) {
		require.Equal(t, client.TenantID, tenantID)
		require.NotNil(t, clientID)
		require.Equal(t, client.ClientID, *clientID)
		return []persistence.Contract{{ContractID: uuid.New()}}, nil
	}}

	svc := New(&fakeSessions{}, &fakeCodes{}, contracts, ratelimit.NewLimiter(&countingStore{}), time.Hour)

	result, err := svc.Contracts(t.Context(), client)
	require.NoError(t, err)
	require.Len(t, result, 1)
}
