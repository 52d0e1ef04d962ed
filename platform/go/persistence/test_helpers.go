package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// seedTenant inserts an active tenant with unique slug/subdomain for store tests.
func seedTenant(t *testing.T, pool *pgxpool.Pool) TenantRecord {
	t.Helper()

	store, err := NewTenantStore(context.Background(), pool)
	if err != nil {
		t.Fatalf("new tenant store: %v", err)
	}

	id := uuid.New()
	short := id.String()[:8]
	rec, err := store.CreateTenant(context.Background(), CreateTenantParams{
		TenantID:    id,
		Slug:        fmt.Sprintf("studio-%s", short),
		DisplayName: "Test Studio",
		Subdomain:   fmt.Sprintf("studio-%s", short),
		Plan:        "studio",
	})
	if err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return rec
}

// seedPortalClient inserts an active portal client under the tenant.
func seedPortalClient(t *testing.T, pool *pgxpool.Pool, tenantID uuid.UUID) PortalClient {
	t.Helper()

	store, err := NewPortalSessionStore(context.Background(), pool)
	if err != nil {
		t.Fatalf("new portal session store: %v", err)
	}

	id := uuid.New()
	client, err := store.CreateClient(context.Background(), CreatePortalClientParams{
		ClientID:    id,
		TenantID:    tenantID,
		Email:       fmt.Sprintf("client-%s@example.com", id.String()[:8]),
		DisplayName: "Test Client",
	})
	if err != nil {
		t.Fatalf("seed portal client: %v", err)
	}
	return client
}
