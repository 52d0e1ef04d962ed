package persistence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// mustTestPool creates a transient test database connection pool and applies the platform DDL.
// It prefers TEST_DATABASE_URL when set; otherwise it starts a throwaway Postgres container.
func mustTestPool(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()
	connString, stopContainer := testDatabaseURL(t)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		stopContainer()
		t.Fatalf("create test pool: %v", err)
	}

	if err := Bootstrap(ctx, pool); err != nil {
		pool.Close()
		stopContainer()
		t.Fatalf("apply platform ddl: %v", err)
	}

	cleanup := func() {
		pool.Close()
		stopContainer()
	}

	return pool, cleanup
}

// testDatabaseURL reads TEST_DATABASE_URL or provisions a Postgres testcontainer.
func testDatabaseURL(t *testing.T) (string, func()) {
	t.Helper()

	if url, ok := os.LookupEnv("TEST_DATABASE_URL"); ok && url != "" {
		return url, func() {}
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("agencydesk"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("container connection string: %v", err)
	}

	return connString, func() {
		_ = container.Terminate(ctx)
	}
}
