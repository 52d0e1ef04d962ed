package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/loomworks/agencydesk/database"
)

// Bootstrap applies the embedded platform DDL. Every statement uses
// IF NOT EXISTS, so running it on every startup is safe.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	for _, asset := range sqlassets.All() {
		for _, raw := range strings.Split(asset, ";") {
			stmt := strings.TrimSpace(raw)
			if stmt == "" {
				continue
			}
			if _, err := pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply platform ddl: %w", err)
			}
		}
	}
	return nil
}
