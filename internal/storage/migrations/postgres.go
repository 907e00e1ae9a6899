package migrations

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunPostgresMigrations applies the embedded PostgreSQL DDL. Every file
// is written with IF NOT EXISTS guards, so replaying against an
// already-migrated database is harmless.
func RunPostgresMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	files, err := fs.Glob(PostgresFS, "postgres/*.sql")
	if err != nil {
		return fmt.Errorf("list postgres migrations: %w", err)
	}

	// fs.Glob returns lexical order, which is the numbered-file order.
	for _, name := range files {
		ddl, err := fs.ReadFile(PostgresFS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(ddl)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
