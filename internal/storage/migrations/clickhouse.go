package migrations

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// RunClickhouseMigrations applies the embedded ClickHouse DDL. Every file
// is written with IF NOT EXISTS guards, so replaying against an
// already-migrated database is harmless.
func RunClickhouseMigrations(ctx context.Context, conn driver.Conn) error {
	files, err := fs.Glob(ClickhouseFS, "clickhouse/*.sql")
	if err != nil {
		return fmt.Errorf("list clickhouse migrations: %w", err)
	}

	// fs.Glob returns lexical order, which is the numbered-file order.
	for _, name := range files {
		ddl, err := fs.ReadFile(ClickhouseFS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := conn.Exec(ctx, string(ddl)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
