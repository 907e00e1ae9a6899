package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/piki9312/evalgate/internal/storage"
	"github.com/piki9312/evalgate/internal/storage/clickhouse"
	"github.com/piki9312/evalgate/internal/storage/migrations"
	"github.com/piki9312/evalgate/internal/storage/postgres"
)

// splitList splits a comma-separated flag value, trimming and dropping
// empties.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// archiveCleanup tears down archive connections.
type archiveCleanup func()

// openArchives connects to the optional record archives. Migrations run
// on connect so a fresh database is usable immediately.
func openArchives(ctx context.Context, postgresDSN, clickhouseDSN string) ([]storage.RecordStore, archiveCleanup, error) {
	var stores []storage.RecordStore
	var closers []func()

	if postgresDSN != "" {
		pool, err := postgres.Connect(ctx, postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres archive: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres archive: %w", err)
		}
		stores = append(stores, postgres.NewRecordStore(pool))
		closers = append(closers, pool.Close)
	}

	if clickhouseDSN != "" {
		conn, err := clickhouse.Connect(ctx, clickhouseDSN)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, fmt.Errorf("clickhouse archive: %w", err)
		}
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			_ = conn.Close()
			for _, c := range closers {
				c()
			}
			return nil, nil, fmt.Errorf("clickhouse archive: %w", err)
		}
		stores = append(stores, clickhouse.NewRecordStore(conn))
		closers = append(closers, func() { _ = conn.Close() })
	}

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return stores, cleanup, nil
}

// writeOutput writes content to path, or stdout when path is empty.
func writeOutput(path, content string) error {
	if path == "" {
		_, err := os.Stdout.WriteString(content)
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
