package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/piki9312/evalgate/internal/domain"
	"github.com/piki9312/evalgate/internal/storage/postgres"
)

func archivedRecord(runID, caseID string, ts time.Time, passed bool) *domain.Record {
	r := &domain.Record{
		RunID:       runID,
		CaseID:      caseID,
		Severity:    domain.SeverityS1,
		Timestamp:   ts,
		Passed:      passed,
		LatencyMs:   42.5,
		Cost:        0.002,
		TokensTotal: 128,
		OutputText:  "output",
	}
	if !passed {
		r.FailureType = domain.FailureTypePtr(domain.FailureSchemaMismatch)
		r.OutputJSON = map[string]any{"detail": "missing key"}
	}
	return r
}

func TestRecordStore_AppendReadRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewRecordStore(pool)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, archivedRecord("run-a", "TC001", ts, false)))

	got, err := store.ReadRun(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	require.Equal(t, "TC001", r.CaseID)
	require.False(t, r.Passed)
	require.NotNil(t, r.FailureType)
	require.Equal(t, domain.FailureSchemaMismatch, *r.FailureType)
	require.Equal(t, 128, r.TokensTotal)
	require.True(t, r.Timestamp.Equal(ts))
	require.Equal(t, "missing key", r.OutputJSON["detail"])
}

func TestRecordStore_ReplayedAppendDeduplicates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewRecordStore(pool)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

	rec := archivedRecord("run-a", "TC001", ts, true)
	require.NoError(t, store.Append(ctx, rec))
	require.NoError(t, store.Append(ctx, rec), "replayed append must not error")

	got, err := store.ReadRun(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, got, 1, "replayed append must not double-count")
}

func TestRecordStore_ReadWindowAndLatestRun(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, archivedRecord("run-old", "TC001",
		time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), true)))
	require.NoError(t, store.Append(ctx, archivedRecord("run-new", "TC001",
		time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC), true)))

	window, err := store.ReadWindow(ctx,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, window, 1)
	require.Equal(t, "run-old", window[0].RunID)

	latest, err := store.LatestRunID(ctx)
	require.NoError(t, err)
	require.Equal(t, "run-new", latest)
}
