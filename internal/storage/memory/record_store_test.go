package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/piki9312/evalgate/internal/domain"
	"github.com/piki9312/evalgate/internal/storage"
)

func record(runID, caseID string, ts time.Time) *domain.Record {
	return &domain.Record{
		RunID:     runID,
		CaseID:    caseID,
		Severity:  domain.SeverityS2,
		Timestamp: ts,
		Passed:    true,
	}
}

func TestRecordStore_AppendAndReadRun(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := store.Append(ctx, record("run-a", "TC001", ts)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, record("run-b", "TC001", ts)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := store.ReadRun(ctx, "run-a")
	if err != nil {
		t.Fatalf("ReadRun failed: %v", err)
	}
	if len(got) != 1 || got[0].RunID != "run-a" {
		t.Errorf("expected 1 record for run-a, got %+v", got)
	}
}

func TestRecordStore_ReadWindow(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	if err := store.Append(ctx, record("run-a", "TC001",
		time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, record("run-a", "TC002",
		time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := store.ReadWindow(ctx,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadWindow failed: %v", err)
	}
	if len(got) != 1 || got[0].CaseID != "TC001" {
		t.Errorf("window filter wrong: %+v", got)
	}
}

func TestRecordStore_LatestRunID(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	_, err := store.LatestRunID(ctx)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on empty store, got %v", err)
	}

	store.Append(ctx, record("run-a", "TC001", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	store.Append(ctx, record("run-b", "TC001", time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)))

	got, err := store.LatestRunID(ctx)
	if err != nil {
		t.Fatalf("LatestRunID failed: %v", err)
	}
	if got != "run-b" {
		t.Errorf("expected run-b, got %s", got)
	}
}

func TestRecordStore_ValidatesInvariant(t *testing.T) {
	store := NewRecordStore()
	r := record("run-a", "TC001", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	r.FailureType = domain.FailureTypePtr(domain.FailureOther)

	err := store.Append(context.Background(), r)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
