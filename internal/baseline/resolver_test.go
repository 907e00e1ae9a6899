package baseline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/piki9312/evalgate/internal/domain"
	"github.com/piki9312/evalgate/internal/storage/jsonl"
	"github.com/piki9312/evalgate/internal/storage/memory"
)

func record(runID string, ts time.Time, passed bool) *domain.Record {
	r := &domain.Record{
		RunID:     runID,
		CaseID:    "TC001",
		Severity:  domain.SeverityS1,
		Timestamp: ts,
		Passed:    passed,
		LatencyMs: 100,
	}
	if !passed {
		r.FailureType = domain.FailureTypePtr(domain.FailureQualityFail)
	}
	return r
}

func TestFromDirectory(t *testing.T) {
	dir := t.TempDir()
	store := jsonl.New(dir)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	store.Append(ctx, record("run-b", ts, true))
	store.Append(ctx, record("run-a", ts.Add(time.Hour), false))

	r := New()
	base, err := r.FromDirectory(ctx, dir)
	if err != nil {
		t.Fatalf("FromDirectory failed: %v", err)
	}

	if base.Summary.Overall.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", base.Summary.Overall.Attempts)
	}
	// Window carries the sorted distinct run ids.
	want := []string{"run-a", "run-b"}
	if len(base.Window.BaselineRunIDs) != 2 {
		t.Fatalf("expected 2 run ids, got %v", base.Window.BaselineRunIDs)
	}
	for i, id := range want {
		if base.Window.BaselineRunIDs[i] != id {
			t.Errorf("run id %d: expected %s, got %s", i, id, base.Window.BaselineRunIDs[i])
		}
	}
}

func TestFromDirectory_Empty(t *testing.T) {
	r := New()
	_, err := r.FromDirectory(context.Background(), t.TempDir())
	if !errors.Is(err, ErrAbsent) {
		t.Errorf("expected ErrAbsent, got %v", err)
	}
}

func TestFromTrailingWindow_ExcludesCurrentRun(t *testing.T) {
	store := memory.NewRecordStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// Prior run inside the window.
	store.Append(ctx, record("run-old", now.AddDate(0, 0, -2), true))
	// The current run's own records, landing today: excluded by run_id.
	store.Append(ctx, record("run-current", now, false))

	r := New().WithClock(func() time.Time { return now })
	base, err := r.FromTrailingWindow(ctx, store, 7, "run-current")
	if err != nil {
		t.Fatalf("FromTrailingWindow failed: %v", err)
	}

	if base.Summary.Overall.Attempts != 1 {
		t.Errorf("expected only the prior run's record, got %d", base.Summary.Overall.Attempts)
	}
	if base.Summary.Overall.PassRate != 1.0 {
		t.Errorf("current run's failure leaked into the baseline: %+v", base.Summary.Overall)
	}
	if base.Window.Days != 7 || base.Window.EndDate != "2026-03-10" {
		t.Errorf("window descriptor wrong: %+v", base.Window)
	}
}

func TestFromTrailingWindow_SpansExactlyNDays(t *testing.T) {
	store := memory.NewRecordStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// days=7 ending today covers Mar 4 through Mar 10.
	store.Append(ctx, record("run-in", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), true))
	store.Append(ctx, record("run-out", time.Date(2026, 3, 3, 23, 0, 0, 0, time.UTC), false))

	r := New().WithClock(func() time.Time { return now })
	base, err := r.FromTrailingWindow(ctx, store, 7, "run-current")
	if err != nil {
		t.Fatalf("FromTrailingWindow failed: %v", err)
	}

	if base.Summary.Overall.Attempts != 1 {
		t.Fatalf("expected exactly the day-7 record, got %d attempts", base.Summary.Overall.Attempts)
	}
	if base.Summary.Overall.PassRate != 1.0 {
		t.Errorf("day-8 record leaked into a 7-day window: %+v", base.Summary.Overall)
	}
}

func TestFromTrailingWindow_OldRecordsExcluded(t *testing.T) {
	store := memory.NewRecordStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store.Append(ctx, record("run-ancient", now.AddDate(0, 0, -30), true))

	r := New().WithClock(func() time.Time { return now })
	_, err := r.FromTrailingWindow(ctx, store, 7, "run-current")
	if !errors.Is(err, ErrAbsent) {
		t.Errorf("expected ErrAbsent for out-of-window records, got %v", err)
	}
}

func TestFromTrailingWindow_AbsentWhenOnlyCurrentRun(t *testing.T) {
	store := memory.NewRecordStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store.Append(ctx, record("run-current", now, true))

	r := New().WithClock(func() time.Time { return now })
	_, err := r.FromTrailingWindow(ctx, store, 7, "run-current")
	if !errors.Is(err, ErrAbsent) {
		t.Errorf("expected ErrAbsent, got %v", err)
	}
}

func TestFromTrailingWindow_BadDays(t *testing.T) {
	r := New()
	if _, err := r.FromTrailingWindow(context.Background(), memory.NewRecordStore(), 0, ""); err == nil {
		t.Error("expected error for non-positive window")
	}
}
