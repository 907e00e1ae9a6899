// Package baseline produces the reference summary a gate evaluation
// compares against.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/piki9312/evalgate/internal/domain"
	"github.com/piki9312/evalgate/internal/storage"
	"github.com/piki9312/evalgate/internal/storage/jsonl"
	"github.com/piki9312/evalgate/internal/summary"
)

// ErrAbsent marks an empty baseline. The gate treats it as non-fatal and
// evaluates only baseline-independent checks.
var ErrAbsent = errors.New("baseline absent")

// Resolver builds baseline summaries from prior records.
type Resolver struct {
	now func() time.Time
}

// New creates a resolver.
func New() *Resolver {
	return &Resolver{now: func() time.Time { return time.Now().UTC() }}
}

// WithClock sets a custom clock for deterministic window bounds.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// FromDirectory aggregates every record under dir as one summary.
// Intended for a "last green run on main" artifact directory.
func (r *Resolver) FromDirectory(ctx context.Context, dir string) (*domain.BaselineSummary, error) {
	records, err := jsonl.New(dir).ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read baseline dir: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrAbsent
	}

	runIDs := make(map[string]struct{})
	for i := range records {
		runIDs[records[i].RunID] = struct{}{}
	}
	ids := make([]string, 0, len(runIDs))
	for id := range runIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &domain.BaselineSummary{
		Summary: *summary.Aggregate("", records),
		Window:  domain.Window{BaselineRunIDs: ids},
	}, nil
}

// FromTrailingWindow aggregates records from the trailing days-wide UTC
// date window ending today, read from store. The current run's records
// are excluded by run_id regardless of their date, so a run landing
// today never contaminates its own baseline.
func (r *Resolver) FromTrailingWindow(ctx context.Context, store storage.RecordStore, days int, currentRunID string) (*domain.BaselineSummary, error) {
	if days <= 0 {
		return nil, fmt.Errorf("baseline window must be positive, got %d", days)
	}

	// The window spans exactly days calendar days ending today.
	now := r.now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -days)

	records, err := store.ReadWindow(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("read baseline window: %w", err)
	}

	var kept []domain.Record
	for _, rec := range records {
		if rec.RunID == currentRunID {
			continue
		}
		kept = append(kept, rec)
	}
	if len(kept) == 0 {
		return nil, ErrAbsent
	}

	return &domain.BaselineSummary{
		Summary: *summary.Aggregate("", kept),
		Window: domain.Window{
			Days:    days,
			EndDate: now.Format("2006-01-02"),
		},
	}, nil
}
