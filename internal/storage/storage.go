package storage

import (
	"context"
	"time"

	"github.com/piki9312/evalgate/internal/domain"
)

// RecordStore provides append-only persistence for case execution records.
// Records are immutable once appended. Implementations must not be relied
// on for ordering; consumers aggregate order-independently.
type RecordStore interface {
	// Append persists one record. Returns ErrInvalidInput when the record
	// violates the passed/failure_type invariant or lacks identifiers.
	Append(ctx context.Context, r *domain.Record) error

	// ReadRun returns all records matching run_id, in no particular order.
	ReadRun(ctx context.Context, runID string) ([]domain.Record, error)

	// ReadWindow returns all records with timestamp in [start, end).
	ReadWindow(ctx context.Context, start, end time.Time) ([]domain.Record, error)

	// ReadAll returns every record in the store.
	ReadAll(ctx context.Context) ([]domain.Record, error)

	// LatestRunID groups records by run_id and returns the run containing
	// the maximum timestamp. Returns ErrNotFound on an empty store.
	LatestRunID(ctx context.Context) (string, error)
}

// ValidateRecord checks the invariants every backend enforces on append.
func ValidateRecord(r *domain.Record) error {
	if r == nil || r.RunID == "" || r.CaseID == "" {
		return ErrInvalidInput
	}
	if r.Passed && r.FailureType != nil {
		return ErrInvalidInput
	}
	if r.LatencyMs < 0 || r.Cost < 0 || r.TokensTotal < 0 || r.AttemptIndex < 0 {
		return ErrInvalidInput
	}
	if r.Timestamp.IsZero() {
		return ErrInvalidInput
	}
	return nil
}
