package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/piki9312/evalgate/internal/domain"
	"github.com/piki9312/evalgate/internal/runid"
	"github.com/piki9312/evalgate/internal/storage"
)

// RecordStore implements storage.RecordStore using PostgreSQL. It is the
// durable archive for run records; the JSONL log dir remains the store of
// record for the current run.
type RecordStore struct {
	pool *pgxpool.Pool
}

// NewRecordStore creates a new RecordStore over a connected pool.
func NewRecordStore(pool *pgxpool.Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RecordStore = (*RecordStore)(nil)

const recordColumns = `
	run_id, case_id, severity, ts, passed, failure_type,
	latency_ms, cost, tokens_total, output_text, output_json, attempt_index
`

// Append inserts one record. A replayed append of the same
// (run_id, case_id, attempt_index) is treated as already-archived and
// succeeds without rewriting the row.
func (s *RecordStore) Append(ctx context.Context, r *domain.Record) error {
	if err := storage.ValidateRecord(r); err != nil {
		return err
	}

	var outputJSON []byte
	if r.OutputJSON != nil {
		var err error
		outputJSON, err = json.Marshal(r.OutputJSON)
		if err != nil {
			return fmt.Errorf("marshal output_json: %w", err)
		}
	}

	var failureType *string
	if r.FailureType != nil {
		ft := string(*r.FailureType)
		failureType = &ft
	}

	query := `
		INSERT INTO case_records (
			record_key,` + recordColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	_, err := s.pool.Exec(ctx, query,
		runid.RecordKey(r.RunID, r.CaseID, r.AttemptIndex),
		r.RunID, r.CaseID, string(r.Severity), r.Timestamp.UTC(), r.Passed, failureType,
		r.LatencyMs, r.Cost, r.TokensTotal, r.OutputText, outputJSON, r.AttemptIndex,
	)
	if err != nil {
		if uniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("insert case record: %w", err)
	}
	return nil
}

// ReadRun returns all records matching runID.
func (s *RecordStore) ReadRun(ctx context.Context, runID string) ([]domain.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM case_records WHERE run_id = $1`
	return s.query(ctx, query, runID)
}

// ReadWindow returns all records with ts in [start, end).
func (s *RecordStore) ReadWindow(ctx context.Context, start, end time.Time) ([]domain.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM case_records WHERE ts >= $1 AND ts < $2`
	return s.query(ctx, query, start.UTC(), end.UTC())
}

// ReadAll returns every archived record.
func (s *RecordStore) ReadAll(ctx context.Context) ([]domain.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM case_records`
	return s.query(ctx, query)
}

// LatestRunID returns the run_id owning the maximum timestamp.
func (s *RecordStore) LatestRunID(ctx context.Context) (string, error) {
	query := `SELECT run_id FROM case_records ORDER BY ts DESC, run_id DESC LIMIT 1`

	var runID string
	err := s.pool.QueryRow(ctx, query).Scan(&runID)
	if err != nil {
		if noRows(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("select latest run: %w", err)
	}
	return runID, nil
}

func (s *RecordStore) query(ctx context.Context, query string, args ...any) ([]domain.Record, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query case records: %w", err)
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		var r domain.Record
		var severity string
		var failureType *string
		var outputJSON []byte

		if err := rows.Scan(
			&r.RunID, &r.CaseID, &severity, &r.Timestamp, &r.Passed, &failureType,
			&r.LatencyMs, &r.Cost, &r.TokensTotal, &r.OutputText, &outputJSON, &r.AttemptIndex,
		); err != nil {
			return nil, fmt.Errorf("scan case record: %w", err)
		}

		r.Severity = domain.Severity(severity)
		r.Timestamp = r.Timestamp.UTC()
		if failureType != nil {
			ft := domain.FailureType(*failureType)
			r.FailureType = &ft
		}
		if len(outputJSON) > 0 {
			if err := json.Unmarshal(outputJSON, &r.OutputJSON); err != nil {
				return nil, fmt.Errorf("unmarshal output_json for %s/%s: %w", r.RunID, r.CaseID, err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case records: %w", err)
	}
	return out, nil
}
