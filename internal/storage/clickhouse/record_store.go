package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/piki9312/evalgate/internal/domain"
	"github.com/piki9312/evalgate/internal/runid"
	"github.com/piki9312/evalgate/internal/storage"
)

// RecordStore implements storage.RecordStore using ClickHouse. It serves
// as the analytical archive for long trailing-window baselines; dedupe is
// delegated to the table's ReplacingMergeTree keyed on record_key.
type RecordStore struct {
	conn driver.Conn
}

// NewRecordStore creates a new RecordStore over a connected client.
func NewRecordStore(conn driver.Conn) *RecordStore {
	return &RecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RecordStore = (*RecordStore)(nil)

const recordColumns = `
	record_key, run_id, case_id, severity, ts, passed, failure_type,
	latency_ms, cost, tokens_total, output_text, output_json, attempt_index
`

// Append inserts one record as a single-row batch.
func (s *RecordStore) Append(ctx context.Context, r *domain.Record) error {
	return s.AppendBatch(ctx, []domain.Record{*r})
}

// AppendBatch inserts multiple records in one ClickHouse batch.
func (s *RecordStore) AppendBatch(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO case_records (`+recordColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i := range records {
		r := &records[i]
		if err := storage.ValidateRecord(r); err != nil {
			return err
		}

		failureType := ""
		if r.FailureType != nil {
			failureType = string(*r.FailureType)
		}
		outputJSON := ""
		if r.OutputJSON != nil {
			raw, err := json.Marshal(r.OutputJSON)
			if err != nil {
				return fmt.Errorf("marshal output_json: %w", err)
			}
			outputJSON = string(raw)
		}

		err = batch.Append(
			runid.RecordKey(r.RunID, r.CaseID, r.AttemptIndex),
			r.RunID, r.CaseID, string(r.Severity), r.Timestamp.UTC(),
			r.Passed, failureType,
			r.LatencyMs, r.Cost, uint64(r.TokensTotal), r.OutputText, outputJSON,
			uint32(r.AttemptIndex),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// ReadRun returns all records matching runID.
func (s *RecordStore) ReadRun(ctx context.Context, runID string) ([]domain.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM case_records FINAL WHERE run_id = ?`
	return s.query(ctx, query, runID)
}

// ReadWindow returns all records with ts in [start, end).
func (s *RecordStore) ReadWindow(ctx context.Context, start, end time.Time) ([]domain.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM case_records FINAL WHERE ts >= ? AND ts < ?`
	return s.query(ctx, query, start.UTC(), end.UTC())
}

// ReadAll returns every archived record.
func (s *RecordStore) ReadAll(ctx context.Context) ([]domain.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM case_records FINAL`
	return s.query(ctx, query)
}

// LatestRunID returns the run_id owning the maximum timestamp.
func (s *RecordStore) LatestRunID(ctx context.Context) (string, error) {
	query := `SELECT run_id FROM case_records FINAL ORDER BY ts DESC, run_id DESC LIMIT 1`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return "", fmt.Errorf("select latest run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return "", storage.ErrNotFound
	}
	var runID string
	if err := rows.Scan(&runID); err != nil {
		return "", fmt.Errorf("scan latest run: %w", err)
	}
	return runID, nil
}

func (s *RecordStore) query(ctx context.Context, query string, args ...any) ([]domain.Record, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query case records: %w", err)
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		var (
			r           domain.Record
			recordKey   string
			severity    string
			failureType string
			outputJSON  string
			tokensTotal uint64
			attemptIdx  uint32
		)
		if err := rows.Scan(
			&recordKey, &r.RunID, &r.CaseID, &severity, &r.Timestamp, &r.Passed, &failureType,
			&r.LatencyMs, &r.Cost, &tokensTotal, &r.OutputText, &outputJSON, &attemptIdx,
		); err != nil {
			return nil, fmt.Errorf("scan case record: %w", err)
		}

		r.Severity = domain.Severity(severity)
		r.Timestamp = r.Timestamp.UTC()
		r.TokensTotal = int(tokensTotal)
		r.AttemptIndex = int(attemptIdx)
		if failureType != "" {
			ft := domain.FailureType(failureType)
			r.FailureType = &ft
		}
		if outputJSON != "" {
			if err := json.Unmarshal([]byte(outputJSON), &r.OutputJSON); err != nil {
				return nil, fmt.Errorf("unmarshal output_json for %s/%s: %w", r.RunID, r.CaseID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
