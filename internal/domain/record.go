package domain

import "time"

// FailureType is the closed classification of a failed case execution.
type FailureType string

// FailureType constants. Wire strings are fixed; readers must treat an
// unknown value as FailureOther rather than erroring.
const (
	FailureBadJSON        FailureType = "bad_json"
	FailureQualityFail    FailureType = "quality_fail"
	FailureTimeout        FailureType = "timeout"
	FailureProviderError  FailureType = "provider_error"
	FailureSchemaMismatch FailureType = "schema_mismatch"
	FailureOther          FailureType = "other"
)

// KnownFailureTypes lists all failure types in canonical (alphabetical)
// order, used for deterministic rendering.
var KnownFailureTypes = []FailureType{
	FailureBadJSON,
	FailureOther,
	FailureProviderError,
	FailureQualityFail,
	FailureSchemaMismatch,
	FailureTimeout,
}

// Record is one row per case execution. Records are immutable once
// written. Invariant: Passed == true implies FailureType == nil.
type Record struct {
	RunID        string         `json:"run_id"`
	CaseID       string         `json:"case_id"`
	Severity     Severity       `json:"severity"`
	Timestamp    time.Time      `json:"timestamp"` // UTC, RFC3339
	Passed       bool           `json:"passed"`
	FailureType  *FailureType   `json:"failure_type"` // nil when passed
	LatencyMs    float64        `json:"latency_ms"`
	Cost         float64        `json:"cost"`
	TokensTotal  int            `json:"tokens_total"`
	OutputText   string         `json:"output_text"`
	OutputJSON   map[string]any `json:"output_json"` // object or null
	AttemptIndex int            `json:"attempt_index"`
}

// Failed returns the failure type, or FailureOther for a failed record
// that carries none (a reader-side repair; writers always set it).
func (r *Record) Failed() FailureType {
	if r.Passed {
		return ""
	}
	if r.FailureType == nil {
		return FailureOther
	}
	return *r.FailureType
}

// FailureTypePtr is a convenience for building records.
func FailureTypePtr(ft FailureType) *FailureType {
	return &ft
}
