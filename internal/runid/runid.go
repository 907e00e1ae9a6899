// Package runid generates run identifiers and deterministic record keys.
package runid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New returns a fresh opaque run identifier. The timestamp prefix keeps
// log dirs human-scannable; the uuid suffix guarantees uniqueness across
// CI jobs started in the same second.
func New(now time.Time) string {
	return fmt.Sprintf("run-%s-%s", now.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}

// RecordKey computes a deterministic record key using SHA256.
// Formula: SHA256(run_id|case_id|attempt_index)
// Returns hex-encoded hash (64 characters). Used as the archive primary
// key so replayed appends deduplicate instead of double-counting.
func RecordKey(runID, caseID string, attemptIndex int) string {
	data := fmt.Sprintf("%s|%s|%d", runID, caseID, attemptIndex)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
