// Package stability computes per-case flakiness metrics from repeated
// runs. Its output is informational only; no gate rule reads it.
package stability

import (
	"sort"

	"github.com/piki9312/evalgate/internal/domain"
)

// CaseStability is one Stability Report row.
type CaseStability struct {
	CaseID    string
	Severity  domain.Severity
	Attempts  int
	Passes    int
	PassRate  float64
	LatencyCV float64
	Flaky     bool // mixed outcomes under identical input
}

// Analyze extracts stability rows from a run summary. Only cases with
// more than one attempt carry repetition data; a single-shot run yields
// no rows and the report omits its Stability section.
func Analyze(s *domain.RunSummary) []CaseStability {
	var out []CaseStability
	for _, cs := range s.Cases {
		if cs.Attempts <= 1 {
			continue
		}
		out = append(out, CaseStability{
			CaseID:    cs.CaseID,
			Severity:  cs.Severity,
			Attempts:  cs.Attempts,
			Passes:    cs.Passes,
			PassRate:  cs.PassRate,
			LatencyCV: cs.LatencyCV,
			Flaky:     cs.Flaky,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity < out[j].Severity
		}
		return out[i].CaseID < out[j].CaseID
	})
	return out
}
