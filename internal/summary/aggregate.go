// Package summary folds records into per-case, per-severity, and per-run
// aggregates. The fold is pure and order-independent: records for a run
// may arrive in any order.
package summary

import (
	"sort"

	"github.com/piki9312/evalgate/internal/domain"
)

// caseAccumulator streams one case's records; only the latency/cost/token
// buffers are retained, for quantile computation.
type caseAccumulator struct {
	severity  domain.Severity
	attempts  int
	passes    int
	failures  map[domain.FailureType]int
	latencies []float64
	costs     []float64
	tokens    []float64
}

// Aggregate folds records into a RunSummary for runID. Pass an empty
// runID for window aggregates.
func Aggregate(runID string, records []domain.Record) *domain.RunSummary {
	s := &domain.RunSummary{
		RunID: runID,
		Cases: make(map[string]*domain.CaseStats),
	}

	accs := make(map[string]*caseAccumulator)
	var allLatencies []float64

	for i := range records {
		r := &records[i]

		s.Overall.Attempts++
		s.TotalCost += r.Cost
		allLatencies = append(allLatencies, r.LatencyMs)

		switch r.Severity {
		case domain.SeverityS1:
			s.S1.Attempts++
		default:
			s.S2.Attempts++
		}

		acc, ok := accs[r.CaseID]
		if !ok {
			acc = &caseAccumulator{
				severity: r.Severity,
				failures: make(map[domain.FailureType]int),
			}
			accs[r.CaseID] = acc
		}
		acc.attempts++
		acc.latencies = append(acc.latencies, r.LatencyMs)
		acc.costs = append(acc.costs, r.Cost)
		acc.tokens = append(acc.tokens, float64(r.TokensTotal))

		if r.Passed {
			s.Overall.Passes++
			acc.passes++
			switch r.Severity {
			case domain.SeverityS1:
				s.S1.Passes++
			default:
				s.S2.Passes++
			}
		} else {
			acc.failures[r.Failed()]++
		}
	}

	s.Overall.PassRate = passRate(s.Overall.Passes, s.Overall.Attempts)
	s.S1.PassRate = passRate(s.S1.Passes, s.S1.Attempts)
	s.S2.PassRate = passRate(s.S2.Passes, s.S2.Attempts)

	sort.Float64s(allLatencies)
	s.LatencyP50 = nearestRank(allLatencies, 0.50)
	s.LatencyP95 = nearestRank(allLatencies, 0.95)

	for caseID, acc := range accs {
		s.Cases[caseID] = acc.stats(caseID)
	}
	return s
}

// stats finalizes one case's aggregates.
func (a *caseAccumulator) stats(caseID string) *domain.CaseStats {
	sorted := make([]float64, len(a.latencies))
	copy(sorted, a.latencies)
	sort.Float64s(sorted)

	rate := passRate(a.passes, a.attempts)
	return &domain.CaseStats{
		CaseID:              caseID,
		Severity:            a.severity,
		Attempts:            a.attempts,
		Passes:              a.passes,
		PassRate:            rate,
		DominantFailureType: dominantFailureType(a.failures),
		FailureCounts:       a.failures,
		MedianLatencyMs:     nearestRank(sorted, 0.50),
		MedianCost:          median(a.costs),
		MedianTokens:        median(a.tokens),
		LatencyP95:          nearestRank(sorted, 0.95),
		LatencyCV:           coefficientOfVariation(a.latencies),
		Flaky:               a.attempts > 1 && rate > 0 && rate < 1,
	}
}

// SortedCaseStats returns the summary's per-case stats sorted by
// (severity desc, case_id asc) for deterministic rendering. S1 sorts
// before S2.
func SortedCaseStats(s *domain.RunSummary) []*domain.CaseStats {
	out := make([]*domain.CaseStats, 0, len(s.Cases))
	for _, cs := range s.Cases {
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity < out[j].Severity // S1 < S2 lexically
		}
		return out[i].CaseID < out[j].CaseID
	})
	return out
}
