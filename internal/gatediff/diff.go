// Package gatediff computes per-case regression categories and their
// deterministic explanations.
package gatediff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/piki9312/evalgate/internal/domain"
)

// floatEps absorbs float64 noise in pass-rate comparisons.
const floatEps = 1e-9

// Compute diffs every case appearing in either summary. The result is
// sorted (severity desc, case_id asc); explanations are byte-for-byte
// reproducible given the same inputs.
func Compute(current *domain.RunSummary, base *domain.BaselineSummary, rules domain.Ruleset) []domain.CaseDiff {
	ids := make(map[string]struct{}, len(current.Cases))
	for id := range current.Cases {
		ids[id] = struct{}{}
	}
	for id := range base.Summary.Cases {
		ids[id] = struct{}{}
	}

	out := make([]domain.CaseDiff, 0, len(ids))
	for id := range ids {
		out = append(out, diffCase(id, current.Cases[id], base.Summary.Cases[id], rules))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity < out[j].Severity // S1 before S2
		}
		return out[i].CaseID < out[j].CaseID
	})
	return out
}

// diffCase evaluates the status conditions in canonical order and joins
// the facts that fired.
func diffCase(id string, cur, base *domain.CaseStats, rules domain.Ruleset) domain.CaseDiff {
	d := domain.CaseDiff{CaseID: id}
	switch {
	case cur != nil:
		d.Severity = cur.Severity
	case base != nil:
		d.Severity = base.Severity
	}

	if base == nil {
		d.Statuses = []domain.DiffStatus{domain.DiffUnseen}
		d.Explanation = "unseen: no baseline data for case"
		return d
	}
	if cur == nil {
		// Present in baseline only: nothing regressed, nothing improved.
		d.Statuses = []domain.DiffStatus{domain.DiffStable}
		d.Explanation = "stable"
		return d
	}

	var facts []string
	add := func(s domain.DiffStatus, fact string) {
		d.Statuses = append(d.Statuses, s)
		facts = append(facts, fact)
	}

	curFailures := cur.Attempts - cur.Passes

	// regressed_new: baseline passed 100%, at least one failure now.
	if base.Attempts > 0 && base.Passes == base.Attempts && curFailures > 0 {
		add(domain.DiffRegressedNew, fmt.Sprintf(
			"regressed_new: baseline passed %d/%d, current passed %d/%d",
			base.Passes, base.Attempts, cur.Passes, cur.Attempts))
	}

	// regressed_type_change: dominant failure type differs, both non-null.
	if cur.DominantFailureType != nil && base.DominantFailureType != nil &&
		*cur.DominantFailureType != *base.DominantFailureType {
		add(domain.DiffRegressedTypeChange, fmt.Sprintf(
			"regressed_type_change: dominant failure type changed from %s to %s",
			*base.DominantFailureType, *cur.DominantFailureType))
	}

	// schema_diverged: schema-shaped failures appear where baseline had none.
	curSchema := cur.FailureCounts[domain.FailureSchemaMismatch] + cur.FailureCounts[domain.FailureBadJSON]
	baseSchema := base.FailureCounts[domain.FailureSchemaMismatch] + base.FailureCounts[domain.FailureBadJSON]
	if curSchema > 0 && baseSchema == 0 {
		add(domain.DiffSchemaDiverged, fmt.Sprintf(
			"schema_diverged: %d schema_mismatch/bad_json failure(s), baseline had none", curSchema))
	}

	// latency_spike: p95 ratio exceeds the ceiling, both sides positive.
	if cur.LatencyP95 > 0 && base.LatencyP95 > 0 {
		ratio := cur.LatencyP95 / base.LatencyP95
		if ratio > rules.LatencyP95MaxRatio {
			add(domain.DiffLatencySpike, fmt.Sprintf(
				"latency_spike: p95 %.0fms vs baseline %.0fms (ratio %.2f > %.2f)",
				cur.LatencyP95, base.LatencyP95, ratio, rules.LatencyP95MaxRatio))
		}
	}

	// token_inflation: median token ratio exceeds the ceiling.
	if cur.MedianTokens > 0 && base.MedianTokens > 0 {
		ratio := cur.MedianTokens / base.MedianTokens
		if ratio > rules.TokenDeltaMaxRatio {
			add(domain.DiffTokenInflation, fmt.Sprintf(
				"token_inflation: median tokens %.0f vs baseline %.0f (ratio %.2f > %.2f)",
				cur.MedianTokens, base.MedianTokens, ratio, rules.TokenDeltaMaxRatio))
		}
	}

	// improved: pass rate rose by at least one attempt's worth.
	if len(d.Statuses) == 0 && cur.Attempts > 0 &&
		cur.PassRate-base.PassRate >= 1.0/float64(cur.Attempts)-floatEps {
		add(domain.DiffImproved, fmt.Sprintf(
			"improved: pass rate %.3f vs baseline %.3f", cur.PassRate, base.PassRate))
	}

	if len(d.Statuses) == 0 {
		d.Statuses = []domain.DiffStatus{domain.DiffStable}
		d.Explanation = "stable"
		return d
	}
	d.Explanation = strings.Join(facts, "; ")
	return d
}
