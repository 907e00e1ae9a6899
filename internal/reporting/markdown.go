package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/piki9312/evalgate/internal/domain"
)

// RenderMarkdown renders the report as a Markdown string. Rendering is
// deterministic: tables sort by (severity desc, case_id asc) and the
// clock is injected by the caller, so identical inputs produce identical
// bytes. CI systems may post the output directly as a PR comment.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Regression Gate Report\n\n")
	if r.Verdict != nil {
		if r.Verdict.Pass {
			sb.WriteString("**Verdict: PASS ✅**\n\n")
		} else {
			sb.WriteString("**Verdict: FAIL ❌**\n\n")
		}
	}
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.UTC().Format(time.RFC3339)))

	// Conspicuous notices first (e.g. baseline comparison skipped).
	if r.Verdict != nil {
		for _, note := range r.Verdict.Notes {
			sb.WriteString(fmt.Sprintf("> ⚠️ **%s**\n\n", note))
		}
	}

	// Run summary
	if r.Current != nil {
		sb.WriteString("## Run Summary\n\n")
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		if r.RunID != "" {
			sb.WriteString(fmt.Sprintf("| Run | %s |\n", r.RunID))
		}
		sb.WriteString(fmt.Sprintf("| Attempts | %d |\n", r.Current.Overall.Attempts))
		sb.WriteString(fmt.Sprintf("| Pass Rate | %.3f (%d/%d) |\n",
			r.Current.Overall.PassRate, r.Current.Overall.Passes, r.Current.Overall.Attempts))
		sb.WriteString(fmt.Sprintf("| S1 Pass Rate | %s |\n", totalsCell(r.Current.S1)))
		sb.WriteString(fmt.Sprintf("| S2 Pass Rate | %s |\n", totalsCell(r.Current.S2)))
		sb.WriteString(fmt.Sprintf("| Latency p50 / p95 | %.0fms / %.0fms |\n",
			r.Current.LatencyP50, r.Current.LatencyP95))
		sb.WriteString(fmt.Sprintf("| Total Cost | %.4f |\n", r.Current.TotalCost))
		if r.Baseline != nil {
			sb.WriteString(fmt.Sprintf("| Baseline | %s |\n", windowCell(r.Baseline.Window)))
		}
		sb.WriteString("\n")
	}

	// Checks
	if r.Verdict != nil && len(r.Verdict.Checks) > 0 {
		sb.WriteString("## Checks\n\n")
		sb.WriteString("| Check | Status | Detail |\n")
		sb.WriteString("|-------|--------|--------|\n")
		for _, c := range r.Verdict.Checks {
			status := "✅"
			if !c.Passed {
				status = "❌"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", c.Name, status, c.Detail))
		}
		sb.WriteString("\n")
	}

	// Failure explanations: every diff status except stable/improved.
	var noteworthy []domain.CaseDiff
	for _, d := range r.Diffs {
		if d.Noteworthy() {
			noteworthy = append(noteworthy, d)
		}
	}
	if len(noteworthy) > 0 {
		sb.WriteString("## Failure Explanations\n\n")
		sb.WriteString("| Case | Severity | Status | Explanation |\n")
		sb.WriteString("|------|----------|--------|-------------|\n")
		for _, d := range noteworthy {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				d.CaseID, d.Severity, d.Status(), d.Explanation))
		}
		sb.WriteString("\n")
	}

	// Stability report, only when repetition data is present.
	if len(r.Stability) > 0 {
		sb.WriteString("## Stability Report\n\n")
		sb.WriteString("| Case | Severity | Attempts | Pass Rate | Latency CV | Flaky |\n")
		sb.WriteString("|------|----------|----------|-----------|------------|-------|\n")
		for _, row := range r.Stability {
			flaky := ""
			if row.Flaky {
				flaky = "🎲"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.3f | %.3f | %s |\n",
				row.CaseID, row.Severity, row.Attempts, row.PassRate, row.LatencyCV, flaky))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func totalsCell(t domain.Totals) string {
	if t.Attempts == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.3f (%d/%d)", t.PassRate, t.Passes, t.Attempts)
}

func windowCell(w domain.Window) string {
	if len(w.BaselineRunIDs) > 0 {
		return fmt.Sprintf("%d run(s): %s", len(w.BaselineRunIDs), strings.Join(w.BaselineRunIDs, ", "))
	}
	return fmt.Sprintf("trailing %d day(s) ending %s", w.Days, w.EndDate)
}
