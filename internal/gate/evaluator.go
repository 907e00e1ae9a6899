// Package gate applies the resolved ruleset and per-case floors to a
// run/baseline pair and produces the verdict.
package gate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/piki9312/evalgate/internal/domain"
)

// Check is one pass/fail line in the verdict table.
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// Verdict is the gate outcome. Pass maps to process exit code 0, fail
// to 1. Evaluation is a pure function of its inputs.
type Verdict struct {
	Pass   bool
	Checks []Check
	Notes  []string // operator-facing notices, e.g. baseline skipped
}

// Input bundles everything an evaluation reads.
type Input struct {
	Current  *domain.RunSummary
	Baseline *domain.BaselineSummary // nil when absent
	Diffs    []domain.CaseDiff       // empty when baseline absent
	Rules    domain.Ruleset
	Cases    []domain.Case // suite, for per-case floors; may be nil
}

// Evaluate runs every enabled check. An empty current run fails
// unconditionally with the no-records reason.
func Evaluate(in Input) *Verdict {
	v := &Verdict{}

	if in.Current == nil || in.Current.Overall.Attempts == 0 {
		runID := ""
		if in.Current != nil {
			runID = in.Current.RunID
		}
		v.Checks = append(v.Checks, Check{
			Name:   "current run",
			Passed: false,
			Detail: fmt.Sprintf("no records for run_id %q", runID),
		})
		return v
	}

	v.Checks = append(v.Checks, s1Floor(in))
	v.Checks = append(v.Checks, overallFloor(in))
	v.Checks = append(v.Checks, perCaseFloors(in)...)

	if in.Baseline == nil {
		v.Notes = append(v.Notes,
			"Baseline comparison skipped: no baseline records were found. "+
				"Only baseline-independent checks were evaluated.")
	} else {
		if in.Rules.FailOnNewRegression {
			v.Checks = append(v.Checks, newRegressionVeto(in))
		}
		v.Checks = append(v.Checks, diffCeiling(in, "latency p95 ceiling", domain.DiffLatencySpike))
		v.Checks = append(v.Checks, diffCeiling(in, "token ceiling", domain.DiffTokenInflation))
		v.Checks = append(v.Checks, worstCaseDelta(in))
	}

	v.Pass = true
	for _, c := range v.Checks {
		if !c.Passed {
			v.Pass = false
			break
		}
	}
	return v
}

// s1Floor checks the S1 aggregate pass rate. A suite with no S1 attempts
// passes vacuously.
func s1Floor(in Input) Check {
	if in.Current.S1.Attempts == 0 {
		return Check{Name: "S1 floor", Passed: true, Detail: "no S1 attempts"}
	}
	ok := in.Current.S1.PassRate >= in.Rules.S1MinPassRate
	return Check{
		Name:   "S1 floor",
		Passed: ok,
		Detail: fmt.Sprintf("pass rate %.3f, floor %.3f", in.Current.S1.PassRate, in.Rules.S1MinPassRate),
	}
}

func overallFloor(in Input) Check {
	ok := in.Current.Overall.PassRate >= in.Rules.OverallMinPassRate
	return Check{
		Name:   "overall floor",
		Passed: ok,
		Detail: fmt.Sprintf("pass rate %.3f, floor %.3f", in.Current.Overall.PassRate, in.Rules.OverallMinPassRate),
	}
}

// perCaseFloors emits one check per declared floor. A suite case that
// produced no records fails its floor: a silently-skipped case must not
// slip through the gate.
func perCaseFloors(in Input) []Check {
	var out []Check
	ordered := make([]domain.Case, len(in.Cases))
	copy(ordered, in.Cases)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Severity != ordered[j].Severity {
			return ordered[i].Severity < ordered[j].Severity
		}
		return ordered[i].CaseID < ordered[j].CaseID
	})

	for _, c := range ordered {
		if c.MinPassRate <= 0 {
			continue
		}
		name := fmt.Sprintf("case %s floor", c.CaseID)
		stats, ok := in.Current.Cases[c.CaseID]
		if !ok {
			out = append(out, Check{Name: name, Passed: false, Detail: "no attempts recorded"})
			continue
		}
		out = append(out, Check{
			Name:   name,
			Passed: stats.PassRate >= c.MinPassRate,
			Detail: fmt.Sprintf("pass rate %.3f, floor %.3f", stats.PassRate, c.MinPassRate),
		})
	}
	return out
}

func newRegressionVeto(in Input) Check {
	var regressed []string
	for _, d := range in.Diffs {
		if d.Has(domain.DiffRegressedNew) {
			regressed = append(regressed, d.CaseID)
		}
	}
	if len(regressed) == 0 {
		return Check{Name: "new regressions", Passed: true, Detail: "none"}
	}
	return Check{
		Name:   "new regressions",
		Passed: false,
		Detail: strings.Join(regressed, ", "),
	}
}

func diffCeiling(in Input, name string, status domain.DiffStatus) Check {
	var offenders []string
	for _, d := range in.Diffs {
		if d.Has(status) {
			offenders = append(offenders, d.CaseID)
		}
	}
	if len(offenders) == 0 {
		return Check{Name: name, Passed: true, Detail: "none"}
	}
	return Check{Name: name, Passed: false, Detail: strings.Join(offenders, ", ")}
}

func worstCaseDelta(in Input) Check {
	worstID, worst := worstDrop(in)
	if worstID == "" {
		return Check{Name: "worst-case delta", Passed: true, Detail: "no per-case drop"}
	}
	ok := worst <= in.Rules.MaxWorstCaseDelta
	return Check{
		Name:   "worst-case delta",
		Passed: ok,
		Detail: fmt.Sprintf("case %s dropped %.3f, ceiling %.3f", worstID, worst, in.Rules.MaxWorstCaseDelta),
	}
}

// worstDrop finds the largest per-case pass-rate drop over cases present
// in both summaries. Ties resolve to the alphabetically-first case_id.
func worstDrop(in Input) (string, float64) {
	ids := make([]string, 0, len(in.Current.Cases))
	for id := range in.Current.Cases {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	worstID := ""
	worst := 0.0
	for _, id := range ids {
		bs, ok := in.Baseline.Summary.Cases[id]
		if !ok {
			continue
		}
		drop := bs.PassRate - in.Current.Cases[id].PassRate
		if drop > worst+1e-9 {
			worst = drop
			worstID = id
		}
	}
	return worstID, worst
}
