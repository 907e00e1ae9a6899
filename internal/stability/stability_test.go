package stability

import (
	"math"
	"testing"

	"github.com/piki9312/evalgate/internal/domain"
)

func summaryWith(cases ...*domain.CaseStats) *domain.RunSummary {
	s := &domain.RunSummary{Cases: make(map[string]*domain.CaseStats)}
	for _, cs := range cases {
		s.Cases[cs.CaseID] = cs
	}
	return s
}

func TestAnalyze_FlakyCase(t *testing.T) {
	s := summaryWith(&domain.CaseStats{
		CaseID:   "TC007",
		Severity: domain.SeverityS1,
		Attempts: 3,
		Passes:   2,
		PassRate: 2.0 / 3.0,
		Flaky:    true,
	})

	rows := Analyze(s)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if !row.Flaky {
		t.Error("expected flaky flag")
	}
	if math.Abs(row.PassRate-0.667) > 0.001 {
		t.Errorf("expected pass rate ~0.667, got %v", row.PassRate)
	}
}

func TestAnalyze_SingleShotExcluded(t *testing.T) {
	s := summaryWith(&domain.CaseStats{
		CaseID: "TC001", Severity: domain.SeverityS1, Attempts: 1, Passes: 0, PassRate: 0,
	})

	if rows := Analyze(s); len(rows) != 0 {
		t.Errorf("single-shot cases must not produce stability rows, got %+v", rows)
	}
}

func TestAnalyze_AllPassRepeatsNotFlaky(t *testing.T) {
	s := summaryWith(&domain.CaseStats{
		CaseID: "TC001", Severity: domain.SeverityS2, Attempts: 5, Passes: 5, PassRate: 1,
	})

	rows := Analyze(s)
	if len(rows) != 1 || rows[0].Flaky {
		t.Errorf("deterministic repeats must appear non-flaky: %+v", rows)
	}
}

func TestAnalyze_Sorted(t *testing.T) {
	s := summaryWith(
		&domain.CaseStats{CaseID: "TC900", Severity: domain.SeverityS2, Attempts: 2, Passes: 2, PassRate: 1},
		&domain.CaseStats{CaseID: "TC100", Severity: domain.SeverityS1, Attempts: 2, Passes: 2, PassRate: 1},
		&domain.CaseStats{CaseID: "TC500", Severity: domain.SeverityS1, Attempts: 2, Passes: 1, PassRate: 0.5, Flaky: true},
	)

	rows := Analyze(s)
	want := []string{"TC100", "TC500", "TC900"}
	for i, id := range want {
		if rows[i].CaseID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, rows[i].CaseID)
		}
	}
}
