package reporting

import (
	"time"

	"github.com/piki9312/evalgate/internal/domain"
	"github.com/piki9312/evalgate/internal/gate"
	"github.com/piki9312/evalgate/internal/stability"
)

// Report bundles everything the renderers need. It is assembled by the
// check and report commands and never persisted.
type Report struct {
	GeneratedAt time.Time
	RunID       string
	Verdict     *gate.Verdict
	Current     *domain.RunSummary
	Baseline    *domain.BaselineSummary // nil when absent
	Diffs       []domain.CaseDiff
	Stability   []stability.CaseStability
}
