package reporting

import (
	"fmt"
	"strings"

	"github.com/piki9312/evalgate/internal/domain"
	"github.com/piki9312/evalgate/internal/summary"
)

// csvQuote wraps a string in double quotes and escapes internal quotes.
func csvQuote(s string) string {
	escaped := strings.ReplaceAll(s, `"`, `""`)
	return `"` + escaped + `"`
}

// RenderCasesCSV renders the per-case aggregates as CSV. Row order is the
// same (severity desc, case_id asc) sort the Markdown tables use.
func RenderCasesCSV(s *domain.RunSummary) string {
	var sb strings.Builder

	sb.WriteString("case_id,severity,attempts,passes,pass_rate,dominant_failure_type,")
	sb.WriteString("median_latency_ms,median_cost,median_tokens,latency_p95_ms,latency_cv,flaky\n")

	for _, cs := range summary.SortedCaseStats(s) {
		dominant := ""
		if cs.DominantFailureType != nil {
			dominant = string(*cs.DominantFailureType)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%.6f,%s,%.6f,%.6f,%.6f,%.6f,%.6f,%t\n",
			csvQuote(cs.CaseID),
			csvQuote(string(cs.Severity)),
			cs.Attempts,
			cs.Passes,
			cs.PassRate,
			csvQuote(dominant),
			cs.MedianLatencyMs,
			cs.MedianCost,
			cs.MedianTokens,
			cs.LatencyP95,
			cs.LatencyCV,
			cs.Flaky,
		))
	}

	return sb.String()
}
