package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/piki9312/evalgate/internal/domain"
	"github.com/piki9312/evalgate/internal/gate"
	"github.com/piki9312/evalgate/internal/gatediff"
	"github.com/piki9312/evalgate/internal/reporting"
	"github.com/piki9312/evalgate/internal/stability"
	"github.com/piki9312/evalgate/internal/storage/jsonl"
	"github.com/piki9312/evalgate/internal/summary"
)

var (
	reportLogDir       string
	reportDays         int
	reportBaselineDays int
	reportOutput       string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a Markdown report over a record window",
	Long: `Aggregate the records of the last --days days, compare them against
the --baseline-days window immediately before, and render the result as
Markdown (or per-case CSV when -o ends in .csv). The report is
informational; it never fails the build.`,
	Args: cobra.NoArgs,
	Run:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportLogDir, "log-dir", "", "Record log directory (required)")
	reportCmd.Flags().IntVar(&reportDays, "days", 1, "Current window size in days")
	reportCmd.Flags().IntVar(&reportBaselineDays, "baseline-days", 7, "Baseline window size in days")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Output path (stdout when empty)")
	_ = reportCmd.MarkFlagRequired("log-dir")
}

func runReport(cmd *cobra.Command, args []string) {
	ctx := globalCtx

	if reportDays < 1 || reportBaselineDays < 1 {
		usageErr("--days and --baseline-days must be at least 1")
	}

	store := jsonl.New(reportLogDir)
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	// Current window covers the last --days days including today; the
	// baseline window is the --baseline-days days immediately before it.
	curEnd := dayStart.AddDate(0, 0, 1)
	curStart := curEnd.AddDate(0, 0, -reportDays)
	baseEnd := curStart
	baseStart := baseEnd.AddDate(0, 0, -reportBaselineDays)

	curRecords, err := store.ReadWindow(ctx, curStart, curEnd)
	if err != nil {
		ioErr("read current window: %v", err)
	}
	baseRecords, err := store.ReadWindow(ctx, baseStart, baseEnd)
	if err != nil {
		ioErr("read baseline window: %v", err)
	}

	current := summary.Aggregate("", curRecords)

	var base *domain.BaselineSummary
	if len(baseRecords) > 0 {
		base = &domain.BaselineSummary{
			Summary: *summary.Aggregate("", baseRecords),
			Window: domain.Window{
				Days:    reportBaselineDays,
				EndDate: baseEnd.AddDate(0, 0, -1).Format("2006-01-02"),
			},
		}
	}

	rules := domain.DefaultRuleset()
	var diffs []domain.CaseDiff
	if base != nil {
		diffs = gatediff.Compute(current, base, rules)
	}

	verdict := gate.Evaluate(gate.Input{
		Current:  current,
		Baseline: base,
		Diffs:    diffs,
		Rules:    rules,
	})

	var out string
	if strings.HasSuffix(reportOutput, ".csv") {
		out = reporting.RenderCasesCSV(current)
	} else {
		out = reporting.RenderMarkdown(&reporting.Report{
			GeneratedAt: now,
			Verdict:     verdict,
			Current:     current,
			Baseline:    base,
			Diffs:       diffs,
			Stability:   stability.Analyze(current),
		})
	}
	if err := writeOutput(reportOutput, out); err != nil {
		ioErr("write output: %v", err)
	}

	exitWithCode(ExitSuccess)
}
