package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/piki9312/evalgate/internal/baseline"
	"github.com/piki9312/evalgate/internal/cases"
	"github.com/piki9312/evalgate/internal/config"
	"github.com/piki9312/evalgate/internal/domain"
	"github.com/piki9312/evalgate/internal/gate"
	"github.com/piki9312/evalgate/internal/gatediff"
	"github.com/piki9312/evalgate/internal/reporting"
	"github.com/piki9312/evalgate/internal/stability"
	"github.com/piki9312/evalgate/internal/storage"
	"github.com/piki9312/evalgate/internal/storage/jsonl"
	"github.com/piki9312/evalgate/internal/summary"
)

var (
	checkLogDir           string
	checkBaselineDir      string
	checkBaselineDays     int
	checkConfigPath       string
	checkCasesFile        string
	checkLabels           string
	checkChangedFiles     string
	checkOutputFile       string
	checkS1Threshold      float64
	checkOverallThreshold float64
	checkRunID            string
	checkPostgresDSN      string
	checkClickhouseDSN    string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate gate thresholds and exit pass/fail",
	Long: `Aggregate the current run, resolve the effective ruleset, diff against
a baseline, and exit 0 (pass) or 1 (fail). The Markdown explanation is
written to --output-file or stdout.`,
	Args: cobra.NoArgs,
	Run:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkLogDir, "log-dir", "", "Record log directory (required)")
	checkCmd.Flags().StringVar(&checkBaselineDir, "baseline-dir", "", "Directory of baseline records")
	checkCmd.Flags().IntVar(&checkBaselineDays, "baseline-days", 0, "Trailing baseline window in days")
	checkCmd.Flags().StringVar(&checkConfigPath, "config", "", "Rule/threshold document")
	checkCmd.Flags().StringVar(&checkCasesFile, "cases-file", "", "Suite file, enables per-case floors")
	checkCmd.Flags().StringVar(&checkLabels, "labels", "", "Comma-separated PR labels")
	checkCmd.Flags().StringVar(&checkChangedFiles, "changed-files", "", "Comma-separated changed paths")
	checkCmd.Flags().StringVar(&checkOutputFile, "output-file", "", "Write the Markdown verdict here instead of stdout")
	checkCmd.Flags().Float64Var(&checkS1Threshold, "s1-threshold", -1, "Override the S1 pass-rate floor")
	checkCmd.Flags().Float64Var(&checkOverallThreshold, "overall-threshold", -1, "Override the overall pass-rate floor")
	checkCmd.Flags().StringVar(&checkRunID, "run-id", "", "Run to evaluate (defaults to the latest run)")
	checkCmd.Flags().StringVar(&checkPostgresDSN, "postgres-dsn", "", "Read trailing-window baselines from this Postgres archive")
	checkCmd.Flags().StringVar(&checkClickhouseDSN, "clickhouse-dsn", "", "Read trailing-window baselines from this ClickHouse archive")
	_ = checkCmd.MarkFlagRequired("log-dir")
}

func runCheck(cmd *cobra.Command, args []string) {
	ctx := globalCtx

	if checkBaselineDir != "" && checkBaselineDays > 0 {
		usageErr("--baseline-dir and --baseline-days are mutually exclusive")
	}
	if checkS1Threshold > 1 || checkOverallThreshold > 1 {
		usageErr("thresholds must be in [0,1]")
	}

	var suite []domain.Case
	if checkCasesFile != "" {
		var err error
		suite, err = cases.Load(checkCasesFile)
		if err != nil {
			usageErr("load cases: %v", err)
		}
	}

	rules := domain.DefaultRuleset()
	if checkConfigPath != "" {
		doc, err := config.Load(checkConfigPath)
		if err != nil {
			usageErr("%v", err)
		}
		rules, err = config.Resolve(doc, config.RunContext{
			Labels:       splitList(checkLabels),
			ChangedFiles: splitList(checkChangedFiles),
		})
		if err != nil {
			usageErr("resolve rules: %v", err)
		}
	}
	// CLI-provided thresholds are applied last and win.
	if checkS1Threshold >= 0 {
		rules.S1MinPassRate = checkS1Threshold
	}
	if checkOverallThreshold >= 0 {
		rules.OverallMinPassRate = checkOverallThreshold
	}

	store := jsonl.New(checkLogDir)

	runID := checkRunID
	if runID == "" {
		var err error
		runID, err = store.LatestRunID(ctx)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			ioErr("find latest run: %v", err)
		}
	}

	records, err := store.ReadRun(ctx, runID)
	if err != nil {
		ioErr("read run %s: %v", runID, err)
	}
	current := summary.Aggregate(runID, records)

	// Baseline: directory artifact, or trailing window over the log dir
	// or an archive.
	var base *domain.BaselineSummary
	resolver := baseline.New()
	switch {
	case checkBaselineDir != "":
		base, err = resolver.FromDirectory(ctx, checkBaselineDir)
	case checkBaselineDays > 0:
		baselineStore := storage.RecordStore(store)
		archives, cleanup, archErr := openArchives(ctx, checkPostgresDSN, checkClickhouseDSN)
		if archErr != nil {
			ioErr("%v", archErr)
		}
		defer cleanup()
		if len(archives) > 0 {
			baselineStore = archives[0]
		}
		base, err = resolver.FromTrailingWindow(ctx, baselineStore, checkBaselineDays, runID)
	}
	if err != nil && !errors.Is(err, baseline.ErrAbsent) {
		ioErr("resolve baseline: %v", err)
	}

	var diffs []domain.CaseDiff
	if base != nil {
		diffs = gatediff.Compute(current, base, rules)
	}

	verdict := gate.Evaluate(gate.Input{
		Current:  current,
		Baseline: base,
		Diffs:    diffs,
		Rules:    rules,
		Cases:    suite,
	})

	md := reporting.RenderMarkdown(&reporting.Report{
		GeneratedAt: time.Now().UTC(),
		RunID:       runID,
		Verdict:     verdict,
		Current:     current,
		Baseline:    base,
		Diffs:       diffs,
		Stability:   stability.Analyze(current),
	})
	if err := writeOutput(checkOutputFile, md); err != nil {
		ioErr("write output: %v", err)
	}

	if verdict.Pass {
		exitWithCode(ExitSuccess)
	}
	exitWithCode(ExitFail)
}
