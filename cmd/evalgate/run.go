package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/piki9312/evalgate/internal/agent"
	"github.com/piki9312/evalgate/internal/cases"
	"github.com/piki9312/evalgate/internal/observability"
	"github.com/piki9312/evalgate/internal/runid"
	"github.com/piki9312/evalgate/internal/runner"
	"github.com/piki9312/evalgate/internal/storage/jsonl"
)

var (
	runLogDir        string
	runRunID         string
	runRepeat        int
	runConcurrency   int
	runTimeoutSecs   float64
	runAgent         string
	runGatewayURL    string
	runModel         string
	runPostgresDSN   string
	runClickhouseDSN string
	runMetricsAddr   string
)

var runCmd = &cobra.Command{
	Use:   "run <cases-file>",
	Short: "Execute the case suite and append records",
	Long: `Run every case in the suite against the configured agent, optionally
repeating each case for flakiness detection, and append one record per
execution to the log directory.

Exit code 0 means every item passed outright; 1 means at least one case
failed. Threshold policy is applied by 'check', not here.`,
	Args: cobra.ExactArgs(1),
	Run:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runLogDir, "log-dir", "", "Record log directory (required)")
	runCmd.Flags().StringVar(&runRunID, "run-id", "", "Run identifier (generated when empty)")
	runCmd.Flags().IntVar(&runRepeat, "repeat", 1, "Attempts per case")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 4, "Worker pool size")
	runCmd.Flags().Float64Var(&runTimeoutSecs, "timeout", 60, "Per-item deadline in seconds")
	runCmd.Flags().StringVar(&runAgent, "agent", "gateway", "Agent invoker: gateway | anthropic")
	runCmd.Flags().StringVar(&runGatewayURL, "gateway-url", "http://127.0.0.1:8080/v1/invoke", "LLM gateway endpoint for the gateway invoker")
	runCmd.Flags().StringVar(&runModel, "model", "", "Model for the anthropic invoker")
	runCmd.Flags().StringVar(&runPostgresDSN, "postgres-dsn", "", "Optional Postgres archive DSN")
	runCmd.Flags().StringVar(&runClickhouseDSN, "clickhouse-dsn", "", "Optional ClickHouse archive DSN")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus /metrics on this address during the run")
	_ = runCmd.MarkFlagRequired("log-dir")
}

func runRun(cmd *cobra.Command, args []string) {
	ctx := globalCtx

	suite, err := cases.Load(args[0])
	if err != nil {
		usageErr("load cases: %v", err)
	}
	if runRepeat < 1 || runConcurrency < 1 {
		usageErr("--repeat and --concurrency must be at least 1")
	}

	var invoker agent.Invoker
	switch runAgent {
	case "gateway":
		invoker = agent.NewGatewayInvoker(runGatewayURL)
	case "anthropic":
		invoker, err = agent.NewAnthropicInvoker(runModel)
		if err != nil {
			usageErr("anthropic invoker: %v", err)
		}
	default:
		usageErr("unknown agent %q (want gateway or anthropic)", runAgent)
	}

	mirrors, cleanup, err := openArchives(ctx, runPostgresDSN, runClickhouseDSN)
	if err != nil {
		ioErr("%v", err)
	}
	defer cleanup()

	if runMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		go func() {
			if err := http.ListenAndServe(runMetricsAddr, mux); err != nil {
				fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
			}
		}()
	}

	runID := runRunID
	if runID == "" {
		runID = runid.New(time.Now())
	}

	r := runner.New(runner.Options{
		RunID:       runID,
		Repeat:      runRepeat,
		Concurrency: runConcurrency,
		Timeout:     time.Duration(runTimeoutSecs * float64(time.Second)),
		Store:       jsonl.New(runLogDir),
		Mirrors:     mirrors,
		Invoker:     invoker,
		Verbose:     verboseFlag,
	})

	result, err := r.Run(ctx, suite)
	if err != nil {
		// Suite-level problems (e.g. an uncompilable expected schema)
		// are authoring errors.
		usageErr("run: %v", err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		fmt.Fprintln(os.Stderr, "run cancelled")
	}

	if result.Passes == result.Attempts {
		exitWithCode(ExitSuccess)
	}
	exitWithCode(ExitFail)
}
