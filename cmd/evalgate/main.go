// Command evalgate is a CI-native regression gate for agent pipelines:
// it runs a fixed case suite against a configured agent, persists
// append-only records, diffs the run against a baseline, and exits
// pass/fail for the CI job.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var verboseFlag bool

// globalCtx is the application-level context, cancelled on
// SIGINT/SIGTERM. The runner honors it cooperatively between work items.
var globalCtx context.Context
var globalCancel context.CancelFunc

var rootCmd = &cobra.Command{
	Use:   "evalgate",
	Short: "Regression gate for agent pipelines",
	Long: `evalgate executes a suite of agent cases, records every outcome to an
append-only log, and gates CI on regressions against a baseline.

Verbs:
  run     execute the suite and append records
  check   evaluate gate thresholds against a baseline, exit 0/1
  report  render a Markdown report over a record window`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(reportCmd)
}

func main() {
	globalCtx, globalCancel = context.WithCancel(context.Background())
	defer globalCancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received signal %v, shutting down...\n", sig)
		globalCancel()
	}()

	if err := rootCmd.Execute(); err != nil {
		// Cobra surfaces flag and unknown-command problems here.
		fmt.Fprintln(os.Stderr, err)
		exitWithCode(ExitUsage)
	}
}

// usageErr prints a usage/parse error and exits 2.
func usageErr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	exitWithCode(ExitUsage)
}

// ioErr prints an I/O error and exits 3.
func ioErr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	exitWithCode(ExitIO)
}
