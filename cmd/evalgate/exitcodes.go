package main

import "os"

// Exit codes for different failure modes.
// These enable CI scripts to distinguish between a failing gate and a
// broken invocation.
const (
	// ExitSuccess indicates success / gate pass
	ExitSuccess = 0

	// ExitFail indicates a gate fail or a run with at least one case failure
	ExitFail = 1

	// ExitUsage indicates invalid arguments or an unparseable input file
	ExitUsage = 2

	// ExitIO indicates an I/O failure while reading or writing
	ExitIO = 3
)

// exitWithCode exits with the specified exit code
func exitWithCode(code int) {
	os.Exit(code)
}
