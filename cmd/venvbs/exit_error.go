// SPDX-License-Identifier: MPL-2.0

package cmd

import "fmt"

// Exit codes returned by Main.
const (
	// ExitBootstrapFailed reports a failed resolve, fetch, lookup or builder run.
	ExitBootstrapFailed = 1
	// ExitUsage reports invalid flags, configuration, or a missing interpreter.
	ExitUsage = 2
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error

	// reported is set when the failure was already logged by the reporter
	// and must not be printed again.
	reported bool
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
