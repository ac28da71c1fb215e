// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

type (
	// ProcessInvoker runs the environment builder as a child process.
	ProcessInvoker struct {
		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
	}

	// InvokerOption configures a ProcessInvoker.
	InvokerOption func(*ProcessInvoker)
)

// WithStdio replaces the inherited standard streams, mainly for tests.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) InvokerOption {
	return func(p *ProcessInvoker) {
		p.stdin = stdin
		p.stdout = stdout
		p.stderr = stderr
	}
}

// NewProcessInvoker creates an invoker that inherits the caller's stdio.
func NewProcessInvoker(opts ...InvokerOption) *ProcessInvoker {
	p := &ProcessInvoker{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes `interpreter script args...` and waits for it. Any non-zero exit
// status, or a failure to start the process at all, is an invocation error; the
// child's own reasons are not inspected.
func (p *ProcessInvoker) Run(ctx context.Context, interpreter, script string, args []string) error {
	argv := make([]string, 0, len(args)+1)
	argv = append(argv, script)
	argv = append(argv, args...)

	cmd := exec.CommandContext(ctx, interpreter, argv...)
	cmd.Stdin = p.stdin
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr

	if err := cmd.Run(); err != nil {
		return Invocationf("could not create environment").WithCause(err)
	}
	return nil
}

// ExitStatus extracts the child's exit status from an invocation error, or -1
// when the process never ran or err carries no status.
func ExitStatus(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
