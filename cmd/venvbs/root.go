// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/pombredanne/venvbs/internal/config"
	"github.com/pombredanne/venvbs/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// rootFlags holds the values bound to the root command's flags.
	rootFlags struct {
		python         string
		indexURL       string
		project        string
		projectVersion string
		workDir        string
		cfgFile        string
		timeout        time.Duration
		verify         bool
		verbose        bool
		quiet          bool
	}

	// app holds the state of one command invocation: the parsed flags and the
	// config source they override. Streams come from the cobra command.
	app struct {
		flags    rootFlags
		provider config.Provider
	}
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

func newApp() *app {
	return &app{provider: config.NewProvider()}
}

// rootCommand builds the venvbs command. Everything after the first
// positional argument, or after "--", is forwarded to the builder untouched.
func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "venvbs [flags] [--] [virtualenv args...]",
		Short: "Create a Python virtual environment without installing virtualenv",
		Long: TitleStyle.Render("venvbs") + SubtitleStyle.Render(" - bootstrap a virtual environment from the package index") + `

venvbs downloads the virtualenv source distribution into a scratch
directory, runs its virtualenv.py with a Python interpreter and removes
the scratch directory again. All arguments are passed to virtualenv.

` + SubtitleStyle.Render("Examples:") + `
  ` + CmdStyle.Render("venvbs myenv") + `                          Create ./myenv
  ` + CmdStyle.Render("venvbs --python python3.12 myenv") + `      Use a specific interpreter
  ` + CmdStyle.Render("venvbs -- --help") + `                      Show virtualenv's own help`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runBootstrap,
	}

	// Flags after the first positional argument belong to virtualenv.
	root.Flags().SetInterspersed(false)

	f := root.Flags()
	f.StringVar(&a.flags.python, "python", "", "python interpreter running virtualenv (default: python3 or python on PATH)")
	f.StringVar(&a.flags.indexURL, "index-url", "", "package index base URL (default: https://pypi.org)")
	f.StringVar(&a.flags.project, "project", "", "index project holding the entry script (default: virtualenv)")
	f.StringVar(&a.flags.projectVersion, "project-version", "", "release to download instead of the latest")
	f.DurationVar(&a.flags.timeout, "timeout", 0, "timeout for each HTTP request (default: 60s)")
	f.StringVar(&a.flags.workDir, "work-dir", "", "parent of the scratch directory (default: current directory)")
	f.BoolVar(&a.flags.verify, "verify", false, "check that the created environment contains bin/python")
	f.BoolVarP(&a.flags.verbose, "verbose", "v", false, "enable debug output and error details")
	f.BoolVarP(&a.flags.quiet, "quiet", "q", false, "only report failures")
	f.StringVar(&a.flags.cfgFile, "config", "", "config file (default is $HOME/.config/venvbs/config.cue)")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	return root
}

// execute runs the root command with the given arguments and streams and
// returns the process exit code.
func (a *app) execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	// fang.WithVersion is required since fang overrides root.Version
	err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(a.handleError),
	)
	return exitCode(err)
}

// handleError prints command errors. Bootstrap failures are skipped since
// the reporter has already logged them.
func (a *app) handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.reported {
		return
	}

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		_, _ = fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+ae.Format(a.flags.verbose))
		return
	}

	fang.DefaultErrorHandler(w, styles, err)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	// Anything cobra rejects before RunE is a usage error.
	return ExitUsage
}

// Main runs venvbs with the process arguments and returns its exit code.
func Main() int {
	return newApp().execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// Execute runs venvbs and exits the process. It is called by main.main().
func Execute() {
	os.Exit(Main())
}
