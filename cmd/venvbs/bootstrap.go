// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os/exec"

	"github.com/pombredanne/venvbs/internal/bootstrap"
	"github.com/pombredanne/venvbs/internal/config"
	"github.com/pombredanne/venvbs/internal/issue"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// defaultInterpreters are tried in order when no interpreter is configured.
var defaultInterpreters = []string{"python3", "python"}

// runBootstrap is the root command's RunE: load config, resolve the
// interpreter, then run the bootstrap with a reporter on stderr.
func (a *app) runBootstrap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := a.provider.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.cfgFile})
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}
	a.applyFlags(cmd, cfg)

	interpreter, err := resolveInterpreter(cfg.Interpreter)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	level := a.logLevel(cfg)
	rep := bootstrap.NewWriterReporter(cmd.ErrOrStderr(), level, a.flags.verbose || level == log.DebugLevel).
		With("run", uuid.NewString())
	rep.Progress("using interpreter", "python", interpreter)

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "venvbs/" + Version
	}
	client := bootstrap.NewClient(
		bootstrap.WithTimeout(cfg.Timeout),
		bootstrap.WithIndexURL(cfg.IndexURL),
		bootstrap.WithUserAgent(userAgent),
		bootstrap.WithVersion(cfg.ProjectVersion),
		bootstrap.WithMaxArchiveBytes(cfg.MaxArchiveBytes),
		bootstrap.WithClientReporter(rep),
	)

	opts := []bootstrap.Option{
		bootstrap.WithLocator(client),
		bootstrap.WithFetcher(client),
		bootstrap.WithInvoker(bootstrap.NewProcessInvoker(
			bootstrap.WithStdio(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()),
		)),
		bootstrap.WithReporter(rep),
		bootstrap.WithPackage(cfg.Project),
		bootstrap.WithEntryPoint(cfg.ProjectPrefix, cfg.EntryScript),
		bootstrap.WithWorkDir(cfg.WorkDir),
	}
	if cfg.Verify {
		opts = append(opts, bootstrap.WithVerify(cfg.PythonName))
	}

	req := bootstrap.Request{Interpreter: interpreter, Args: args}
	if err := bootstrap.New(opts...).Run(ctx, req); err != nil {
		return &ExitError{Code: ExitBootstrapFailed, Err: err, reported: true}
	}
	return nil
}

// applyFlags overrides config values with the flags set on the command line.
func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("python") {
		cfg.Interpreter = a.flags.python
	}
	if f.Changed("index-url") {
		cfg.IndexURL = a.flags.indexURL
	}
	if f.Changed("project") {
		cfg.Project = a.flags.project
	}
	if f.Changed("project-version") {
		cfg.ProjectVersion = a.flags.packageVersion
	}
	if f.Changed("timeout") && a.flags.timeout > 0 {
		cfg.Timeout = a.flags.timeout
	}
	if f.Changed("work-dir") {
		cfg.WorkDir = a.flags.workDir
	}
	if f.Changed("verify") {
		cfg.Verify = a.flags.verify
	}
}

func (a *app) logLevel(cfg *config.Config) log.Level {
	switch {
	case a.flags.verbose:
		return log.DebugLevel
	case a.flags.quiet:
		return log.WarnLevel
	}
	level, err := log.ParseLevel(cfg.LogLevel.String())
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// resolveInterpreter finds the Python interpreter on PATH. A configured name
// must resolve; otherwise the first of defaultInterpreters found is used.
func resolveInterpreter(name string) (string, error) {
	if name != "" {
		p, err := exec.LookPath(name)
		if err != nil {
			return "", issue.NewErrorContext().
				WithOperation("find python interpreter").
				WithResource(name).
				WithSuggestion("Pass the full path with --python").
				Wrap(err).
				BuildError()
		}
		return p, nil
	}

	for _, candidate := range defaultInterpreters {
		if p, err := exec.LookPath(candidate); err == nil {
			return p, nil
		}
	}
	return "", issue.NewErrorContext().
		WithOperation("find python interpreter").
		WithSuggestion("Install Python 3 or put it on PATH").
		WithSuggestion("Pass the interpreter explicitly with --python").
		BuildError()
}
