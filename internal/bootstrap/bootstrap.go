// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"context"
	"strings"
)

const (
	// DefaultPackage is the index project holding the environment builder.
	DefaultPackage = "virtualenv"
	// DefaultProjectPrefix matches the versioned top-level directory of the
	// unpacked sdist, e.g. "virtualenv-16.7.9".
	DefaultProjectPrefix = "virtualenv-"
	// DefaultEntryScript is the single-file entry point shipped in the sdist.
	DefaultEntryScript = "virtualenv.py"
	// DefaultPythonName is the interpreter name checked in a created
	// environment's bin directory.
	DefaultPythonName = "python"
)

type (
	// Locator resolves the archive URL of a package.
	Locator interface {
		Resolve(ctx context.Context, pkg string) (string, error)
	}

	// Fetcher downloads an archive and extracts it into dir.
	Fetcher interface {
		Fetch(ctx context.Context, dir, archiveURL string) error
	}

	// Invoker runs interpreter on script with args.
	Invoker interface {
		Run(ctx context.Context, interpreter, script string, args []string) error
	}

	// Request is one caller-supplied bootstrap: the interpreter to run the
	// environment builder with and the arguments forwarded to it verbatim.
	Request struct {
		Interpreter string
		Args        []string
	}

	// Bootstrapper sequences locate, fetch, find and invoke inside a scratch
	// directory that exists only for the duration of Run.
	Bootstrapper struct {
		locator  Locator
		fetcher  Fetcher
		invoker  Invoker
		reporter Reporter

		pkg        string
		prefix     string
		entry      string
		workDir    string // Parent of the scratch directory ("" = os.TempDir)
		verify     bool
		pythonName string
	}

	// Option configures a Bootstrapper.
	Option func(*Bootstrapper)
)

// WithLocator sets the component resolving the archive URL.
func WithLocator(l Locator) Option {
	return func(b *Bootstrapper) { b.locator = l }
}

// WithFetcher sets the component downloading and extracting the archive.
func WithFetcher(f Fetcher) Option {
	return func(b *Bootstrapper) { b.fetcher = f }
}

// WithInvoker sets the component running the entry script.
func WithInvoker(i Invoker) Option {
	return func(b *Bootstrapper) { b.invoker = i }
}

// WithReporter sets the observer for progress and failure notes.
func WithReporter(r Reporter) Option {
	return func(b *Bootstrapper) { b.reporter = r }
}

// WithPackage overrides the index project to fetch.
func WithPackage(pkg string) Option {
	return func(b *Bootstrapper) { b.pkg = pkg }
}

// WithEntryPoint overrides the directory prefix and script name searched for
// in the unpacked archive.
func WithEntryPoint(prefix, script string) Option {
	return func(b *Bootstrapper) {
		b.prefix = prefix
		b.entry = script
	}
}

// WithWorkDir sets the parent directory of the scratch directory.
func WithWorkDir(dir string) Option {
	return func(b *Bootstrapper) { b.workDir = dir }
}

// WithVerify enables checking that the created environment, taken from the last
// forwarded argument, contains an executable bin/<pythonName>.
func WithVerify(pythonName string) Option {
	return func(b *Bootstrapper) {
		b.verify = true
		if pythonName != "" {
			b.pythonName = pythonName
		}
	}
}

// New creates a Bootstrapper. Collaborators not supplied through options
// default to a pypi.org Client and a ProcessInvoker inheriting stdio.
func New(opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		reporter:   nopReporter{},
		pkg:        DefaultPackage,
		prefix:     DefaultProjectPrefix,
		entry:      DefaultEntryScript,
		pythonName: DefaultPythonName,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.locator == nil || b.fetcher == nil {
		c := NewClient(WithClientReporter(b.reporter))
		if b.locator == nil {
			b.locator = c
		}
		if b.fetcher == nil {
			b.fetcher = c
		}
	}
	if b.invoker == nil {
		b.invoker = NewProcessInvoker()
	}
	return b
}

// Run performs one bootstrap. The scratch directory is removed before Run
// returns on every path. A failing stage ends the run: its error is passed to
// the reporter once and returned unchanged.
func (b *Bootstrapper) Run(ctx context.Context, req Request) error {
	err := WithScratchDir(b.workDir, func(dir string) error {
		return b.run(ctx, dir, req)
	}, func(dir string, rmErr error) {
		b.reporter.Warn("failed to remove scratch directory", "dir", dir, "error", rmErr)
	})
	if err != nil {
		b.reporter.Failure(err)
	}
	return err
}

func (b *Bootstrapper) run(ctx context.Context, scratch string, req Request) error {
	archiveURL, err := b.locator.Resolve(ctx, b.pkg)
	if err != nil {
		return err
	}

	if err := b.fetcher.Fetch(ctx, scratch, archiveURL); err != nil {
		return err
	}

	script, err := FindEntryScript(scratch, b.prefix, b.entry)
	if err != nil {
		return err
	}
	b.reporter.Progress("entry point found", "path", script)

	b.reporter.Progress("creating environment", "target", target(req.Args))
	if err := b.invoker.Run(ctx, req.Interpreter, script, req.Args); err != nil {
		return err
	}
	b.reporter.Progress("environment created")

	if b.verify {
		return b.verifyEnvironment(req.Args)
	}
	return nil
}

// verifyEnvironment checks the created environment for an executable
// interpreter. Without a positional target there is nothing to check.
func (b *Bootstrapper) verifyEnvironment(args []string) error {
	dest := target(args)
	if dest == "" {
		b.reporter.Progress("skipping verification, no target directory")
		return nil
	}

	p, err := FindExecutable(dest, b.pythonName)
	if err != nil {
		return err
	}
	b.reporter.Progress("environment verified", "python", p)
	return nil
}

// target is the environment directory: by convention the last forwarded
// argument, unless it is an option.
func target(args []string) string {
	if len(args) == 0 {
		return ""
	}
	last := args[len(args)-1]
	if strings.HasPrefix(last, "-") {
		return ""
	}
	return last
}
