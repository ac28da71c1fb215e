// SPDX-License-Identifier: MPL-2.0

// Package bootstrap creates a Python virtual environment on a machine that has
// an interpreter but no package installer. It resolves the virtualenv source
// distribution on the package index, downloads and unpacks it into a scratch
// directory, and runs its single-file entry point with the caller's arguments.
//
// The package is organized by pipeline stage:
//   - locator.go: index JSON query and sdist selection
//   - fetcher.go, extract.go: in-memory download and tar extraction
//   - finder.go: entry script and executable lookup
//   - invoker.go: child process execution
//   - bootstrap.go: Bootstrapper, which runs the stages inside the scratch
//     directory managed by workspace.go
//
// Every stage fails with *Error, whose Kind names the stage.
package bootstrap
