// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"errors"
	"fmt"
)

const (
	// KindResolution marks failures locating the sdist URL on the package index.
	KindResolution Kind = iota + 1
	// KindFetch marks failures downloading or unpacking the archive.
	KindFetch
	// KindLookup marks failures finding the entry script or an executable.
	KindLookup
	// KindInvocation marks a non-zero exit of the environment builder.
	KindInvocation
)

var (
	// ErrResolution matches any Error of KindResolution via errors.Is.
	ErrResolution = errors.New("resolution error")
	// ErrFetch matches any Error of KindFetch via errors.Is.
	ErrFetch = errors.New("fetch error")
	// ErrLookup matches any Error of KindLookup via errors.Is.
	ErrLookup = errors.New("lookup error")
	// ErrInvocation matches any Error of KindInvocation via errors.Is.
	ErrInvocation = errors.New("invocation error")
)

type (
	// Kind identifies the pipeline stage that produced an Error.
	Kind int

	// Error is the single failure type raised by every bootstrap stage.
	// The message is kept as a template plus arguments and only rendered
	// when Error() is called. Stages return it as-is; nothing between the
	// raising stage and the CLI wraps it into another kind.
	Error struct {
		Kind   Kind
		Format string
		Args   []any
		// Cause is the underlying transport, archive or OS failure, if any.
		// It is diagnostic only and never part of the rendered message
		// unless the template includes it explicitly.
		Cause error
	}
)

// String returns the stage name of the kind.
func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "resolution"
	case KindFetch:
		return "fetch"
	case KindLookup:
		return "lookup"
	case KindInvocation:
		return "invocation"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) sentinel() error {
	switch k {
	case KindResolution:
		return ErrResolution
	case KindFetch:
		return ErrFetch
	case KindLookup:
		return ErrLookup
	case KindInvocation:
		return ErrInvocation
	}
	return nil
}

// Resolutionf creates a KindResolution error.
func Resolutionf(format string, args ...any) *Error {
	return &Error{Kind: KindResolution, Format: format, Args: args}
}

// Fetchf creates a KindFetch error.
func Fetchf(format string, args ...any) *Error {
	return &Error{Kind: KindFetch, Format: format, Args: args}
}

// Lookupf creates a KindLookup error.
func Lookupf(format string, args ...any) *Error {
	return &Error{Kind: KindLookup, Format: format, Args: args}
}

// Invocationf creates a KindInvocation error.
func Invocationf(format string, args ...any) *Error {
	return &Error{Kind: KindInvocation, Format: format, Args: args}
}

// WithCause records the underlying failure and returns e for chaining.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// Error renders the message template with its arguments.
func (e *Error) Error() string {
	if len(e.Args) == 0 {
		return e.Format
	}
	return fmt.Sprintf(e.Format, e.Args...)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Detail renders the message followed by the cause chain, for verbose output.
func (e *Error) Detail() string {
	msg := e.Error()
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}
