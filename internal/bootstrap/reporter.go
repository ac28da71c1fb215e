// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"errors"
	"io"

	"github.com/charmbracelet/log"
)

type (
	// Reporter observes a bootstrap run. Progress notes are informational
	// only; Warn flags trouble that did not end the run; Failure is called once
	// with the error that ended a failed run.
	Reporter interface {
		Progress(msg string, keyvals ...any)
		Warn(msg string, keyvals ...any)
		Failure(err error)
	}

	// LogReporter writes progress and failures through a charmbracelet logger.
	LogReporter struct {
		logger *log.Logger
		// detail appends the underlying cause to failure messages.
		detail bool
	}

	nopReporter struct{}
)

// NewLogReporter wraps logger. When detail is true, failures include the
// cause chain behind the rendered message.
func NewLogReporter(logger *log.Logger, detail bool) *LogReporter {
	return &LogReporter{logger: logger, detail: detail}
}

// NewWriterReporter builds a LogReporter writing to w with the venvbs prefix
// at the given level.
func NewWriterReporter(w io.Writer, level log.Level, detail bool) *LogReporter {
	logger := log.NewWithOptions(w, log.Options{
		Prefix: "venvbs",
		Level:  level,
	})
	return NewLogReporter(logger, detail)
}

// With returns a reporter that adds keyvals to every line.
func (r *LogReporter) With(keyvals ...any) *LogReporter {
	return &LogReporter{logger: r.logger.With(keyvals...), detail: r.detail}
}

// Progress logs msg at info level.
func (r *LogReporter) Progress(msg string, keyvals ...any) {
	r.logger.Info(msg, keyvals...)
}

// Warn logs msg at warn level.
func (r *LogReporter) Warn(msg string, keyvals ...any) {
	r.logger.Warn(msg, keyvals...)
}

// Failure logs the rendered error at error level.
func (r *LogReporter) Failure(err error) {
	var bErr *Error
	if !errors.As(err, &bErr) {
		r.logger.Error(err.Error())
		return
	}

	if r.detail && bErr.Cause != nil {
		keyvals := []any{"stage", bErr.Kind, "cause", bErr.Cause}
		if bErr.Kind == KindInvocation {
			keyvals = append(keyvals, "status", ExitStatus(bErr))
		}
		r.logger.Error(bErr.Error(), keyvals...)
		return
	}
	r.logger.Error(bErr.Error())
}

func (nopReporter) Progress(string, ...any) {}

func (nopReporter) Warn(string, ...any) {}

func (nopReporter) Failure(error) {}
