// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pombredanne/venvbs/internal/bootstrap"
)

// Log levels accepted by the log_level key.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type (
	// LogLevel names the minimum level the reporter prints.
	LogLevel string

	// Config holds the venvbs configuration.
	Config struct {
		// IndexURL is the base URL of the package index.
		IndexURL string `json:"index_url" mapstructure:"index_url"`
		// Project is the index project fetched.
		Project string `json:"project" mapstructure:"project"`
		// ProjectVersion pins the release; empty selects the latest.
		ProjectVersion string `json:"project_version" mapstructure:"project_version"`
		// EntryScript is the file run inside the extracted project.
		EntryScript string `json:"entry_script" mapstructure:"entry_script"`
		// ProjectPrefix selects the extracted project directory.
		ProjectPrefix string `json:"project_prefix" mapstructure:"project_prefix"`
		// Interpreter is used when no --python flag is given.
		Interpreter string `json:"interpreter" mapstructure:"interpreter"`
		// WorkDir is the parent of the scratch directory (default: working directory)
		WorkDir string `json:"work_dir" mapstructure:"work_dir"`
		// Timeout bounds every HTTP request.
		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
		// MaxArchiveBytes caps the downloaded archive size.
		MaxArchiveBytes int64 `json:"max_archive_bytes" mapstructure:"max_archive_bytes"`
		UserAgent       string `json:"user_agent" mapstructure:"user_agent"`
		// Verify checks for the environment's interpreter after creation.
		Verify     bool     `json:"verify" mapstructure:"verify"`
		PythonName string   `json:"python_name" mapstructure:"python_name"`
		LogLevel   LogLevel `json:"log_level" mapstructure:"log_level"`
	}
)

// IsValid reports whether the level is one of the known log levels.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Validate checks constraints that survive environment overrides, which
// bypass the CUE schema.
func (c *Config) Validate() error {
	if c.Project == "" {
		return errors.New("project must not be empty")
	}
	if c.EntryScript == "" || c.ProjectPrefix == "" {
		return errors.New("entry_script and project_prefix must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxArchiveBytes <= 0 {
		return fmt.Errorf("max_archive_bytes must be positive, got %d", c.MaxArchiveBytes)
	}
	if !c.LogLevel.IsValid() {
		return fmt.Errorf("invalid log_level %q (expected debug, info, warn, or error)", c.LogLevel)
	}
	return nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		IndexURL:        bootstrap.DefaultIndexURL,
		Project:         bootstrap.DefaultPackage,
		ProjectVersion:  "",
		EntryScript:     bootstrap.DefaultEntryScript,
		ProjectPrefix:   bootstrap.DefaultProjectPrefix,
		Interpreter:     "", // First of python3, python on PATH
		WorkDir:         ".",
		Timeout:         bootstrap.DefaultTimeout,
		MaxArchiveBytes: bootstrap.DefaultMaxArchiveBytes,
		UserAgent:       "",
		Verify:          false,
		PythonName:      bootstrap.DefaultPythonName,
		LogLevel:        LogLevelInfo,
	}
}
