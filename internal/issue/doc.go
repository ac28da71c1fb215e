// SPDX-License-Identifier: MPL-2.0

// Package issue carries the errors venvbs shows before a bootstrap starts,
// such as a bad config.cue or no interpreter on PATH, each with the hints the
// CLI prints below the message.
package issue
