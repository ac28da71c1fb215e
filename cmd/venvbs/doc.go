// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the venvbs command line: it loads configuration,
// applies flag overrides and runs one bootstrap, mapping failures to exit
// codes.
package cmd
