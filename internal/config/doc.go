// SPDX-License-Identifier: MPL-2.0

// Package config handles venvbs configuration using Viper with CUE as the file format.
//
// Configuration is read from the file named by --config, or else from
// ~/.config/venvbs/config.cue (XDG_CONFIG_HOME on Linux,
// ~/Library/Application Support/venvbs/config.cue on macOS,
// %APPDATA%\venvbs\config.cue on Windows), or else from ./config.cue. Every
// key can be overridden from the environment as VENVBS_<KEY>.
//
// Files are validated against the #Config definition in config_schema.cue
// before they are merged over the defaults.
package config
