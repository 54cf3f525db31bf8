// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package config provides loading and typed accessors for tfback's user
// configuration. The configuration is expected to be a YAML document located
// in the user's configuration directory, typically:
//   - Linux/macOS: $XDG_CONFIG_HOME/tfback.yaml or $HOME/.config/tfback.yaml
//   - Windows: %APPDATA%/tfback/tfback.yaml
//
// Actual resolution relies on os.UserConfigDir which follows platform
// conventions. TFBACK_CFG_FILE overrides the location entirely.
package config
