// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package output renders command result sets as text tables, JSON, or YAML
// per the common output flags.
package output
