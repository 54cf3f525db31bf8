// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package aws contains AWS-related helpers and adapters used by the remote
// state client and the substrate provisioner.
package aws
