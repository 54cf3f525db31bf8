// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package statefile holds helpers for working with serialized state
// documents, including optional decryption of encrypted OpenTofu state.
package statefile
