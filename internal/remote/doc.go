// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package remote implements the S3/DynamoDB remote-state client: reading and
// writing the versioned state object, and acquiring, inspecting, and
// releasing the DynamoDB lock record that guards it.
package remote
