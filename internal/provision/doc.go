// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package provision creates and verifies the backend substrate: the
// versioned, encrypted S3 bucket holding the state object and the DynamoDB
// table holding lock records.
package provision
