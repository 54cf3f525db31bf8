// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package backend resolves the remote-state backend pointer (bucket, key,
// region, lock table, encryption) from flags, configuration, and the local
// .terraform/terraform.tfstate left behind by the provisioning client.
package backend
