// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package hclgen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tfback/tfback/internal/backend"
)

func TestBackendBlockFull(t *testing.T) {
	block := string(BackendBlock(backend.Pointer{
		Bucket:          "corp-tfstate",
		Key:             "app/terraform.tfstate",
		Region:          "us-east-2",
		Table:           "corp-tf-locks",
		Encrypt:         true,
		KmsKeyID:        "arn:aws:kms:us-east-2:123456789012:key/abc",
		WorkspacePrefix: "workspaces",
		Profile:         "corp",
	}))

	assert.Contains(t, block, `terraform {`)
	assert.Contains(t, block, `backend "s3" {`)
	assert.Contains(t, block, `bucket               = "corp-tfstate"`)
	assert.Contains(t, block, `key                  = "app/terraform.tfstate"`)
	assert.Contains(t, block, `region               = "us-east-2"`)
	assert.Contains(t, block, `dynamodb_table       = "corp-tf-locks"`)
	assert.Contains(t, block, `encrypt              = true`)
	assert.Contains(t, block, `kms_key_id           = "arn:aws:kms:us-east-2:123456789012:key/abc"`)
	assert.Contains(t, block, `workspace_key_prefix = "workspaces"`)
	assert.Contains(t, block, `profile              = "corp"`)
}

func TestBackendBlockMinimal(t *testing.T) {
	block := string(BackendBlock(backend.Pointer{
		Bucket: "corp-tfstate",
		Key:    "app/terraform.tfstate",
	}))

	assert.Contains(t, block, `bucket  = "corp-tfstate"`)
	assert.Contains(t, block, `encrypt = false`)
	assert.NotContains(t, block, "region")
	assert.NotContains(t, block, "dynamodb_table")
	assert.NotContains(t, block, "kms_key_id")
	assert.NotContains(t, block, "workspace_key_prefix")
	assert.NotContains(t, block, "profile")
}
