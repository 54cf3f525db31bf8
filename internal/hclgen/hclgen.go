// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package hclgen renders the terraform backend block for a resolved pointer
// so it can be dropped into a root module verbatim.
package hclgen

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/tfback/tfback/internal/backend"
)

// BackendBlock renders:
//
//	terraform {
//	  backend "s3" {
//	    bucket = "..."
//	    ...
//	  }
//	}
//
// Optional pointer fields are omitted rather than emitted empty.
func BackendBlock(ptr backend.Pointer) []byte {
	f := hclwrite.NewEmptyFile()

	tf := f.Body().AppendNewBlock("terraform", nil)
	be := tf.Body().AppendNewBlock("backend", []string{"s3"})
	body := be.Body()

	body.SetAttributeValue("bucket", cty.StringVal(ptr.Bucket))
	body.SetAttributeValue("key", cty.StringVal(ptr.Key))
	if ptr.Region != "" {
		body.SetAttributeValue("region", cty.StringVal(ptr.Region))
	}
	if ptr.Table != "" {
		body.SetAttributeValue("dynamodb_table", cty.StringVal(ptr.Table))
	}
	body.SetAttributeValue("encrypt", cty.BoolVal(ptr.Encrypt))
	if ptr.KmsKeyID != "" {
		body.SetAttributeValue("kms_key_id", cty.StringVal(ptr.KmsKeyID))
	}
	if ptr.WorkspacePrefix != "" {
		body.SetAttributeValue("workspace_key_prefix", cty.StringVal(ptr.WorkspacePrefix))
	}
	if ptr.Profile != "" {
		body.SetAttributeValue("profile", cty.StringVal(ptr.Profile))
	}

	return f.Bytes()
}
