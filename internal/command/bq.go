// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"os"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	awsx "github.com/tfback/tfback/internal/aws"
	"github.com/tfback/tfback/internal/config"
	"github.com/tfback/tfback/internal/meta"
	"github.com/tfback/tfback/internal/output"
	"github.com/tfback/tfback/internal/provision"
)

// bqColumns fixes the columns displayed for substrate resources in the "bq"
// command output.
var bqColumns = []string{"resource", "name", "exists", "versioning", "sse", "billing", "hash-key", "status"}

// bqCommandAction is the action handler for the "bq" subcommand. It probes
// the state bucket and lock table and reports whether their live posture
// matches what state storage requires.
func bqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "bq") {
		return nil
	}

	config.Config.Namespace = "bq"

	be, err := NewSubstrateBackend(ctx, cmd)
	if err != nil {
		return err
	}
	log.Debugf("backend: %v", be)

	cfg, err := awsx.LoadAWSConfig(ctx,
		awsx.WithProfile(be.Pointer.Profile),
		awsx.WithRegion(be.Pointer.Region),
	)
	if err != nil {
		return err
	}

	bucket, err := provision.CheckBucket(ctx, awsx.NewS3(cfg), be.Pointer.Bucket)
	if err != nil {
		return err
	}

	dataset := []output.Row{
		{
			"resource":   "bucket",
			"name":       be.Pointer.Bucket,
			"exists":     bucket.Exists,
			"versioning": bucket.Versioning,
			"sse":        bucket.SSEAlgorithm,
		},
	}

	if be.Pointer.Table != "" {
		table, err := provision.CheckTable(ctx, awsx.NewDynamoDB(cfg), be.Pointer.Table)
		if err != nil {
			return err
		}
		dataset = append(dataset, output.Row{
			"resource": "table",
			"name":     be.Pointer.Table,
			"exists":   table.Exists,
			"billing":  table.BillingMode,
			"hash-key": table.HashKey,
			"status":   table.Status,
		})
	}

	output.Emit(dataset, bqColumns, cmd, os.Stdout)

	return nil
}

// bqCommandBuilder constructs the cli.Command for "bq", wiring metadata,
// flags, and action handlers.
func bqCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "bq",
		Usage:     "backend substrate query",
		UsageText: "tfback bq [RootDir] [options]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append(append([]cli.Flag{
			tldrFlag,
			workspaceFlag,
		}, NewBackendFlags(meta.Config.Source)...), NewGlobalFlags("bq")...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, cmd)
		},
		Action: bqCommandAction,
	}
}
