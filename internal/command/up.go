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

// upColumns fixes the columns displayed for provisioned resources in the
// "up" command output.
var upColumns = []string{"resource", "name", "status"}

// upCommandAction is the action handler for the "up" subcommand. It
// provisions the state bucket and lock table, idempotently, and reports what
// now exists.
func upCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "up") {
		return nil
	}

	config.Config.Namespace = "up"

	// The rootDir's tfstate is optional here; up is usually run before any
	// terraform init has happened. A state key isn't needed to provision.
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

	result, err := provision.Ensure(ctx, awsx.NewS3(cfg), awsx.NewDynamoDB(cfg), be.Pointer)
	if err != nil {
		return err
	}

	dataset := []output.Row{
		{"resource": "bucket", "name": result.Bucket, "status": "ready"},
	}
	if result.Table != "" {
		dataset = append(dataset, output.Row{"resource": "table", "name": result.Table, "status": "ready"})
	} else {
		dataset = append(dataset, output.Row{"resource": "table", "name": "-", "status": "locking disabled"})
	}

	output.Emit(dataset, upColumns, cmd, os.Stdout)

	return nil
}

// upCommandBuilder constructs the cli.Command for "up", wiring metadata,
// flags, and action handlers.
func upCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "up",
		Usage:     "provision the state bucket and lock table",
		UsageText: "tfback up [RootDir] [options]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append(append([]cli.Flag{
			tldrFlag,
			workspaceFlag,
		}, NewBackendFlags(meta.Config.Source)...), NewGlobalFlags("up")...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, cmd)
		},
		Action: upCommandAction,
	}
}
