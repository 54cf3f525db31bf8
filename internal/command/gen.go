// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/tfback/tfback/internal/config"
	"github.com/tfback/tfback/internal/hclgen"
	"github.com/tfback/tfback/internal/meta"
)

// genCommandAction is the action handler for the "gen" subcommand. It
// renders the terraform backend block for the resolved pointer, either to
// stdout or, with --out, to a file ready for terraform init.
func genCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "gen") {
		return nil
	}

	config.Config.Namespace = "gen"

	be, err := NewBackend(ctx, cmd, false)
	if err != nil {
		return err
	}

	block := hclgen.BackendBlock(be.Pointer)

	if out := cmd.String("out"); out != "" {
		if _, err := os.Stat(out); err == nil && !cmd.Bool("overwrite") {
			return fmt.Errorf("%s already exists; use --overwrite to replace it", out)
		}
		if err := os.WriteFile(out, block, 0o644); err != nil {
			return fmt.Errorf("failed to write backend block: %w", err)
		}
		log.Infof("wrote backend block to %s", out)
		return nil
	}

	fmt.Fprint(os.Stdout, string(block))

	return nil
}

// genCommandBuilder constructs the cli.Command for "gen", wiring metadata,
// flags, and action handlers.
func genCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "gen",
		Usage:     "generate the terraform backend block",
		UsageText: "tfback gen [RootDir] [options]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append(append([]cli.Flag{
			&cli.StringFlag{
				Name:  "out",
				Usage: "write the block to this file instead of stdout",
			},
			&cli.BoolFlag{
				Name:        "overwrite",
				Usage:       "replace an existing --out file",
				HideDefault: true,
			},
			tldrFlag,
			workspaceFlag,
		}, NewBackendFlags(meta.Config.Source)...), NewGlobalFlags("gen")...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, cmd)
		},
		Action: genCommandAction,
	}
}
