// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"os"
	"time"

	"github.com/apex/log"
	humanize "github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/tfback/tfback/internal/config"
	"github.com/tfback/tfback/internal/meta"
	"github.com/tfback/tfback/internal/output"
)

// svqColumns fixes the columns displayed for state versions in the "svq"
// command output.
var svqColumns = []string{"id", "serial", "lineage", "created", "age", "size"}

// svqCommandAction is the action handler for the "svq" subcommand. It lists
// the retained revisions of the state object, newest first.
func svqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "svq") {
		return nil
	}

	config.Config.Namespace = "svq"

	client, be, err := NewRemoteClient(ctx, cmd, false)
	if err != nil {
		return err
	}
	log.Debugf("backend: %v", be)

	versions, err := client.Versions(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	var dataset []output.Row
	for _, v := range versions {
		created := v.Created.Format(time.RFC3339)
		if cmd.Bool("local") {
			created = v.Created.Local().Format(time.RFC3339)
		}

		dataset = append(dataset, output.Row{
			"id":      v.ID,
			"serial":  v.Serial,
			"lineage": v.Lineage,
			"created": created,
			"age":     humanize.Time(v.Created),
			"size":    humanize.Bytes(uint64(v.Size)),
		})
	}

	output.Emit(dataset, svqColumns, cmd, os.Stdout)

	return nil
}

// svqCommandBuilder constructs the cli.Command for "svq", wiring metadata,
// flags, and action handlers.
func svqCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "svq",
		Usage:     "state version query",
		UsageText: "tfback svq [RootDir] [options]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append(append([]cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "limit state versions returned",
				Value: 99999,
			},
			tldrFlag,
			workspaceFlag,
		}, NewBackendFlags(meta.Config.Source)...), NewGlobalFlags("svq")...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, cmd)
		},
		Action: svqCommandAction,
	}
}
