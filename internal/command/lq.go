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

// lqColumns fixes the columns displayed for the lock record in the "lq"
// command output.
var lqColumns = []string{"id", "who", "operation", "created", "age", "path"}

// lqCommandAction is the action handler for the "lq" subcommand. It shows
// the live lock record for the state object, if any.
func lqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "lq") {
		return nil
	}

	config.Config.Namespace = "lq"

	client, be, err := NewRemoteClient(ctx, cmd, false)
	if err != nil {
		return err
	}

	if !client.LockingEnabled() {
		log.Warnf("no lock table configured for %s; locking is disabled", be)
		return nil
	}

	info, err := client.CurrentLock(ctx)
	if err != nil {
		return err
	}
	if info == nil {
		log.Infof("%s is not locked", be)
		return nil
	}

	created := info.Created.Format(time.RFC3339)
	if cmd.Bool("local") {
		created = info.Created.Local().Format(time.RFC3339)
	}

	dataset := []output.Row{
		{
			"id":        info.ID,
			"who":       info.Who,
			"operation": info.Operation,
			"created":   created,
			"age":       humanize.Time(info.Created),
			"path":      info.Path,
		},
	}

	output.Emit(dataset, lqColumns, cmd, os.Stdout)

	return nil
}

// lqCommandBuilder constructs the cli.Command for "lq", wiring metadata,
// flags, and action handlers.
func lqCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "lq",
		Usage:     "lock query",
		UsageText: "tfback lq [RootDir] [options]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append(append([]cli.Flag{
			tldrFlag,
			workspaceFlag,
		}, NewBackendFlags(meta.Config.Source)...), NewGlobalFlags("lq")...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, cmd)
		},
		Action: lqCommandAction,
	}
}
