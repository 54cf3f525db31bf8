// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/tfback/tfback/internal/config"
	"github.com/tfback/tfback/internal/meta"
	"github.com/tfback/tfback/internal/output"
	"github.com/tfback/tfback/internal/remote"
)

// lockColumns fixes the columns displayed for a freshly taken lock in the
// "lock" command output.
var lockColumns = []string{"id", "who", "operation", "path"}

// lockCommandAction is the action handler for the "lock" subcommand. It
// takes the lock on the state object and prints the token. The token must be
// presented to a later unlock (or push), so losing it means a force-unlock.
func lockCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "lock") {
		return nil
	}

	config.Config.Namespace = "lock"

	client, be, err := NewRemoteClient(ctx, cmd, false)
	if err != nil {
		return err
	}

	if !client.LockingEnabled() {
		return fmt.Errorf("no lock table configured for %s; locking is disabled", be)
	}

	info, err := remote.NewLockInfo(cmd.String("operation"))
	if err != nil {
		return err
	}

	token, err := client.Lock(ctx, info)
	if err != nil {
		// Already locked is the interesting case; show the holder.
		var lockErr *remote.LockError
		if errors.As(err, &lockErr) && lockErr.Info != nil {
			log.Errorf("lock is held: %s", lockErr.Info.Err())
		}
		return err
	}

	dataset := []output.Row{
		{
			"id":        token,
			"who":       info.Who,
			"operation": info.Operation,
			"path":      info.Path,
		},
	}

	output.Emit(dataset, lockColumns, cmd, os.Stdout)

	return nil
}

// lockCommandBuilder constructs the cli.Command for "lock", wiring metadata,
// flags, and action handlers.
func lockCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "lock",
		Usage:     "take the state lock",
		UsageText: "tfback lock [RootDir] [options]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append(append([]cli.Flag{
			&cli.StringFlag{
				Name:  "operation",
				Usage: "operation recorded in the lock info",
				Value: "manual",
			},
			tldrFlag,
			workspaceFlag,
		}, NewBackendFlags(meta.Config.Source)...), NewGlobalFlags("lock")...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, cmd)
		},
		Action: lockCommandAction,
	}
}
