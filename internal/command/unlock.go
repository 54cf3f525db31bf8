// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/tfback/tfback/internal/config"
	"github.com/tfback/tfback/internal/meta"
)

// unlockCommandAction is the action handler for the "unlock" subcommand.
// With --id it releases a lock held under that token; with --force it evicts
// whatever lock record exists. There is no lease expiry, so --force is the
// only remedy when a holder crashed without releasing.
func unlockCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "unlock") {
		return nil
	}

	config.Config.Namespace = "unlock"

	client, be, err := NewRemoteClient(ctx, cmd, false)
	if err != nil {
		return err
	}

	if !client.LockingEnabled() {
		return fmt.Errorf("no lock table configured for %s; locking is disabled", be)
	}

	if cmd.Bool("force") {
		evicted, err := client.ForceUnlock(ctx)
		if err != nil {
			return err
		}
		if evicted == nil {
			log.Infof("%s was not locked", be)
			return nil
		}
		log.Infof("evicted lock %s held by %s (%s)", evicted.ID, evicted.Who, evicted.Operation)
		return nil
	}

	id := cmd.String("id")
	if id == "" {
		return errors.New("either --id or --force is required")
	}

	if err := client.Unlock(ctx, id); err != nil {
		return err
	}
	log.Infof("released lock on %s", be)

	return nil
}

// unlockCommandBuilder constructs the cli.Command for "unlock", wiring
// metadata, flags, and action handlers.
func unlockCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "unlock",
		Usage:     "release the state lock",
		UsageText: "tfback unlock [RootDir] [options]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append(append([]cli.Flag{
			&cli.BoolFlag{
				Name:        "force",
				Usage:       "evict the lock regardless of holder",
				HideDefault: true,
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "lock token returned when the lock was taken",
			},
			tldrFlag,
			workspaceFlag,
		}, NewBackendFlags(meta.Config.Source)...), NewGlobalFlags("unlock")...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, cmd)
		},
		Action: unlockCommandAction,
	}
}
