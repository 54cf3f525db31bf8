// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/tfback/tfback/internal/config"
	"github.com/tfback/tfback/internal/meta"
	"github.com/tfback/tfback/internal/output"
	"github.com/tfback/tfback/internal/remote"
	"github.com/tfback/tfback/internal/statefile"
)

// pushColumns fixes the columns displayed after a successful push.
var pushColumns = []string{"destination", "serial", "lineage", "bytes"}

// pushCommandAction is the action handler for the "push" subcommand. It
// uploads a local state file to the backend under the state lock: take the
// lock, write, release. With --token the caller already holds the lock and
// the write is verified against that token instead.
func pushCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "push") {
		return nil
	}

	config.Config.Namespace = "push"

	client, be, err := NewRemoteClient(ctx, cmd, false)
	if err != nil {
		return err
	}

	file := cmd.String("file")
	if file == "" {
		file = filepath.Join(be.RootDir, "terraform.tfstate")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	// A document without a lineage is almost certainly not a state file.
	// Refuse early rather than clobbering the remote object.
	if !statefile.IsEncrypted(data) && statefile.Lineage(data) == "" {
		return fmt.Errorf("%s does not look like a state file", file)
	}

	token := cmd.String("token")
	if token == "" && client.LockingEnabled() {
		info, err := remote.NewLockInfo("push")
		if err != nil {
			return err
		}

		token, err = client.Lock(ctx, info)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Unlock(ctx, token); err != nil {
				log.WithError(err).Errorf("failed to release push lock")
			}
		}()
	}

	if err := client.Put(ctx, data, token); err != nil {
		return err
	}

	dataset := []output.Row{
		{
			"destination": be.String(),
			"serial":      statefile.Serial(data),
			"lineage":     statefile.Lineage(data),
			"bytes":       len(data),
		},
	}

	output.Emit(dataset, pushColumns, cmd, os.Stdout)

	return nil
}

// pushCommandBuilder constructs the cli.Command for "push", wiring metadata,
// flags, and action handlers.
func pushCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "push",
		Usage:     "upload a local state file to the backend",
		UsageText: "tfback push [RootDir] [options]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append(append([]cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "state file to upload. Defaults to RootDir/terraform.tfstate",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "lock token from a previously taken lock",
			},
			tldrFlag,
			workspaceFlag,
		}, NewBackendFlags(meta.Config.Source)...), NewGlobalFlags("push")...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, cmd)
		},
		Action: pushCommandAction,
	}
}
