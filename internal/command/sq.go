// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"

	"github.com/tfback/tfback/internal/config"
	"github.com/tfback/tfback/internal/differ"
	"github.com/tfback/tfback/internal/meta"
	"github.com/tfback/tfback/internal/output"
	"github.com/tfback/tfback/internal/remote"
	"github.com/tfback/tfback/internal/statefile"
)

// stateDiffer is the slice of the state client sqDiff needs; narrow so
// tests can fake it.
type stateDiffer interface {
	Versions(ctx context.Context, limit int) ([]remote.Version, error)
	StateBody(ctx context.Context, versionID string) ([]byte, error)
}

// sqColumns fixes the columns displayed for the state summary in the "sq"
// command output.
var sqColumns = []string{"serial", "lineage", "terraform_version", "resources"}

// sqCommandAction is the action handler for the "sq" subcommand. It reads
// the remote state object (including optional decryption), supports --diff
// between revisions, and emits results per common flags.
func sqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "sq") {
		return nil
	}

	config.Config.Namespace = "sq"

	client, be, err := NewRemoteClient(ctx, cmd, false)
	if err != nil {
		return err
	}
	log.Debugf("backend: %v", be)

	// Short circuit --diff mode: current revision against --sv (or the one
	// before it).
	if cmd.Bool("diff") {
		return sqDiff(ctx, cmd, client)
	}

	var doc []byte
	if sv := cmd.String("sv"); sv != "" && sv != "0" {
		doc, err = client.StateBody(ctx, sv)
		if err != nil {
			return err
		}
	} else {
		payload, err := client.Get(ctx)
		if err != nil {
			return err
		}
		if payload == nil {
			log.Infof("no state has been written to %s", be)
			return nil
		}
		doc = payload.Data
	}

	// If the state is encrypted, there's a little more work to do.
	if statefile.IsEncrypted(doc) {
		// First, look to the flag for passphrase value.
		passphrase := cmd.String("passphrase")

		// Next look in env and use it if found.
		if passphrase == "" {
			passphrase = os.Getenv("TFBACK_PASSPHRASE")
		}

		// Finally, prompt for passphrase
		if passphrase == "" {
			passphrase, _ = statefile.GetPassphrase()
		}

		doc, err = statefile.Decrypt(doc, passphrase)
		if err != nil {
			return fmt.Errorf("failed to decrypt: %w", err)
		}
	}

	// raw and json both dump the document itself; text summarizes it.
	switch cmd.String("output") {
	case "raw", "json":
		fmt.Fprintln(os.Stdout, string(doc))
		return nil
	}

	dataset := []output.Row{
		{
			"serial":            statefile.Serial(doc),
			"lineage":           statefile.Lineage(doc),
			"terraform_version": gjson.GetBytes(doc, "terraform_version").String(),
			"resources":         len(gjson.GetBytes(doc, "resources").Array()),
		},
	}

	output.Emit(dataset, sqColumns, cmd, os.Stdout)

	return nil
}

// sqDiff renders the delta between the current state revision and an older
// one. --sv picks the older revision; absent that, the one immediately
// before the current.
func sqDiff(ctx context.Context, cmd *cli.Command, client stateDiffer) error {
	older := cmd.String("sv")
	if older == "" || older == "0" {
		versions, err := client.Versions(ctx, 2)
		if err != nil {
			return err
		}
		if len(versions) < 2 {
			fmt.Fprintln(os.Stdout, "Not enough state versions to diff.")
			return nil
		}
		older = versions[1].ID
	}

	olderDoc, err := client.StateBody(ctx, older)
	if err != nil {
		return err
	}
	newerDoc, err := client.StateBody(ctx, "")
	if err != nil {
		return err
	}

	filterKeys := []string{cmd.String("diff_filter")}
	return differ.Diff(olderDoc, newerDoc, filterKeys, cmd.Bool("color"), os.Stdout)
}

// sqCommandBuilder constructs the cli.Command for "sq", wiring metadata,
// flags, and action/validator handlers.
func sqCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "sq",
		Usage:     "state query",
		UsageText: "tfback sq [RootDir] [options]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append(append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "diff",
				Usage: "find difference between state versions",
				Value: false,
			},
			&cli.StringFlag{
				Name:   "diff_filter",
				Hidden: true,
				Value:  "check_results",
			},
			&cli.StringFlag{
				Name:  "passphrase",
				Usage: "encrypted state passphrase",
			},
			&cli.StringFlag{
				Name:        "sv",
				Usage:       "state version to query",
				Value:       "0",
				HideDefault: true,
			},
			tldrFlag,
			workspaceFlag,
		}, NewBackendFlags(meta.Config.Source)...), NewGlobalFlags("sq")...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, cmd)
		},
		Action: sqCommandAction,
	}
}
