// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"os"
	"os/exec"

	"github.com/urfave/cli/v3"

	awsx "github.com/tfback/tfback/internal/aws"
	"github.com/tfback/tfback/internal/backend"
	"github.com/tfback/tfback/internal/config"
	"github.com/tfback/tfback/internal/meta"
	"github.com/tfback/tfback/internal/remote"
)

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr tfback <subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "tfback", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// NewBackend resolves the backend pointer for a command using the standard
// ascending precedence: defaults, config file, the rootDir's
// .terraform/terraform.tfstate, then explicit flags. When required is false
// a missing or non-s3 tfstate is tolerated, leaving the pointer to be
// completed by config and flags.
func NewBackend(ctx context.Context, cmd *cli.Command, required bool) (*backend.Backend, error) {
	m := GetMeta(cmd)

	be, err := backend.NewBackend(ctx, cmd,
		backend.FromConfig(config.GetString),
		backend.FromRootDir(m.RootDir, required),
		backend.FromFlags(),
		backend.WithEnvOverride(m.Env),
		backend.WithEnvOverride(cmd.String("workspace")),
	)
	if err != nil {
		return nil, err
	}

	return be, be.Validate()
}

// NewSubstrateBackend resolves the pointer the same way NewBackend does but
// only insists on the bucket. Provisioning and posture probes have no state
// object, so a missing key is fine.
func NewSubstrateBackend(ctx context.Context, cmd *cli.Command) (*backend.Backend, error) {
	m := GetMeta(cmd)

	be, err := backend.NewBackend(ctx, cmd,
		backend.FromConfig(config.GetString),
		backend.FromRootDir(m.RootDir, false),
		backend.FromFlags(),
		backend.WithEnvOverride(m.Env),
		backend.WithEnvOverride(cmd.String("workspace")),
	)
	if err != nil {
		return nil, err
	}

	if be.Pointer.Bucket == "" {
		return nil, errors.New("backend bucket is required")
	}
	return be, nil
}

// NewRemoteClient resolves the backend and builds a state client over real
// AWS service clients. The pointer's profile and region (both optional)
// steer config loading; everything else follows the ambient AWS setup.
func NewRemoteClient(ctx context.Context, cmd *cli.Command, required bool) (*remote.Client, *backend.Backend, error) {
	be, err := NewBackend(ctx, cmd, required)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := awsx.LoadAWSConfig(ctx,
		awsx.WithProfile(be.Pointer.Profile),
		awsx.WithRegion(be.Pointer.Region),
	)
	if err != nil {
		return nil, nil, err
	}

	return remote.NewClient(cfg, be), be, nil
}
