// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
)

// Pointer is the remote-state backend pointer: where the state object lives
// and which DynamoDB table arbitrates the lock. An empty Table disables
// locking entirely, mirroring the behavior of the provisioning client.
type Pointer struct {
	Bucket          string `json:"bucket"`
	Key             string `json:"key"`
	WorkspacePrefix string `json:"workspace_key_prefix"`
	Region          string `json:"region"`
	Table           string `json:"dynamodb_table"`
	Encrypt         bool   `json:"encrypt"`
	KmsKeyID        string `json:"kms_key_id"`
	Profile         string `json:"profile"`
}

// Backend holds the resolved pointer plus the resolution context it came
// from.
type Backend struct {
	Ctx              context.Context
	Cmd              *cli.Command
	RootDir          string `json:"-" validate:"dir"`
	EnvOverride      string
	Version          int    `json:"version" validate:"gte=3"`
	TerraformVersion string `json:"terraform_version"`
	Pointer          Pointer
}

type Option = func(ctx context.Context, cmd *cli.Command, be *Backend) error

// NewBackend returns a Backend with the pointer resolved in ascending
// precedence: defaults, config file, the rootDir's terraform.tfstate, and
// finally explicit flags.
func NewBackend(ctx context.Context, cmd *cli.Command, options ...Option) (*Backend, error) {
	options = append([]Option{WithDefaults()}, options...)

	be := &Backend{Ctx: ctx, Cmd: cmd}

	for _, opt := range options {
		if err := opt(ctx, cmd, be); err != nil {
			return nil, err
		}
	}

	return be, nil
}

func WithDefaults() Option {
	return func(ctx context.Context, cmd *cli.Command, be *Backend) error {
		cwd, _ := os.Getwd()
		be.RootDir = cwd

		be.Version = 4
		be.TerraformVersion = "0.0.0"
		be.Pointer.Encrypt = true

		log.Debugf("NewBackend WithDefaults():")

		return nil
	}
}

// FromConfig fills unset pointer fields from the backend.* keys of the
// config file via the getters passed in. The getter indirection keeps this
// package clear of a config import cycle.
func FromConfig(getString func(string, ...string) (string, error)) Option {
	return func(ctx context.Context, cmd *cli.Command, be *Backend) error {
		fields := map[string]*string{
			"backend.bucket":     &be.Pointer.Bucket,
			"backend.key":        &be.Pointer.Key,
			"backend.region":     &be.Pointer.Region,
			"backend.table":      &be.Pointer.Table,
			"backend.kms_key_id": &be.Pointer.KmsKeyID,
			"backend.profile":    &be.Pointer.Profile,
		}
		for key, dst := range fields {
			if v, err := getString(key, ""); err == nil && v != "" {
				*dst = v
			}
		}
		return nil
	}
}

func FromRootDir(rootDir string, required ...bool) Option {
	return func(ctx context.Context, cmd *cli.Command, be *Backend) error {
		// Is rootDir a relative or absolute path?
		if filepath.IsAbs(rootDir) {
			be.RootDir = rootDir
		} else {
			cwd, _ := os.Getwd()
			be.RootDir = filepath.Join(cwd, rootDir)
		}

		log.Debugf("NewBackend FromRootDir(): rootDir = %s", be.RootDir)

		err := be.load()

		// Return no error if required is present and false.
		if len(required) > 0 && !required[0] {
			return nil
		}
		return err
	}
}

// FromFlags overrides pointer fields with any explicitly provided command
// flags. Flags always win, matching the behavior of the provisioning
// client's -backend-config overrides.
func FromFlags() Option {
	return func(ctx context.Context, cmd *cli.Command, be *Backend) error {
		if cmd == nil {
			return nil
		}
		if v := cmd.String("bucket"); v != "" {
			be.Pointer.Bucket = v
		}
		if v := cmd.String("key"); v != "" {
			be.Pointer.Key = v
		}
		if v := cmd.String("region"); v != "" {
			be.Pointer.Region = v
		}
		if v := cmd.String("table"); v != "" {
			be.Pointer.Table = v
		}
		if v := cmd.String("kms-key-id"); v != "" {
			be.Pointer.KmsKeyID = v
		}
		if v := cmd.String("profile"); v != "" {
			be.Pointer.Profile = v
		}
		if cmd.IsSet("encrypt") {
			be.Pointer.Encrypt = cmd.Bool("encrypt")
		}
		return nil
	}
}

func WithEnvOverride(env string) Option {
	return func(ctx context.Context, cmd *cli.Command, be *Backend) error {
		if env != "" {
			be.EnvOverride = env
		}
		return nil
	}
}

// Env returns the effective workspace. An explicit override wins; otherwise
// the .terraform/environment file is consulted when a workspace prefix is in
// play.
func (be *Backend) Env() string {
	if be.EnvOverride != "" {
		return be.EnvOverride
	}
	if be.Pointer.WorkspacePrefix != "" {
		envData, err := os.ReadFile(filepath.Join(be.RootDir, ".terraform/environment"))
		if err == nil {
			return string(envData)
		}
	}
	return ""
}

// StateKey returns the object key the state blob lives at, accounting for
// any workspace prefix and environment.
func (be *Backend) StateKey() string {
	return filepath.Join(be.Pointer.WorkspacePrefix, be.Env(), be.Pointer.Key)
}

// LockPath returns the LockID value for this state identity. The bucket/key
// form matches what the provisioning client writes, so locks taken by either
// tool are visible to the other.
func (be *Backend) LockPath() string {
	return fmt.Sprintf("%s/%s", be.Pointer.Bucket, be.StateKey())
}

// Validate checks the pointer is usable for state operations.
func (be *Backend) Validate() error {
	if be.Pointer.Bucket == "" {
		return errors.New("backend bucket is required")
	}
	if be.Pointer.Key == "" {
		return errors.New("backend key is required")
	}
	return nil
}

func (be *Backend) String() string {
	return fmt.Sprintf("s3://%s/%s", be.Pointer.Bucket, be.StateKey())
}

// load reads the pointer out of the rootDir's .terraform/terraform.tfstate.
func (be *Backend) load() error {
	tfFile := filepath.Join(be.RootDir, ".terraform", "terraform.tfstate")
	data, err := os.ReadFile(tfFile)
	if err != nil {
		return fmt.Errorf("failed to read local config file: %w", err)
	}

	var temp struct {
		Version          int    `json:"version"`
		TerraformVersion string `json:"terraform_version"`
		Backend          struct {
			Type   string  `json:"type"`
			Config Pointer `json:"config"`
			Hash   int     `json:"hash"`
		} `json:"backend"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return fmt.Errorf("failed to unmarshal local config file: %w", err)
	}

	if temp.Backend.Type != "s3" {
		return fmt.Errorf("backend type is not s3: %s", temp.Backend.Type)
	}

	be.Version = temp.Version
	be.TerraformVersion = temp.TerraformVersion
	be.Pointer = temp.Backend.Config

	return nil
}
