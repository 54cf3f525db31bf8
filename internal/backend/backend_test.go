// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTfstate drops a .terraform/terraform.tfstate into dir.
func writeTfstate(t *testing.T, dir string, body string) {
	t.Helper()
	tfDir := filepath.Join(dir, ".terraform")
	require.NoError(t, os.MkdirAll(tfDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tfDir, "terraform.tfstate"), []byte(body), 0o644))
}

const s3Tfstate = `{
  "version": 3,
  "terraform_version": "1.7.5",
  "backend": {
    "type": "s3",
    "config": {
      "bucket": "corp-tfstate",
      "key": "app/terraform.tfstate",
      "region": "us-east-2",
      "dynamodb_table": "corp-tf-locks",
      "encrypt": true
    },
    "hash": 12345
  }
}`

func TestNewBackendDefaults(t *testing.T) {
	be, err := NewBackend(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, be.Version)
	assert.True(t, be.Pointer.Encrypt)
}

func TestFromRootDirLoadsPointer(t *testing.T) {
	dir := t.TempDir()
	writeTfstate(t, dir, s3Tfstate)

	be, err := NewBackend(context.Background(), nil, FromRootDir(dir))
	require.NoError(t, err)

	assert.Equal(t, "corp-tfstate", be.Pointer.Bucket)
	assert.Equal(t, "app/terraform.tfstate", be.Pointer.Key)
	assert.Equal(t, "us-east-2", be.Pointer.Region)
	assert.Equal(t, "corp-tf-locks", be.Pointer.Table)
	assert.True(t, be.Pointer.Encrypt)
	assert.Equal(t, 3, be.Version)
	assert.Equal(t, "1.7.5", be.TerraformVersion)
}

func TestFromRootDirRejectsNonS3(t *testing.T) {
	dir := t.TempDir()
	writeTfstate(t, dir, `{"version":3,"backend":{"type":"remote","config":{}}}`)

	_, err := NewBackend(context.Background(), nil, FromRootDir(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not s3")
}

func TestFromRootDirOptional(t *testing.T) {
	// No tfstate at all; not required, so resolution continues.
	be, err := NewBackend(context.Background(), nil, FromRootDir(t.TempDir(), false))
	require.NoError(t, err)
	assert.Empty(t, be.Pointer.Bucket)
}

func TestFromConfigFillsPointer(t *testing.T) {
	values := map[string]string{
		"backend.bucket": "cfg-bucket",
		"backend.key":    "cfg/terraform.tfstate",
		"backend.table":  "cfg-locks",
	}
	getString := func(key string, def ...string) (string, error) {
		return values[key], nil
	}

	be, err := NewBackend(context.Background(), nil, FromConfig(getString))
	require.NoError(t, err)

	assert.Equal(t, "cfg-bucket", be.Pointer.Bucket)
	assert.Equal(t, "cfg/terraform.tfstate", be.Pointer.Key)
	assert.Equal(t, "cfg-locks", be.Pointer.Table)
	assert.Empty(t, be.Pointer.Region)
}

func TestStateKeyAndLockPath(t *testing.T) {
	be := &Backend{
		Pointer: Pointer{
			Bucket: "corp-tfstate",
			Key:    "app/terraform.tfstate",
		},
	}

	assert.Equal(t, "app/terraform.tfstate", be.StateKey())
	assert.Equal(t, "corp-tfstate/app/terraform.tfstate", be.LockPath())
	assert.Equal(t, "s3://corp-tfstate/app/terraform.tfstate", be.String())
}

func TestStateKeyWithWorkspace(t *testing.T) {
	be := &Backend{
		EnvOverride: "staging",
		Pointer: Pointer{
			Bucket:          "corp-tfstate",
			Key:             "app/terraform.tfstate",
			WorkspacePrefix: "workspaces",
		},
	}

	assert.Equal(t, "workspaces/staging/app/terraform.tfstate", be.StateKey())
	assert.Equal(t, "corp-tfstate/workspaces/staging/app/terraform.tfstate", be.LockPath())
}

func TestEnvFromEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".terraform"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".terraform", "environment"), []byte("prod"), 0o644))

	be := &Backend{
		RootDir: dir,
		Pointer: Pointer{WorkspacePrefix: "env"},
	}
	assert.Equal(t, "prod", be.Env())

	// An explicit override always wins.
	be.EnvOverride = "dev"
	assert.Equal(t, "dev", be.Env())
}

func TestValidate(t *testing.T) {
	be := &Backend{}
	assert.Error(t, be.Validate())

	be.Pointer.Bucket = "corp-tfstate"
	assert.Error(t, be.Validate())

	be.Pointer.Key = "app/terraform.tfstate"
	assert.NoError(t, be.Validate())
}
