// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRootDir(t *testing.T) {
	tests := []struct {
		name     string
		setupDir func(t *testing.T) string
		wantEnv  string
		wantErr  bool
		errIs    error
	}{
		{
			name: "absolute_path_no_env",
			setupDir: func(t *testing.T) string {
				return t.TempDir()
			},
		},
		{
			name: "absolute_path_with_env",
			setupDir: func(t *testing.T) string {
				return t.TempDir() + "::prod"
			},
			wantEnv: "prod",
		},
		{
			name: "relative_path_with_env",
			setupDir: func(t *testing.T) string {
				tmpDir := t.TempDir()
				oldCwd, err := os.Getwd()
				require.NoError(t, err)
				require.NoError(t, os.Chdir(filepath.Dir(tmpDir)))
				t.Cleanup(func() { _ = os.Chdir(oldCwd) })
				return filepath.Base(tmpDir) + "::staging"
			},
			wantEnv: "staging",
		},
		{
			name: "empty_spec",
			setupDir: func(t *testing.T) string {
				return ""
			},
			wantErr: true,
			errIs:   os.ErrInvalid,
		},
		{
			name: "nonexistent_directory",
			setupDir: func(t *testing.T) string {
				return "/nonexistent/path/that/does/not/exist"
			},
			wantErr: true,
			errIs:   os.ErrNotExist,
		},
		{
			name: "file_not_directory",
			setupDir: func(t *testing.T) string {
				tmpFile := filepath.Join(t.TempDir(), "file.txt")
				require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o600))
				return tmpFile
			},
			wantErr: true,
			errIs:   os.ErrInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := tt.setupDir(t)

			dir, env, err := ParseRootDir(spec)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					assert.ErrorIs(t, err, tt.errIs)
				}
				return
			}

			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(dir), "dir should be absolute: %s", dir)
			assert.Equal(t, tt.wantEnv, env)
		})
	}
}
