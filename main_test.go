// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestHandleNakedCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "no command appends help",
			args:     []string{"tfback"},
			expected: []string{"tfback", "--help"},
		},
		{
			name:     "command present unchanged",
			args:     []string{"tfback", "sq"},
			expected: []string{"tfback", "sq"},
		},
		{
			name:     "command and flags unchanged",
			args:     []string{"tfback", "sq", "--output", "json"},
			expected: []string{"tfback", "sq", "--output", "json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := handleNakedCommand(tt.args)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("handleNakedCommand(%v) = %v, want %v", tt.args, result, tt.expected)
			}
		})
	}
}

func TestProcessRootDirArgInsertsCwd(t *testing.T) {
	cwd, _ := os.Getwd()

	result := processRootDirArg([]string{"tfback", "sq"})
	expected := []string{"tfback", "sq", cwd}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("got %v, want %v", result, expected)
	}
}

func TestProcessRootDirArgKeepsExplicitDir(t *testing.T) {
	dir := t.TempDir()

	result := processRootDirArg([]string{"tfback", "sq", dir, "--titles"})
	expected := []string{"tfback", "sq", dir, "--titles"}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("got %v, want %v", result, expected)
	}
}

func TestProcessRootDirArgNormalizesFlagsOnly(t *testing.T) {
	cwd, _ := os.Getwd()

	result := processRootDirArg([]string{"tfback", "sq", "--output", "json"})
	expected := []string{"tfback", "sq", cwd, "--output", "json"}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("got %v, want %v", result, expected)
	}
}

func TestProcessCommandArgsCompletionShortCircuit(t *testing.T) {
	args := []string{"tfback", "completion", "bash"}
	result := processCommandArgs(args)
	if !reflect.DeepEqual(result, args) {
		t.Errorf("completion args should pass through untouched: got %v", result)
	}
}

func TestProcessSetOnlyNoSet(t *testing.T) {
	args := []string{"tfback", "sq", "--output", "json"}
	result := processSetOnly(args)
	if !reflect.DeepEqual(result, args) {
		t.Errorf("got %v, want %v", args, result)
	}
}

func TestProcessSetOnlyExpandsSet(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "tfback.yaml")
	content := "sq:\n  fast:\n    - \"--output json\"\n    - \"--titles\"\n"
	if err := os.WriteFile(cfg, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TFBACK_CFG_FILE", cfg)

	result := processSetOnly([]string{"tfback", "sq", "@fast"})
	expected := []string{"tfback", "sq", "--output", "json", "--titles"}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("got %v, want %v", result, expected)
	}
}

func TestProcessSetOnlyUnknownSetRemoved(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "tfback.yaml")
	if err := os.WriteFile(cfg, []byte("sq: {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TFBACK_CFG_FILE", cfg)

	result := processSetOnly([]string{"tfback", "sq", "@nope", "--titles"})
	expected := []string{"tfback", "sq", "--titles"}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("got %v, want %v", result, expected)
	}
}
