// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package output

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestInterfaceToString(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{"string", "hello", "hello"},
		{"int", 42, "42"},
		{"int64", int64(42), "42"},
		{"float64", 42.7, "43"},
		{"bool", true, "true"},
		{"nil", nil, ""},
		{"empty string", "", ""},
		{"slice", []string{"a", "b"}, `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InterfaceToString(tt.value))
		})
	}
}

func TestInterfaceToStringCustomEmpty(t *testing.T) {
	assert.Equal(t, "-", InterfaceToString(nil, "-"))
	assert.Equal(t, "-", InterfaceToString("", "-"))
}

// runEmit drives Emit through a real command invocation so flag parsing
// behaves as in production.
func runEmit(t *testing.T, dataset []Row, columns []string, args ...string) string {
	t.Helper()

	var buf bytes.Buffer
	cmd := &cli.Command{
		Name: "test",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "color"},
			&cli.StringFlag{Name: "output", Value: "text"},
			&cli.IntFlag{Name: "padding", Value: 2},
			&cli.BoolFlag{Name: "titles"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			Emit(dataset, columns, cmd, &buf)
			return nil
		},
	}

	require.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...)))
	return buf.String()
}

func TestEmitJSON(t *testing.T) {
	dataset := []Row{
		{"name": "corp-tfstate", "exists": true},
	}

	out := runEmit(t, dataset, []string{"name", "exists"}, "--output", "json")

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "corp-tfstate", decoded[0]["name"])
	assert.Equal(t, true, decoded[0]["exists"])
}

func TestEmitYAML(t *testing.T) {
	dataset := []Row{
		{"name": "corp-tfstate"},
	}

	out := runEmit(t, dataset, []string{"name"}, "--output", "yaml")
	assert.Contains(t, out, "name: corp-tfstate")
}

func TestEmitText(t *testing.T) {
	dataset := []Row{
		{"name": "corp-tfstate", "serial": 7},
		{"name": "corp-tfstate", "serial": 8},
	}

	out := runEmit(t, dataset, []string{"name", "serial"}, "--titles")
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "corp-tfstate")
	assert.Contains(t, out, "8")
}

func TestEmitTextMissingColumn(t *testing.T) {
	dataset := []Row{
		{"name": "corp-tfstate"},
	}

	// Missing cells render as the placeholder, not as empty columns.
	out := runEmit(t, dataset, []string{"name", "serial"})
	assert.Contains(t, out, "-")
}

func TestTableWriterEmptyDataset(t *testing.T) {
	out := runEmit(t, nil, []string{"name"})
	assert.Empty(t, out)
}
