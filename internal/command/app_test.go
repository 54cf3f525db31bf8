// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestInitAppCommandSet(t *testing.T) {
	app, err := InitApp(context.Background(), []string{"tfback", "sq"})
	require.NoError(t, err)
	assert.Equal(t, "tfback", app.Name)

	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}

	for _, want := range []string{"up", "bq", "lq", "lock", "unlock", "sq", "svq", "push", "gen", "completion"} {
		assert.Contains(t, names, want)
	}
}

func TestInitAppFlagsSorted(t *testing.T) {
	app, err := InitApp(context.Background(), []string{"tfback", "sq"})
	require.NoError(t, err)

	for _, cmd := range app.Commands {
		sorted := sort.SliceIsSorted(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
		assert.True(t, sorted, "flags not sorted for %s", cmd.Name)
	}
}

func TestInitAppRootDir(t *testing.T) {
	dir := t.TempDir()

	app, err := InitApp(context.Background(), []string{"tfback", "sq", dir + "::prod"})
	require.NoError(t, err)

	m := GetMeta(app.Commands[0])
	assert.Equal(t, dir, m.RootDir)
	assert.Equal(t, "prod", m.Env)
}

func TestInitAppBadRootDir(t *testing.T) {
	_, err := InitApp(context.Background(), []string{"tfback", "sq", "/no/such/dir/anywhere"})
	assert.Error(t, err)
}

func TestGetMeta(t *testing.T) {
	assert.NotNil(t, GetMeta(nil))
	assert.Empty(t, GetMeta(&cli.Command{}).Args)

	cmd := &cli.Command{Metadata: map[string]any{"meta": "wrong type"}}
	assert.Empty(t, GetMeta(cmd).Args)
}
