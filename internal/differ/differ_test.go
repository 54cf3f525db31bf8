// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package differ

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffIdenticalStates(t *testing.T) {
	var buf bytes.Buffer
	state := []byte(`{"serial":1,"lineage":"abc"}`)

	require.NoError(t, Diff(state, state, nil, false, &buf))
	assert.Contains(t, buf.String(), "identical")
}

func TestDiffChangedSerial(t *testing.T) {
	var buf bytes.Buffer
	older := []byte(`{"serial":1,"lineage":"abc"}`)
	newer := []byte(`{"serial":2,"lineage":"abc"}`)

	require.NoError(t, Diff(older, newer, nil, false, &buf))
	assert.Contains(t, buf.String(), "serial")
}

func TestDiffFilterKeys(t *testing.T) {
	var buf bytes.Buffer
	older := []byte(`{"serial":1,"check_results":[1]}`)
	newer := []byte(`{"serial":2,"check_results":[2]}`)

	require.NoError(t, Diff(older, newer, []string{"check_results"}, false, &buf))
	assert.Contains(t, buf.String(), "serial")
}

func TestDiffEmptyInput(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Diff(nil, []byte(`{}`), nil, false, &buf))
	assert.Empty(t, buf.String())
}

func TestDiffMalformedState(t *testing.T) {
	err := Diff([]byte("not json"), []byte(`{}`), nil, false, &bytes.Buffer{})
	assert.Error(t, err)
}
