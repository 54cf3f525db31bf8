// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package remote

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLockInfo(t *testing.T) {
	info, err := NewLockInfo("apply")
	require.NoError(t, err)

	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "apply", info.Operation)
	assert.NotEmpty(t, info.Who)
	assert.WithinDuration(t, time.Now().UTC(), info.Created, time.Minute)

	// IDs must be unique per acquisition.
	other, err := NewLockInfo("apply")
	require.NoError(t, err)
	assert.NotEqual(t, info.ID, other.ID)
}

func TestLockInfoMarshalRoundTrip(t *testing.T) {
	info, err := NewLockInfo("plan")
	require.NoError(t, err)
	info.Path = "some-bucket/terraform.tfstate"

	var decoded LockInfo
	require.NoError(t, json.Unmarshal(info.Marshal(), &decoded))

	assert.Equal(t, info.ID, decoded.ID)
	assert.Equal(t, info.Path, decoded.Path)
	assert.Equal(t, info.Operation, decoded.Operation)
	assert.Equal(t, info.Who, decoded.Who)
}

func TestLockInfoMarshalFieldNames(t *testing.T) {
	// The record is shared with other tooling, so the attribute names are
	// part of the wire contract.
	info := &LockInfo{ID: "x"}

	var raw map[string]any
	require.NoError(t, json.Unmarshal(info.Marshal(), &raw))

	for _, field := range []string{"ID", "Path", "Operation", "Who", "Version", "Created", "Info"} {
		assert.Contains(t, raw, field)
	}
}

func TestLockErrorFormatting(t *testing.T) {
	cause := errors.New("condition failed")
	lockErr := &LockError{
		Info: &LockInfo{
			Path:      "some-bucket/terraform.tfstate",
			Who:       "alice@laptop",
			Operation: "apply",
		},
		Err: cause,
	}

	msg := lockErr.Error()
	assert.Contains(t, msg, "condition failed")
	assert.Contains(t, msg, "alice@laptop")
	assert.True(t, errors.Is(lockErr, cause))
}

func TestLockErrorWithoutInfo(t *testing.T) {
	lockErr := &LockError{Err: errors.New("boom")}
	assert.Equal(t, "boom", lockErr.Error())
}
