// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"strings"
	"time"

	uuid "github.com/hashicorp/go-uuid"

	"github.com/tfback/tfback/internal/version"
)

// LockInfo stores metadata for locks taken on a state object. Field names
// are marshaled as-is so the record is readable by the provisioning client
// and vice versa.
type LockInfo struct {
	ID        string    // unique lock ID
	Path      string    // bucket/key identity of the locked state object
	Operation string    // operation the holder is performing
	Who       string    // user@hostname when available
	Version   string    // tfback version that took the lock
	Created   time.Time // the time the lock was taken
	Info      string    // extra info field
}

// NewLockInfo returns a LockInfo for the given operation with a fresh ID,
// the current user@host, and the current UTC time.
func NewLockInfo(operation string) (*LockInfo, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate lock id: %w", err)
	}

	who := "unknown"
	if u, err := user.Current(); err == nil {
		who = u.Username
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		who = who + "@" + host
	}

	return &LockInfo{
		ID:        id,
		Operation: operation,
		Who:       who,
		Version:   version.Version,
		Created:   time.Now().UTC(),
	}, nil
}

// Marshal returns the canonical JSON form stored in the lock record's Info
// attribute.
func (l *LockInfo) Marshal() []byte {
	js, err := json.Marshal(l)
	if err != nil {
		panic(err)
	}
	return js
}

// Err returns the lock info formatted in an error.
func (l *LockInfo) Err() error {
	return fmt.Errorf("state locked. path:%q, holder:%q, created:%s, operation:%q",
		l.Path, l.Who, l.Created, l.Operation)
}

func (l *LockInfo) String() string {
	return string(l.Marshal())
}

// LockError is returned by Lock and Unlock when the lock record stands in
// the way. Info carries the current holder when it could be read.
type LockError struct {
	Info *LockInfo
	Err  error
}

func (e *LockError) Error() string {
	var out []string
	if e.Err != nil {
		out = append(out, e.Err.Error())
	}

	if e.Info != nil {
		out = append(out, e.Info.Err().Error())
	}
	return strings.Join(out, "\n")
}

func (e *LockError) Unwrap() error {
	return e.Err
}
