// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package differ compares two state documents and renders a human-readable
// delta.
package differ

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// Diff compares two state bodies and writes an ascii-formatted delta to w.
// filterKeys are top-level keys dropped from the rendering (noise like
// check_results). Identical states produce a one-line notice.
func Diff(older, newer []byte, filterKeys []string, colored bool, w io.Writer) error {
	if len(older) == 0 || len(newer) == 0 {
		return nil
	}

	log.Debugf("diffing states: older=%d bytes, newer=%d bytes", len(older), len(newer))

	d := gojsondiff.New()
	delta, err := d.Compare(older, newer)
	if err != nil {
		return fmt.Errorf("failed to compare states: %w", err)
	}

	if !delta.Modified() {
		fmt.Fprintln(w, "The states are identical.")
		return nil
	}

	var jdoc map[string]interface{}
	if err := json.Unmarshal(older, &jdoc); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}

	for _, key := range filterKeys {
		if key != "" {
			delete(jdoc, key)
		}
	}

	f := formatter.NewAsciiFormatter(jdoc, formatter.AsciiFormatterConfig{
		ShowArrayIndex: false,
		Coloring:       colored,
	})
	diffString, err := f.Format(delta)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, diffString)
	return nil
}
