// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"github.com/tfback/tfback/internal/cacheutil"
	"github.com/tfback/tfback/internal/config"
)

// The cache is organized by bucket and then by state key; the version ID is
// hashed and used as the filename. Only immutable version bodies are cached.

func (c *Client) cacheReader(versionID string) (*cacheutil.Entry, bool) {
	return cacheutil.Read([]string{c.bucket, c.path}, versionID)
}

func (c *Client) cacheWriter(versionID string, data []byte) error {
	return cacheutil.Write([]string{c.bucket, c.path}, versionID, data)
}

func (c *Client) purgeCache() error {
	cleanHours, _ := config.GetInt("cache.clean")
	return cacheutil.Purge(cleanHours)
}
