// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/tidwall/gjson"

	"github.com/tfback/tfback/internal/log"
)

// Version describes one retained revision of the state object. The bucket's
// versioning keeps every overwrite retrievable by ID, which is what makes
// manual recovery possible.
type Version struct {
	ID      string
	Created time.Time
	Size    int64
	Serial  int64
	Lineage string
}

// Versions lists the retained revisions of the state object, newest first.
// Each body is fetched (through the local cache) to recover the serial and
// lineage recorded in the document. A limit <= 0 means no limit.
func (c *Client) Versions(ctx context.Context, limit int) ([]Version, error) {
	if err := c.purgeCache(); err != nil {
		log.WithError(err).Warnf("failed to purge cache")
	}

	paginator := s3v2.NewListObjectVersionsPaginator(c.s3Client, &s3v2.ListObjectVersionsInput{
		Bucket: awsv2.String(c.bucket),
		Prefix: awsv2.String(c.path),
	})

	var allDeleteMarkers []types.DeleteMarkerEntry
	var allVersions []types.ObjectVersion
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list object versions: %w", err)
		}
		allDeleteMarkers = append(allDeleteMarkers, page.DeleteMarkers...)
		allVersions = append(allVersions, page.Versions...)
	}

	// The prefix is literally a prefix, so lock files and sibling keys come
	// back too; keep only exact matches on the state key.
	var mostRecentDelete time.Time
	for _, d := range allDeleteMarkers {
		if d.Key == nil || *d.Key != c.path {
			if d.Key != nil {
				log.Debugf("throwing away delete marker %s", *d.Key)
			}
			continue
		}
		if d.LastModified != nil && d.LastModified.After(mostRecentDelete) {
			mostRecentDelete = *d.LastModified
		}
	}

	var results []Version
	for _, v := range allVersions {
		if v.Key == nil || *v.Key != c.path {
			if v.Key != nil {
				log.Debugf("throwing away %s", *v.Key)
			}
			continue
		}

		// Revisions older than the most recent delete marker belong to a
		// previous life of this key.
		if v.LastModified != nil && v.LastModified.Before(mostRecentDelete) {
			continue
		}

		if v.VersionId == nil || v.LastModified == nil {
			continue
		}

		body, err := c.StateBody(ctx, *v.VersionId)
		if err != nil {
			log.WithError(err).Errorf("failed to fetch state version %s", *v.VersionId)
			continue
		}

		doc := gjson.ParseBytes(body)
		ver := Version{
			ID:      *v.VersionId,
			Created: *v.LastModified,
			Serial:  doc.Get("serial").Int(),
			Lineage: doc.Get("lineage").String(),
		}
		if v.Size != nil {
			ver.Size = *v.Size
		}
		results = append(results, ver)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Created.After(results[j].Created)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// StateBody fetches the body of a specific state revision by version ID,
// consulting the local cache first. Revisions are immutable, so a cache hit
// never needs revalidation.
func (c *Client) StateBody(ctx context.Context, versionID string) ([]byte, error) {
	if entry, ok := c.cacheReader(versionID); ok {
		return entry.Data, nil
	}

	input := &s3v2.GetObjectInput{
		Bucket: awsv2.String(c.bucket),
		Key:    awsv2.String(c.path),
	}
	if versionID != "" {
		input.VersionId = awsv2.String(versionID)
	}

	result, err := c.s3Client.GetObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}

	if versionID != "" {
		if err := c.cacheWriter(versionID, data); err != nil {
			log.WithError(err).Errorf("error writing to cache")
		}
	}

	return data, nil
}
