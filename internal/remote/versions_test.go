// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package remote

import (
	"context"
	"testing"
	"time"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfback/tfback/internal/backend"
)

const stateKey = "env/app/terraform.tfstate"

func TestVersionsFiltersAndSorts(t *testing.T) {
	c, s3f, _ := newTestClient(t)
	ctx := context.Background()

	now := time.Now().UTC()

	s3f.versionBodies = map[string][]byte{
		"v-old": []byte(`{"serial":1,"lineage":"first-life"}`),
		"v-mid": []byte(`{"serial":5,"lineage":"abc"}`),
		"v-new": []byte(`{"serial":6,"lineage":"abc"}`),
	}
	// Listed out of order, with a sibling key the prefix listing also matches.
	s3f.listVersions = []types.ObjectVersion{
		{Key: awsv2.String(stateKey), VersionId: awsv2.String("v-mid"), LastModified: awsv2.Time(now.Add(-1 * time.Hour)), Size: awsv2.Int64(120)},
		{Key: awsv2.String(stateKey + ".backup"), VersionId: awsv2.String("v-sibling"), LastModified: awsv2.Time(now)},
		{Key: awsv2.String(stateKey), VersionId: awsv2.String("v-old"), LastModified: awsv2.Time(now.Add(-72 * time.Hour)), Size: awsv2.Int64(80)},
		{Key: awsv2.String(stateKey), VersionId: awsv2.String("v-new"), LastModified: awsv2.Time(now), Size: awsv2.Int64(130)},
	}
	// The key was deleted and recreated; revisions older than the marker
	// belong to its previous life and must not be listed.
	s3f.deleteMarkers = []types.DeleteMarkerEntry{
		{Key: awsv2.String(stateKey), LastModified: awsv2.Time(now.Add(-24 * time.Hour))},
		{Key: awsv2.String(stateKey + ".backup"), LastModified: awsv2.Time(now)},
	}

	versions, err := c.Versions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, versions, 2)

	// Newest first, with the serial and lineage recovered from each body.
	assert.Equal(t, "v-new", versions[0].ID)
	assert.Equal(t, int64(6), versions[0].Serial)
	assert.Equal(t, "abc", versions[0].Lineage)
	assert.Equal(t, int64(130), versions[0].Size)

	assert.Equal(t, "v-mid", versions[1].ID)
	assert.Equal(t, int64(5), versions[1].Serial)
	assert.Equal(t, int64(120), versions[1].Size)
}

func TestVersionsLimit(t *testing.T) {
	c, s3f, _ := newTestClient(t)
	ctx := context.Background()

	now := time.Now().UTC()

	s3f.versionBodies = map[string][]byte{
		"v-1": []byte(`{"serial":1,"lineage":"abc"}`),
		"v-2": []byte(`{"serial":2,"lineage":"abc"}`),
		"v-3": []byte(`{"serial":3,"lineage":"abc"}`),
	}
	s3f.listVersions = []types.ObjectVersion{
		{Key: awsv2.String(stateKey), VersionId: awsv2.String("v-1"), LastModified: awsv2.Time(now.Add(-2 * time.Hour))},
		{Key: awsv2.String(stateKey), VersionId: awsv2.String("v-2"), LastModified: awsv2.Time(now.Add(-1 * time.Hour))},
		{Key: awsv2.String(stateKey), VersionId: awsv2.String("v-3"), LastModified: awsv2.Time(now)},
	}

	versions, err := c.Versions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "v-3", versions[0].ID)
	assert.Equal(t, "v-2", versions[1].ID)
}

func TestVersionsEmpty(t *testing.T) {
	c, _, _ := newTestClient(t)

	versions, err := c.Versions(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestStateBodyByVersionID(t *testing.T) {
	c, s3f, _ := newTestClient(t)
	ctx := context.Background()

	s3f.objects[stateKey] = []byte(`{"serial":9}`)
	s3f.versionBodies["v-7"] = []byte(`{"serial":7}`)

	// A prior revision stays retrievable by its version ID even after the
	// current object has moved on.
	body, err := c.StateBody(ctx, "v-7")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"serial":7}`), body)

	// An empty version ID means the current revision.
	body, err = c.StateBody(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"serial":9}`), body)
}

func TestStateBodyCachesImmutableRevisions(t *testing.T) {
	t.Setenv("TFBACK_CACHE", "1")
	t.Setenv("TFBACK_CACHE_DIR", t.TempDir())

	s3f := newFakeS3()
	c := NewClientWithAPIs(s3f, newFakeDynamo(), &backend.Backend{
		Pointer: backend.Pointer{
			Bucket: "some-bucket",
			Key:    stateKey,
			Table:  "some-locks",
		},
	})
	ctx := context.Background()

	want := []byte(`{"serial":4,"lineage":"abc"}`)
	s3f.versionBodies["v-4"] = want

	body, err := c.StateBody(ctx, "v-4")
	require.NoError(t, err)
	require.Equal(t, want, body)

	// Revisions are immutable, so the second read must come from the cache.
	delete(s3f.versionBodies, "v-4")

	body, err = c.StateBody(ctx, "v-4")
	require.NoError(t, err)
	assert.Equal(t, want, body)
}
