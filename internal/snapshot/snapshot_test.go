package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivseb/strapi-sync-wizard/internal/content"
	"github.com/ivseb/strapi-sync-wizard/internal/schema"
	"github.com/ivseb/strapi-sync-wizard/internal/store"
)

// countingClient serves fixed data and counts full fetches.
type countingClient struct {
	id      string
	fetches int
}

func (c *countingClient) InstanceID() string { return c.id }

func (c *countingClient) ContentTypes(ctx context.Context) ([]schema.ContentType, error) {
	c.fetches++
	return []schema.ContentType{{
		UID:        "api::a.a",
		Kind:       schema.KindCollection,
		Attributes: []schema.Attribute{{Name: "title", Type: "string"}},
	}}, nil
}

func (c *countingClient) Components(ctx context.Context) (map[string]schema.Component, error) {
	return map[string]schema.Component{}, nil
}

func (c *countingClient) Entries(ctx context.Context, ct schema.ContentType) ([]content.Object, error) {
	return []content.Object{{
		"id":         content.Number("1"),
		"documentId": content.String("d1"),
		"title":      content.String("T"),
	}}, nil
}

func (c *countingClient) Files(ctx context.Context) ([]content.Object, error) {
	return nil, nil
}

func (c *countingClient) UpsertEntry(ctx context.Context, contentType, documentID string, payload content.Object) (content.Object, error) {
	return nil, nil
}
func (c *countingClient) DeleteEntry(ctx context.Context, contentType, documentID string) error {
	return nil
}
func (c *countingClient) DownloadFile(ctx context.Context, url string) ([]byte, error) {
	return nil, nil
}
func (c *countingClient) UploadFile(ctx context.Context, meta content.Object, data []byte, folderID int64) (content.Object, error) {
	return nil, nil
}
func (c *countingClient) DeleteFile(ctx context.Context, fileID int64) error { return nil }
func (c *countingClient) EnsureFolder(ctx context.Context, path string) (int64, error) {
	return 0, nil
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadCachesWithinTTL(t *testing.T) {
	s := openTestStore(t)
	f := &Fetcher{Store: s, TTL: time.Hour}
	client := &countingClient{id: "src"}
	ctx := context.Background()

	snap1, err := f.Load(ctx, client, false)
	require.NoError(t, err)
	assert.Equal(t, 1, client.fetches)
	require.Len(t, snap1.ContentTypes, 1)
	require.Len(t, snap1.Entries["api::a.a"], 1)
	assert.Equal(t, content.String("d1"), snap1.Entries["api::a.a"][0]["documentId"])

	// Second load inside the TTL answers from the cache.
	snap2, err := f.Load(ctx, client, false)
	require.NoError(t, err)
	assert.Equal(t, 1, client.fetches)
	assert.Equal(t, snap1.ContentTypes, snap2.ContentTypes)
	assert.Equal(t, snap1.Entries, snap2.Entries)
}

func TestLoadRefreshBypassesCache(t *testing.T) {
	s := openTestStore(t)
	f := &Fetcher{Store: s, TTL: time.Hour}
	client := &countingClient{id: "src"}
	ctx := context.Background()

	_, err := f.Load(ctx, client, false)
	require.NoError(t, err)
	_, err = f.Load(ctx, client, true)
	require.NoError(t, err)
	assert.Equal(t, 2, client.fetches)
}

func TestLoadExpiredTTLRefetches(t *testing.T) {
	s := openTestStore(t)
	client := &countingClient{id: "src"}
	ctx := context.Background()

	f := &Fetcher{Store: s, TTL: time.Second}
	_, err := f.Load(ctx, client, false)
	require.NoError(t, err)

	// created_at has second resolution; outlive the TTL for real.
	time.Sleep(2 * time.Second)
	_, err = f.Load(ctx, client, false)
	require.NoError(t, err)
	assert.Equal(t, 2, client.fetches)
}

func TestSnapshotsPerInstanceKeys(t *testing.T) {
	s := openTestStore(t)
	f := &Fetcher{Store: s, TTL: time.Hour}
	ctx := context.Background()

	src := &countingClient{id: "src"}
	dst := &countingClient{id: "dst"}

	_, err := f.Load(ctx, src, false)
	require.NoError(t, err)
	_, err = f.Load(ctx, dst, false)
	require.NoError(t, err)

	assert.Equal(t, 1, src.fetches)
	assert.Equal(t, 1, dst.fetches, "instances cache independently")
}
