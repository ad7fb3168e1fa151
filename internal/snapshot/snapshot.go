// Package snapshot caches a full instance fetch (schemas, entries,
// media records) in the store with a TTL, so repeated compare and plan
// invocations do not refetch unchanged instances.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ivseb/strapi-sync-wizard/internal/content"
	"github.com/ivseb/strapi-sync-wizard/internal/schema"
	"github.com/ivseb/strapi-sync-wizard/internal/store"
	"github.com/ivseb/strapi-sync-wizard/internal/strapi"
)

// Snapshot is everything the comparator needs from one instance,
// fetched at a single point in time.
type Snapshot struct {
	InstanceID   string                      `json:"instanceId"`
	ContentTypes []schema.ContentType        `json:"contentTypes"`
	Components   map[string]schema.Component `json:"components"`
	Entries      map[string][]content.Object `json:"entries"` // keyed by content type uid
	Files        []content.Object            `json:"files"`
	TakenAt      time.Time                   `json:"takenAt"`
}

// ContentType returns the snapshot's schema for a uid.
func (s *Snapshot) ContentType(uid string) (schema.ContentType, bool) {
	for _, ct := range s.ContentTypes {
		if ct.UID == uid {
			return ct, true
		}
	}
	return schema.ContentType{}, false
}

// Fetcher loads snapshots through the store cache.
type Fetcher struct {
	Store *store.Store
	TTL   time.Duration
}

// Load returns the instance snapshot, from cache when fresh enough.
// refresh forces a fetch regardless of cache state.
func (f *Fetcher) Load(ctx context.Context, client strapi.Client, refresh bool) (*Snapshot, error) {
	key := cacheKey(client.InstanceID())

	if !refresh {
		if payload, ok, err := f.Store.GetSnapshot(ctx, key, f.TTL); err != nil {
			return nil, err
		} else if ok {
			var snap Snapshot
			if err := json.Unmarshal(payload, &snap); err == nil {
				slog.Debug("snapshot cache hit", "instance", client.InstanceID(), "taken_at", snap.TakenAt)
				return &snap, nil
			}
			// A payload that no longer decodes is treated as stale.
			slog.Warn("snapshot cache entry unreadable, refetching", "instance", client.InstanceID())
		}
	}

	snap, err := fetch(ctx, client)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %s: %w", client.InstanceID(), err)
	}
	if err := f.Store.PutSnapshot(ctx, key, payload); err != nil {
		return nil, err
	}
	return snap, nil
}

func fetch(ctx context.Context, client strapi.Client) (*Snapshot, error) {
	id := client.InstanceID()
	slog.Info("fetching instance snapshot", "instance", id)

	contentTypes, err := client.ContentTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch content types from %s: %w", id, err)
	}
	components, err := client.Components(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch components from %s: %w", id, err)
	}

	entries := make(map[string][]content.Object, len(contentTypes))
	for _, ct := range contentTypes {
		recs, err := client.Entries(ctx, ct)
		if err != nil {
			return nil, fmt.Errorf("fetch entries of %s from %s: %w", ct.UID, id, err)
		}
		entries[ct.UID] = recs
	}

	files, err := client.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch files from %s: %w", id, err)
	}

	return &Snapshot{
		InstanceID:   id,
		ContentTypes: contentTypes,
		Components:   components,
		Entries:      entries,
		Files:        files,
		TakenAt:      time.Now().UTC(),
	}, nil
}

func cacheKey(instanceID string) string {
	return "instance/" + instanceID
}
