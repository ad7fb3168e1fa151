package run

import (
	"context"
	"fmt"
	"sync"

	"github.com/ivseb/strapi-sync-wizard/internal/store"
)

// mappingCache is the in-run write-through view of the document
// mapping table. Successful upserts land here immediately so same-run
// downstream items see them without re-reading the store; every write
// also goes to the durable table.
//
// Writes are serialized by the internal mutex, which is the only
// cross-item coordination batch concurrency would need.
type mappingCache struct {
	mu    sync.Mutex
	byDoc map[mappingKey]store.DocumentMapping

	store            *store.Store
	sourceInstanceID string
	targetInstanceID string
}

type mappingKey struct {
	contentType      string
	sourceDocumentID string
}

// newMappingCache loads the persisted mappings toward the target
// instance. Rows for different locales collapse onto the same key;
// link targets carry no locale and any row answers the translation.
func newMappingCache(ctx context.Context, s *store.Store, sourceInstanceID, targetInstanceID string) (*mappingCache, error) {
	rows, err := s.AllMappings(ctx, targetInstanceID)
	if err != nil {
		return nil, fmt.Errorf("load mappings: %w", err)
	}

	c := &mappingCache{
		byDoc:            make(map[mappingKey]store.DocumentMapping, len(rows)),
		store:            s,
		sourceInstanceID: sourceInstanceID,
		targetInstanceID: targetInstanceID,
	}
	for _, m := range rows {
		c.byDoc[mappingKey{m.ContentType, m.SourceDocumentID}] = m
	}
	return c, nil
}

// Resolve translates a source documentId into the target-side
// documentId. ok=false means unmapped; the caller falls back to the
// source identifier, which is valid when the target reuses source
// identifiers (best effort otherwise).
func (c *mappingCache) Resolve(contentType, sourceDocumentID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.byDoc[mappingKey{contentType, sourceDocumentID}]
	if !ok {
		return "", false
	}
	return m.TargetDocumentID, true
}

// Record persists a mapping and makes it visible to the rest of the
// run. Durable write first; the cache only reflects what the table
// holds.
func (c *mappingCache) Record(ctx context.Context, m store.DocumentMapping) error {
	m.SourceInstanceID = c.sourceInstanceID
	m.TargetInstanceID = c.targetInstanceID

	if err := c.store.UpsertMapping(ctx, m); err != nil {
		return err
	}

	c.mu.Lock()
	c.byDoc[mappingKey{m.ContentType, m.SourceDocumentID}] = m
	c.mu.Unlock()
	return nil
}

// Forget drops a mapping after the mapped target document was
// deleted.
func (c *mappingCache) Forget(ctx context.Context, contentType, sourceDocumentID, locale string) error {
	if err := c.store.DeleteMapping(ctx, c.targetInstanceID, contentType, sourceDocumentID, locale); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.byDoc, mappingKey{contentType, sourceDocumentID})
	c.mu.Unlock()
	return nil
}
