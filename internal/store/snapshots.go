package store

import (
	"context"
	"fmt"
	"time"
)

// PutSnapshot stores (or replaces) a cached intermediate payload —
// comparison results, schema-compatibility results — under a key.
func (s *Store) PutSnapshot(ctx context.Context, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, payload, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload    = excluded.payload,
			created_at = excluded.created_at
	`, key, string(payload), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return nil
}

// GetSnapshot returns the cached payload for a key if it is younger
// than maxAge. A missing or stale entry returns ok=false; callers
// re-fetch and re-put. maxAge <= 0 disables the freshness check.
func (s *Store) GetSnapshot(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool, error) {
	var payload string
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, created_at FROM snapshots WHERE key = ?
	`, key).Scan(&payload, &createdAt)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get snapshot %s: %w", key, err)
	}

	if maxAge > 0 && time.Since(time.Unix(createdAt, 0)) > maxAge {
		return nil, false, nil
	}
	return []byte(payload), true, nil
}

// ClearSnapshots drops every cached snapshot. Explicit invalidation
// for when the operator knows an instance changed under the cache.
func (s *Store) ClearSnapshots(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}
	return nil
}
