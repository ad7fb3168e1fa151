package store

import (
	"context"
	"fmt"
)

// DocumentMapping is the persisted cross-instance identity of one
// logical record. One row per (target instance, content type, source
// document, locale); rows survive across runs so re-syncs are
// idempotent.
type DocumentMapping struct {
	SourceInstanceID string
	TargetInstanceID string
	ContentType      string
	SourceID         int64
	SourceDocumentID string
	TargetID         int64
	TargetDocumentID string
	Locale           string
}

// UpsertMapping inserts the mapping or updates the target side of an
// existing row. Single read-check-then-write transaction per item; no
// multi-row transactions span items.
func (s *Store) UpsertMapping(ctx context.Context, m DocumentMapping) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_mappings
		(source_instance_id, target_instance_id, content_type, source_id, source_document_id, target_id, target_document_id, locale)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(target_instance_id, content_type, source_document_id, locale) DO UPDATE SET
			source_instance_id = excluded.source_instance_id,
			source_id          = excluded.source_id,
			target_id          = excluded.target_id,
			target_document_id = excluded.target_document_id
	`,
		m.SourceInstanceID,
		m.TargetInstanceID,
		m.ContentType,
		m.SourceID,
		m.SourceDocumentID,
		m.TargetID,
		m.TargetDocumentID,
		m.Locale,
	)
	if err != nil {
		return fmt.Errorf("upsert mapping %s/%s: %w", m.ContentType, m.SourceDocumentID, err)
	}
	return nil
}

// Mapping returns the mapping for one source document, if present.
func (s *Store) Mapping(ctx context.Context, targetInstanceID, contentType, sourceDocumentID, locale string) (DocumentMapping, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT source_instance_id, target_instance_id, content_type, source_id, source_document_id, target_id, target_document_id, locale
		FROM document_mappings
		WHERE target_instance_id = ? AND content_type = ? AND source_document_id = ? AND locale = ?
	`, targetInstanceID, contentType, sourceDocumentID, locale)

	var m DocumentMapping
	err := row.Scan(&m.SourceInstanceID, &m.TargetInstanceID, &m.ContentType,
		&m.SourceID, &m.SourceDocumentID, &m.TargetID, &m.TargetDocumentID, &m.Locale)
	if err != nil {
		if isNoRows(err) {
			return DocumentMapping{}, false, nil
		}
		return DocumentMapping{}, false, fmt.Errorf("read mapping %s/%s: %w", contentType, sourceDocumentID, err)
	}
	return m, true, nil
}

// Mappings returns every mapping toward the target instance for one
// content type, keyed by source documentId. Used by the comparator to
// translate identities before matching.
func (s *Store) Mappings(ctx context.Context, targetInstanceID, contentType string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_document_id, target_document_id
		FROM document_mappings
		WHERE target_instance_id = ? AND content_type = ?
	`, targetInstanceID, contentType)
	if err != nil {
		return nil, fmt.Errorf("read mappings %s: %w", contentType, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var src, dst string
		if err := rows.Scan(&src, &dst); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out[src] = dst
	}
	return out, rows.Err()
}

// AllMappings returns every mapping toward the target instance, keyed
// by (content type, source documentId).
func (s *Store) AllMappings(ctx context.Context, targetInstanceID string) ([]DocumentMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_instance_id, target_instance_id, content_type, source_id, source_document_id, target_id, target_document_id, locale
		FROM document_mappings
		WHERE target_instance_id = ?
		ORDER BY content_type, source_document_id, locale
	`, targetInstanceID)
	if err != nil {
		return nil, fmt.Errorf("read mappings: %w", err)
	}
	defer rows.Close()

	var out []DocumentMapping
	for rows.Next() {
		var m DocumentMapping
		if err := rows.Scan(&m.SourceInstanceID, &m.TargetInstanceID, &m.ContentType,
			&m.SourceID, &m.SourceDocumentID, &m.TargetID, &m.TargetDocumentID, &m.Locale); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMapping removes a mapping row. Used when the mapped target
// document is deleted.
func (s *Store) DeleteMapping(ctx context.Context, targetInstanceID, contentType, sourceDocumentID, locale string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM document_mappings
		WHERE target_instance_id = ? AND content_type = ? AND source_document_id = ? AND locale = ?
	`, targetInstanceID, contentType, sourceDocumentID, locale)
	if err != nil {
		return fmt.Errorf("delete mapping %s/%s: %w", contentType, sourceDocumentID, err)
	}
	return nil
}
