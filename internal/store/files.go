package store

import (
	"context"
	"fmt"
)

// RecordFileAssociation stores an operator-created pairing between a
// source and a target media document. Re-recording replaces the
// target side.
func (s *Store) RecordFileAssociation(ctx context.Context, sourceInstanceID, targetInstanceID, sourceDocumentID, targetDocumentID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_associations
		(source_instance_id, target_instance_id, source_document_id, target_document_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_instance_id, target_instance_id, source_document_id) DO UPDATE SET
			target_document_id = excluded.target_document_id
	`, sourceInstanceID, targetInstanceID, sourceDocumentID, targetDocumentID)
	if err != nil {
		return fmt.Errorf("record file association %s: %w", sourceDocumentID, err)
	}
	return nil
}

// FileAssociations returns operator-created media pairings keyed by
// source documentId.
func (s *Store) FileAssociations(ctx context.Context, sourceInstanceID, targetInstanceID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_document_id, target_document_id
		FROM file_associations
		WHERE source_instance_id = ? AND target_instance_id = ?
	`, sourceInstanceID, targetInstanceID)
	if err != nil {
		return nil, fmt.Errorf("read file associations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var src, dst string
		if err := rows.Scan(&src, &dst); err != nil {
			return nil, fmt.Errorf("scan file association: %w", err)
		}
		out[src] = dst
	}
	return out, rows.Err()
}

// ExcludeFile marks a document as never to be proposed for sync.
func (s *Store) ExcludeFile(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_exclusions (document_id) VALUES (?)
		ON CONFLICT(document_id) DO NOTHING
	`, documentID)
	if err != nil {
		return fmt.Errorf("exclude file %s: %w", documentID, err)
	}
	return nil
}

// IncludeFile removes a document from the exclusion list.
func (s *Store) IncludeFile(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM file_exclusions WHERE document_id = ?
	`, documentID)
	if err != nil {
		return fmt.Errorf("include file %s: %w", documentID, err)
	}
	return nil
}

// FileExclusions returns the set of excluded documentIds.
func (s *Store) FileExclusions(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document_id FROM file_exclusions`)
	if err != nil {
		return nil, fmt.Errorf("read file exclusions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan file exclusion: %w", err)
		}
		out[doc] = true
	}
	return out, rows.Err()
}
