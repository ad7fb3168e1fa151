package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ivseb/strapi-sync-wizard/internal/plan"
)

// SelectionRow is a persisted operator decision plus the outcome of
// the latest execution attempt.
type SelectionRow struct {
	ID                  int64
	MergeRequestID      string
	TableName           string
	DocumentID          string
	Direction           plan.Direction
	SyncSuccess         sql.NullBool
	SyncFailureResponse sql.NullString
}

// ReplaceSelections swaps the full selection set of a merge request in
// one transaction. Outcome columns start NULL (not yet attempted).
func (s *Store) ReplaceSelections(ctx context.Context, mergeRequestID string, selections []plan.Selection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace selections: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM selections WHERE merge_request_id = ?`, mergeRequestID); err != nil {
		return fmt.Errorf("replace selections: clear: %w", err)
	}

	for _, sel := range selections {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO selections (merge_request_id, table_name, document_id, direction)
			VALUES (?, ?, ?, ?)
		`, mergeRequestID, sel.TableName, sel.DocumentID, string(sel.Direction)); err != nil {
			return fmt.Errorf("replace selections: insert %s/%s: %w", sel.TableName, sel.DocumentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace selections: commit: %w", err)
	}
	return nil
}

// Selections returns the selection rows of a merge request in a
// stable order.
func (s *Store) Selections(ctx context.Context, mergeRequestID string) ([]SelectionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, merge_request_id, table_name, document_id, direction, sync_success, sync_failure_response
		FROM selections
		WHERE merge_request_id = ?
		ORDER BY table_name, document_id
	`, mergeRequestID)
	if err != nil {
		return nil, fmt.Errorf("read selections: %w", err)
	}
	defer rows.Close()

	var out []SelectionRow
	for rows.Next() {
		var r SelectionRow
		var direction string
		if err := rows.Scan(&r.ID, &r.MergeRequestID, &r.TableName, &r.DocumentID,
			&direction, &r.SyncSuccess, &r.SyncFailureResponse); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		r.Direction = plan.Direction(direction)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ResetOutcomes clears the outcome columns before a new execution
// attempt so RecordOutcome's write-once guard applies per run.
func (s *Store) ResetOutcomes(ctx context.Context, mergeRequestID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE selections
		SET sync_success = NULL, sync_failure_response = NULL
		WHERE merge_request_id = ?
	`, mergeRequestID)
	if err != nil {
		return fmt.Errorf("reset outcomes: %w", err)
	}
	return nil
}

// ErrOutcomeAlreadyRecorded is returned when a second terminal state
// is written for the same selection within one run.
var ErrOutcomeAlreadyRecorded = errors.New("selection outcome already recorded for this run")

// RecordOutcome writes a selection's terminal state for the run.
// The WHERE guard makes the write one-shot: a selection whose outcome
// is already set is left untouched and the call fails.
func (s *Store) RecordOutcome(ctx context.Context, mergeRequestID, tableName, documentID string, success bool, failureResponse string) error {
	var failure sql.NullString
	if failureResponse != "" {
		failure = sql.NullString{String: failureResponse, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE selections
		SET sync_success = ?, sync_failure_response = ?
		WHERE merge_request_id = ? AND table_name = ? AND document_id = ? AND sync_success IS NULL
	`, success, failure, mergeRequestID, tableName, documentID)
	if err != nil {
		return fmt.Errorf("record outcome %s/%s: %w", tableName, documentID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record outcome %s/%s: rows affected: %w", tableName, documentID, err)
	}
	if n == 0 {
		return fmt.Errorf("record outcome %s/%s: %w", tableName, documentID, ErrOutcomeAlreadyRecorded)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
