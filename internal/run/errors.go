package run

import (
	"errors"
	"fmt"
)

// SyncError represents an error detected while preparing or executing
// a sync run. Includes structured fields for diagnostics; per-item
// errors are recorded on the selection row, never abort the run.
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// Message is a human-readable description.
	Message string

	// ItemKey identifies the affected item ("table/documentId").
	ItemKey string

	// DependencyKey identifies the failed dependency for
	// DEPENDENCY_SKIPPED errors.
	DependencyKey string
}

// SyncErrorCode categorizes sync errors.
type SyncErrorCode string

const (
	// ErrCodeSchemaIncompatible is a precondition failure surfaced
	// before any sync attempt.
	ErrCodeSchemaIncompatible SyncErrorCode = "SCHEMA_INCOMPATIBLE"

	// ErrCodeUpstreamRequestFailed is a non-2xx or transport error
	// from either instance.
	ErrCodeUpstreamRequestFailed SyncErrorCode = "UPSTREAM_REQUEST_FAILED"

	// ErrCodeMissingDependency indicates a link target that was never
	// selected or resolvable. Non-fatal; the relation is omitted.
	ErrCodeMissingDependency SyncErrorCode = "MISSING_DEPENDENCY"

	// ErrCodeDependencySkipped indicates an item not attempted because
	// a same-run dependency failed.
	ErrCodeDependencySkipped SyncErrorCode = "DEPENDENCY_SKIPPED"

	// ErrCodeMappingNotFound indicates a relation that could not be
	// translated; the source identifier was used as best effort.
	ErrCodeMappingNotFound SyncErrorCode = "MAPPING_NOT_FOUND"

	// ErrCodeFolderCreationFailed is best-effort; the dependent file
	// syncs without its folder.
	ErrCodeFolderCreationFailed SyncErrorCode = "FOLDER_CREATION_FAILED"

	// ErrCodeRunInProgress rejects a concurrent execution for the
	// same merge request.
	ErrCodeRunInProgress SyncErrorCode = "RUN_IN_PROGRESS"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.ItemKey != "" {
		return fmt.Sprintf("%s: %s (item=%s)", e.Code, e.Message, e.ItemKey)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRunInProgress returns true if the error is a concurrent-run
// rejection. Uses errors.As to handle wrapped errors.
func IsRunInProgress(err error) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == ErrCodeRunInProgress
	}
	return false
}

// NewDependencySkippedError creates the error recorded on an item that
// was never attempted because a dependency failed earlier in the run.
func NewDependencySkippedError(itemKey, dependencyKey string) *SyncError {
	return &SyncError{
		Code:          ErrCodeDependencySkipped,
		Message:       fmt.Sprintf("not attempted: dependency %s failed", dependencyKey),
		ItemKey:       itemKey,
		DependencyKey: dependencyKey,
	}
}

// NewRunInProgressError creates the rejection for a second concurrent
// execution of the same merge request.
func NewRunInProgressError(mergeRequestID string) *SyncError {
	return &SyncError{
		Code:    ErrCodeRunInProgress,
		Message: fmt.Sprintf("an execution is already in flight for merge request %s", mergeRequestID),
	}
}
