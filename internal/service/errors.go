package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyRecordID   = errors.New("record id is empty")
	ErrInvalidPayload  = errors.New("payload is not a valid JSON document")
	ErrRecordNotFound  = errors.New("record not found")
	ErrNotConflicted   = errors.New("record is not conflicted")
	ErrPayloadTooLarge = errors.New("payload too large")

	ErrOrchestratorStopped = errors.New("sync orchestrator is not running")
	ErrTriggerSuppressed   = errors.New("sync trigger suppressed")
	ErrCursorNotAdvancing  = errors.New("pull cursor did not advance")

	ErrInvalidCursor       = errors.New("invalid cursor")
	ErrInvalidPageSize     = errors.New("invalid page size")
	ErrNoOwner             = errors.New("no owner in request context")
	ErrValidationNoRecords = errors.New("no records provided")

	ErrTokenIsExpired          = errors.New("token is expired")
	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")
	ErrTokenCreationFailed     = errors.New("token creation failed")
	ErrVersionIsNotSpecified   = errors.New("app version is not specified")
)

// RejectedError reports a record the remote store refused. The record stays
// Dirty locally; the rejection does not fail the cycle.
type RejectedError struct {
	ID     string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("record %s rejected by remote: %s", e.ID, e.Reason)
}

// ConflictedError reports a remote deletion that met a newer local edit. The
// record is kept Conflicted until the user resolves it.
type ConflictedError struct {
	ID string
}

func (e *ConflictedError) Error() string {
	return fmt.Sprintf("record %s was deleted remotely but edited locally", e.ID)
}
