package domain

import "errors"

// Dialogue errors. These never abort a turn; they select the reply.
var (
	ErrIncompleteSession   = errors.New("registration is not complete")
	ErrInputMismatch       = errors.New("input does not match the dialogue stage")
	ErrEvidenceUnavailable = errors.New("evidence could not be resolved")
	ErrInvalidAction       = errors.New("invalid action")
)

// Record storage errors.
var (
	ErrRecordNotFound = errors.New("attendance record not found")
	ErrRecordExists   = errors.New("attendance record already exists")
	// ErrStaleHandle means the row behind a handle no longer belongs to the
	// (identity, date) key it was read under.
	ErrStaleHandle    = errors.New("attendance record handle is stale")
	ErrRecordConflict = errors.New("attendance record changed concurrently")
)

var ErrNotificationFailed = errors.New("notification could not be delivered")
