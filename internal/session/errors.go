package session

import (
	"errors"
	"fmt"
)

// ValidationError indicates a submission failed local validation. It is
// surfaced synchronously, before any network call, with no state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PermissionError indicates a mutation was rejected by the authorization
// guard before any network call was issued.
type PermissionError struct {
	TaskID    string
	Requester string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("identity %q is not the creator of task %s and may not delete it", e.Requester, e.TaskID)
}

// PersistenceError indicates a store mutation failed. The optimistic board
// state for the failed mutation is reverted by the caller that applied it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// SubscriptionError indicates trouble on the change feed: a dropped
// connection, a failed resubscribe attempt, or a malformed event.
// Subscription errors are reported and never fatal to the session.
type SubscriptionError struct {
	Err error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("change feed error: %v", e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPermissionError checks if an error is a PermissionError.
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsPersistenceError checks if an error is a PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
