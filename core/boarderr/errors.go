// Package boarderr defines the error taxonomy shared by the board engine.
package boarderr

import "fmt"

// ValidationError rejects an operation before any network call is made.
// It is never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError for the given field.
func NewValidation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// MutationFailure wraps an error returned by the external mutation API.
// Local derived state is rolled back before it is surfaced.
type MutationFailure struct {
	Op        string
	BookingID string
	Err       error
}

func (e *MutationFailure) Error() string {
	return fmt.Sprintf("mutation %s for booking %s failed: %v", e.Op, e.BookingID, e.Err)
}

func (e *MutationFailure) Unwrap() error { return e.Err }

// FeedError reports a failed feed subscription or a malformed snapshot. The
// board renders a degraded empty state rather than crashing.
type FeedError struct {
	Scope string
	Err   error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.Scope, e.Err)
}

func (e *FeedError) Unwrap() error { return e.Err }

// UndoFailure reports that restoring a previous assignment failed. The undo
// entry is pushed back so the operator can retry.
type UndoFailure struct {
	BookingID string
	Err       error
}

func (e *UndoFailure) Error() string {
	return fmt.Sprintf("undo for booking %s failed: %v", e.BookingID, e.Err)
}

func (e *UndoFailure) Unwrap() error { return e.Err }
