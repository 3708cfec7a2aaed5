package analysis

import (
	"errors"
	"fmt"
)

// CheckExecutionError reports a check that failed. The whole pass is
// aborted and nothing is persisted.
type CheckExecutionError struct {
	// Check is the registered name of the failing check.
	Check string

	// DocumentID identifies the analyzed document.
	DocumentID string

	// Err is the error returned by the check.
	Err error
}

// Error implements the error interface.
func (e *CheckExecutionError) Error() string {
	return fmt.Sprintf("check %q failed on %s: %v", e.Check, e.DocumentID, e.Err)
}

// Unwrap returns the check's error.
func (e *CheckExecutionError) Unwrap() error { return e.Err }

// PersistenceError reports a failed save after a real change was computed.
// It is never retried here.
type PersistenceError struct {
	DocumentID string

	// Version is the version the save was based on.
	Version int64

	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("save %s (version %d): %v", e.DocumentID, e.Version, e.Err)
}

// Unwrap returns the storage error.
func (e *PersistenceError) Unwrap() error { return e.Err }

// AnalysisError wraps a CheckExecutionError or PersistenceError with the
// identity of the analyzed document.
type AnalysisError struct {
	DocumentID string
	Err        error
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyze %s: %v", e.DocumentID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AnalysisError) Unwrap() error { return e.Err }

// IsCheckExecutionError returns true if a check failure is in err's chain.
// Uses errors.As to handle wrapped errors.
func IsCheckExecutionError(err error) bool {
	var ce *CheckExecutionError
	return errors.As(err, &ce)
}

// IsPersistenceError returns true if a save failure is in err's chain.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsAnalysisError returns true if err is, or wraps, an AnalysisError.
func IsAnalysisError(err error) bool {
	var ae *AnalysisError
	return errors.As(err, &ae)
}
