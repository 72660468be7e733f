/*
errors.go - Error types for the ledger engine

ERROR CATEGORIES:
  1. Not-found errors - referenced variant or movement does not exist
  2. State errors - movement already in a terminal state
  3. Validation errors - bad quantity, unknown unit or movement type

Batch operations never surface these directly; they are caught at the
entry boundary and converted into structured failure records. Single-item
operations return them to the caller as-is.
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrVariantNotFound is returned when a movement references a variant
	// that does not exist. Not retryable without a corrected reference.
	ErrVariantNotFound = errors.New("variant not found")

	// ErrMovementNotFound is returned when cancelling a movement id that
	// does not exist.
	ErrMovementNotFound = errors.New("movement not found")

	// ErrAlreadyCancelled is returned when cancelling a movement that is
	// already in the cancelled state. The balance is not touched again.
	ErrAlreadyCancelled = errors.New("movement already cancelled")

	// ErrValidation is the base error for all input validation failures.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing variant or
// movement.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrVariantNotFound) || errors.Is(err, ErrMovementNotFound)
}

// IsClientError returns true if the error is due to invalid client input
// rather than a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrAlreadyCancelled) ||
		IsNotFound(err)
}
