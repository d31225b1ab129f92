// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Import errors.
	ErrUnsupportedFormat = errors.New("unsupported import format")
	ErrNoTransactions    = errors.New("no transactions to import")
)

// ValidationError indicates an import record that cannot be used at all,
// as opposed to a rule that merely fails to match.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a named field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
