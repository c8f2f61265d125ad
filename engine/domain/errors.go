package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the index, provider, and validation layers.
var (
	// ErrShapeMismatch means the corpus records and embeddings disagree in
	// length or dimension. Detected at build/load time; fatal at startup.
	ErrShapeMismatch = errors.New("corpus shape mismatch")

	// ErrDimensionMismatch means a query vector's dimension differs from the
	// corpus dimension. A configuration error, never a per-query condition.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrServiceUnavailable means the embedding provider exhausted its retry
	// budget. Callers translate it into an empty result set, not a fault.
	ErrServiceUnavailable = errors.New("embedding service unavailable")

	// ErrInvalidRecord means a faculty record failed validation.
	ErrInvalidRecord = errors.New("invalid faculty record")

	// ErrNoUsableText means a record's combined text normalizes to nothing
	// and must be dropped rather than embedded.
	ErrNoUsableText = errors.New("no usable text to embed")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
