package visualization

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("visualization session not found")
	// ErrPlacementNotFound is returned when an operation targets a product
	// that is not placed in the session's current state.
	ErrPlacementNotFound = errors.New("product is not placed in this session")
	// ErrConflict is returned when a mutation arrives while another mutation
	// on the same session is still in flight. Clients retry after the pending
	// job reaches a terminal status.
	ErrConflict = errors.New("session is busy with another mutation")
)

// ValidationError rejects malformed input before any state changes. The
// offending field is named so clients can surface it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func validationErrorf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
