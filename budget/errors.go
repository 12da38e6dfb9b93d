package budget

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPattern wraps every pattern validation failure.
	ErrInvalidPattern = errors.New("invalid amount pattern")

	// ErrNotFound is returned by stores for a missing budget or line.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when a budget already has a line with
	// the same name.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrInvalidBudget is returned for budgets without a name or country.
	ErrInvalidBudget = errors.New("invalid budget")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// PatternError locates a validation failure inside a line.
type PatternError struct {
	Index  int
	Field  string
	Reason string
	Err    error
}

func (e *PatternError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pattern %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("pattern %d: %s %s", e.Index, e.Field, e.Reason)
}

// Unwrap exposes both ErrInvalidPattern and the underlying rule error.
func (e *PatternError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidPattern, e.Err}
	}
	return []error{ErrInvalidPattern}
}

// NotFoundError names the missing record.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPattern) ||
		errors.Is(err, ErrInvalidBudget) ||
		errors.Is(err, ErrDuplicateName)
}
