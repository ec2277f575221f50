package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConstraint indicates that the store rejected a write because of a
	// foreign key, uniqueness, not-null or check constraint.
	ErrConstraint = errors.New("constraint violation")

	// ErrServiceUnavailable indicates that an external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInternalError indicates an internal server error.
	ErrInternalError = errors.New("internal error")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AlreadyExistsError provides details about a duplicate entity.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AlreadyExistsError) Unwrap() error {
	return ErrAlreadyExists
}

// ConstraintKind classifies a store constraint violation.
type ConstraintKind string

const (
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintNotNull    ConstraintKind = "not_null"
	ConstraintCheck      ConstraintKind = "check"
)

// ConstraintError carries a constraint violation reported by the store.
// Message is the raw driver message, which is surfaced to API clients.
type ConstraintError struct {
	Kind       ConstraintKind
	Constraint string
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	return e.Message
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ConstraintError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrConstraint}
	}
	return []error{ErrConstraint, e.Cause}
}

// Hint returns the client-facing hint for this violation.
func (e *ConstraintError) Hint() string {
	return ConstraintHint(e.Message)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(entity, id string) *AlreadyExistsError {
	return &AlreadyExistsError{
		Entity: entity,
		ID:     id,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewConstraintError creates a new ConstraintError.
func NewConstraintError(kind ConstraintKind, constraint, message string, cause error) *ConstraintError {
	return &ConstraintError{
		Kind:       kind,
		Constraint: constraint,
		Message:    message,
		Cause:      cause,
	}
}

// ConstraintHint maps a raw store error message to a user-facing hint.
// It returns an empty string when the message matches no known pattern.
func ConstraintHint(message string) string {
	switch {
	case strings.Contains(message, "foreign key constraint") && strings.Contains(message, "journal"):
		return "The selected journal does not exist. Please create the journal first."
	case strings.Contains(message, "foreign key constraint") && strings.Contains(message, "discipline"):
		return "The selected discipline does not exist. Please select a valid discipline."
	case strings.Contains(message, "foreign key constraint") && strings.Contains(message, "institution"):
		return "The selected institution does not exist. Please create the institution first."
	case strings.Contains(message, "foreign key constraint") && strings.Contains(message, "author"):
		return "The selected author does not exist. Please create the author first."
	case strings.Contains(message, "duplicate key") || strings.Contains(message, "unique constraint"):
		return "An item with this ID already exists. Please use a different ID."
	case strings.Contains(message, "not-null constraint"):
		return "Required fields are missing. Please fill in all required fields."
	default:
		return ""
	}
}
