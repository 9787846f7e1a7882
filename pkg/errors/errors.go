package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates data the store or a caller refused as invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a uniqueness conflict with existing data
	ErrConflict = errors.New("conflict")

	// ErrUnavailable indicates a dependency could not be reached
	ErrUnavailable = errors.New("unavailable")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")
)

// NotFoundError creates a not found error with context
func NotFoundError(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// ConflictError creates a conflict error naming the violated constraint
func ConflictError(constraint string) error {
	if constraint == "" {
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", constraint, ErrConflict)
}

// InvalidInputError creates an invalid input error with context
func InvalidInputError(field, reason string) error {
	return fmt.Errorf("%s: %s: %w", field, reason, ErrInvalidInput)
}

// UnavailableError wraps the cause of a failed dependency call
func UnavailableError(dependency string, cause error) error {
	return fmt.Errorf("%s: %w: %w", dependency, ErrUnavailable, cause)
}

// InternalError creates an internal error with context
func InternalError(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrInternal)
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
