// Package fault defines the error classes shared across the ordering core.
// Callers classify with errors.Is against the sentinels; constructors wrap
// an underlying cause so the chain stays inspectable.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad input caught before any store interaction.
	ErrValidation = errors.New("validation failed")

	// ErrPermission marks an operation the store rejected for the
	// current identity.
	ErrPermission = errors.New("permission denied")

	// ErrNotFound marks a referenced document that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks transient connectivity loss; cached state
	// remains valid and the caller should surface an offline indicator.
	ErrUnavailable = errors.New("store unavailable")

	// ErrConflict marks a concurrent writer winning a precondition race,
	// e.g. a status transition whose expected current status no longer
	// holds.
	ErrConflict = errors.New("concurrent modification")
)

func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

func Permission(op string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrPermission, op, cause)
}

func Unavailable(op string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, cause)
}

func Conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
