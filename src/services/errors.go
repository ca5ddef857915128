package services

import (
	"errors"
	"fmt"

	"github.com/livefire2015/ez-society/src/store"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)

// Error carries the kind of failure, the operation and a caller-facing message
type Error struct {
	// Kind is one of ErrValidation, ErrConflict, ErrNotFound or ErrForbidden
	Kind error

	// Op is the operation that failed (e.g. "GenerateBills")
	Op string

	// Message is safe to show to the caller
	Message string

	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func validationError(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func conflictError(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func forbiddenError(op, message string) error {
	return &Error{Kind: ErrForbidden, Op: op, Message: message}
}

// lookupError turns store.ErrNotFound into a NotFound error for the named
// record and wraps everything else.
func lookupError(op, what string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Kind: ErrNotFound, Op: op, Message: what + " not found", Err: err}
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// MessageOf returns the caller-facing message of err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
