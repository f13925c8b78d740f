// Package apperrors defines the error taxonomy shared by every service.
// All errors are returned to the immediate caller; none are swallowed.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ValidationError marks malformed or missing input. Caller's fault,
// never retried.
type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string { return e.message }

func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{message: fmt.Sprintf(format, args...)}
}

// ConflictError marks a mutation rejected by current state: duplicate
// serial, assignment on an ineligible asset, warehouse transfer from the
// wrong state.
type ConflictError struct {
	message string
}

func (e *ConflictError) Error() string { return e.message }

func NewConflict(format string, args ...any) *ConflictError {
	return &ConflictError{message: fmt.Sprintf(format, args...)}
}

// NotFoundError marks an unknown asset or holder.
type NotFoundError struct {
	message string
}

func (e *NotFoundError) Error() string { return e.message }

func NewNotFound(format string, args ...any) *NotFoundError {
	return &NotFoundError{message: fmt.Sprintf(format, args...)}
}

// InvalidStateError marks a lifecycle transition not permitted from the
// asset's current state.
type InvalidStateError struct {
	message string
}

func (e *InvalidStateError) Error() string { return e.message }

func NewInvalidState(format string, args ...any) *InvalidStateError {
	return &InvalidStateError{message: fmt.Sprintf(format, args...)}
}

// StorageError marks an unavailable or failing store. Surfaced as-is; the
// caller may retry the whole operation, partial application is never
// visible.
type StorageError struct {
	message string
	err     error
}

func (e *StorageError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *StorageError) Unwrap() error { return e.err }

func NewStorage(err error, format string, args ...any) *StorageError {
	return &StorageError{message: fmt.Sprintf(format, args...), err: err}
}

// StatusCode maps the taxonomy to an HTTP status for the transport layer.
func StatusCode(err error) int {
	var (
		validation   *ValidationError
		conflict     *ConflictError
		notFound     *NotFoundError
		invalidState *InvalidStateError
	)
	switch {
	case errors.As(err, &validation):
		return 400
	case errors.As(err, &notFound):
		return 404
	case errors.As(err, &conflict):
		return 409
	case errors.As(err, &invalidState):
		return 422
	default:
		return 500
	}
}

// WrapDBError classifies a database error by postgres error code.
// 23505 (unique violation) becomes a ConflictError, 23503 (foreign key)
// a ValidationError; anything else is a StorageError.
func WrapDBError(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return NewConflict("%s: already exists", message)
		case "23503":
			return NewValidation("%s: referenced record does not exist", message)
		}
	}
	return NewStorage(err, message)
}
