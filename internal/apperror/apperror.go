// Package apperror defines the error taxonomy shared by every layer.
//
// Each kind of failure has a sentinel error (ErrNotFound, ErrValidation, ...)
// and a constructor that returns an *AppError wrapping it. Callers check the
// kind with errors.Is and pull out the human-readable message with errors.As:
//
//	if errors.Is(err, apperror.ErrNotFound) { ... }
//
// Handlers map the sentinels to HTTP status codes; the CLI maps them to
// exit messages. Neither the stores nor the services know about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("Validation Error")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrPartialMigration   = errors.New("partial migration failure")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: lower-level error (I/O, driver) behind Err
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the underlying cause, so
// errors.Is(err, apperror.ErrBackendUnavailable) and
// errors.Is(err, context.Canceled) both work on the same value.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned when credentials are missing or wrong.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// BackendUnavailable reports an I/O failure in the named backend
// ("local" or "remote"). The repository never retries or falls back to the
// other backend; the caller decides what to show.
func BackendUnavailable(backend string, cause error) *AppError {
	return &AppError{
		Err:     ErrBackendUnavailable,
		Message: fmt.Sprintf("%s backend unavailable", backend),
		Cause:   cause,
	}
}

// PartialMigration summarises a migration in which some records failed.
// It is informational: the migration itself still completed.
func PartialMigration(failed, total int) *AppError {
	return &AppError{
		Err:     ErrPartialMigration,
		Message: fmt.Sprintf("%d of %d snippets failed to migrate", failed, total),
	}
}
