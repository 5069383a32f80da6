package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage error")
)

type AppError struct {
	Err     error    // sentinel kind (ErrNotFound, ErrValidation, ...)
	Message string   // Human-readable error message
	Field   string   // Optional: field causing the error
	Details []string // Optional: every validation problem, in order
	Cause   error    // Optional: underlying driver error, never shown to clients
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause so errors.Is matches either.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Details: []string{message},
	}
}

// Invalid collects several validation messages into one error so a caller
// can report every problem in a single round trip.
func Invalid(details []string) *AppError {
	msg := "request validation failed"
	if len(details) == 1 {
		msg = details[0]
	} else if len(details) > 1 {
		msg = fmt.Sprintf("request validation failed: %s", strings.Join(details, "; "))
	}
	return &AppError{
		Err:     ErrValidation,
		Message: msg,
		Details: details,
	}
}

func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists with name %s", resource, key),
		Field:   "name",
	}
}

// Storage wraps a persistence fault. The message stays generic; the cause is
// kept for logs.
func Storage(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: fmt.Sprintf("storage failure while %s", op),
		Cause:   cause,
	}
}

// Details returns the validation messages carried by err, if any.
func Details(err error) []string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}
