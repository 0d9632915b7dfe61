package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
// For idempotency-keyed writes (ledger entries, queue tasks, webhook events) callers must
// treat this as a benign replay, not a failure.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates that a conditional update matched zero rows: the resource was
// concurrently moved out of the expected state (order already matched, task already
// leased, lock already held). Callers should re-read and either no-op or retry.
var ErrConflict = errors.New("resource state conflict")

// ErrExpired indicates that a charge order is past its deadline and can no longer be
// matched or canceled; the caller needs a fresh order.
var ErrExpired = errors.New("resource expired")

// AppError wraps an underlying error with a status code and an operator-facing message.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError wrapping err.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
