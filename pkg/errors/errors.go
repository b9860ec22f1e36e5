package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
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

// Error codes for the reminder engine. MissingEntity and ScheduleMismatch
// indicate data inconsistency and are always surfaced to the user;
// TransientIO may self-resolve; SchedulingFailure and DismissalFailure
// affect only the single item that failed.
const (
	ErrMissingEntity ErrorCode = iota + 1000
	ErrScheduleMismatch
	ErrTransientIO
	ErrSchedulingFailure
	ErrDismissalFailure
	ErrBadRequest
	ErrInternal
)

func NewMissingEntity(entity string, err error) *AppError {
	return &AppError{
		Code:    ErrMissingEntity,
		Message: fmt.Sprintf("%s not found", entity),
		Err:     err,
	}
}

func NewScheduleMismatch(message string, err error) *AppError {
	return &AppError{
		Code:    ErrScheduleMismatch,
		Message: message,
		Err:     err,
	}
}

func NewTransientIO(message string, err error) *AppError {
	return &AppError{
		Code:    ErrTransientIO,
		Message: message,
		Err:     err,
	}
}

func NewSchedulingFailure(message string, err error) *AppError {
	return &AppError{
		Code:    ErrSchedulingFailure,
		Message: message,
		Err:     err,
	}
}

func NewDismissalFailure(message string, err error) *AppError {
	return &AppError{
		Code:    ErrDismissalFailure,
		Message: message,
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal error",
		Err:     err,
	}
}

// CodeOf extracts the engine error code from an error chain.
// Unrecognized errors report ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsTransient reports whether the error is a transient I/O failure.
func IsTransient(err error) bool {
	return CodeOf(err) == ErrTransientIO
}
