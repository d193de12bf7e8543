package models

import (
	"errors"
	"fmt"

	"github.com/anonto42/nano-midea/socialape/internal/store"
)

// Error codes carried by AppError
const (
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeForbidden         = "FORBIDDEN"
	CodeValidation        = "VALIDATION_ERROR"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeBatchChunkFailure = "BATCH_CHUNK_FAILURE"
	CodeInternal          = "INTERNAL_ERROR"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
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

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

func NewStoreUnavailableError(err error) *AppError {
	return &AppError{Code: CodeStoreUnavailable, Message: "store unavailable", Err: err}
}

func NewBatchChunkFailure(err error) *AppError {
	return &AppError{Code: CodeBatchChunkFailure, Message: "batch chunk failed", Err: err}
}

func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "internal error", Err: err}
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound reports a missing document, either as AppError or as a raw store error.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound) || errors.Is(err, store.ErrNotFound)
}

// IsRetryable reports transient failures that are worth delivering again.
func IsRetryable(err error) bool {
	return errors.Is(err, store.ErrUnavailable) || HasCode(err, CodeStoreUnavailable)
}

// FromStore lifts a raw store error into the AppError taxonomy.
func FromStore(err error, resource string, id interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return NewNotFoundError(resource, id)
	case errors.Is(err, store.ErrAlreadyExists):
		return NewConflictError(fmt.Sprintf("%s %v already exists", resource, id))
	case errors.Is(err, store.ErrUnavailable):
		return NewStoreUnavailableError(err)
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return NewInternalError(err)
}
