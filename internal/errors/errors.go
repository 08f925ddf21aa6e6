package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"gobfda/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context. Errors that are not yet an
// AppError get the code their domain sentinel maps to.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    CodeFor(err),
		Message: message,
		Cause:   err,
	}
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr == err {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// GetCode returns the code of the outermost AppError in the chain, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid       = "CONFIG_INVALID"
	CodeAnalysisRange       = "ANALYSIS_RANGE"
	CodeNumeric             = "NUMERIC_ERROR"
	CodeAmbiguousHypothesis = "AMBIGUOUS_HYPOTHESIS"
	CodeTargetNotReached    = "TARGET_NOT_REACHED"
	CodeNotFound            = "NOT_FOUND"
	CodeStorage             = "STORAGE_ERROR"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInternalError       = "INTERNAL_ERROR"
)

// CodeFor maps an error to its code: an AppError keeps its own code, domain
// sentinels map to their codes and everything else is internal.
func CodeFor(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case err == nil:
		return ""
	case core.IsConfigError(err):
		return CodeConfigInvalid
	case core.IsRangeError(err):
		return CodeAnalysisRange
	case stderrors.Is(err, core.ErrAmbiguousHypothesis):
		return CodeAmbiguousHypothesis
	case stderrors.Is(err, core.ErrTargetNotReached):
		return CodeTargetNotReached
	case core.IsNotFoundError(err):
		return CodeNotFound
	case core.IsNumericError(err):
		return CodeNumeric
	default:
		return CodeInternalError
	}
}

// HTTPStatus maps an error code to the status the API answers with
func HTTPStatus(code string) int {
	switch code {
	case CodeConfigInvalid, CodeAnalysisRange, CodeAmbiguousHypothesis, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeTargetNotReached:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func StorageError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeStorage,
		Message: message,
		Cause:   cause,
	}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
