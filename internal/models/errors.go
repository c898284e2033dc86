package models

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeUploadFailed      = "UPLOAD_FAILED"
	CodeSubmissionFailed  = "SUBMISSION_REJECTED"
	CodeMalformedResponse = "MALFORMED_RESPONSE"
	CodeNotFound          = "NOT_FOUND"
	CodeInternal          = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

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

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewUploadError(err error) *AppError {
	return &AppError{
		Code:    CodeUploadFailed,
		Message: "Failed to upload media file",
		Err:     err,
	}
}

// NewSubmissionError wraps a rejected post submission. message is the
// server-provided text when there is one.
func NewSubmissionError(message string, err error) *AppError {
	if message == "" {
		message = "Unknown error"
	}
	return &AppError{
		Code:    CodeSubmissionFailed,
		Message: message,
		Err:     err,
	}
}

func NewMalformedResponseError(message string) *AppError {
	return &AppError{
		Code:    CodeMalformedResponse,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal error",
		Err:     err,
	}
}

// ErrorCode returns the AppError code found in err's chain, or "".
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// UserMessage returns the text suitable for a notification: the
// AppError message when present, otherwise err's own text.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
