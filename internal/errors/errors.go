package errors

import (
	"fmt"
	"net/http"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeValidation = "E100"
	CodeDatabase   = "E200"
	CodeNotFound   = "E404"
	CodeRateLimit  = "E429"
	CodeInternal   = "E500"
)

const (
	MsgUserNotFound        = "User not found"
	MsgInternalServerError = "Internal Server Error"
	MsgRateLimitExceeded   = "Rate limit exceeded"
)

// AppError is an error that knows how it should be presented to API clients.
// Detail is serialized as the "detail" member of the response body.
type AppError struct {
	Code      string
	Message   string
	Status    int
	Detail    any
	Severity  Severity
	Retryable bool
	cause     error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// NewValidationError wraps field-level problems; detail is returned to the client as is.
func NewValidationError(msg string, detail any) *AppError {
	return &AppError{
		Code:      CodeValidation,
		Message:   msg,
		Status:    http.StatusUnprocessableEntity,
		Detail:    detail,
		Severity:  SeverityLow,
		Retryable: false,
		cause:     nil,
	}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{
		Code:      CodeNotFound,
		Message:   msg,
		Status:    http.StatusNotFound,
		Detail:    msg,
		Severity:  SeverityLow,
		Retryable: false,
		cause:     nil,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:      CodeDatabase,
		Message:   fmt.Sprintf("Database error: %s", underlyingMsg),
		Status:    http.StatusInternalServerError,
		Detail:    MsgInternalServerError,
		Severity:  SeverityHigh,
		Retryable: true,
		cause:     cause,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:      CodeRateLimit,
		Message:   fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		Status:    http.StatusTooManyRequests,
		Detail:    MsgRateLimitExceeded,
		Severity:  SeverityLow,
		Retryable: false,
		cause:     nil,
	}
}

func NewInternalError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:      CodeInternal,
		Message:   fmt.Sprintf("Internal error: %s", underlyingMsg),
		Status:    http.StatusInternalServerError,
		Detail:    MsgInternalServerError,
		Severity:  SeverityCritical,
		Retryable: false,
		cause:     cause,
	}
}
