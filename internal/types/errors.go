package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. The prefix selects the HTTP status reported back to
// the invoking infrastructure.
const (
	// Configuration (500)
	ErrCodeConfigWebhookMissing ErrorCode = "config_webhook_missing"
	ErrCodeConfigInvalid        ErrorCode = "config_invalid"

	// Validation (400)
	ErrCodeValidationMalformedEnvelope ErrorCode = "validation_malformed_envelope"
	ErrCodeValidationMissingField      ErrorCode = "validation_missing_required_field"

	// Upstream (500)
	ErrCodeUpstreamWebhook ErrorCode = "upstream_webhook_failed"

	// Internal (500)
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to the status code returned to the caller.
// Only malformed or incomplete input is the caller's fault; configuration,
// upstream and internal failures all report 500 because the invoking
// infrastructure only distinguishes success from failure.
func (c ErrorCode) HTTPStatus() int {
	if strings.HasPrefix(string(c), "validation_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// AppError is a relay failure with a stable code, a message safe to return to
// the caller and optional structured details for logs.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// HTTPStatus is shorthand for e.Code.HTTPStatus().
func (e *AppError) HTTPStatus() int { return e.Code.HTTPStatus() }

// NewAppError wraps err (which may be nil) under code.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return NewAppErrorWithDetails(code, message, err, nil)
}

// NewAppErrorWithDetails is NewAppError with structured details attached.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Err: err, Details: details}
}
