package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeValidationMissingField,
		Message: "missing required fields: pullRequestStatus",
	}

	assert.Equal(t, "validation_missing_required_field: missing required fields: pullRequestStatus", appErr.Error())
}

func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	appErr := NewAppError(ErrCodeUpstreamWebhook, "webhook post failed", underlying)

	assert.Same(t, underlying, appErr.Unwrap())
	assert.ErrorIs(t, appErr, underlying)
	assert.Nil(t, NewAppError(ErrCodeConfigWebhookMissing, "not set", nil).Unwrap())
}

func TestAppErrorErrorsAs(t *testing.T) {
	appErr := NewAppError(ErrCodeValidationMalformedEnvelope, "no records", nil)
	wrapped := fmt.Errorf("handler failed: %w", appErr)

	var target *AppError
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, ErrCodeValidationMalformedEnvelope, target.Code)
}

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeConfigWebhookMissing, http.StatusInternalServerError},
		{ErrCodeConfigInvalid, http.StatusInternalServerError},
		{ErrCodeValidationMalformedEnvelope, http.StatusBadRequest},
		{ErrCodeValidationMissingField, http.StatusBadRequest},
		{ErrCodeUpstreamWebhook, http.StatusInternalServerError},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{ErrorCode("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
			assert.Equal(t, tt.want, (&AppError{Code: tt.code}).HTTPStatus())
		})
	}
}

func TestNewAppErrorWithDetails(t *testing.T) {
	appErr := NewAppErrorWithDetails(ErrCodeUpstreamWebhook, "rejected", nil, map[string]any{"status": 503})

	assert.Equal(t, 503, appErr.Details["status"])
	assert.Nil(t, NewAppError(ErrCodeUpstreamWebhook, "rejected", nil).Details)
}
