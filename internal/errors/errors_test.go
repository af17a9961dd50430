package errors

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
		category ErrorCategory
	}{
		{
			name:     "validation error",
			err:      NewValidationError("partNumber is required"),
			expected: "[VALIDATION_ERROR] partNumber is required",
			category: CategoryValidation,
		},
		{
			name:     "parse failure keeps cause",
			err:      NewParseFailure("bom", fmt.Errorf("bad header")),
			expected: "[PARSE_FAILURE] could not parse bom: bad header",
			category: CategoryParse,
		},
		{
			name:     "timeout",
			err:      NewTimeoutError("generation timed out", nil),
			expected: "[EXTERNAL_TIMEOUT] generation timed out",
			category: CategoryTimeout,
		},
		{
			name:     "cancelled",
			err:      NewCanceledError("caller went away", nil),
			expected: "[REQUEST_CANCELLED] caller went away",
			category: CategoryCanceled,
		},
		{
			name:     "external api",
			err:      NewExternalAPIError("openai", 400, nil),
			expected: "[EXTERNAL_API_ERROR] openai API error",
			category: CategoryExternalAPI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.Equal(t, tt.category, tt.err.Category)
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"timeout", NewTimeoutError("slow", nil), true},
		{"connection", NewNetworkError("refused", nil), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("attempt 2: %w", context.DeadlineExceeded), true},
		{"connection refused text", fmt.Errorf("dial tcp: connection refused"), true},
		{"cancelled", context.Canceled, false},
		{"wrapped cancel", fmt.Errorf("attempt 1: %w", context.Canceled), false},
		{"api error", NewExternalAPIError("openai", 401, nil), false},
		{"validation", NewValidationError("bad"), false},
		{"unknown", fmt.Errorf("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryableError(tt.err))
		})
	}
}

func TestToAppErrorPreservesWrappedAppError(t *testing.T) {
	original := NewExternalAPIError("anthropic", 500, nil)
	wrapped := WrapError(original, "calling %s", "anthropic")

	appErr := ToAppError(wrapped)
	require.NotNil(t, appErr)
	assert.Same(t, original, appErr)
	assert.Nil(t, ToAppError(nil))
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    *AppError
		status int
	}{
		{"validation is 422", NewValidationError("missing field"), http.StatusUnprocessableEntity},
		{"collaborator failure is 200", NewTimeoutError("slow", nil), http.StatusOK},
		{"internal failure is 200", NewInternalError("boom", nil), http.StatusOK},
		{"rate limit is 429", NewRateLimitError("60"), http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/x", nil)

			RespondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}
