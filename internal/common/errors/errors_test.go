package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	cause := stderrors.New("boom")

	tests := []struct {
		name      string
		err       *StandardError
		code      ErrorCode
		retryable bool
	}{
		{"invalid query", NewInvalidQueryInputError("text too long"), ErrCodeInvalidQueryInput, false},
		{"invalid cart", NewInvalidCartInputError("quantity"), ErrCodeInvalidCartInput, false},
		{"db connection", NewDatabaseConnectionFailedError(cause), ErrCodeDatabaseConnectionFailed, true},
		{"query execution", NewQueryExecutionFailedError("engagement", cause), ErrCodeQueryExecutionFailed, true},
		{"es connection", NewElasticsearchConnectionFailedError(cause), ErrCodeElasticsearchConnectionFailed, true},
		{"search query", NewSearchQueryFailedError("items", cause), ErrCodeSearchQueryFailed, true},
		{"search timeout", NewSearchTimeoutError("items"), ErrCodeSearchTimeout, true},
		{"index not found", NewIndexNotFoundError("items"), ErrCodeIndexNotFound, false},
		{"analytics", NewAnalyticsUnavailableError(cause), ErrCodeAnalyticsUnavailable, false},
		{"cache", NewCacheUnavailableError(cause), ErrCodeCacheUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.False(t, tt.err.Timestamp.IsZero())
			assert.Contains(t, tt.err.Error(), string(tt.code))
		})
	}
}

func TestGetRetryCount(t *testing.T) {
	assert.Equal(t, 3, GetRetryCount(ErrCodeSearchQueryFailed))
	assert.Equal(t, 3, GetRetryCount(ErrCodeCacheUnavailable))
	assert.Equal(t, 2, GetRetryCount(ErrCodeSearchTimeout))
	assert.Equal(t, 0, GetRetryCount(ErrCodeInvalidCartInput))
	assert.Equal(t, 0, GetRetryCount(ErrCodeIndexNotFound))

	assert.True(t, IsRetryableErrorCode(ErrCodeDatabaseConnectionFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidQueryInput))
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("retryable keeps retry budget", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewSearchTimeoutError("items"))
		assert.Equal(t, "SEARCH_TIMEOUT", bpmn.Code)
		assert.Equal(t, 2, bpmn.Retries)
		assert.True(t, bpmn.Retryable)

		vars := bpmn.ToErrorVariables()
		assert.Equal(t, "SEARCH_TIMEOUT", vars["errorCode"])
		assert.Equal(t, "SEARCH_TIMEOUT", vars["originalErrorCode"])
		assert.Contains(t, vars, "timestamp")
	})

	t.Run("non retryable flag zeroes retries", func(t *testing.T) {
		stdErr := NewSearchQueryFailedError("items", stderrors.New("x"))
		stdErr.Retryable = false
		assert.Zero(t, ConvertToBPMNError(stdErr).Retries)
	})

	t.Run("unmapped code passes through", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewTimeoutError("catalog", stderrors.New("slow")))
		assert.Equal(t, "TIMEOUT_ERROR", bpmn.Code)
	})
}

func TestAsStandardError(t *testing.T) {
	wrapped := fmt.Errorf("search: %w", NewIndexNotFoundError("items"))

	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeIndexNotFound, stdErr.Code)

	_, ok = AsStandardError(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidCartInput))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeQueryExecutionFailed))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeIndexNotFound))
	assert.Equal(t, "ANALYTICS", GetErrorCategory(ErrCodeCacheUnavailable))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestWithMetadata(t *testing.T) {
	err := NewInvalidCartInputError("bad").WithMetadata("item", "milk")
	assert.Equal(t, "milk", err.Metadata["item"])
}

type discardLogger struct{ calls int }

func (d *discardLogger) Error(string, map[string]interface{}) { d.calls++ }

func TestErrorHandler_NormalizeError(t *testing.T) {
	h := NewErrorHandler(&discardLogger{})

	stdErr := h.normalizeError(stderrors.New("nil map"))
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.Equal(t, "nil map", stdErr.Details)

	original := NewCacheUnavailableError(stderrors.New("down"))
	assert.Same(t, original, h.normalizeError(fmt.Errorf("wrap: %w", original)))
}
