package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantCode      string
		wantRetryable bool
	}{
		{"invalid key", errors.New("Incorrect API key provided: sk-xxx"), "invalid_api_key", false},
		{"http 401", errors.New("API error: 401 Unauthorized"), "invalid_api_key", false},
		{"quota", errors.New("You exceeded your current quota, please check your plan and billing details (insufficient_quota)"), "quota_exceeded", false},
		{"rate limit", errors.New("429: Too Many Requests"), "rate_limited", true},
		{"grpc resource exhausted", errors.New("rpc error: code = ResourceExhausted desc = resource_exhausted"), "rate_limited", true},
		{"server error", errors.New("500 Internal Server Error"), "server_error", true},
		{"overloaded", errors.New("overloaded_error: Overloaded"), "server_error", true},
		{"network", errors.New("dial tcp: connection refused"), "timeout", true},
		{"unknown", errors.New("something unexpected"), "api_error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError("testprov", tt.err)

			var genErr *GenerationError
			require.ErrorAs(t, classified, &genErr)
			assert.Equal(t, "testprov", genErr.Provider)
			assert.Equal(t, tt.wantCode, genErr.Code)
			assert.Equal(t, tt.wantRetryable, genErr.Retryable)
			assert.ErrorIs(t, classified, tt.err, "cause should unwrap")
		})
	}
}

func TestClassifyErrorNil(t *testing.T) {
	assert.NoError(t, ClassifyError("testprov", nil))
}

func TestClassifyErrorContextPassthrough(t *testing.T) {
	classified := ClassifyError("testprov", context.Canceled)
	assert.ErrorIs(t, classified, context.Canceled)

	var genErr *GenerationError
	assert.False(t, errors.As(classified, &genErr), "cancellation should not be wrapped")

	classified = ClassifyError("testprov", fmt.Errorf("call: %w", context.DeadlineExceeded))
	require.ErrorAs(t, classified, &genErr)
	assert.Equal(t, "timeout", genErr.Code)
	assert.True(t, genErr.Retryable)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(&GenerationError{Retryable: true}))
	assert.False(t, Retryable(&GenerationError{Retryable: false}))
	assert.False(t, Retryable(errors.New("plain")))
	assert.False(t, Retryable(nil))

	wrapped := fmt.Errorf("stage draft: %w", &GenerationError{Retryable: true})
	assert.True(t, Retryable(wrapped))
}

func TestGenerationErrorMessage(t *testing.T) {
	err := &GenerationError{Provider: "openai", Code: "rate_limited", Message: "API rate limit exceeded"}
	assert.Equal(t, "openai: rate_limited: API rate limit exceeded", err.Error())
}
