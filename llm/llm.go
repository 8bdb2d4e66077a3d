// Package llm defines the text-generation contract the workflow nodes
// depend on, plus the error taxonomy shared by the provider adapters.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Client generates text from a prompt.
//
// Workflow nodes depend on this interface only; which provider sits behind
// it is wiring. Implementations live in the llm/openai, llm/anthropic and
// llm/google subpackages.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerationError is the uniform failure type for provider calls.
//
// Retryable distinguishes transient failures (rate limits, server errors,
// network blips) from permanent ones (bad key, exhausted quota). Adapters
// retry transient failures internally; a GenerationError that escapes an
// adapter already survived its retry budget.
type GenerationError struct {
	Provider  string
	Code      string // "rate_limited", "invalid_api_key", "quota_exceeded", "timeout", "server_error", "api_error"
	Message   string
	Retryable bool
	Cause     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// ClassifyError maps a raw provider SDK error onto the shared taxonomy.
//
// Provider SDKs surface HTTP failures as opaque error strings, so
// classification is lexical. Context cancellation passes through untouched
// so callers can match it with errors.Is.
func ClassifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &GenerationError{
			Provider:  provider,
			Code:      "timeout",
			Message:   "request timed out",
			Retryable: true,
			Cause:     err,
		}
	}

	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "invalid api key", "incorrect api key", "401", "403", "unauthorized", "authentication"):
		return &GenerationError{
			Provider:  provider,
			Code:      "invalid_api_key",
			Message:   "API key is invalid or expired",
			Retryable: false,
			Cause:     err,
		}
	case containsAny(msg, "insufficient_quota", "quota exceeded", "billing"):
		return &GenerationError{
			Provider:  provider,
			Code:      "quota_exceeded",
			Message:   "API quota exceeded",
			Retryable: false,
			Cause:     err,
		}
	case containsAny(msg, "rate limit", "rate_limit", "429", "too many requests", "resource_exhausted"):
		return &GenerationError{
			Provider:  provider,
			Code:      "rate_limited",
			Message:   "API rate limit exceeded",
			Retryable: true,
			Cause:     err,
		}
	case containsAny(msg, "500", "502", "503", "504", "internal server error", "bad gateway", "service unavailable", "gateway timeout", "overloaded"):
		return &GenerationError{
			Provider:  provider,
			Code:      "server_error",
			Message:   fmt.Sprintf("provider server error: %v", err),
			Retryable: true,
			Cause:     err,
		}
	case containsAny(msg, "timeout", "deadline", "connection", "network", "temporary"):
		return &GenerationError{
			Provider:  provider,
			Code:      "timeout",
			Message:   fmt.Sprintf("network error: %v", err),
			Retryable: true,
			Cause:     err,
		}
	default:
		return &GenerationError{
			Provider:  provider,
			Code:      "api_error",
			Message:   err.Error(),
			Retryable: false,
			Cause:     err,
		}
	}
}

// Retryable reports whether err is a transient GenerationError.
func Retryable(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Retryable
}

func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
