// Package openai adapts the OpenAI chat completions API to llm.Client.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/mailgraph/mailgraph/llm"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// completer is the narrow slice of the OpenAI SDK the adapter uses.
// Tests substitute a mock implementation.
type completer interface {
	complete(ctx context.Context, model, prompt string) (string, error)
}

// Client calls the OpenAI chat completions API with transient-failure
// retries. It implements llm.Client.
type Client struct {
	model      string
	inner      completer
	maxRetries int
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxRetries sets the retry budget for transient failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// New creates a client backed by the real OpenAI SDK.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	sdk := openai.NewClient(option.WithAPIKey(apiKey))
	c := &Client{
		model:      DefaultModel,
		inner:      &sdkCompleter{client: &sdk},
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate sends the prompt as a single user message and returns the
// completion text. Transient failures are retried with linear backoff;
// rate limits get an extra multiplier per attempt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(attempt)
			if llm.Retryable(lastErr) && isRateLimited(lastErr) {
				delay *= 2
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		text, err := c.inner.complete(ctx, c.model, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = llm.ClassifyError("openai", err)
		if !llm.Retryable(lastErr) {
			return "", lastErr
		}
	}
	return "", lastErr
}

func isRateLimited(err error) bool {
	genErr, ok := err.(*llm.GenerationError)
	return ok && genErr.Code == "rate_limited"
}

type sdkCompleter struct {
	client *openai.Client
}

func (s *sdkCompleter) complete(ctx context.Context, model, prompt string) (string, error) {
	completion, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(prompt),
					},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}
