// Package anthropic adapts the Anthropic messages API to llm.Client.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mailgraph/mailgraph/llm"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-3-5-sonnet-20241022"

	defaultMaxTokens  = 4096
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// messager is the narrow slice of the Anthropic SDK the adapter uses.
// Tests substitute a mock implementation.
type messager interface {
	message(ctx context.Context, model, prompt string, maxTokens int64) (string, error)
}

// Client calls the Anthropic messages API with transient-failure retries.
// It implements llm.Client.
type Client struct {
	model      string
	maxTokens  int64
	inner      messager
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

// WithMaxTokens caps the response length.
func WithMaxTokens(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
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

// New creates a client backed by the real Anthropic SDK.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	sdk := anthropic.NewClient(option.WithAPIKey(apiKey))
	c := &Client{
		model:      DefaultModel,
		maxTokens:  defaultMaxTokens,
		inner:      &sdkMessager{client: &sdk},
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate sends the prompt as a single user message and returns the
// concatenated text blocks of the response.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		text, err := c.inner.message(ctx, c.model, prompt, c.maxTokens)
		if err == nil {
			return text, nil
		}
		lastErr = llm.ClassifyError("anthropic", err)
		if !llm.Retryable(lastErr) {
			return "", lastErr
		}
	}
	return "", lastErr
}

type sdkMessager struct {
	client *anthropic.Client
}

func (s *sdkMessager) message(ctx context.Context, model, prompt string, maxTokens int64) (string, error) {
	msg, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in response")
	}
	return sb.String(), nil
}
