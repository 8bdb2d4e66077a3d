// Package google adapts the Gemini API to llm.Client.
package google

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/mailgraph/mailgraph/llm"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-1.5-flash"

	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// generator is the narrow slice of the Gemini SDK the adapter uses.
// Tests substitute a mock implementation.
type generator interface {
	generate(ctx context.Context, model, prompt string) (string, error)
	close() error
}

// Client calls the Gemini API with transient-failure retries.
// It implements llm.Client. Callers own the Close lifecycle because the
// underlying SDK holds a gRPC connection.
type Client struct {
	model      string
	inner      generator
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

// New creates a client backed by the real Gemini SDK.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google: API key is required")
	}
	sdk, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("google: creating client: %w", err)
	}
	c := &Client{
		model:      DefaultModel,
		inner:      &sdkGenerator{client: sdk},
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate sends the prompt and returns the concatenated text parts of
// the first candidate.
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

		text, err := c.inner.generate(ctx, c.model, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = llm.ClassifyError("google", err)
		if !llm.Retryable(lastErr) {
			return "", lastErr
		}
	}
	return "", lastErr
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.inner.close()
}

type sdkGenerator struct {
	client *genai.Client
}

func (s *sdkGenerator) generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := s.client.GenerativeModel(model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in response")
	}
	return sb.String(), nil
}

func (s *sdkGenerator) close() error {
	return s.client.Close()
}
