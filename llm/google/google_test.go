package google

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailgraph/mailgraph/llm"
)

type mockGenerator struct {
	calls     int
	closed    bool
	responses []mockResponse
}

type mockResponse struct {
	text string
	err  error
}

func (m *mockGenerator) generate(_ context.Context, _, _ string) (string, error) {
	idx := m.calls
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.calls++
	r := m.responses[idx]
	return r.text, r.err
}

func (m *mockGenerator) close() error {
	m.closed = true
	return nil
}

func newTestClient(inner generator) *Client {
	return &Client{
		model:      DefaultModel,
		inner:      inner,
		maxRetries: 2,
		retryDelay: time.Millisecond,
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.Error(t, err)
}

func TestGenerateSuccess(t *testing.T) {
	mock := &mockGenerator{responses: []mockResponse{{text: "hello"}}}
	c := newTestClient(mock)

	text, err := c.Generate(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestGenerateRetriesResourceExhausted(t *testing.T) {
	mock := &mockGenerator{responses: []mockResponse{
		{err: errors.New("rpc error: code = ResourceExhausted desc = resource_exhausted: quota metric exceeded")},
		{text: "recovered"},
	}}
	c := newTestClient(mock)

	text, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 2, mock.calls)
}

func TestGenerateDoesNotRetryBadKey(t *testing.T) {
	mock := &mockGenerator{responses: []mockResponse{
		{err: errors.New("rpc error: code = PermissionDenied desc = API key not valid (401)")},
	}}
	c := newTestClient(mock)

	_, err := c.Generate(context.Background(), "prompt")

	var genErr *llm.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "invalid_api_key", genErr.Code)
	assert.Equal(t, 1, mock.calls)
}

func TestGenerateExhaustsRetryBudget(t *testing.T) {
	mock := &mockGenerator{responses: []mockResponse{
		{err: errors.New("503 Service Unavailable")},
	}}
	c := newTestClient(mock)

	_, err := c.Generate(context.Background(), "prompt")
	assert.True(t, llm.Retryable(err))
	assert.Equal(t, 3, mock.calls)
}

func TestGenerateHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := &mockGenerator{responses: []mockResponse{{text: "never"}}}
	c := newTestClient(mock)

	_, err := c.Generate(ctx, "prompt")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, mock.calls)
}

func TestClose(t *testing.T) {
	mock := &mockGenerator{responses: []mockResponse{{text: "x"}}}
	c := newTestClient(mock)

	require.NoError(t, c.Close())
	assert.True(t, mock.closed)
}
