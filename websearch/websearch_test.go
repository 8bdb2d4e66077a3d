package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.URL.Query().Get("q"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchAbstractAndTopics(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{
		"AbstractText": "Industry trends overview.",
		"AbstractURL": "https://example.com/trends",
		"RelatedTopics": [
			{"Text": "Trend one", "FirstURL": "https://example.com/1"},
			{"Topics": [{"Text": "Nested trend", "FirstURL": "https://example.com/2"}]}
		]
	}`)

	d := NewDuckDuckGo(WithBaseURL(srv.URL))
	results, err := d.Search(context.Background(), "latest industry trends")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, Result{Snippet: "Industry trends overview.", Source: "https://example.com/trends"}, results[0])
	assert.Equal(t, "Trend one", results[1].Snippet)
	assert.Equal(t, "Nested trend", results[2].Snippet)
}

func TestSearchEmptyAnswerIsNotAnError(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"AbstractText": "", "RelatedTopics": []}`)

	d := NewDuckDuckGo(WithBaseURL(srv.URL))
	results, err := d.Search(context.Background(), "zxqv")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchRespectsMaxResults(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{
		"AbstractText": "abstract",
		"AbstractURL": "https://example.com",
		"RelatedTopics": [
			{"Text": "t1", "FirstURL": "u1"},
			{"Text": "t2", "FirstURL": "u2"},
			{"Text": "t3", "FirstURL": "u3"}
		]
	}`)

	d := NewDuckDuckGo(WithBaseURL(srv.URL), WithMaxResults(2))
	results, err := d.Search(context.Background(), "query")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchServerError(t *testing.T) {
	srv := newTestServer(t, http.StatusInternalServerError, "")

	d := NewDuckDuckGo(WithBaseURL(srv.URL))
	_, err := d.Search(context.Background(), "query")
	assert.Error(t, err)
}

func TestSearchMalformedBody(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, "not json")

	d := NewDuckDuckGo(WithBaseURL(srv.URL))
	_, err := d.Search(context.Background(), "query")
	assert.Error(t, err)
}

func TestSearchContextCancellation(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, "{}")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDuckDuckGo(WithBaseURL(srv.URL))
	_, err := d.Search(ctx, "query")
	assert.ErrorIs(t, err, context.Canceled)
}
