// Package websearch provides external lookup for requests the internal
// knowledge base cannot cover, backed by the DuckDuckGo instant answer API.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Result is one search hit.
type Result struct {
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// Searcher performs a web search. Unavailability of the backend is tolerated
// by callers as empty results.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

const (
	defaultBaseURL    = "https://api.duckduckgo.com"
	defaultMaxResults = 5
	defaultTimeout    = 10 * time.Second
)

// DuckDuckGo queries the instant answer JSON API. It needs no API key.
type DuckDuckGo struct {
	baseURL    string
	httpClient *http.Client
	maxResults int
}

// Option configures a DuckDuckGo client.
type Option func(*DuckDuckGo)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(d *DuckDuckGo) {
		if u != "" {
			d.baseURL = u
		}
	}
}

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *DuckDuckGo) {
		if c != nil {
			d.httpClient = c
		}
	}
}

// WithMaxResults caps the number of results returned per search.
func WithMaxResults(n int) Option {
	return func(d *DuckDuckGo) {
		if n > 0 {
			d.maxResults = n
		}
	}
}

// NewDuckDuckGo creates a client for the instant answer API.
func NewDuckDuckGo(opts ...Option) *DuckDuckGo {
	d := &DuckDuckGo{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxResults: defaultMaxResults,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// instant answer API response, reduced to the fields used here.
type ddgResponse struct {
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Answer        string     `json:"Answer"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

// Search returns instant answer abstracts and related topics for query.
// An empty result list is a normal outcome for queries without an instant
// answer.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
		"no_redirect":   {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("websearch: building request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("websearch: unexpected status %d", resp.StatusCode)
	}

	var body ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("websearch: decoding response: %w", err)
	}

	var results []Result
	if body.AbstractText != "" {
		results = append(results, Result{Snippet: body.AbstractText, Source: body.AbstractURL})
	}
	if body.Answer != "" {
		results = append(results, Result{Snippet: body.Answer, Source: d.baseURL})
	}
	results = appendTopics(results, body.RelatedTopics, d.maxResults)

	if len(results) > d.maxResults {
		results = results[:d.maxResults]
	}
	return results, nil
}

// appendTopics flattens the nested related-topics structure the API returns
// for categorized answers.
func appendTopics(results []Result, topics []ddgTopic, limit int) []Result {
	for _, t := range topics {
		if len(results) >= limit {
			break
		}
		if t.Text != "" {
			results = append(results, Result{Snippet: t.Text, Source: t.FirstURL})
		}
		if len(t.Topics) > 0 {
			results = appendTopics(results, t.Topics, limit)
		}
	}
	return results
}
