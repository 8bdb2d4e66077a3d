// Package retrieval provides knowledge lookup over a seeded document set.
//
// Two implementations back the Retriever contract: a vector retriever using
// Gemini embeddings and a keyword retriever needing no external service. The
// constructor performs the capability check once; callers get whichever works
// and never need to know which one they hold.
package retrieval

import (
	"context"
)

// Document is one retrieved excerpt with its citation metadata.
type Document struct {
	Excerpt string `json:"excerpt"`
	Source  string `json:"source"`
}

// Retriever looks up documents relevant to a request.
//
// An empty result slice is valid degraded output, not an error: callers
// treat low coverage as a routing signal.
type Retriever interface {
	Query(ctx context.Context, text string) ([]Document, error)
}

// NewRetriever builds the best retriever available. With a working Gemini
// API key it returns an embedding-based retriever over docs; otherwise it
// falls back to keyword scoring over the same docs.
func NewRetriever(ctx context.Context, apiKey string, docs []Document) Retriever {
	if apiKey != "" {
		if vr, err := NewVectorRetriever(ctx, apiKey, docs); err == nil {
			return vr
		}
	}
	return NewStaticRetriever(docs)
}

// DefaultDocuments returns the built-in organizational knowledge base used
// by the examples.
func DefaultDocuments() []Document {
	return []Document{
		{
			Excerpt: "Q3 quarterly report highlights: revenue grew 12% quarter over quarter, driven by the enterprise segment. Operating costs were flat. The board asked for a deeper breakdown of churn in the SMB tier.",
			Source:  "reports/q3-quarterly.md",
		},
		{
			Excerpt: "Email style guide: open with the purpose in the first sentence, keep paragraphs under four lines, and close with a clear next step or ask. Avoid internal project codenames with external recipients.",
			Source:  "handbook/email-style.md",
		},
		{
			Excerpt: "Manager communication policy: status updates to your manager should summarize outcomes first, then blockers, then asks. Weekly updates are due Friday by end of day.",
			Source:  "handbook/manager-comms.md",
		},
		{
			Excerpt: "Quarterly report process: drafts circulate to department heads two weeks before the board meeting. Final figures come from the finance dashboard, not ad-hoc spreadsheets.",
			Source:  "handbook/quarterly-process.md",
		},
		{
			Excerpt: "Customer escalation playbook: acknowledge within four business hours, assign an owner, and send a remediation timeline within one business day.",
			Source:  "handbook/escalations.md",
		},
	}
}
