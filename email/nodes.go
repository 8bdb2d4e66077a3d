package email

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/mailgraph/mailgraph/graph"
	"github.com/mailgraph/mailgraph/llm"
	"github.com/mailgraph/mailgraph/retrieval"
	"github.com/mailgraph/mailgraph/websearch"
)

const classifyPromptFmt = `Classify the user request below.
Answer with exactly one word: "generate_email" if the user asks you to write, draft, or compose an email, or "other" for anything else.

User request: %s`

const draftPromptFmt = `Write a professional email fulfilling the request below.
Start with a "Subject:" line, then a blank line, then the body.
Keep it concise and actionable.

Request: %s
%s`

// classifyNode asks the LLM whether the request is an email-generation
// request. Essential: a failed classification fails the session.
type classifyNode struct {
	llm llm.Client
}

func (n *classifyNode) Run(ctx context.Context, state State, _ any) graph.NodeResult[State] {
	answer, err := n.llm.Generate(ctx, fmt.Sprintf(classifyPromptFmt, state.UserRequest))
	if err != nil {
		return graph.NodeResult[State]{Err: err}
	}

	if strings.Contains(strings.ToLower(answer), IntentGenerateEmail) {
		return graph.NodeResult[State]{Delta: State{Intent: IntentGenerateEmail}}
	}
	return graph.NodeResult[State]{Delta: State{
		Intent:  IntentOther,
		Outcome: OutcomeNotEmail,
		Result:  "The request is not an email-generation request; nothing was drafted.",
	}}
}

// retrieveNode queries the knowledge base. Optional: a failure degrades to
// no retrieved context, which the post-retrieval router treats as low
// coverage.
type retrieveNode struct {
	retriever retrieval.Retriever
}

func (n *retrieveNode) Run(ctx context.Context, state State, _ any) graph.NodeResult[State] {
	docs, err := n.retriever.Query(ctx, state.UserRequest)
	if err != nil {
		return graph.NodeResult[State]{Err: err}
	}

	citations := make([]string, 0, len(docs))
	for _, doc := range docs {
		citations = append(citations, doc.Source)
	}
	return graph.NodeResult[State]{Delta: State{
		RetrievedContext: docs,
		Citations:        citations,
	}}
}

// searchNode looks up external information. Search failures are absorbed as
// empty results: the draft simply proceeds without external context.
type searchNode struct {
	searcher websearch.Searcher
}

func (n *searchNode) Run(ctx context.Context, state State, _ any) graph.NodeResult[State] {
	if err := ctx.Err(); err != nil {
		return graph.NodeResult[State]{Err: err}
	}
	results, err := n.searcher.Search(ctx, state.UserRequest)
	if err != nil {
		return graph.NodeResult[State]{}
	}
	return graph.NodeResult[State]{Delta: State{ExternalInfo: results}}
}

// draftNode generates the email text from the request plus whatever context
// earlier stages collected. Essential.
type draftNode struct {
	llm llm.Client
}

func (n *draftNode) Run(ctx context.Context, state State, _ any) graph.NodeResult[State] {
	draft, err := n.llm.Generate(ctx, fmt.Sprintf(draftPromptFmt, state.UserRequest, contextBlock(state)))
	if err != nil {
		return graph.NodeResult[State]{Err: err}
	}
	return graph.NodeResult[State]{Delta: State{
		Draft: normalizeDraft(draft, state.UserRequest),
	}}
}

// sendNode finalizes the session with the approved draft, or the reviewed
// draft when no approval round was needed.
type sendNode struct{}

func (n *sendNode) Run(ctx context.Context, state State, _ any) graph.NodeResult[State] {
	if err := ctx.Err(); err != nil {
		return graph.NodeResult[State]{Err: err}
	}
	final := state.ApprovedDraft
	if final == "" {
		final = state.Draft
	}
	if final == "" {
		return graph.NodeResult[State]{Err: fmt.Errorf("no draft to send")}
	}
	return graph.NodeResult[State]{Delta: State{
		Outcome: OutcomeSent,
		Result:  final,
	}}
}

// contextBlock formats retrieved documents and search results for the draft
// prompt. Empty context yields an empty block.
func contextBlock(state State) string {
	var sb strings.Builder
	if len(state.RetrievedContext) > 0 {
		sb.WriteString("\nInternal context:\n")
		for _, doc := range state.RetrievedContext {
			fmt.Fprintf(&sb, "- %s (source: %s)\n", doc.Excerpt, doc.Source)
		}
	}
	if len(state.ExternalInfo) > 0 {
		sb.WriteString("\nExternal information:\n")
		for _, r := range state.ExternalInfo {
			fmt.Fprintf(&sb, "- %s (source: %s)\n", r.Snippet, r.Source)
		}
	}
	return sb.String()
}

// normalizeDraft guarantees the draft opens with a Subject: line, deriving
// one from the request when the model omitted it.
func normalizeDraft(draft, request string) string {
	d := strings.TrimSpace(draft)
	first := d
	if idx := strings.IndexByte(d, '\n'); idx >= 0 {
		first = d[:idx]
	}
	if strings.HasPrefix(strings.ToLower(first), "subject:") {
		return d
	}
	return "Subject: " + deriveSubject(request) + "\n\n" + d
}

// deriveSubject turns the request into a short subject line. Truncation and
// capitalization work on runes so multi-byte requests never produce an
// invalid UTF-8 subject.
func deriveSubject(request string) string {
	subject := strings.TrimSpace(request)
	for _, prefix := range []string{"write an email ", "write email ", "create an email ", "draft an email ", "compose an email "} {
		if rest, ok := cutPrefixFold(subject, prefix); ok {
			subject = rest
			break
		}
	}
	subject = strings.TrimPrefix(subject, "about ")
	subject = strings.TrimSuffix(subject, ".")

	runes := []rune(subject)
	if len(runes) > 60 {
		runes = []rune(strings.TrimSpace(string(runes[:60])))
	}
	if len(runes) == 0 {
		return "Follow-up"
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// cutPrefixFold is strings.CutPrefix with case-insensitive matching.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
