package email

import (
	"fmt"

	"go.jetify.com/typeid"

	"github.com/mailgraph/mailgraph/graph"
	"github.com/mailgraph/mailgraph/llm"
	"github.com/mailgraph/mailgraph/retrieval"
	"github.com/mailgraph/mailgraph/websearch"
)

// Deps are the external collaborators the workflow stages call.
type Deps struct {
	LLM       llm.Client
	Retriever retrieval.Retriever
	Searcher  websearch.Searcher
}

func (d Deps) validate() error {
	if d.LLM == nil {
		return fmt.Errorf("email: LLM client is required")
	}
	if d.Retriever == nil {
		return fmt.Errorf("email: retriever is required")
	}
	if d.Searcher == nil {
		return fmt.Errorf("email: searcher is required")
	}
	return nil
}

// Build assembles the validated email workflow graph.
//
// Topology:
//
//	classify ──► retrieval | End
//	retrieval ──► external_search | draft
//	external_search ──► draft
//	draft ──► safety
//	safety ──► human_approval | send
//	human_approval ──► send | safety | End
//	send ──► End
func Build(deps Deps, policy Policy) (*graph.Graph[State], error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if err := policy.validate(); err != nil {
		return nil, err
	}

	b := graph.NewBuilder[State]()
	b.AddNode(NodeClassify, &classifyNode{llm: deps.LLM})
	b.AddNode(NodeRetrieve, &retrieveNode{retriever: deps.Retriever}, graph.Optional())
	b.AddNode(NodeSearch, &searchNode{searcher: deps.Searcher}, graph.Optional())
	b.AddNode(NodeDraft, &draftNode{llm: deps.LLM})
	b.AddNode(NodeSafety, &safetyNode{llm: deps.LLM})
	b.AddNode(NodeApproval, &approvalNode{})
	b.AddNode(NodeSend, &sendNode{})

	b.SetEntry(NodeClassify)
	b.AddRouter(NodeClassify, routeAfterClassify, NodeRetrieve, graph.End)
	b.AddRouter(NodeRetrieve, routeAfterRetrieval(policy), NodeSearch, NodeDraft)
	b.AddEdge(NodeSearch, NodeDraft)
	b.AddEdge(NodeDraft, NodeSafety)
	b.AddRouter(NodeSafety, routeAfterSafety(policy), NodeApproval, NodeSend)
	b.AddRouter(NodeApproval, routeAfterApproval, NodeSend, NodeSafety, graph.End)
	b.AddEdge(NodeSend, graph.End)

	return b.Build()
}

// routeAfterClassify ends sessions that are not email-generation requests.
func routeAfterClassify(state State) string {
	if state.Intent == IntentGenerateEmail {
		return NodeRetrieve
	}
	return graph.End
}

// routeAfterRetrieval sends the session through web search when internal
// coverage is empty or the request wording asks for fresh information.
func routeAfterRetrieval(policy Policy) graph.Router[State] {
	return func(state State) string {
		if len(state.RetrievedContext) == 0 || policy.hasRecencyCue(state.UserRequest) {
			return NodeSearch
		}
		return NodeDraft
	}
}

// routeAfterSafety sends risky drafts to human approval.
func routeAfterSafety(policy Policy) graph.Router[State] {
	return func(state State) string {
		if policy.requiresApproval(state.Safety) {
			return NodeApproval
		}
		return NodeSend
	}
}

// routeAfterApproval acts on the reviewer's decision: edits loop back
// through safety review, rejections end the session.
func routeAfterApproval(state State) string {
	switch state.Decision {
	case ActionEdit:
		return NodeSafety
	case ActionReject:
		return graph.End
	default:
		return NodeSend
	}
}

// NewSessionID mints a unique session identifier, e.g.
// "session_01h455vb4pex5vsknk084sn02q".
func NewSessionID() (string, error) {
	tid, err := typeid.WithPrefix("session")
	if err != nil {
		return "", fmt.Errorf("email: generating session id: %w", err)
	}
	return tid.String(), nil
}
