// Package email implements the email-assistant workflow: intent
// classification, knowledge retrieval, optional web search, drafting,
// safety review, human approval, and send, assembled as a checkpointed
// graph.
package email

import (
	"github.com/mailgraph/mailgraph/retrieval"
	"github.com/mailgraph/mailgraph/websearch"
)

// Node ids of the workflow stages.
const (
	NodeClassify = "classify"
	NodeRetrieve = "retrieval"
	NodeSearch   = "external_search"
	NodeDraft    = "draft"
	NodeSafety   = "safety"
	NodeApproval = "human_approval"
	NodeSend     = "send"
)

// Intent values produced by the classify stage.
const (
	IntentGenerateEmail = "generate_email"
	IntentOther         = "other"
)

// Outcome values recorded when a session reaches a terminal stage.
const (
	OutcomeSent     = "sent"
	OutcomeRejected = "rejected"
	OutcomeNotEmail = "not_email"
)

// SafetyVerdict is the safety review result for a draft.
type SafetyVerdict struct {
	Safe      bool   `json:"safe"`
	RiskLevel string `json:"risk_level"`
	Notes     string `json:"notes,omitempty"`
}

// State carries the workflow data between stages. Each stage contributes a
// delta; Reduce merges deltas into the accumulated state. UserRequest is set
// once at session start and never changed by any stage.
type State struct {
	UserRequest      string               `json:"user_request,omitempty"`
	Intent           string               `json:"intent,omitempty"`
	RetrievedContext []retrieval.Document `json:"retrieved_context,omitempty"`
	Citations        []string             `json:"citations,omitempty"`
	ExternalInfo     []websearch.Result   `json:"external_info,omitempty"`
	Draft            string               `json:"draft,omitempty"`
	Safety           *SafetyVerdict       `json:"safety,omitempty"`
	Decision         string               `json:"decision,omitempty"`
	ApprovedDraft    string               `json:"approved_draft,omitempty"`
	Outcome          string               `json:"outcome,omitempty"`
	Result           string               `json:"result,omitempty"`
}

// Reduce merges a stage delta into the previous state. Non-zero delta fields
// overwrite; zero fields leave the previous value intact. Overwriting is
// deliberate for Draft and Safety: an edited draft replaces the old one and
// a re-run safety review replaces the old verdict.
func Reduce(prev, delta State) State {
	if delta.UserRequest != "" {
		prev.UserRequest = delta.UserRequest
	}
	if delta.Intent != "" {
		prev.Intent = delta.Intent
	}
	if len(delta.RetrievedContext) > 0 {
		prev.RetrievedContext = delta.RetrievedContext
	}
	if len(delta.Citations) > 0 {
		prev.Citations = delta.Citations
	}
	if len(delta.ExternalInfo) > 0 {
		prev.ExternalInfo = delta.ExternalInfo
	}
	if delta.Draft != "" {
		prev.Draft = delta.Draft
	}
	if delta.Safety != nil {
		prev.Safety = delta.Safety
	}
	if delta.Decision != "" {
		prev.Decision = delta.Decision
	}
	if delta.ApprovedDraft != "" {
		prev.ApprovedDraft = delta.ApprovedDraft
	}
	if delta.Outcome != "" {
		prev.Outcome = delta.Outcome
	}
	if delta.Result != "" {
		prev.Result = delta.Result
	}
	return prev
}
