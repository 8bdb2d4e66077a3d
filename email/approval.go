package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/mailgraph/mailgraph/graph"
)

// Decision actions accepted by the approval stage.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionEdit    = "edit"
)

// Decision is the resume value consumed by the approval stage.
//
// Action is one of approve, reject, or edit. Text carries the replacement
// draft body for edits and is ignored otherwise.
type Decision struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
}

// approvalNode suspends the session until a human decides on the draft.
//
// On the first invocation it interrupts with a descriptor carrying the draft
// and the safety verdict. When the engine re-invokes it with the resume
// value, it consumes the decision: approve freezes the draft for send,
// reject terminates the session, and edit replaces the draft so safety
// review runs again.
//
// A decision that cannot be understood is a caller mistake, not a stage
// failure: the node re-issues the interrupt with the problem noted in the
// payload, so the session stays paused and the draft survives a typo in the
// resume value.
type approvalNode struct{}

func (n *approvalNode) Run(ctx context.Context, state State, resume any) graph.NodeResult[State] {
	if err := ctx.Err(); err != nil {
		return graph.NodeResult[State]{Err: err}
	}

	if resume == nil {
		return graph.NodeResult[State]{Interrupt: n.interrupt(state, "")}
	}

	decision, err := parseDecision(resume)
	if err != nil {
		return graph.NodeResult[State]{Interrupt: n.interrupt(state, err.Error())}
	}

	switch decision.Action {
	case ActionApprove:
		return graph.NodeResult[State]{Delta: State{
			Decision:      ActionApprove,
			ApprovedDraft: state.Draft,
		}}
	case ActionReject:
		return graph.NodeResult[State]{Delta: State{
			Decision: ActionReject,
			Outcome:  OutcomeRejected,
			Result:   "Draft rejected by reviewer; nothing was sent.",
		}}
	case ActionEdit:
		if strings.TrimSpace(decision.Text) == "" {
			return graph.NodeResult[State]{Interrupt: n.interrupt(state, "edit decision carries no replacement text")}
		}
		return graph.NodeResult[State]{Delta: State{
			Decision: ActionEdit,
			Draft:    normalizeDraft(decision.Text, state.UserRequest),
		}}
	default:
		return graph.NodeResult[State]{Interrupt: n.interrupt(state, fmt.Sprintf("unknown approval action %q", decision.Action))}
	}
}

// interrupt builds the suspension descriptor for the pending draft. problem,
// when non-empty, tells the caller why their previous decision was not
// accepted.
func (n *approvalNode) interrupt(state State, problem string) *graph.Interrupt {
	subject, body := splitDraft(state.Draft)
	payload := map[string]any{
		"question":          "A draft email is awaiting your decision.",
		"suggested_subject": subject,
		"suggested_body":    body,
		"instructions":      `Reply with {"action": "approve"}, {"action": "reject"}, or {"action": "edit", "text": "<replacement draft>"}.`,
	}
	if state.Safety != nil {
		payload["risk_level"] = state.Safety.RiskLevel
		payload["safety_notes"] = state.Safety.Notes
	}
	if problem != "" {
		payload["error"] = problem
	}
	return &graph.Interrupt{Payload: payload}
}

// parseDecision accepts the shapes a resume value realistically arrives in:
// the typed Decision, a bare action string, or a generic map from callers
// that unmarshalled JSON input.
func parseDecision(resume any) (Decision, error) {
	switch v := resume.(type) {
	case Decision:
		return v, nil
	case *Decision:
		if v == nil {
			return Decision{}, fmt.Errorf("nil decision")
		}
		return *v, nil
	case string:
		return Decision{Action: strings.ToLower(strings.TrimSpace(v))}, nil
	case map[string]any:
		var d Decision
		if action, ok := v["action"].(string); ok {
			d.Action = strings.ToLower(strings.TrimSpace(action))
		}
		if text, ok := v["text"].(string); ok {
			d.Text = text
		}
		return d, nil
	case map[string]string:
		return Decision{
			Action: strings.ToLower(strings.TrimSpace(v["action"])),
			Text:   v["text"],
		}, nil
	default:
		return Decision{}, fmt.Errorf("unsupported decision type %T", resume)
	}
}

// splitDraft separates the Subject: line from the body for display.
func splitDraft(draft string) (subject, body string) {
	d := strings.TrimSpace(draft)
	idx := strings.IndexByte(d, '\n')
	if idx < 0 {
		idx = len(d)
	}
	first := d[:idx]
	if strings.HasPrefix(strings.ToLower(first), "subject:") {
		subject = strings.TrimSpace(first[len("subject:"):])
		body = strings.TrimSpace(d[idx:])
		return subject, body
	}
	return "", d
}
