package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mailgraph/mailgraph/graph"
	"github.com/mailgraph/mailgraph/llm"
)

const safetyPromptFmt = `Review the email draft below for safety problems:
confidential information, legal or compliance risk, harassment, or anything
that should not leave the company. Respond with JSON only, in this shape:
{"safe": true, "risk_level": "low", "notes": ""}
risk_level is one of "low", "medium", "high".

Draft:
%s`

// safetyNode reviews the current draft and records a verdict. Essential: if
// the review itself cannot run, the session fails rather than sending an
// unreviewed draft.
type safetyNode struct {
	llm llm.Client
}

func (n *safetyNode) Run(ctx context.Context, state State, _ any) graph.NodeResult[State] {
	if state.Draft == "" {
		return graph.NodeResult[State]{Err: fmt.Errorf("no draft to review")}
	}

	answer, err := n.llm.Generate(ctx, fmt.Sprintf(safetyPromptFmt, state.Draft))
	if err != nil {
		return graph.NodeResult[State]{Err: err}
	}

	verdict := parseSafetyVerdict(answer)
	return graph.NodeResult[State]{Delta: State{Safety: &verdict}}
}

// parseSafetyVerdict extracts the JSON verdict from the model response.
// Models wrap JSON in prose or fences often enough that parsing is lenient:
// first the outermost JSON object, then a lexical reading of the whole
// response, and a high-risk verdict when neither works.
func parseSafetyVerdict(answer string) SafetyVerdict {
	if raw, ok := extractJSONObject(answer); ok {
		var verdict SafetyVerdict
		if err := json.Unmarshal([]byte(raw), &verdict); err == nil {
			if validRisk(verdict.RiskLevel) {
				return verdict
			}
			return SafetyVerdict{Safe: false, RiskLevel: RiskHigh, Notes: "unrecognized risk level: " + verdict.RiskLevel}
		}
	}
	return lexicalVerdict(answer)
}

// extractJSONObject returns the substring from the first '{' to the last
// '}', which covers fenced and prose-wrapped JSON.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func validRisk(level string) bool {
	switch strings.ToLower(level) {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// lexicalVerdict reads risk keywords out of a non-JSON response. An
// unreadable verdict is treated as high risk so it routes to review.
func lexicalVerdict(answer string) SafetyVerdict {
	lower := strings.ToLower(answer)
	switch {
	case strings.Contains(lower, "unsafe") || strings.Contains(lower, "high"):
		return SafetyVerdict{Safe: false, RiskLevel: RiskHigh, Notes: firstLine(answer)}
	case strings.Contains(lower, "medium"):
		return SafetyVerdict{Safe: false, RiskLevel: RiskMedium, Notes: firstLine(answer)}
	case strings.Contains(lower, "safe") || strings.Contains(lower, "low"):
		return SafetyVerdict{Safe: true, RiskLevel: RiskLow}
	default:
		return SafetyVerdict{Safe: false, RiskLevel: RiskHigh, Notes: "unreadable safety verdict"}
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return s
}
