package email

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Risk levels a safety verdict may carry, in increasing severity.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Policy holds the routing thresholds that are heuristic rather than
// structural: which request wording triggers a web search, and how risky a
// draft must look before a human reviews it. These are configuration, not
// constants, so deployments can tune them without code changes.
type Policy struct {
	// RecencyCues are lowercase terms in the request that indicate the
	// internal knowledge base is likely stale and a web search should run.
	RecencyCues []string `yaml:"recency_cues"`

	// ReviewRiskThreshold is the lowest risk level that still requires
	// human approval. Verdicts at or above it route to approval.
	ReviewRiskThreshold string `yaml:"review_risk_threshold"`

	// AlwaysReview forces every draft through human approval regardless of
	// the safety verdict.
	AlwaysReview bool `yaml:"always_review"`
}

// DefaultPolicy returns the thresholds used when no policy file is given.
func DefaultPolicy() Policy {
	return Policy{
		RecencyCues:         []string{"latest", "recent", "current", "news", "update", "today"},
		ReviewRiskThreshold: RiskMedium,
		AlwaysReview:        false,
	}
}

// LoadPolicy reads a YAML policy file. Fields absent from the file keep
// their default values.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("email: reading policy: %w", err)
	}
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("email: parsing policy: %w", err)
	}
	if err := p.validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p Policy) validate() error {
	switch p.ReviewRiskThreshold {
	case RiskLow, RiskMedium, RiskHigh:
		return nil
	default:
		return fmt.Errorf("email: invalid review_risk_threshold %q", p.ReviewRiskThreshold)
	}
}

// hasRecencyCue reports whether the request wording suggests the answer
// needs information fresher than the internal knowledge base.
func (p Policy) hasRecencyCue(request string) bool {
	lower := strings.ToLower(request)
	for _, cue := range p.RecencyCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

// requiresApproval decides whether a safety verdict routes to human review.
// A missing verdict is treated as maximum risk.
func (p Policy) requiresApproval(verdict *SafetyVerdict) bool {
	if p.AlwaysReview {
		return true
	}
	if verdict == nil || !verdict.Safe {
		return true
	}
	return riskRank(verdict.RiskLevel) >= riskRank(p.ReviewRiskThreshold)
}

// riskRank orders risk levels; unknown levels rank highest so that a
// malformed verdict errs toward review.
func riskRank(level string) int {
	switch strings.ToLower(level) {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 4
	}
}
