package email

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.NoError(t, p.validate())
	assert.Equal(t, RiskMedium, p.ReviewRiskThreshold)
	assert.False(t, p.AlwaysReview)
	assert.Contains(t, p.RecencyCues, "latest")
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
recency_cues: ["breaking", "this week"]
review_risk_threshold: high
always_review: true
`), 0o644))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"breaking", "this week"}, p.RecencyCues)
	assert.Equal(t, RiskHigh, p.ReviewRiskThreshold)
	assert.True(t, p.AlwaysReview)
}

func TestLoadPolicyPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("always_review: true\n"), 0o644))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.True(t, p.AlwaysReview)
	assert.Equal(t, RiskMedium, p.ReviewRiskThreshold, "unset fields keep defaults")
	assert.Contains(t, p.RecencyCues, "latest")
}

func TestLoadPolicyErrors(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("review_risk_threshold: extreme\n"), 0o644))
	_, err = LoadPolicy(path)
	assert.Error(t, err, "unknown threshold must be rejected")

	require.NoError(t, os.WriteFile(path, []byte("::not yaml::\n"), 0o644))
	_, err = LoadPolicy(path)
	assert.Error(t, err)
}

func TestHasRecencyCue(t *testing.T) {
	p := DefaultPolicy()
	assert.True(t, p.hasRecencyCue("Create an email about the LATEST industry trends"))
	assert.True(t, p.hasRecencyCue("any news on the merger?"))
	assert.False(t, p.hasRecencyCue("Write an email to my manager about the quarterly report"))
}

func TestRequiresApproval(t *testing.T) {
	p := DefaultPolicy() // threshold: medium

	tests := []struct {
		name    string
		verdict *SafetyVerdict
		want    bool
	}{
		{"nil verdict", nil, true},
		{"unsafe", &SafetyVerdict{Safe: false, RiskLevel: RiskLow}, true},
		{"safe low", &SafetyVerdict{Safe: true, RiskLevel: RiskLow}, false},
		{"safe medium", &SafetyVerdict{Safe: true, RiskLevel: RiskMedium}, true},
		{"safe high", &SafetyVerdict{Safe: true, RiskLevel: RiskHigh}, true},
		{"unknown level", &SafetyVerdict{Safe: true, RiskLevel: "weird"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.requiresApproval(tt.verdict))
		})
	}

	always := DefaultPolicy()
	always.AlwaysReview = true
	assert.True(t, always.requiresApproval(&SafetyVerdict{Safe: true, RiskLevel: RiskLow}))
}
