package threat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"cyber-shield/internal/threat/types"
)

func TestClassifyThreatType(t *testing.T) {
	tests := []struct {
		name       string
		indicators []string
		expected   types.ThreatType
	}{
		{"empty", nil, types.ThreatAnomaly},
		{"unlisted only", []string{"suspicious_file_access", "large_data_transfer"}, types.ThreatAnomaly},
		{"bruteforce", []string{"multiple_failed_attempts", "geographic_anomaly"}, types.ThreatBruteforce},
		{"phishing wins tie", []string{"suspicious_sender", "multiple_failed_attempts"}, types.ThreatPhishing},
		{"anomaly", []string{"deviation_from_baseline"}, types.ThreatAnomaly},
		{"malware before anomaly", []string{"behavior_anomaly", "deviation_from_baseline"}, types.ThreatMalware},
		{"highest score wins", []string{"suspicious_sender", "geographic_anomaly", "multiple_failed_attempts"}, types.ThreatBruteforce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyThreatType(tt.indicators))
		})
	}
}

func TestCalculateConfidence(t *testing.T) {
	assert.Equal(t, 0.0, calculateConfidence(0, 9))
	assert.Equal(t, 25.0, calculateConfidence(1, 0))
	assert.Equal(t, 40.0, calculateConfidence(2, 0))
	assert.Equal(t, 65.0, calculateConfidence(3, 0))
	assert.Equal(t, 90.0, calculateConfidence(10, 10))
	// 不取整
	assert.InDelta(t, 29.6, calculateConfidence(1, 4.6), 1e-9)
	// 扰动项较大时封顶95
	assert.Equal(t, 95.0, calculateConfidence(10, 30))
}

func TestDetermineSeverity(t *testing.T) {
	assert.Equal(t, types.SeverityLow, determineSeverity(1, 30))
	assert.Equal(t, types.SeverityMedium, determineSeverity(2, 40))
	assert.Equal(t, types.SeverityHigh, determineSeverity(3, 65))
	assert.Equal(t, types.SeverityCritical, determineSeverity(4, 80))
	assert.Equal(t, types.SeverityCritical, determineSeverity(8, 0))
	// 3 + 59.9/20 = 5.995，未达到high
	assert.Equal(t, types.SeverityMedium, determineSeverity(3, 59.9))
}

func TestDetermineSeverity_Monotonic(t *testing.T) {
	for confidence := 0.0; confidence <= 95; confidence++ {
		for n := 0; n < 12; n++ {
			lower := determineSeverity(n, confidence)
			higher := determineSeverity(n+1, confidence)
			assert.GreaterOrEqual(t, higher.Rank(), lower.Rank(), "n=%d confidence=%.0f", n, confidence)
		}
	}
}

func TestCalculateRiskScore(t *testing.T) {
	assert.Equal(t, 45, calculateRiskScore(types.SeverityMedium, 40, 2))
	assert.Equal(t, 70, calculateRiskScore(types.SeverityHigh, 65, 3))
	assert.Equal(t, 100, calculateRiskScore(types.SeverityCritical, 95, 100))

	for _, sev := range []types.Severity{types.SeverityLow, types.SeverityMedium, types.SeverityHigh, types.SeverityCritical} {
		for confidence := 0.0; confidence <= 95; confidence += 5 {
			score := calculateRiskScore(sev, confidence, 20)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	}
}

func TestRecommendedActions(t *testing.T) {
	actions := recommendedActions(types.ThreatPhishing, types.SeverityHigh)
	assert.Equal(t, "Block suspicious email domains", actions[0])
	assert.Equal(t, "Update security policies if necessary", actions[len(actions)-1])

	critical := recommendedActions(types.ThreatDataExfiltration, types.SeverityCritical)
	assert.Equal(t, "IMMEDIATE ACTION REQUIRED: Block suspicious network connections", critical[0])
	assert.False(t, strings.HasPrefix(critical[1], immediateActionPrefix))

	// 共享表不能被修改
	again := recommendedActions(types.ThreatDataExfiltration, types.SeverityLow)
	assert.Equal(t, "Block suspicious network connections", again[0])
}

func TestGenerateDescription(t *testing.T) {
	assert.Equal(t, "Suspicious login activity detected from unusual location/pattern",
		generateDescription(types.ThreatSuspiciousLogin, []string{"x"}))
	assert.Equal(t, "Potential data exfiltration attempt detected with large data transfers",
		generateDescription(types.ThreatDataExfiltration, nil))
	assert.Equal(t, "Malicious software detected with suspicious indicators: behavior_anomaly",
		generateDescription(types.ThreatMalware, []string{"behavior_anomaly"}))
	assert.Equal(t, "Unknown threat pattern detected", generateDescription("other", nil))
}

func TestCalculateLikelihood(t *testing.T) {
	assert.Equal(t, 65, calculateLikelihood(65, 0))
	assert.Equal(t, 85, calculateLikelihood(65, 20))
	assert.Equal(t, 95, calculateLikelihood(90, 19.9))
}

func TestSummarize(t *testing.T) {
	results := []*types.AnalysisResult{
		{Threat: &types.Threat{Type: types.ThreatPhishing, Severity: types.SeverityHigh, RiskScore: 70}, Analysis: types.Analysis{Confidence: 85}},
		{Threat: &types.Threat{Type: types.ThreatBruteforce, Severity: types.SeverityMedium, RiskScore: 45}, Analysis: types.Analysis{Confidence: 40}},
		{Threat: &types.Threat{Type: types.ThreatPhishing, Severity: types.SeverityCritical, RiskScore: 100}, Analysis: types.Analysis{Confidence: 95}},
		nil,
	}

	summary := Summarize(results)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Critical)
	assert.Equal(t, 1, summary.High)
	assert.Equal(t, 1, summary.Medium)
	assert.Equal(t, 0, summary.Low)
	assert.Equal(t, 2, summary.HighConfidence)
	assert.Equal(t, 2, summary.ByType[types.ThreatPhishing])
	assert.Equal(t, 71.67, summary.AverageRisk)

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0.0, empty.AverageRisk)
}
