package threat

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyber-shield/internal/threat/types"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, r float64, mutate ...func(*Config)) *Engine {
	t.Helper()
	config := DefaultConfig()
	for _, m := range mutate {
		m(&config)
	}
	engine, err := NewEngine(config,
		WithRandom(FixedRandom(r)),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func(time.Time) string { return "threat_test" }),
	)
	require.NoError(t, err)
	return engine
}

func sampleEmail() types.LogEntry {
	return types.LogEntry{
		"action":  "email_received",
		"sender":  "unknown@x.com",
		"subject": "URGENT",
		"links":   []interface{}{"http://x"},
	}
}

func TestEngine_NewEngine(t *testing.T) {
	engine, err := NewEngine(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfidenceThreshold, engine.Config().ConfidenceThreshold)
	assert.Positive(t, engine.Config().Workers)
	assert.Equal(t, []string{"192.168.1.100"}, engine.Config().KnownAddresses)

	_, err = NewEngine(Config{KnownAddresses: []string{"nope"}})
	assert.Error(t, err)

	_, err = NewEngine(Config{MinLatency: time.Second, MaxLatency: time.Millisecond})
	assert.Error(t, err)
}

func TestEngine_Detect_Bruteforce(t *testing.T) {
	engine := newTestEngine(t, 0)

	threat := engine.Detect(types.LogEntry{"action": "login_failed", "ip": "10.0.0.9"})
	require.NotNil(t, threat)

	assert.Equal(t, []string{"multiple_failed_attempts", "geographic_anomaly"}, threat.Indicators)
	assert.Equal(t, types.ThreatBruteforce, threat.Type)
	assert.Equal(t, 40, threat.Confidence)
	assert.Equal(t, types.SeverityMedium, threat.Severity)
	assert.Equal(t, 45, threat.RiskScore)
	assert.Equal(t, "unknown", threat.Source)
	assert.Equal(t, "threat_test", threat.ID)
	assert.Equal(t, fixedNow, threat.Timestamp)
	assert.Equal(t, "Brute force attack pattern identified with 2 suspicious indicators", threat.Description)
	assert.Equal(t, "Implement account lockout policies", threat.RecommendedActions[0])
	assert.Len(t, threat.RecommendedActions, 6)
}

func TestEngine_Detect_Phishing(t *testing.T) {
	engine := newTestEngine(t, 0)

	threat := engine.Detect(sampleEmail())
	require.NotNil(t, threat)

	assert.Equal(t, []string{"suspicious_sender", "urgent_language", "link_mismatch"}, threat.Indicators)
	assert.Equal(t, types.ThreatPhishing, threat.Type)
	assert.GreaterOrEqual(t, threat.Confidence, 55)
	assert.Equal(t, 65, threat.Confidence)
	assert.True(t, threat.Severity.AtLeast(types.SeverityMedium))
	assert.Equal(t, types.SeverityHigh, threat.Severity)
	assert.Equal(t, 70, threat.RiskScore)
	assert.Equal(t,
		"Potential phishing attempt detected with indicators: suspicious_sender, urgent_language, link_mismatch",
		threat.Description)
}

func TestEngine_Detect_FileAccessFallsBackToAnomaly(t *testing.T) {
	entry := types.LogEntry{"action": "file_access", "details": "Accessed confidential/reports.pdf"}

	// 单个指标在无扰动时置信度为25，低于门限
	assert.Nil(t, newTestEngine(t, 0).Detect(entry))

	threat := newTestEngine(t, 0.5).Detect(entry)
	require.NotNil(t, threat)
	assert.Equal(t, []string{"suspicious_file_access"}, threat.Indicators)
	assert.Equal(t, types.ThreatAnomaly, threat.Type)
	assert.Equal(t, 30, threat.Confidence)
	assert.Equal(t, types.SeverityLow, threat.Severity)
	assert.Equal(t, 26, threat.RiskScore)
	assert.Equal(t, "Unusual system behavior detected: suspicious_file_access", threat.Description)
}

func TestEngine_Detect_SystemAnomalyTieBreak(t *testing.T) {
	// behavior_anomaly 属于 malware，deviation_from_baseline 属于 anomaly，平分时 malware 在前
	threat := newTestEngine(t, 0).Detect(types.LogEntry{"action": "system_anomaly"})
	require.NotNil(t, threat)
	assert.Equal(t, types.ThreatMalware, threat.Type)
}

func TestEngine_Detect_NoIndicators(t *testing.T) {
	engine := newTestEngine(t, 0.99)

	assert.NotPanics(t, func() {
		assert.Nil(t, engine.Detect(types.LogEntry{}))
		assert.Nil(t, engine.Detect(nil))
		assert.Nil(t, engine.Detect(types.LogEntry{"action": 17, "ip": []int{1}}))
		assert.Nil(t, engine.Detect(types.LogEntry{"action": "login_success"}))
	})
}

func TestEngine_Detect_Source(t *testing.T) {
	entry := sampleEmail()
	entry["source"] = "mail-gateway"
	threat := newTestEngine(t, 0).Detect(entry)
	require.NotNil(t, threat)
	assert.Equal(t, "mail-gateway", threat.Source)

	entry["source"] = ""
	assert.Equal(t, "unknown", newTestEngine(t, 0).Detect(entry).Source)
}

func TestEngine_Detect_GateUsesRawConfidence(t *testing.T) {
	entry := types.LogEntry{"action": "file_access", "details": "confidential"}

	// 25 + 0.46*10 = 29.6，取整后虽为30但仍低于门限
	assert.Nil(t, newTestEngine(t, 0.46).Detect(entry))

	threat := newTestEngine(t, 0.5).Detect(entry)
	require.NotNil(t, threat)
	assert.Equal(t, 30, threat.Confidence)
	assert.Equal(t, types.SeverityLow, threat.Severity)
}

func TestEngine_Detect_NonStringSource(t *testing.T) {
	threat := newTestEngine(t, 0).Detect(types.LogEntry{"action": "system_anomaly", "source": 42})
	require.NotNil(t, threat)
	assert.Equal(t, "unknown", threat.Source)
}

func TestEngine_Detect_CustomThreshold(t *testing.T) {
	engine := newTestEngine(t, 0, func(c *Config) { c.ConfidenceThreshold = 50 })
	assert.Nil(t, engine.Detect(types.LogEntry{"action": "login_failed", "ip": "10.0.0.9"}))
	assert.NotNil(t, engine.Detect(sampleEmail()))
}

func TestEngine_Detect_DefaultID(t *testing.T) {
	engine, err := NewEngine(DefaultConfig(), WithRandom(FixedRandom(0)))
	require.NoError(t, err)

	threat := engine.Detect(sampleEmail())
	require.NotNil(t, threat)
	assert.Regexp(t, regexp.MustCompile(`^threat_\d+_[0-9a-f]{9}$`), threat.ID)

	other := engine.Detect(sampleEmail())
	assert.NotEqual(t, threat.ID, other.ID)
}

func TestEngine_Analyze(t *testing.T) {
	engine := newTestEngine(t, 0)

	result, err := engine.Analyze(context.Background(), sampleEmail())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 65, result.Analysis.Confidence)
	assert.Equal(t,
		"Analysis based on 3 indicators with 65% confidence. Pattern matching shows 3 suspicious behaviors.",
		result.Analysis.Reasoning)
	assert.Equal(t, []string{
		"Email from untrusted source",
		"Urgent or threatening language",
		"Links not matching displayed text",
	}, result.Analysis.Patterns)
	assert.Equal(t, "ELEVATED RISK: Significant threat detected. Monitor closely and prepare response.", result.Analysis.RiskAssessment)
	assert.Equal(t, result.Threat.RecommendedActions, result.Analysis.Mitigation)

	assert.Equal(t, 65, result.Predictions.Likelihood)
	assert.Equal(t, "Significant impact on operations or data security", result.Predictions.PotentialImpact)
	assert.Equal(t, "Short-term (within 24 hours)", result.Predictions.Timeframe)

	none, err := engine.Analyze(context.Background(), types.LogEntry{})
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestEngine_Analyze_PatternPassThrough(t *testing.T) {
	threat := &types.Threat{Indicators: []string{"large_data_transfer", "custom_tag"}, Severity: types.SeverityLow}
	assert.Equal(t, []string{"Unusually large data transmission", "custom_tag"}, analyze(threat).Patterns)
}

func TestEngine_AnalyzeStream(t *testing.T) {
	entries := []types.LogEntry{
		{"action": "login_failed", "ip": "203.45.67.89"},
		{"action": "file_access", "details": "Accessed confidential/reports.pdf"},
		{"action": "network_traffic", "size": float64(5000000)},
		sampleEmail(),
		{},
	}

	t.Run("Gated entries are dropped", func(t *testing.T) {
		results, err := newTestEngine(t, 0).AnalyzeStream(context.Background(), entries)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, types.ThreatBruteforce, results[0].Threat.Type)
		assert.Equal(t, types.ThreatPhishing, results[1].Threat.Type)
	})

	t.Run("Order preserved", func(t *testing.T) {
		engine := newTestEngine(t, 0.5, func(c *Config) { c.Workers = 3 })
		results, err := engine.AnalyzeStream(context.Background(), entries)
		require.NoError(t, err)
		require.Len(t, results, 4)
		assert.Equal(t, []string{"multiple_failed_attempts", "geographic_anomaly"}, results[0].Threat.Indicators)
		assert.Equal(t, []string{"suspicious_file_access"}, results[1].Threat.Indicators)
		assert.Equal(t, []string{"large_data_transfer"}, results[2].Threat.Indicators)
		assert.Equal(t, types.ThreatPhishing, results[3].Threat.Type)
	})

	t.Run("AnalyzeEach keeps positions", func(t *testing.T) {
		slots, err := newTestEngine(t, 0).AnalyzeEach(context.Background(), entries)
		require.NoError(t, err)
		require.Len(t, slots, 5)
		assert.NotNil(t, slots[0])
		assert.Nil(t, slots[1])
		assert.Nil(t, slots[2])
		assert.NotNil(t, slots[3])
		assert.Nil(t, slots[4])
	})

	t.Run("Empty input", func(t *testing.T) {
		results, err := newTestEngine(t, 0).AnalyzeStream(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestEngine(t, 0).AnalyzeStream(ctx, entries)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestEngine_SimulatedLatency(t *testing.T) {
	engine := newTestEngine(t, 0.5, func(c *Config) {
		c.MinLatency = 10 * time.Millisecond
		c.MaxLatency = 20 * time.Millisecond
	})

	start := time.Now()
	result, err := engine.Analyze(context.Background(), sampleEmail())
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err = engine.Analyze(ctx, sampleEmail())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestEngine_Bounds(t *testing.T) {
	engine, err := NewEngine(DefaultConfig(), WithRandom(NewSeededRandom(42)))
	require.NoError(t, err)

	entries := []types.LogEntry{
		{"action": "login_failed", "ip": "10.0.0.9"},
		{"action": "login_failed", "ip": "192.168.1.100"},
		{"action": "file_access", "details": "confidential"},
		{"action": "network_traffic", "size": 2e6},
		sampleEmail(),
		{"action": "system_anomaly"},
	}
	for i := 0; i < 50; i++ {
		for _, entry := range entries {
			result, err := engine.Analyze(context.Background(), entry)
			require.NoError(t, err)
			if result == nil {
				continue
			}
			assert.GreaterOrEqual(t, result.Threat.Confidence, DefaultConfidenceThreshold)
			assert.LessOrEqual(t, result.Threat.Confidence, 95)
			assert.GreaterOrEqual(t, result.Threat.RiskScore, 0)
			assert.LessOrEqual(t, result.Threat.RiskScore, 100)
			assert.LessOrEqual(t, result.Predictions.Likelihood, 95)
			assert.GreaterOrEqual(t, result.Predictions.Likelihood, result.Threat.Confidence)
		}
	}
}
