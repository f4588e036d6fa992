package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cyber-shield/internal/threat/types"
)

func TestThreatRecord_RoundTrip(t *testing.T) {
	result := &types.AnalysisResult{
		Threat: &types.Threat{
			ID:                 "threat_1",
			Type:               types.ThreatBruteforce,
			Source:             "auth_server",
			Severity:           types.SeverityMedium,
			Confidence:         40,
			Timestamp:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			Description:        "Brute force attack detected from auth_server",
			Indicators:         []string{types.IndicatorMultipleFailedAttempts},
			RecommendedActions: []string{"Isolate affected systems"},
			RiskScore:          45,
		},
		Analysis:    types.Analysis{Confidence: 40, Patterns: []string{"Repeated authentication failures"}},
		Predictions: types.Predictions{Likelihood: 50, PotentialImpact: "Medium", Timeframe: "Next 1-6 hours"},
	}

	record := NewThreatRecord(result)
	assert.Equal(t, "bruteforce", record.Type)
	assert.Equal(t, "medium", record.Severity)
	assert.Equal(t, result.Threat.Timestamp, record.DetectedAt)
	assert.Equal(t, "threat_records", record.TableName())

	assert.Equal(t, result, record.ToResult())
}
