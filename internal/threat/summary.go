package threat

import (
	"math"

	"cyber-shield/internal/threat/types"
)

// HighConfidenceThreshold 高置信度门槛
const HighConfidenceThreshold = 80

// Summary 分析结果统计
type Summary struct {
	Total          int                      `json:"total"`
	Critical       int                      `json:"critical"`
	High           int                      `json:"high"`
	Medium         int                      `json:"medium"`
	Low            int                      `json:"low"`
	HighConfidence int                      `json:"high_confidence"`
	ByType         map[types.ThreatType]int `json:"by_type"`
	AverageRisk    float64                  `json:"average_risk"`
}

// Summarize 统计一组分析结果
func Summarize(results []*types.AnalysisResult) Summary {
	summary := Summary{ByType: make(map[types.ThreatType]int)}

	riskTotal := 0
	for _, result := range results {
		if result == nil || result.Threat == nil {
			continue
		}
		t := result.Threat
		summary.Total++
		summary.ByType[t.Type]++
		riskTotal += t.RiskScore

		switch t.Severity {
		case types.SeverityCritical:
			summary.Critical++
		case types.SeverityHigh:
			summary.High++
		case types.SeverityMedium:
			summary.Medium++
		case types.SeverityLow:
			summary.Low++
		}
		if result.Analysis.Confidence >= HighConfidenceThreshold {
			summary.HighConfidence++
		}
	}

	if summary.Total > 0 {
		summary.AverageRisk = math.Round(float64(riskTotal)/float64(summary.Total)*100) / 100
	}
	return summary
}
