package threat

import (
	"math"

	"cyber-shield/internal/threat/types"
)

// threatPatterns 各威胁类别的指标列表
var threatPatterns = map[types.ThreatType][]string{
	types.ThreatPhishing: {
		"suspicious_sender",
		"urgent_language",
		"link_mismatch",
		"attachment_unknown",
		"spelling_errors",
	},
	types.ThreatMalware: {
		"suspicious_file_extension",
		"large_file_size",
		"executable_content",
		"unknown_source",
		"behavior_anomaly",
	},
	types.ThreatBruteforce: {
		"multiple_failed_attempts",
		"unusual_timing",
		"geographic_anomaly",
		"pattern_recognition",
	},
	types.ThreatAnomaly: {
		"unusual_traffic",
		"abnormal_behavior",
		"deviation_from_baseline",
		"unexpected_patterns",
	},
}

// classificationOrder 得分相同时按此顺序取第一个
// suspicious_login 与 data_exfiltration 分别复用 bruteforce 与 anomaly 的得分
var classificationOrder = []struct {
	threatType types.ThreatType
	scoredAs   types.ThreatType
}{
	{types.ThreatPhishing, types.ThreatPhishing},
	{types.ThreatMalware, types.ThreatMalware},
	{types.ThreatBruteforce, types.ThreatBruteforce},
	{types.ThreatAnomaly, types.ThreatAnomaly},
	{types.ThreatSuspiciousLogin, types.ThreatBruteforce},
	{types.ThreatDataExfiltration, types.ThreatAnomaly},
}

var (
	severityWeights = map[types.Severity]float64{
		types.SeverityLow:      1,
		types.SeverityMedium:   2,
		types.SeverityHigh:     3,
		types.SeverityCritical: 4,
	}
	impactWeights = map[types.Severity]float64{
		types.SeverityLow:      25,
		types.SeverityMedium:   50,
		types.SeverityHigh:     75,
		types.SeverityCritical: 100,
	}
)

const (
	confidenceWeight = 1.5
	frequencyWeight  = 0.8
	impactWeight     = 2.0
	maxConfidence    = 95
	maxLikelihood    = 95
)

// patternScore 统计指标与类别列表的重合数
func patternScore(indicators []string, threatType types.ThreatType) int {
	score := 0
	for _, indicator := range indicators {
		for _, pattern := range threatPatterns[threatType] {
			if indicator == pattern {
				score++
				break
			}
		}
	}
	return score
}

// classifyThreatType 按重合数对指标分类，全部为0时归为anomaly
func classifyThreatType(indicators []string) types.ThreatType {
	best := types.ThreatAnomaly
	maxScore := 0
	for _, candidate := range classificationOrder {
		score := patternScore(indicators, candidate.scoredAs)
		if score > maxScore {
			maxScore = score
			best = candidate.threatType
		}
	}
	return best
}

// calculateConfidence 根据指标数计算未取整的置信度，noise为随机扰动项
func calculateConfidence(indicatorCount int, noise float64) float64 {
	if indicatorCount == 0 {
		return 0
	}

	base := math.Min(float64(indicatorCount*15), 60)
	patternMatch := 10.0
	if indicatorCount > 2 {
		patternMatch = 20
	}

	return math.Min(base+patternMatch+noise, maxConfidence)
}

// determineSeverity 根据指标数和置信度确定威胁等级
func determineSeverity(indicatorCount int, confidence float64) types.Severity {
	riskFactors := float64(indicatorCount) + confidence/20

	switch {
	case riskFactors >= 8:
		return types.SeverityCritical
	case riskFactors >= 6:
		return types.SeverityHigh
	case riskFactors >= 4:
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}

// calculateRiskScore 计算综合风险分，结果在[0,100]区间
func calculateRiskScore(severity types.Severity, confidence float64, indicatorCount int) int {
	raw := severityWeights[severity]*10 +
		confidence*confidenceWeight +
		float64(indicatorCount)*frequencyWeight +
		impactWeights[severity]*impactWeight

	score := int(math.Round(raw / 4))
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// calculateLikelihood 计算威胁发生可能性
func calculateLikelihood(confidence int, noise float64) int {
	return int(math.Round(math.Min(float64(confidence)+noise, maxLikelihood)))
}
