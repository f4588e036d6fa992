package threat

import (
	"fmt"
	"strings"

	"cyber-shield/internal/threat/types"
)

// 处置建议前缀，用于critical等级
const immediateActionPrefix = "IMMEDIATE ACTION REQUIRED: "

var baseActions = []string{
	"Monitor affected systems closely",
	"Review security logs for related activity",
	"Update security policies if necessary",
}

var specificActions = map[types.ThreatType][]string{
	types.ThreatPhishing: {
		"Block suspicious email domains",
		"Enable email filtering",
		"Educate users about phishing recognition",
	},
	types.ThreatMalware: {
		"Quarantine affected files",
		"Run full system scan",
		"Update antivirus signatures",
	},
	types.ThreatBruteforce: {
		"Implement account lockout policies",
		"Enable multi-factor authentication",
		"Monitor for IP-based attacks",
	},
	types.ThreatAnomaly: {
		"Investigate system configuration changes",
		"Review user access patterns",
		"Update intrusion detection rules",
	},
	types.ThreatSuspiciousLogin: {
		"Verify user identity",
		"Review login history",
		"Implement geographic restrictions",
	},
	types.ThreatDataExfiltration: {
		"Block suspicious network connections",
		"Implement data loss prevention",
		"Review data access policies",
	},
}

var patternDescriptions = map[string]string{
	types.IndicatorMultipleFailedAttempts: "Repeated authentication failures",
	types.IndicatorGeographicAnomaly:      "Login from unusual geographic location",
	types.IndicatorSuspiciousFileAccess:   "Access to sensitive files",
	types.IndicatorLargeDataTransfer:      "Unusually large data transmission",
	types.IndicatorSuspiciousSender:       "Email from untrusted source",
	types.IndicatorUrgentLanguage:         "Urgent or threatening language",
	types.IndicatorLinkMismatch:           "Links not matching displayed text",
	types.IndicatorBehaviorAnomaly:        "Unexpected system behavior",
	types.IndicatorDeviationFromBaseline:  "Activity outside normal patterns",
}

var riskAssessments = map[types.Severity]string{
	types.SeverityCritical: "HIGH RISK: Immediate attention required. Potential compromise of critical systems.",
	types.SeverityHigh:     "ELEVATED RISK: Significant threat detected. Monitor closely and prepare response.",
	types.SeverityMedium:   "MODERATE RISK: Potential security concern. Investigate and document.",
	types.SeverityLow:      "LOW RISK: Minor anomaly detected. Log for trend analysis.",
}

var potentialImpacts = map[types.Severity]string{
	types.SeverityCritical: "Potential system compromise, data loss, or service disruption",
	types.SeverityHigh:     "Significant impact on operations or data security",
	types.SeverityMedium:   "Moderate impact on system performance or security",
	types.SeverityLow:      "Minimal impact, primarily informational",
}

var timeframes = map[types.Severity]string{
	types.SeverityCritical: "Immediate (within hours)",
	types.SeverityHigh:     "Short-term (within 24 hours)",
	types.SeverityMedium:   "Medium-term (within days)",
	types.SeverityLow:      "Long-term monitoring required",
}

// generateDescription 生成威胁描述
func generateDescription(threatType types.ThreatType, indicators []string) string {
	joined := strings.Join(indicators, ", ")
	switch threatType {
	case types.ThreatPhishing:
		return "Potential phishing attempt detected with indicators: " + joined
	case types.ThreatMalware:
		return "Malicious software detected with suspicious indicators: " + joined
	case types.ThreatBruteforce:
		return fmt.Sprintf("Brute force attack pattern identified with %d suspicious indicators", len(indicators))
	case types.ThreatAnomaly:
		return "Unusual system behavior detected: " + joined
	case types.ThreatSuspiciousLogin:
		return "Suspicious login activity detected from unusual location/pattern"
	case types.ThreatDataExfiltration:
		return "Potential data exfiltration attempt detected with large data transfers"
	}
	return "Unknown threat pattern detected"
}

// recommendedActions 生成处置建议，critical等级在首条建议前加紧急标记
func recommendedActions(threatType types.ThreatType, severity types.Severity) []string {
	actions := make([]string, 0, len(specificActions[threatType])+len(baseActions))
	actions = append(actions, specificActions[threatType]...)
	actions = append(actions, baseActions...)

	if severity == types.SeverityCritical {
		actions[0] = immediateActionPrefix + actions[0]
	}
	return actions
}

// describePatterns 将指标映射为可读描述，未登记的指标原样返回
func describePatterns(indicators []string) []string {
	patterns := make([]string, len(indicators))
	for i, indicator := range indicators {
		if desc, ok := patternDescriptions[indicator]; ok {
			patterns[i] = desc
		} else {
			patterns[i] = indicator
		}
	}
	return patterns
}

// analyze 生成二次分析结果
func analyze(threat *types.Threat) types.Analysis {
	patterns := describePatterns(threat.Indicators)
	mitigation := make([]string, len(threat.RecommendedActions))
	copy(mitigation, threat.RecommendedActions)

	return types.Analysis{
		Confidence: threat.Confidence,
		Reasoning: fmt.Sprintf(
			"Analysis based on %d indicators with %d%% confidence. Pattern matching shows %d suspicious behaviors.",
			len(threat.Indicators), threat.Confidence, len(patterns)),
		Patterns:       patterns,
		RiskAssessment: riskAssessments[threat.Severity],
		Mitigation:     mitigation,
	}
}

// predict 生成威胁预测
func predict(threat *types.Threat, noise float64) types.Predictions {
	return types.Predictions{
		Likelihood:      calculateLikelihood(threat.Confidence, noise),
		PotentialImpact: potentialImpacts[threat.Severity],
		Timeframe:       timeframes[threat.Severity],
	}
}
