package types

import "time"

// ThreatType 威胁类别
type ThreatType string

const (
	// ThreatPhishing 钓鱼攻击
	ThreatPhishing ThreatType = "phishing"
	// ThreatMalware 恶意软件
	ThreatMalware ThreatType = "malware"
	// ThreatBruteforce 暴力破解
	ThreatBruteforce ThreatType = "bruteforce"
	// ThreatAnomaly 异常行为
	ThreatAnomaly ThreatType = "anomaly"
	// ThreatDataExfiltration 数据外泄
	ThreatDataExfiltration ThreatType = "data_exfiltration"
	// ThreatSuspiciousLogin 可疑登录
	ThreatSuspiciousLogin ThreatType = "suspicious_login"
)

// Severity 威胁等级
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank 返回等级序号，low=1 … critical=4，未知等级返回0
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// AtLeast 判断等级是否不低于min
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

// ParseSeverity 解析等级字符串
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(s)
	if sev.Rank() == 0 {
		return "", false
	}
	return sev, true
}

// 指标标签
const (
	IndicatorMultipleFailedAttempts = "multiple_failed_attempts"
	IndicatorGeographicAnomaly      = "geographic_anomaly"
	IndicatorSuspiciousFileAccess   = "suspicious_file_access"
	IndicatorLargeDataTransfer      = "large_data_transfer"
	IndicatorSuspiciousSender       = "suspicious_sender"
	IndicatorUrgentLanguage         = "urgent_language"
	IndicatorLinkMismatch           = "link_mismatch"
	IndicatorBehaviorAnomaly        = "behavior_anomaly"
	IndicatorDeviationFromBaseline  = "deviation_from_baseline"
)

// Threat 威胁记录，创建后不再修改
type Threat struct {
	ID                 string     `json:"id"`
	Type               ThreatType `json:"type"`
	Source             string     `json:"source"`
	Severity           Severity   `json:"severity"`
	Confidence         int        `json:"confidence"`
	Timestamp          time.Time  `json:"timestamp"`
	Description        string     `json:"description"`
	Indicators         []string   `json:"indicators"`
	RecommendedActions []string   `json:"recommendedActions"`
	RiskScore          int        `json:"riskScore"`
}

// Analysis 二次分析结果
type Analysis struct {
	Confidence     int      `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	Patterns       []string `json:"patterns"`
	RiskAssessment string   `json:"riskAssessment"`
	Mitigation     []string `json:"mitigation"`
}

// Predictions 威胁预测
type Predictions struct {
	Likelihood      int    `json:"likelihood"`
	PotentialImpact string `json:"potentialImpact"`
	Timeframe       string `json:"timeframe"`
}

// AnalysisResult 单条日志的完整分析结果
type AnalysisResult struct {
	Threat      *Threat     `json:"threat"`
	Analysis    Analysis    `json:"analysis"`
	Predictions Predictions `json:"predictions"`
}
