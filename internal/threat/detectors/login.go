package detectors

import (
	"cyber-shield/internal/threat/types"
)

// LoginDetector 登录失败检测器
type LoginDetector struct {
	known *KnownAddresses
}

// NewLoginDetector 创建登录失败检测器
func NewLoginDetector(known *KnownAddresses) *LoginDetector {
	return &LoginDetector{known: known}
}

// Detect 登录失败时标记失败尝试，来源IP不在可信集合时标记地理异常
func (d *LoginDetector) Detect(entry types.LogEntry) []string {
	if action, _ := entry.String("action"); action != "login_failed" {
		return nil
	}

	indicators := []string{types.IndicatorMultipleFailedAttempts}
	ip, _ := entry.String("ip")
	if !d.known.Contains(ip) {
		indicators = append(indicators, types.IndicatorGeographicAnomaly)
	}
	return indicators
}

// Name 返回检测器名称
func (d *LoginDetector) Name() string {
	return "login_detector"
}
