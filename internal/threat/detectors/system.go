package detectors

import (
	"cyber-shield/internal/threat/types"
)

// SystemDetector 系统行为异常检测器
type SystemDetector struct{}

// NewSystemDetector 创建系统行为异常检测器
func NewSystemDetector() *SystemDetector {
	return &SystemDetector{}
}

// Detect 系统上报异常时标记行为异常和基线偏离
func (d *SystemDetector) Detect(entry types.LogEntry) []string {
	if action, _ := entry.String("action"); action != "system_anomaly" {
		return nil
	}
	return []string{types.IndicatorBehaviorAnomaly, types.IndicatorDeviationFromBaseline}
}

// Name 返回检测器名称
func (d *SystemDetector) Name() string {
	return "system_detector"
}
