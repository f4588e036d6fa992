package detectors

import (
	"cyber-shield/internal/threat/types"
)

// LargeTransferBytes 大流量传输阈值（字节）
const LargeTransferBytes = 1000000

// NetworkDetector 网络流量检测器
type NetworkDetector struct{}

// NewNetworkDetector 创建网络流量检测器
func NewNetworkDetector() *NetworkDetector {
	return &NetworkDetector{}
}

// Detect 检测超过阈值的数据传输
func (d *NetworkDetector) Detect(entry types.LogEntry) []string {
	if action, _ := entry.String("action"); action != "network_traffic" {
		return nil
	}
	if size, ok := entry.Number("size"); ok && size > LargeTransferBytes {
		return []string{types.IndicatorLargeDataTransfer}
	}
	return nil
}

// Name 返回检测器名称
func (d *NetworkDetector) Name() string {
	return "network_detector"
}
