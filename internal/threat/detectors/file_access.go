package detectors

import (
	"cyber-shield/internal/threat/types"
)

// FileAccessDetector 敏感文件访问检测器
type FileAccessDetector struct{}

// NewFileAccessDetector 创建敏感文件访问检测器
func NewFileAccessDetector() *FileAccessDetector {
	return &FileAccessDetector{}
}

// Detect 检测对机密文件的访问
func (d *FileAccessDetector) Detect(entry types.LogEntry) []string {
	if action, _ := entry.String("action"); action != "file_access" {
		return nil
	}
	if entry.Contains("details", "confidential") {
		return []string{types.IndicatorSuspiciousFileAccess}
	}
	return nil
}

// Name 返回检测器名称
func (d *FileAccessDetector) Name() string {
	return "file_access_detector"
}
