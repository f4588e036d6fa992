package detectors

import (
	"strings"

	"golang.org/x/text/cases"

	"cyber-shield/internal/threat/types"
)

// EmailDetector 邮件内容检测器
type EmailDetector struct {
	foldSubject bool
}

// NewEmailDetector 创建邮件内容检测器
// foldSubject为true时主题关键字匹配忽略大小写
func NewEmailDetector(foldSubject bool) *EmailDetector {
	return &EmailDetector{foldSubject: foldSubject}
}

// Detect 检测可疑发件人、紧急措辞和邮件链接
func (d *EmailDetector) Detect(entry types.LogEntry) []string {
	if action, _ := entry.String("action"); action != "email_received" {
		return nil
	}

	var indicators []string
	if entry.Contains("sender", "unknown") {
		indicators = append(indicators, types.IndicatorSuspiciousSender)
	}
	if d.subjectContains(entry, "urgent") {
		indicators = append(indicators, types.IndicatorUrgentLanguage)
	}
	if entry.Len("links") > 0 {
		indicators = append(indicators, types.IndicatorLinkMismatch)
	}
	return indicators
}

func (d *EmailDetector) subjectContains(entry types.LogEntry, keyword string) bool {
	if !d.foldSubject {
		return entry.Contains("subject", keyword)
	}
	// Caser 有内部状态，不能跨goroutine共享
	caser := cases.Fold()
	folded := caser.String(keyword)

	// 与 LogEntry.Contains 一致：字符串做子串匹配，列表做元素相等匹配
	switch v := entry["subject"].(type) {
	case string:
		return strings.Contains(caser.String(v), folded)
	case []string:
		for _, item := range v {
			if caser.String(item) == folded {
				return true
			}
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && caser.String(s) == folded {
				return true
			}
		}
	}
	return false
}

// Name 返回检测器名称
func (d *EmailDetector) Name() string {
	return "email_detector"
}
