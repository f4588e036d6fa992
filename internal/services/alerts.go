package services

import (
	"encoding/json"
	"fmt"
	"time"

	"cyber-shield/internal/logging"
	"cyber-shield/internal/threat/types"
)

// Publisher 消息发布接口，由 redis.Subscriber 实现
type Publisher interface {
	Publish(channel, message string) error
}

// Alert 告警消息
type Alert struct {
	ThreatID    string           `json:"threat_id"`
	Type        types.ThreatType `json:"type"`
	Severity    types.Severity   `json:"severity"`
	Source      string           `json:"source"`
	Confidence  int              `json:"confidence"`
	RiskScore   int              `json:"risk_score"`
	Description string           `json:"description"`
	Actions     []string         `json:"recommended_actions"`
	DetectedAt  time.Time        `json:"detected_at"`
}

// AlertNotifier 将达到告警等级的威胁发布到频道
type AlertNotifier struct {
	publisher   Publisher
	channel     string
	minSeverity types.Severity
}

// NewAlertNotifier 创建告警发布器
func NewAlertNotifier(publisher Publisher, channel string, minSeverity string) (*AlertNotifier, error) {
	severity, ok := types.ParseSeverity(minSeverity)
	if !ok {
		return nil, fmt.Errorf("unknown alert severity: %q", minSeverity)
	}
	if channel == "" {
		return nil, fmt.Errorf("alert channel must not be empty")
	}
	return &AlertNotifier{
		publisher:   publisher,
		channel:     channel,
		minSeverity: severity,
	}, nil
}

// Notify 发布告警，返回是否已发布
func (n *AlertNotifier) Notify(result *types.AnalysisResult) (bool, error) {
	if result == nil || result.Threat == nil {
		return false, nil
	}
	t := result.Threat
	if !t.Severity.AtLeast(n.minSeverity) {
		return false, nil
	}

	payload, err := json.Marshal(Alert{
		ThreatID:    t.ID,
		Type:        t.Type,
		Severity:    t.Severity,
		Source:      t.Source,
		Confidence:  t.Confidence,
		RiskScore:   t.RiskScore,
		Description: t.Description,
		Actions:     t.RecommendedActions,
		DetectedAt:  t.Timestamp,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal alert: %w", err)
	}

	if err := n.publisher.Publish(n.channel, string(payload)); err != nil {
		return false, fmt.Errorf("failed to publish alert %s: %w", t.ID, err)
	}
	return true, nil
}

// Channel 返回告警频道
func (n *AlertNotifier) Channel() string {
	return n.channel
}

// NewAuditAlertHandler 返回订阅处理函数，将收到的告警写入审计日志
func NewAuditAlertHandler(logger logging.LoggerInterface) func(channel, payload string) {
	return func(channel, payload string) {
		var alert Alert
		if err := json.Unmarshal([]byte(payload), &alert); err != nil {
			logger.Warn("Discarding malformed alert on %s: %v", channel, err)
			return
		}
		logger.LogSecurityEvent("threat_alert", "", map[string]interface{}{
			"threat_id":  alert.ThreatID,
			"type":       alert.Type,
			"severity":   alert.Severity,
			"source":     alert.Source,
			"risk_score": alert.RiskScore,
		}, "alerted", alert.Description)
	}
}
