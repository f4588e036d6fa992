package models

import (
	"time"

	"cyber-shield/internal/threat/types"
)

// ThreatRecord represents a stored analysis result
type ThreatRecord struct {
	ID                 string            `json:"id" gorm:"primaryKey;size:64"`
	Type               string            `json:"type" gorm:"size:32;index"`
	Source             string            `json:"source" gorm:"size:255"`
	Severity           string            `json:"severity" gorm:"size:16;index"`
	Confidence         int               `json:"confidence"`
	RiskScore          int               `json:"risk_score"`
	Description        string            `json:"description"`
	Indicators         []string          `json:"indicators" gorm:"serializer:json"`
	RecommendedActions []string          `json:"recommended_actions" gorm:"serializer:json"`
	Analysis           types.Analysis    `json:"analysis" gorm:"serializer:json"`
	Predictions        types.Predictions `json:"predictions" gorm:"serializer:json"`
	DetectedAt         time.Time         `json:"detected_at" gorm:"index"`
	CreatedAt          time.Time         `json:"created_at"`
}

// TableName overrides the default table name
func (ThreatRecord) TableName() string {
	return "threat_records"
}

// NewThreatRecord flattens an analysis result into a record
func NewThreatRecord(result *types.AnalysisResult) *ThreatRecord {
	t := result.Threat
	return &ThreatRecord{
		ID:                 t.ID,
		Type:               string(t.Type),
		Source:             t.Source,
		Severity:           string(t.Severity),
		Confidence:         t.Confidence,
		RiskScore:          t.RiskScore,
		Description:        t.Description,
		Indicators:         t.Indicators,
		RecommendedActions: t.RecommendedActions,
		Analysis:           result.Analysis,
		Predictions:        result.Predictions,
		DetectedAt:         t.Timestamp,
	}
}

// ToResult rebuilds the analysis result
func (r *ThreatRecord) ToResult() *types.AnalysisResult {
	return &types.AnalysisResult{
		Threat: &types.Threat{
			ID:                 r.ID,
			Type:               types.ThreatType(r.Type),
			Source:             r.Source,
			Severity:           types.Severity(r.Severity),
			Confidence:         r.Confidence,
			Timestamp:          r.DetectedAt,
			Description:        r.Description,
			Indicators:         r.Indicators,
			RecommendedActions: r.RecommendedActions,
			RiskScore:          r.RiskScore,
		},
		Analysis:    r.Analysis,
		Predictions: r.Predictions,
	}
}
