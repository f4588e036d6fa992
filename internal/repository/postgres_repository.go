package repository

import (
	"context"
	"errors"

	"cyber-shield/internal/models"
	"cyber-shield/internal/threat/types"

	"gorm.io/gorm"
)

// PostgresRepository handles threat record database operations
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository creates a new PostgresRepository
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// Save creates or replaces a threat record
func (r *PostgresRepository) Save(ctx context.Context, result *types.AnalysisResult) error {
	if err := validate(result); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(models.NewThreatRecord(result)).Error
}

// Get retrieves a threat record by id
func (r *PostgresRepository) Get(ctx context.Context, id string) (*types.AnalysisResult, error) {
	var record models.ThreatRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrThreatNotFound
	}
	if err != nil {
		return nil, err
	}
	return record.ToResult(), nil
}

// List returns the most recent records
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*types.AnalysisResult, error) {
	if limit <= 0 {
		limit = DefaultMemorySize
	}

	var records []models.ThreatRecord
	err := r.db.WithContext(ctx).Order("detected_at desc").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}

	results := make([]*types.AnalysisResult, 0, len(records))
	for i := range records {
		results = append(results, records[i].ToResult())
	}
	return results, nil
}

// Stats reports the stored records as total and per-severity counters
func (r *PostgresRepository) Stats(ctx context.Context) (map[string]int64, error) {
	bySeverity, err := r.CountBySeverity(ctx)
	if err != nil {
		return nil, err
	}
	return severityCounters(bySeverity), nil
}

func severityCounters(bySeverity []ThreatStats) map[string]int64 {
	stats := map[string]int64{"total": 0}
	for _, s := range bySeverity {
		stats["total"] += s.Count
		stats["severity:"+s.Severity] = s.Count
	}
	return stats
}

// ThreatStats represents aggregated counts per severity
type ThreatStats struct {
	Severity string `json:"severity"`
	Count    int64  `json:"count"`
}

// CountBySeverity aggregates stored records by severity
func (r *PostgresRepository) CountBySeverity(ctx context.Context) ([]ThreatStats, error) {
	var stats []ThreatStats
	err := r.db.WithContext(ctx).Model(&models.ThreatRecord{}).
		Select("severity, count(*) as count").
		Group("severity").
		Scan(&stats).Error
	return stats, err
}
