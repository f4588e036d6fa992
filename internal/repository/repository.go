package repository

import (
	"context"
	"errors"
	"fmt"

	"cyber-shield/internal/config"
	"cyber-shield/internal/db"
	redisPkg "cyber-shield/internal/redis"
	"cyber-shield/internal/threat/types"
)

// ErrThreatNotFound is returned when no record matches the given id
var ErrThreatNotFound = errors.New("threat not found")

// ThreatRepository stores analysis results
type ThreatRepository interface {
	// Save stores a result; results without a threat are rejected
	Save(ctx context.Context, result *types.AnalysisResult) error
	// Get returns ErrThreatNotFound for unknown ids
	Get(ctx context.Context, id string) (*types.AnalysisResult, error)
	// List returns up to limit results, newest first
	List(ctx context.Context, limit int) ([]*types.AnalysisResult, error)
}

// StatsRepository is implemented by backends that keep aggregate counters.
// Keys are "total", "risk_sum", "severity:<level>" and "type:<kind>".
type StatsRepository interface {
	Stats(ctx context.Context) (map[string]int64, error)
}

// New creates the repository selected by storage.type
func New(cfg *config.Config, redisClient *redisPkg.Client) (ThreatRepository, error) {
	switch cfg.Storage.Type {
	case "memory", "":
		return NewMemoryRepository(cfg.Storage.MemorySize), nil
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("redis storage requires a redis connection")
		}
		redisClient.SetTTL(cfg.Storage.RecordTTL)
		return NewRedisRepository(redisClient, cfg.Storage.MemorySize), nil
	case "postgres":
		if db.GetDB() == nil {
			if err := db.InitDB(cfg); err != nil {
				return nil, err
			}
		}
		return NewPostgresRepository(db.GetDB()), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}

func validate(result *types.AnalysisResult) error {
	if result == nil || result.Threat == nil {
		return fmt.Errorf("cannot save empty analysis result")
	}
	if result.Threat.ID == "" {
		return fmt.Errorf("cannot save threat without id")
	}
	return nil
}
