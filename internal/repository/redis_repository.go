package repository

import (
	"context"

	redisPkg "cyber-shield/internal/redis"
	"cyber-shield/internal/threat/types"
)

// RedisRepository stores results in redis
type RedisRepository struct {
	client *redisPkg.Client
	maxLen int
}

// NewRedisRepository creates a new RedisRepository; the recent list is trimmed to maxLen
func NewRedisRepository(client *redisPkg.Client, maxLen int) *RedisRepository {
	if maxLen <= 0 {
		maxLen = DefaultMemorySize
	}
	return &RedisRepository{
		client: client,
		maxLen: maxLen,
	}
}

// Save stores a result and updates the counters
func (r *RedisRepository) Save(ctx context.Context, result *types.AnalysisResult) error {
	if err := validate(result); err != nil {
		return err
	}
	return r.client.SaveThreat(ctx, result, r.maxLen)
}

// Get retrieves a result by threat id
func (r *RedisRepository) Get(ctx context.Context, id string) (*types.AnalysisResult, error) {
	result, err := r.client.GetThreat(ctx, id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrThreatNotFound
	}
	return result, nil
}

// List returns up to limit results, newest first
func (r *RedisRepository) List(ctx context.Context, limit int) ([]*types.AnalysisResult, error) {
	if limit <= 0 || limit > r.maxLen {
		limit = r.maxLen
	}
	return r.client.ListThreats(ctx, limit)
}

// Stats returns the counters maintained on save
func (r *RedisRepository) Stats(ctx context.Context) (map[string]int64, error) {
	return r.client.GetThreatStats(ctx)
}
