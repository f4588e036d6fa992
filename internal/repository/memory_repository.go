package repository

import (
	"context"
	"sync"

	"cyber-shield/internal/threat/types"
)

// DefaultMemorySize is used when no positive capacity is given
const DefaultMemorySize = 1000

// MemoryRepository keeps the most recent results in a fixed-size ring
type MemoryRepository struct {
	mu    sync.RWMutex
	ring  []*types.AnalysisResult
	next  int
	count int
	byID  map[string]*types.AnalysisResult
}

// NewMemoryRepository creates a new MemoryRepository
func NewMemoryRepository(size int) *MemoryRepository {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &MemoryRepository{
		ring: make([]*types.AnalysisResult, size),
		byID: make(map[string]*types.AnalysisResult, size),
	}
}

// Save stores a result, evicting the oldest one when full
func (r *MemoryRepository) Save(ctx context.Context, result *types.AnalysisResult) error {
	if err := validate(result); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old := r.ring[r.next]; old != nil && r.byID[old.Threat.ID] == old {
		delete(r.byID, old.Threat.ID)
	}
	r.ring[r.next] = result
	r.byID[result.Threat.ID] = result
	r.next = (r.next + 1) % len(r.ring)
	if r.count < len(r.ring) {
		r.count++
	}
	return nil
}

// Get retrieves a result by threat id
func (r *MemoryRepository) Get(ctx context.Context, id string) (*types.AnalysisResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result, ok := r.byID[id]
	if !ok {
		return nil, ErrThreatNotFound
	}
	return result, nil
}

// List returns up to limit results, newest first
func (r *MemoryRepository) List(ctx context.Context, limit int) ([]*types.AnalysisResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > r.count {
		limit = r.count
	}

	results := make([]*types.AnalysisResult, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (r.next - i + len(r.ring)) % len(r.ring)
		results = append(results, r.ring[idx])
	}
	return results, nil
}

// Stats counts the results currently held in the ring
func (r *MemoryRepository) Stats(ctx context.Context) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := map[string]int64{"total": int64(r.count), "risk_sum": 0}
	for _, result := range r.ring {
		if result == nil {
			continue
		}
		stats["risk_sum"] += int64(result.Threat.RiskScore)
		stats["severity:"+string(result.Threat.Severity)]++
		stats["type:"+string(result.Threat.Type)]++
	}
	return stats, nil
}

// Len returns the number of stored results
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
