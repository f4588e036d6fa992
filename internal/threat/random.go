package threat

import (
	"math/rand/v2"
	"sync"
)

// RandomSource 随机数来源，Float64返回[0,1)区间的值
type RandomSource interface {
	Float64() float64
}

// globalRandom 使用math/rand/v2的全局源，可并发使用
type globalRandom struct{}

func (globalRandom) Float64() float64 {
	return rand.Float64()
}

// SeededRandom 固定种子的随机源，用于复现分析结果
type SeededRandom struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSeededRandom 创建固定种子的随机源
func NewSeededRandom(seed uint64) *SeededRandom {
	return &SeededRandom{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 返回[0,1)区间的随机数
func (s *SeededRandom) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

// FixedRandom 始终返回同一个值的随机源
type FixedRandom float64

// Float64 返回固定值
func (f FixedRandom) Float64() float64 {
	return float64(f)
}
