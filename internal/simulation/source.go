package simulation

import (
	"math/rand/v2"
	"sync"
)

// Source 为配对选择提供随机下标，测试中可注入确定性序列。
type Source interface {
	// IntN 返回 [0, n) 内的整数。
	IntN(n int) int
}

// NewSource 基于种子创建可复现的伪随机源。
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SequenceSource 按固定序列返回下标，超出 n 时取模，序列耗尽后循环。
type SequenceSource struct {
	mu     sync.Mutex
	values []int
	index  int
}

func NewSequenceSource(values ...int) *SequenceSource {
	return &SequenceSource{values: values}
}

func (s *SequenceSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == 0 || n <= 0 {
		return 0
	}
	v := s.values[s.index%len(s.values)]
	s.index++
	if v < 0 {
		v = -v
	}
	return v % n
}
