package keygen

import "sync/atomic"

// Generator 整数主键生成器接口
type Generator interface {
	Generate() int64
}

// Sequence 从给定起点递增的生成器，适合测试和单机场景
type Sequence struct {
	next int64
}

// NewSequence 创建序列生成器，第一次 Generate 返回 start
func NewSequence(start int64) *Sequence {
	return &Sequence{next: start - 1}
}

func (g *Sequence) Generate() int64 {
	return atomic.AddInt64(&g.next, 1)
}
