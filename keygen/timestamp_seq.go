package keygen

import (
	"sync"
	"time"
)

// TimestampSeq 时间戳加序列号生成器
// 高 52 位为毫秒时间戳，低 12 位为同一毫秒内的序列号
type TimestampSeq struct {
	mu        sync.Mutex
	timestamp int64
	sequence  int64
}

func NewTimestampSeq() *TimestampSeq {
	return &TimestampSeq{timestamp: time.Now().UnixMilli()}
}

func (g *TimestampSeq) Generate() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	if now == g.timestamp {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			for now <= g.timestamp {
				now = time.Now().UnixMilli()
			}
			g.timestamp = now
		}
	} else {
		g.timestamp = now
		g.sequence = 0
	}

	return (g.timestamp << sequenceBits) | g.sequence
}
