package keygen

import (
	"net"
	"sync"
	"time"
)

const (
	sequenceBits  = 12
	machineIDBits = 10

	maxSequence  = (1 << sequenceBits) - 1  // 4095
	maxMachineID = (1 << machineIDBits) - 1 // 1023

	machineIDShift = sequenceBits
	timestampShift = sequenceBits + machineIDBits
)

type SnowflakeOptions struct {
	// 机器 ID，0~1023，-1 表示从本机 IP 推导
	MachineID int64 `cfg:"machineID" def:"-1"`
}

// Snowflake 雪花算法生成器
// 64 位结构：1 位符号位(0) + 41 位时间戳 + 10 位机器 ID + 12 位序列号
type Snowflake struct {
	mu        sync.Mutex
	machineID int64
	epoch     int64
	timestamp int64
	sequence  int64
}

func NewSnowflakeWithOptions(options *SnowflakeOptions) (*Snowflake, error) {
	if options == nil {
		options = &SnowflakeOptions{MachineID: -1}
	}

	machineID := options.MachineID
	if machineID < 0 {
		machineID = machineIDFromIP()
	}
	machineID &= maxMachineID

	// 起始纪元固定为 2020-01-01 00:00:00 UTC
	epoch := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	return &Snowflake{
		machineID: machineID,
		epoch:     epoch,
		timestamp: time.Now().UnixMilli() - epoch,
	}, nil
}

func (g *Snowflake) Generate() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli() - g.epoch
	if now == g.timestamp {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// 序列号溢出，等待下一毫秒
			for now <= g.timestamp {
				now = time.Now().UnixMilli() - g.epoch
			}
			g.timestamp = now
		}
	} else {
		g.timestamp = now
		g.sequence = 0
	}

	return (g.timestamp << timestampShift) | (g.machineID << machineIDShift) | g.sequence
}

// machineIDFromIP 取本机第一个非回环 IPv4 地址的后两个字节
func machineIDFromIP() int64 {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return 0
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipv4 := ipnet.IP.To4(); ipv4 != nil {
				return int64(ipv4[2])<<8 | int64(ipv4[3])
			}
		}
	}
	return 0
}
