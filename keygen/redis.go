package keygen

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	// host:port 地址
	Endpoint string `cfg:"endpoint" def:"localhost:6379"`

	// 可选密码
	Password string `cfg:"password"`

	// 数据库编号
	DB int `cfg:"db" def:"0"`

	// 序列号键前缀
	KeyPrefix string `cfg:"keyPrefix" def:"keygen:sequence"`

	// 单次操作超时时间
	Timeout time.Duration `cfg:"timeout" def:"3s"`
}

// Redis 基于 Redis INCR 的分布式生成器
// 时间戳加序列号布局与 TimestampSeq 相同，序列号由 Redis 保证跨进程唯一
type Redis struct {
	client    *redis.Client
	keyPrefix string
	timeout   time.Duration
}

func NewRedisWithOptions(options *RedisOptions) *Redis {
	if options == nil {
		options = &RedisOptions{}
	}
	if options.Endpoint == "" {
		options.Endpoint = "localhost:6379"
	}
	if options.KeyPrefix == "" {
		options.KeyPrefix = "keygen:sequence"
	}
	if options.Timeout == 0 {
		options.Timeout = 3 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     options.Endpoint,
		Password: options.Password,
		DB:       options.DB,
	})

	return &Redis{
		client:    client,
		keyPrefix: options.KeyPrefix,
		timeout:   options.Timeout,
	}
}

func (g *Redis) Generate() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	timestamp := time.Now().UnixMilli()
	key := g.keyPrefix + ":" + timestampKey(timestamp)

	sequence, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		// Redis 不可用时退化为纯时间戳
		return timestamp << sequenceBits
	}
	g.client.Expire(ctx, key, 2*time.Second)

	seq := (sequence - 1) & maxSequence
	if seq == 0 && sequence > 1 {
		// 同一毫秒内序列号用尽，等待下一毫秒
		time.Sleep(time.Millisecond)
		return g.Generate()
	}

	return (timestamp << sequenceBits) | seq
}

func (g *Redis) Close() error {
	return g.client.Close()
}

func timestampKey(timestamp int64) string {
	return time.UnixMilli(timestamp).Format("20060102150405.000")
}
