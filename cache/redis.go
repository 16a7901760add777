package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	// host:port 地址
	Endpoint string `cfg:"endpoint" validate:"required"`

	// 可选用户名，Redis 6.0 及以上 ACL 系统使用
	Username string `cfg:"username"`

	// 可选密码
	Password string `cfg:"password"`

	// 连接到服务器后选择的数据库
	DB int `cfg:"db" def:"0"`

	// 放弃前的最大重试次数，-1 禁用重试
	MaxRetries int `cfg:"maxRetries" def:"3"`

	// 建立新连接的拨号超时时间
	DialTimeout time.Duration `cfg:"dialTimeout" def:"5s"`

	// 套接字读取的超时时间
	ReadTimeout time.Duration `cfg:"readTimeout" def:"3s"`

	// 套接字写入的超时时间
	WriteTimeout time.Duration `cfg:"writeTimeout" def:"3s"`

	// 连接池大小
	PoolSize int `cfg:"poolSize" def:"100"`

	// 默认 TTL，Set 未指定过期时间时使用，0 表示不过期
	DefaultTTL time.Duration `cfg:"defaultTTL"`
}

// Redis 共享缓存，基于 go-redis 实现
type Redis struct {
	client     *redis.Client
	defaultTTL time.Duration
}

func NewRedisWithOptions(options *RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         options.Endpoint,
		Username:     options.Username,
		Password:     options.Password,
		DB:           options.DB,
		MaxRetries:   options.MaxRetries,
		DialTimeout:  options.DialTimeout,
		ReadTimeout:  options.ReadTimeout,
		WriteTimeout: options.WriteTimeout,
		PoolSize:     options.PoolSize,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.WithMessage(err, "redis.client.Ping failed")
	}

	return &Redis{
		client:     client,
		defaultTTL: options.DefaultTTL,
	}, nil
}

func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.WithMessage(err, "redis.client.Set failed")
	}
	return nil
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, errors.WithMessage(err, "redis.client.Get failed")
	}
	return value, nil
}

func (c *Redis) Del(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return errors.WithMessage(err, "redis.client.Del failed")
	}
	return nil
}

func (c *Redis) Close() error {
	return c.client.Close()
}
