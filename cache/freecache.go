package cache

import (
	"context"
	"time"

	"github.com/coocood/freecache"
)

type FreeCacheOptions struct {
	// 缓存总容量，单位字节，最小 512KB
	Size int `cfg:"size" def:"10485760"`

	// 默认 TTL，Set 未指定过期时间时使用，0 表示不过期
	DefaultTTL time.Duration `cfg:"defaultTTL"`
}

// FreeCache 进程内缓存，基于 freecache 实现
type FreeCache struct {
	cache      *freecache.Cache
	defaultTTL time.Duration
}

func NewFreeCacheWithOptions(options *FreeCacheOptions) (*FreeCache, error) {
	return &FreeCache{
		cache:      freecache.NewCache(options.Size),
		defaultTTL: options.DefaultTTL,
	}, nil
}

func (c *FreeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	return c.cache.Set([]byte(key), value, int(ttl.Seconds()))
}

func (c *FreeCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.cache.Get([]byte(key))
	if err != nil {
		return nil, ErrNotFound
	}
	return value, nil
}

func (c *FreeCache) Del(ctx context.Context, key string) error {
	c.cache.Del([]byte(key))
	return nil
}

func (c *FreeCache) Close() error {
	c.cache.Clear()
	return nil
}
