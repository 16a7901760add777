package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound 键不存在
var ErrNotFound = errors.New("cache: key not found")

// Cache 字节缓存接口，供实体层做读穿透缓存
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error
	Close() error
}

// KeyOf 根据表名和主键值构造规范化缓存键
// 主键字段按名称排序，保证同一条记录总是产生相同的键
func KeyOf(table string, pk map[string]any) string {
	keys := make([]string, 0, len(pk))
	for key := range pk {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf strings.Builder
	buf.WriteString(table)
	for _, key := range keys {
		buf.WriteString(":")
		buf.WriteString(key)
		buf.WriteString("=")
		buf.WriteString(fmt.Sprintf("%v", pk[key]))
	}
	return buf.String()
}
