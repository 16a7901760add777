package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/smartystreets/goconvey/convey"
)

func TestKeyOf(t *testing.T) {
	convey.Convey("测试缓存键构造", t, func() {
		convey.Convey("字段按名称排序", func() {
			key1 := KeyOf("order_lines", map[string]any{"order_num": 100, "line_num": 1})
			key2 := KeyOf("order_lines", map[string]any{"line_num": 1, "order_num": 100})
			convey.So(key1, convey.ShouldEqual, key2)
			convey.So(key1, convey.ShouldEqual, "order_lines:line_num=1:order_num=100")
		})

		convey.Convey("单字段主键", func() {
			convey.So(KeyOf("items", map[string]any{"item_num": int64(5)}), convey.ShouldEqual, "items:item_num=5")
		})
	})
}

func TestFreeCache(t *testing.T) {
	convey.Convey("测试进程内缓存", t, func() {
		c, err := NewFreeCacheWithOptions(&FreeCacheOptions{Size: 1024 * 1024})
		convey.So(err, convey.ShouldBeNil)
		defer c.Close()
		ctx := context.Background()

		convey.Convey("设置后读取", func() {
			convey.So(c.Set(ctx, "key1", []byte("val1"), 0), convey.ShouldBeNil)
			value, err := c.Get(ctx, "key1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(value), convey.ShouldEqual, "val1")
		})

		convey.Convey("不存在的键返回 ErrNotFound", func() {
			_, err := c.Get(ctx, "not-exist")
			convey.So(err, convey.ShouldEqual, ErrNotFound)
		})

		convey.Convey("删除后读取失败", func() {
			convey.So(c.Set(ctx, "key1", []byte("val1"), 0), convey.ShouldBeNil)
			convey.So(c.Del(ctx, "key1"), convey.ShouldBeNil)
			_, err := c.Get(ctx, "key1")
			convey.So(err, convey.ShouldEqual, ErrNotFound)
		})
	})
}

func TestRedis(t *testing.T) {
	convey.Convey("测试 Redis 缓存", t, func() {
		server := miniredis.RunT(t)
		c, err := NewRedisWithOptions(&RedisOptions{Endpoint: server.Addr()})
		convey.So(err, convey.ShouldBeNil)
		defer c.Close()
		ctx := context.Background()

		convey.Convey("设置后读取", func() {
			convey.So(c.Set(ctx, "key1", []byte("val1"), 0), convey.ShouldBeNil)
			value, err := c.Get(ctx, "key1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(value), convey.ShouldEqual, "val1")
		})

		convey.Convey("不存在的键返回 ErrNotFound", func() {
			_, err := c.Get(ctx, "not-exist")
			convey.So(err, convey.ShouldEqual, ErrNotFound)
		})

		convey.Convey("TTL 过期后不可读", func() {
			convey.So(c.Set(ctx, "key1", []byte("val1"), time.Second), convey.ShouldBeNil)
			server.FastForward(2 * time.Second)
			_, err := c.Get(ctx, "key1")
			convey.So(err, convey.ShouldEqual, ErrNotFound)
		})

		convey.Convey("删除后读取失败", func() {
			convey.So(c.Set(ctx, "key1", []byte("val1"), 0), convey.ShouldBeNil)
			convey.So(c.Del(ctx, "key1"), convey.ShouldBeNil)
			_, err := c.Get(ctx, "key1")
			convey.So(err, convey.ShouldEqual, ErrNotFound)
		})
	})
}
