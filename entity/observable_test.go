package entity

import (
	"context"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/bex/query"
)

func TestObservableEntity(t *testing.T) {
	convey.Convey("测试可观测实体装饰器", t, func() {
		ctx := context.Background()
		db := newTestDB(t)
		inner := newTestEntity(t, &Options{Database: db})

		obs, err := NewObservableEntityWithOptions[testItem](inner, nil, &ObservableOptions{
			Name:          "test_observable_entity",
			EnableMetrics: false,
			EnableLogging: true,
		})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("操作透传到内部实体", func() {
			convey.So(obs.Create(ctx, &testItem{ItemNum: 1, ItemName: "skis", Price: 450}), convey.ShouldBeNil)

			got, found, err := obs.GetByKey(ctx, map[string]any{"item_num": int64(1)})
			convey.So(err, convey.ShouldBeNil)
			convey.So(found, convey.ShouldBeTrue)
			convey.So(got.ItemName, convey.ShouldEqual, "skis")

			items, err := obs.Find(ctx, query.Exists("item_num"))
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(items), convey.ShouldEqual, 1)

			convey.So(obs.Update(ctx, &testItem{ItemNum: 1, ItemName: "skis pro", Price: 500}), convey.ShouldBeNil)
			convey.So(obs.Delete(ctx, map[string]any{"item_num": int64(1)}), convey.ShouldBeNil)

			_, found, err = obs.GetByKey(ctx, map[string]any{"item_num": int64(1)})
			convey.So(err, convey.ShouldBeNil)
			convey.So(found, convey.ShouldBeFalse)
		})

		convey.Convey("校验错误透传", func() {
			convey.So(obs.Validate(&testItem{ItemNum: 1}), convey.ShouldNotBeNil)
		})

		convey.Convey("内部实体为空返回错误", func() {
			_, err := NewObservableEntityWithOptions[testItem](nil, nil, nil)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestObservableMetrics(t *testing.T) {
	convey.Convey("测试指标收集", t, func() {
		ctx := context.Background()
		db := newTestDB(t)
		inner := newTestEntity(t, &Options{Database: db})

		// 指标注册到全局 registry，名字在测试二进制内唯一
		obs, err := NewObservableEntityWithOptions[testItem](inner, nil, &ObservableOptions{
			Name:          "test_observable_metrics",
			EnableMetrics: true,
		})
		convey.So(err, convey.ShouldBeNil)

		convey.So(obs.Create(ctx, &testItem{ItemNum: 1, ItemName: "skis"}), convey.ShouldBeNil)
		_, _, err = obs.Get(ctx, query.Term("item_num", 1))
		convey.So(err, convey.ShouldBeNil)
	})
}
