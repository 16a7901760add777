package database

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/smartystreets/goconvey/convey"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hatlonely/bex/query"
)

// 需要本地 MongoDB 实例，连不上时跳过
func newTestMongo(t *testing.T) *Mongo {
	t.Helper()
	db, err := NewMongoWithOptions(&MongoOptions{
		Host:     "localhost",
		Port:     27017,
		Database: "bex_test",
		Timeout:  2 * time.Second,
	})
	if err != nil {
		t.Skipf("mongodb not available: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMongoCRUD(t *testing.T) {
	db := newTestMongo(t)

	convey.Convey("测试 Mongo 基础读写", t, func() {
		ctx := context.Background()
		_ = db.database.Collection("items").Drop(ctx)
		convey.So(db.Migrate(ctx, testItemTable), convey.ShouldBeNil)

		err := db.Create(ctx, "items", NewRecord(map[string]any{
			"item_num": 1, "item_name": "skis", "price": 450.0, "on_hand": 20,
		}))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("主键唯一索引生效", func() {
			err := db.Create(ctx, "items", NewRecord(map[string]any{
				"item_num": 1, "item_name": "dup",
			}))
			convey.So(err, convey.ShouldEqual, ErrDuplicateKey)
		})

		convey.Convey("读取更新删除", func() {
			record, err := db.Get(ctx, "items", map[string]any{"item_num": 1})
			convey.So(err, convey.ShouldBeNil)
			convey.So(record.Fields()["item_name"], convey.ShouldEqual, "skis")

			err = db.Update(ctx, "items", map[string]any{"item_num": 1}, map[string]any{"price": 400.0})
			convey.So(err, convey.ShouldBeNil)

			results, err := db.Find(ctx, "items", query.Range("price").LessOrEqual(400.0))
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(results), convey.ShouldEqual, 1)

			convey.So(db.Delete(ctx, "items", map[string]any{"item_num": 1}), convey.ShouldBeNil)
			_, err = db.Get(ctx, "items", map[string]any{"item_num": 1})
			convey.So(err, convey.ShouldEqual, ErrRecordNotFound)
		})
	})
}

func TestTransactionUnsupported(t *testing.T) {
	convey.Convey("测试单机事务报错识别", t, func() {
		convey.Convey("识别 IllegalOperation 事务报错", func() {
			err := mongo.CommandError{
				Code:    20,
				Name:    "IllegalOperation",
				Message: "Transaction numbers are only allowed on a replica set member or mongos",
			}
			convey.So(transactionUnsupported(err), convey.ShouldBeTrue)
			convey.So(transactionUnsupported(errors.WithMessage(err, "mongo transaction failed")), convey.ShouldBeTrue)
		})

		convey.Convey("其他报错不触发退化", func() {
			convey.So(transactionUnsupported(errors.New("connection reset")), convey.ShouldBeFalse)
			convey.So(transactionUnsupported(mongo.CommandError{Code: 11000, Message: "duplicate key"}), convey.ShouldBeFalse)
		})
	})
}
