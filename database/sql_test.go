package database

import (
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/bex/query"
	"github.com/hatlonely/bex/schema"
)

var testItemTable = &schema.Table{
	Name: "items",
	Fields: []schema.Field{
		{Name: "item_num", Type: schema.FieldTypeInt},
		{Name: "item_name", Type: schema.FieldTypeString, Required: true},
		{Name: "price", Type: schema.FieldTypeFloat},
		{Name: "on_hand", Type: schema.FieldTypeInt},
	},
	PrimaryKey: []string{"item_num"},
	Indexes: []schema.Index{
		{Name: "idx_items_name", Fields: []string{"item_name"}},
	},
}

func newTestSQL(t *testing.T) *SQL {
	t.Helper()
	db, err := NewSQLWithOptions(&SQLOptions{
		Driver:   "sqlite3",
		Database: ":memory:",
	})
	if err != nil {
		t.Fatalf("NewSQLWithOptions failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLMigrate(t *testing.T) {
	convey.Convey("测试 SQL Migrate", t, func() {
		db := newTestSQL(t)
		ctx := context.Background()

		convey.So(db.Migrate(ctx, testItemTable), convey.ShouldBeNil)
		// 重复执行应该幂等
		convey.So(db.Migrate(ctx, testItemTable), convey.ShouldBeNil)

		err := db.Create(ctx, "items", NewRecord(map[string]any{
			"item_num": 1, "item_name": "skis", "price": 450.0, "on_hand": 20,
		}))
		convey.So(err, convey.ShouldBeNil)
	})
}

func TestSQLCRUD(t *testing.T) {
	convey.Convey("测试 SQL 基础读写", t, func() {
		db := newTestSQL(t)
		ctx := context.Background()
		convey.So(db.Migrate(ctx, testItemTable), convey.ShouldBeNil)

		convey.Convey("创建和读取", func() {
			err := db.Create(ctx, "items", NewRecord(map[string]any{
				"item_num": 1, "item_name": "skis", "price": 450.0, "on_hand": 20,
			}))
			convey.So(err, convey.ShouldBeNil)

			record, err := db.Get(ctx, "items", map[string]any{"item_num": 1})
			convey.So(err, convey.ShouldBeNil)
			convey.So(record.Fields()["item_name"], convey.ShouldEqual, "skis")

			convey.Convey("主键冲突返回 ErrDuplicateKey", func() {
				err := db.Create(ctx, "items", NewRecord(map[string]any{
					"item_num": 1, "item_name": "dup", "price": 0.0, "on_hand": 0,
				}))
				convey.So(err, convey.ShouldEqual, ErrDuplicateKey)
			})

			convey.Convey("WithIgnoreConflict 跳过冲突", func() {
				err := db.Create(ctx, "items", NewRecord(map[string]any{
					"item_num": 1, "item_name": "dup", "price": 0.0, "on_hand": 0,
				}), WithIgnoreConflict())
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("不存在的主键返回 ErrRecordNotFound", func() {
			_, err := db.Get(ctx, "items", map[string]any{"item_num": 999})
			convey.So(err, convey.ShouldEqual, ErrRecordNotFound)
		})

		convey.Convey("后端错误不会被当成记录不存在", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := db.Get(canceled, "items", map[string]any{"item_num": 1})
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, ErrRecordNotFound), convey.ShouldBeFalse)
		})

		convey.Convey("部分字段更新", func() {
			err := db.Create(ctx, "items", NewRecord(map[string]any{
				"item_num": 2, "item_name": "boots", "price": 120.0, "on_hand": 5,
			}))
			convey.So(err, convey.ShouldBeNil)

			err = db.Update(ctx, "items", map[string]any{"item_num": 2}, map[string]any{"price": 99.0})
			convey.So(err, convey.ShouldBeNil)

			record, err := db.Get(ctx, "items", map[string]any{"item_num": 2})
			convey.So(err, convey.ShouldBeNil)
			convey.So(record.Fields()["price"], convey.ShouldEqual, 99.0)
			convey.So(record.Fields()["item_name"], convey.ShouldEqual, "boots")

			// 空更新集合是合法的空操作
			convey.So(db.Update(ctx, "items", map[string]any{"item_num": 2}, nil), convey.ShouldBeNil)
		})

		convey.Convey("删除", func() {
			err := db.Create(ctx, "items", NewRecord(map[string]any{
				"item_num": 3, "item_name": "poles", "price": 30.0, "on_hand": 50,
			}))
			convey.So(err, convey.ShouldBeNil)

			convey.So(db.Delete(ctx, "items", map[string]any{"item_num": 3}), convey.ShouldBeNil)

			_, err = db.Get(ctx, "items", map[string]any{"item_num": 3})
			convey.So(err, convey.ShouldEqual, ErrRecordNotFound)
		})
	})
}

func TestSQLFind(t *testing.T) {
	convey.Convey("测试 SQL Find", t, func() {
		db := newTestSQL(t)
		ctx := context.Background()
		convey.So(db.Migrate(ctx, testItemTable), convey.ShouldBeNil)

		records := []Record{
			NewRecord(map[string]any{"item_num": 1, "item_name": "skis", "price": 450.0, "on_hand": 20}),
			NewRecord(map[string]any{"item_num": 2, "item_name": "boots", "price": 120.0, "on_hand": 5}),
			NewRecord(map[string]any{"item_num": 3, "item_name": "poles", "price": 30.0, "on_hand": 50}),
		}
		convey.So(db.BatchCreate(ctx, "items", records), convey.ShouldBeNil)

		convey.Convey("范围查询", func() {
			results, err := db.Find(ctx, "items", query.Range("price").GreaterOrEqual(100.0))
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(results), convey.ShouldEqual, 2)
		})

		convey.Convey("排序和分页", func() {
			results, err := db.Find(ctx, "items", query.Range("price"),
				WithOrderBy("price", true), WithLimit(2), WithOffset(1))
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(results), convey.ShouldEqual, 2)
			convey.So(results[0].Fields()["item_name"], convey.ShouldEqual, "boots")
		})

		convey.Convey("布尔组合查询", func() {
			results, err := db.Find(ctx, "items", query.And(
				query.Range("price").LessThan(200.0),
				query.Range("on_hand").GreaterThan(10),
			))
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(results), convey.ShouldEqual, 1)
			convey.So(results[0].Fields()["item_name"], convey.ShouldEqual, "poles")
		})

		convey.Convey("Scan 填充结构体", func() {
			type item struct {
				ItemNum  int64   `bex:"item_num"`
				ItemName string  `bex:"item_name"`
				Price    float64 `bex:"price"`
			}
			results, err := db.Find(ctx, "items", query.Term("item_num", 1))
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(results), convey.ShouldEqual, 1)

			var got item
			convey.So(results[0].Scan(&got), convey.ShouldBeNil)
			convey.So(got.ItemName, convey.ShouldEqual, "skis")
			convey.So(got.Price, convey.ShouldEqual, 450.0)
		})
	})
}

func TestSQLTransaction(t *testing.T) {
	convey.Convey("测试 SQL 事务", t, func() {
		db := newTestSQL(t)
		ctx := context.Background()
		convey.So(db.Migrate(ctx, testItemTable), convey.ShouldBeNil)

		convey.Convey("提交后数据可见", func() {
			err := db.WithTx(ctx, func(tx Executor) error {
				return tx.Create(ctx, "items", NewRecord(map[string]any{
					"item_num": 1, "item_name": "skis", "price": 450.0, "on_hand": 20,
				}))
			})
			convey.So(err, convey.ShouldBeNil)

			_, err = db.Get(ctx, "items", map[string]any{"item_num": 1})
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("回滚后数据不可见", func() {
			err := db.WithTx(ctx, func(tx Executor) error {
				if err := tx.Create(ctx, "items", NewRecord(map[string]any{
					"item_num": 2, "item_name": "boots", "price": 120.0, "on_hand": 5,
				})); err != nil {
					return err
				}
				return ErrDuplicateKey // 人为制造失败
			})
			convey.So(err, convey.ShouldNotBeNil)

			_, err = db.Get(ctx, "items", map[string]any{"item_num": 2})
			convey.So(err, convey.ShouldEqual, ErrRecordNotFound)
		})
	})
}
