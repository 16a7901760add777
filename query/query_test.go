package query

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestTermQuery(t *testing.T) {
	convey.Convey("测试 TermQuery", t, func() {
		q := Term("item_num", 10)

		sql, args, err := q.ToSQL()
		convey.So(err, convey.ShouldBeNil)
		convey.So(sql, convey.ShouldEqual, "item_num = ?")
		convey.So(args, convey.ShouldResemble, []any{10})

		mongo, err := q.ToMongo()
		convey.So(err, convey.ShouldBeNil)
		convey.So(mongo, convey.ShouldResemble, map[string]any{"item_num": 10})
	})
}

func TestRangeQuery(t *testing.T) {
	convey.Convey("测试 RangeQuery", t, func() {
		convey.Convey("双边界范围", func() {
			q := Range("price").GreaterOrEqual(10).LessThan(100)

			sql, args, err := q.ToSQL()
			convey.So(err, convey.ShouldBeNil)
			convey.So(sql, convey.ShouldEqual, "price >= ? AND price < ?")
			convey.So(args, convey.ShouldResemble, []any{10, 100})

			mongo, err := q.ToMongo()
			convey.So(err, convey.ShouldBeNil)
			convey.So(mongo, convey.ShouldResemble, map[string]any{
				"price": map[string]any{"$gte": 10, "$lt": 100},
			})
		})

		convey.Convey("空范围渲染为恒真条件", func() {
			sql, args, err := Range("price").ToSQL()
			convey.So(err, convey.ShouldBeNil)
			convey.So(sql, convey.ShouldEqual, "1=1")
			convey.So(args, convey.ShouldBeNil)
		})
	})
}

func TestMatchQuery(t *testing.T) {
	convey.Convey("测试 MatchQuery", t, func() {
		q := Match("name", "ski")

		sql, args, err := q.ToSQL()
		convey.So(err, convey.ShouldBeNil)
		convey.So(sql, convey.ShouldEqual, "name LIKE ?")
		convey.So(args, convey.ShouldResemble, []any{"%ski%"})

		mongo, err := q.ToMongo()
		convey.So(err, convey.ShouldBeNil)
		convey.So(mongo["name"], convey.ShouldResemble, map[string]any{
			"$regex":   "ski",
			"$options": "i",
		})
	})
}

func TestExistsQuery(t *testing.T) {
	convey.Convey("测试 ExistsQuery", t, func() {
		q := Exists("ship_date")

		sql, args, err := q.ToSQL()
		convey.So(err, convey.ShouldBeNil)
		convey.So(sql, convey.ShouldEqual, "ship_date IS NOT NULL")
		convey.So(args, convey.ShouldBeNil)

		mongo, err := q.ToMongo()
		convey.So(err, convey.ShouldBeNil)
		convey.So(mongo["ship_date"], convey.ShouldResemble, map[string]any{"$exists": true})
	})
}

func TestBoolQuery(t *testing.T) {
	convey.Convey("测试 BoolQuery", t, func() {
		convey.Convey("And 组合", func() {
			q := And(Term("cust_num", 1), Range("balance").GreaterThan(0))

			sql, args, err := q.ToSQL()
			convey.So(err, convey.ShouldBeNil)
			convey.So(sql, convey.ShouldEqual, "((cust_num = ?) AND (balance > ?))")
			convey.So(args, convey.ShouldResemble, []any{1, 0})
		})

		convey.Convey("Or 组合", func() {
			q := Or(Term("state", "MA"), Term("state", "NH"))

			sql, args, err := q.ToSQL()
			convey.So(err, convey.ShouldBeNil)
			convey.So(sql, convey.ShouldEqual, "((state = ?) OR (state = ?))")
			convey.So(args, convey.ShouldResemble, []any{"MA", "NH"})

			mongo, err := q.ToMongo()
			convey.So(err, convey.ShouldBeNil)
			convey.So(mongo["$or"], convey.ShouldNotBeNil)
		})

		convey.Convey("Not 组合", func() {
			q := Not(Term("state", "MA"))

			sql, args, err := q.ToSQL()
			convey.So(err, convey.ShouldBeNil)
			convey.So(sql, convey.ShouldEqual, "(NOT ((state = ?)))")
			convey.So(args, convey.ShouldResemble, []any{"MA"})
		})

		convey.Convey("空布尔查询返回错误", func() {
			_, _, err := (&BoolQuery{}).ToSQL()
			convey.So(err, convey.ShouldNotBeNil)
			_, err = (&BoolQuery{}).ToMongo()
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
