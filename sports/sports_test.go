package sports

import (
	"context"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/bex/database"
	"github.com/hatlonely/bex/entity"
	"github.com/hatlonely/bex/keygen"
	"github.com/hatlonely/bex/validate"
)

func newTestRegistry(t *testing.T) *entity.Registry {
	t.Helper()
	db, err := database.NewSQLWithOptions(&database.SQLOptions{
		Driver:   "sqlite3",
		Database: ":memory:",
		MaxConns: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	registry := BuildRegistry(&RegistryOptions{
		Database: db,
		KeyGen:   keygen.NewSequence(5000),
	})

	ctx := context.Background()
	items := entity.MustGetAs[*ItemEntity](registry, EntityItem)
	if err := items.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	customers := entity.MustGetAs[*CustomerEntity](registry, EntityCustomer)
	if err := customers.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	orders := entity.MustGetAs[*OrderEntity](registry, EntityOrder)
	if err := orders.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	return registry
}

func TestItemEntity(t *testing.T) {
	convey.Convey("测试商品实体", t, func() {
		ctx := context.Background()
		registry := newTestRegistry(t)
		items := entity.MustGetAs[*ItemEntity](registry, EntityItem)

		convey.Convey("创建后按编号读取", func() {
			item := &Item{ItemNum: 1, ItemName: "Tornado Skis", Price: 450, OnHand: 20}
			convey.So(items.Create(ctx, item), convey.ShouldBeNil)

			got, found, err := items.GetItemByNumber(ctx, 1)
			convey.So(err, convey.ShouldBeNil)
			convey.So(found, convey.ShouldBeTrue)
			convey.So(got.ItemName, convey.ShouldEqual, "Tornado Skis")
			convey.So(got.Price, convey.ShouldEqual, 450.0)
		})

		convey.Convey("不存在的编号返回未命中", func() {
			_, found, err := items.GetItemByNumber(ctx, 404)
			convey.So(err, convey.ShouldBeNil)
			convey.So(found, convey.ShouldBeFalse)
		})

		convey.Convey("负数价格拒绝写入", func() {
			err := items.Create(ctx, &Item{ItemNum: 2, ItemName: "Bad", Price: -1})
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestCustomerEntity(t *testing.T) {
	convey.Convey("测试客户实体", t, func() {
		ctx := context.Background()
		registry := newTestRegistry(t)
		customers := entity.MustGetAs[*CustomerEntity](registry, EntityCustomer)

		convey.Convey("创建自动取号并读取", func() {
			customer := &Customer{Name: "Lift Tours", City: "Boston", CreditLimit: 66700}
			convey.So(customers.CreateCustomer(ctx, customer), convey.ShouldBeNil)
			convey.So(customer.CustNum, convey.ShouldBeGreaterThanOrEqualTo, 5000)

			got, found, err := customers.GetCustomerByNumber(ctx, customer.CustNum)
			convey.So(err, convey.ShouldBeNil)
			convey.So(found, convey.ShouldBeTrue)
			convey.So(got.Name, convey.ShouldEqual, "Lift Tours")
		})

		convey.Convey("更新后读取到新值", func() {
			customer := &Customer{CustNum: 1, Name: "Lift Tours", Balance: 100}
			convey.So(customers.CreateCustomer(ctx, customer), convey.ShouldBeNil)

			customer.Balance = 250
			customer.City = "Burlington"
			convey.So(customers.UpdateCustomer(ctx, customer), convey.ShouldBeNil)

			got, _, err := customers.GetCustomerByNumber(ctx, 1)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got.Balance, convey.ShouldEqual, 250.0)
			convey.So(got.City, convey.ShouldEqual, "Burlington")
		})

		convey.Convey("删除后不可读", func() {
			customer := &Customer{CustNum: 1, Name: "Lift Tours"}
			convey.So(customers.CreateCustomer(ctx, customer), convey.ShouldBeNil)
			convey.So(customers.DeleteCustomer(ctx, 1), convey.ShouldBeNil)

			_, found, err := customers.GetCustomerByNumber(ctx, 1)
			convey.So(err, convey.ShouldBeNil)
			convey.So(found, convey.ShouldBeFalse)
		})

		convey.Convey("校验返回结构化字段错误", func() {
			es := customers.ValidateCustomer(&Customer{Balance: -10})
			convey.So(es, convey.ShouldNotBeNil)
			convey.So(es.Fields(), convey.ShouldContain, "Name")
			convey.So(es.Fields(), convey.ShouldContain, "Balance")

			for _, fe := range es {
				convey.So(fe.Reason, convey.ShouldNotBeEmpty)
			}

			convey.So(customers.ValidateCustomer(&Customer{CustNum: 1, Name: "Lift Tours"}), convey.ShouldBeNil)
		})
	})
}

func TestOrderEntity(t *testing.T) {
	convey.Convey("测试订单实体", t, func() {
		ctx := context.Background()
		registry := newTestRegistry(t)
		orders := entity.MustGetAs[*OrderEntity](registry, EntityOrder)

		convey.Convey("下单后整单读取", func() {
			ds, err := orders.NewDataset()
			convey.So(err, convey.ShouldBeNil)

			order := &Order{CustNum: 1, Carrier: "FlyByNight Courier"}
			_, err = orders.AddOrder(ds, order)
			convey.So(err, convey.ShouldBeNil)
			convey.So(order.OrderNum, convey.ShouldBeGreaterThanOrEqualTo, 5000)

			_, err = orders.AddOrderLine(ds, &OrderLine{OrderNum: order.OrderNum, LineNum: 1, ItemNum: 7, Price: 450, Qty: 2, ExtendedPrice: 900})
			convey.So(err, convey.ShouldBeNil)
			_, err = orders.AddOrderLine(ds, &OrderLine{OrderNum: order.OrderNum, LineNum: 2, ItemNum: 8, Price: 35, Qty: 1, ExtendedPrice: 35})
			convey.So(err, convey.ShouldBeNil)

			convey.So(orders.SaveOrder(ctx, ds), convey.ShouldBeNil)

			loaded, found, err := orders.GetOrderWithLines(ctx, order.OrderNum)
			convey.So(err, convey.ShouldBeNil)
			convey.So(found, convey.ShouldBeTrue)
			convey.So(loaded.MustTable("orders").Len(), convey.ShouldEqual, 1)
			convey.So(loaded.MustTable("order_lines").Len(), convey.ShouldEqual, 2)
		})

		convey.Convey("不存在的订单返回未命中", func() {
			_, found, err := orders.GetOrderWithLines(ctx, 404)
			convey.So(err, convey.ShouldBeNil)
			convey.So(found, convey.ShouldBeFalse)
		})

		convey.Convey("孤儿订单行拒绝落盘", func() {
			ds, _ := orders.NewDataset()
			_, err := orders.AddOrderLine(ds, &OrderLine{OrderNum: 999, LineNum: 1, ItemNum: 7, Qty: 1})
			convey.So(err, convey.ShouldBeNil)

			convey.So(orders.SaveOrder(ctx, ds), convey.ShouldNotBeNil)
		})

		convey.Convey("负数数量拒绝落盘", func() {
			ds, _ := orders.NewDataset()
			order := &Order{CustNum: 1}
			_, _ = orders.AddOrder(ds, order)
			_, err := orders.AddOrderLine(ds, &OrderLine{OrderNum: order.OrderNum, LineNum: 1, Qty: -1})
			convey.So(err, convey.ShouldBeNil)

			err = orders.SaveOrder(ctx, ds)
			convey.So(err, convey.ShouldNotBeNil)

			es, ok := err.(validate.Errors)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(es[0].Field, convey.ShouldEqual, "qty")
		})

		convey.Convey("修改与删除订单行再落盘", func() {
			ds, _ := orders.NewDataset()
			order := &Order{CustNum: 1}
			_, _ = orders.AddOrder(ds, order)
			_, _ = orders.AddOrderLine(ds, &OrderLine{OrderNum: order.OrderNum, LineNum: 1, ItemNum: 7, Qty: 2})
			_, _ = orders.AddOrderLine(ds, &OrderLine{OrderNum: order.OrderNum, LineNum: 2, ItemNum: 8, Qty: 1})
			convey.So(orders.SaveOrder(ctx, ds), convey.ShouldBeNil)

			loaded, found, err := orders.GetOrderWithLines(ctx, order.OrderNum)
			convey.So(err, convey.ShouldBeNil)
			convey.So(found, convey.ShouldBeTrue)

			line, ok := loaded.MustTable("order_lines").Find(map[string]any{"order_num": order.OrderNum, "line_num": 1})
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(line.Set("qty", int64(5)), convey.ShouldBeNil)

			removed, ok := loaded.MustTable("order_lines").Find(map[string]any{"order_num": order.OrderNum, "line_num": 2})
			convey.So(ok, convey.ShouldBeTrue)
			removed.MarkDeleted()

			convey.So(orders.SaveOrder(ctx, loaded), convey.ShouldBeNil)

			reloaded, _, err := orders.GetOrderWithLines(ctx, order.OrderNum)
			convey.So(err, convey.ShouldBeNil)
			convey.So(reloaded.MustTable("order_lines").Len(), convey.ShouldEqual, 1)

			kept, _ := reloaded.MustTable("order_lines").Find(map[string]any{"order_num": order.OrderNum, "line_num": 1})
			qty, _ := kept.Get("qty")
			convey.So(qty, convey.ShouldEqual, 5)
		})
	})
}

func TestBuildRegistry(t *testing.T) {
	convey.Convey("测试实体注册表装配", t, func() {
		registry := newTestRegistry(t)

		convey.Convey("重复获取返回同一实例", func() {
			first := entity.MustGetAs[*CustomerEntity](registry, EntityCustomer)
			second := entity.MustGetAs[*CustomerEntity](registry, EntityCustomer)
			convey.So(first, convey.ShouldEqual, second)
		})

		convey.Convey("重置后得到新实例", func() {
			first := entity.MustGetAs[*CustomerEntity](registry, EntityCustomer)
			registry.ResetAll()
			second := entity.MustGetAs[*CustomerEntity](registry, EntityCustomer)
			convey.So(first, convey.ShouldNotEqual, second)
		})
	})
}
