package sports

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hatlonely/bex/database"
	"github.com/hatlonely/bex/dataset"
	"github.com/hatlonely/bex/entity"
	"github.com/hatlonely/bex/keygen"
	"github.com/hatlonely/bex/log"
	"github.com/hatlonely/bex/query"
	"github.com/hatlonely/bex/validate"
)

// OrderEntityOptions 订单实体依赖配置
type OrderEntityOptions struct {
	// 数据库后端，必填
	Database database.Database

	// 订单号生成器，为 nil 时不自动取号
	KeyGen keygen.Generator

	// 日志记录器
	Logger log.Logger
}

// OrderEntity 订单实体，订单和订单行作为一个数据集整体读写
type OrderEntity struct {
	ds     *entity.DatasetEntity
	keyGen keygen.Generator
}

func NewOrderEntityWithOptions(options *OrderEntityOptions) (*OrderEntity, error) {
	if options == nil || options.Database == nil {
		return nil, errors.New("database is required")
	}

	ds, err := entity.NewDatasetEntityWithOptions(&entity.DatasetOptions{
		Database: options.Database,
		Schema:   DSOrder(),
		Logger:   options.Logger,
		Rules: map[string][]validate.Rule{
			"orders":      {validate.Required("cust_num")},
			"order_lines": {validate.NonNegative("qty", "price")},
		},
	})
	if err != nil {
		return nil, err
	}

	return &OrderEntity{ds: ds, keyGen: options.KeyGen}, nil
}

// Migrate 创建订单和订单行表
func (e *OrderEntity) Migrate(ctx context.Context) error {
	return e.ds.Migrate(ctx)
}

// NewDataset 创建空的订单数据集
func (e *OrderEntity) NewDataset() (*dataset.Dataset, error) {
	return e.ds.NewDataset()
}

// AddOrder 向数据集追加一笔新订单，订单号为零时从生成器取号
func (e *OrderEntity) AddOrder(ds *dataset.Dataset, order *Order) (*dataset.Row, error) {
	if order.OrderNum == 0 {
		if e.keyGen == nil {
			return nil, errors.New("order number is required when no key generator is configured")
		}
		order.OrderNum = e.keyGen.Generate()
	}
	return ds.MustTable("orders").Append(database.FromStruct(order).Fields())
}

// AddOrderLine 向数据集追加一条订单行
func (e *OrderEntity) AddOrderLine(ds *dataset.Dataset, line *OrderLine) (*dataset.Row, error) {
	return ds.MustTable("order_lines").Append(database.FromStruct(line).Fields())
}

// GetOrderWithLines 按订单号装载订单及其全部订单行
// 订单不存在时第二个返回值为 false
func (e *OrderEntity) GetOrderWithLines(ctx context.Context, orderNum int64) (*dataset.Dataset, bool, error) {
	ds, err := e.ds.NewDataset()
	if err != nil {
		return nil, false, err
	}

	if err := e.ds.Fill(ctx, ds, "orders", query.Term("order_num", orderNum)); err != nil {
		return nil, false, err
	}
	if ds.MustTable("orders").Len() == 0 {
		return nil, false, nil
	}

	if err := e.ds.Fill(ctx, ds, "order_lines", query.Term("order_num", orderNum)); err != nil {
		return nil, false, err
	}
	return ds, true, nil
}

// SaveOrder 在单个事务中落盘数据集的全部变更
// 落盘前做关联一致性检查和业务规则校验
func (e *OrderEntity) SaveOrder(ctx context.Context, ds *dataset.Dataset) error {
	return e.ds.Save(ctx, ds)
}
