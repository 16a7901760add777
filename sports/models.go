package sports

import (
	"time"

	"github.com/hatlonely/bex/schema"
)

// Item 商品
type Item struct {
	ItemNum        int64   `bex:"item_num,primary"`
	ItemName       string  `bex:"item_name,required,size=64" validate:"required"`
	Price          float64 `bex:"price" validate:"gte=0"`
	OnHand         int64   `bex:"on_hand" validate:"gte=0"`
	Allocated      int64   `bex:"allocated" validate:"gte=0"`
	ReOrder        int64   `bex:"re_order"`
	OnOrder        int64   `bex:"on_order"`
	CatDescription string  `bex:"cat_description,size=512"`
}

func (Item) TableName() string { return "items" }

// Customer 客户
type Customer struct {
	CustNum     int64   `bex:"cust_num,primary"`
	Name        string  `bex:"name,required,size=64" validate:"required"`
	Country     string  `bex:"country,size=32"`
	Address     string  `bex:"address,size=128"`
	City        string  `bex:"city,size=64"`
	State       string  `bex:"state,size=32"`
	PostalCode  string  `bex:"postal_code,size=16"`
	Phone       string  `bex:"phone,size=32"`
	CreditLimit float64 `bex:"credit_limit" validate:"gte=0"`
	Balance     float64 `bex:"balance" validate:"gte=0"`
	SalesRep    string  `bex:"sales_rep,size=32"`
}

func (Customer) TableName() string { return "customers" }

// Order 订单
type Order struct {
	OrderNum     int64     `bex:"order_num,primary"`
	CustNum      int64     `bex:"cust_num,required" validate:"required"`
	OrderDate    time.Time `bex:"order_date"`
	ShipDate     time.Time `bex:"ship_date"`
	PromiseDate  time.Time `bex:"promise_date"`
	Carrier      string    `bex:"carrier,size=64"`
	Instructions string    `bex:"instructions,size=256"`
	PO           string    `bex:"po,size=32"`
	Terms        string    `bex:"terms,size=64"`
	SalesRep     string    `bex:"sales_rep,size=32"`
}

func (Order) TableName() string { return "orders" }

// OrderLine 订单行
type OrderLine struct {
	OrderNum      int64   `bex:"order_num,primary"`
	LineNum       int64   `bex:"line_num,primary"`
	ItemNum       int64   `bex:"item_num"`
	Price         float64 `bex:"price" validate:"gte=0"`
	Qty           int64   `bex:"qty" validate:"gte=0"`
	Discount      int64   `bex:"discount" validate:"gte=0,lte=100"`
	ExtendedPrice float64 `bex:"extended_price"`
}

func (OrderLine) TableName() string { return "order_lines" }

// DSOrder 订单数据集定义，订单行通过 order_num 关联到订单
func DSOrder() *schema.Dataset {
	return &schema.Dataset{
		Name: "dsOrder",
		Tables: []*schema.Table{
			schema.MustOf[Order](),
			schema.MustOf[OrderLine](),
		},
		Relations: []schema.Relation{
			{
				Parent: "orders",
				Child:  "order_lines",
				Fields: []schema.RelationField{{ParentField: "order_num", ChildField: "order_num"}},
			},
		},
	}
}
