package sports

import (
	"context"

	"github.com/hatlonely/bex/entity"
	"github.com/hatlonely/bex/validate"
)

// CustomerEntity 客户实体
type CustomerEntity struct {
	*entity.Entity[Customer]
}

func NewCustomerEntityWithOptions(options *entity.Options) (*CustomerEntity, error) {
	opts := *options
	opts.Rules = append(opts.Rules,
		validate.Required("name"),
		validate.NonNegative("credit_limit", "balance"),
	)

	e, err := entity.NewEntityWithOptions[Customer](&opts)
	if err != nil {
		return nil, err
	}
	return &CustomerEntity{Entity: e}, nil
}

// GetCustomerByNumber 按客户编号获取客户，第二个返回值表示是否命中
func (e *CustomerEntity) GetCustomerByNumber(ctx context.Context, custNum int64) (*Customer, bool, error) {
	return e.GetByKey(ctx, map[string]any{"cust_num": custNum})
}

// CreateCustomer 创建客户，客户编号为零时从生成器取号
func (e *CustomerEntity) CreateCustomer(ctx context.Context, customer *Customer) error {
	return e.Create(ctx, customer)
}

// UpdateCustomer 按客户编号整条覆盖更新
func (e *CustomerEntity) UpdateCustomer(ctx context.Context, customer *Customer) error {
	return e.Update(ctx, customer)
}

// DeleteCustomer 按客户编号删除客户
func (e *CustomerEntity) DeleteCustomer(ctx context.Context, custNum int64) error {
	return e.Delete(ctx, map[string]any{"cust_num": custNum})
}

// ValidateCustomer 校验客户数据，返回全部字段错误
func (e *CustomerEntity) ValidateCustomer(customer *Customer) validate.Errors {
	return e.Validate(customer)
}
