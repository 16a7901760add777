package sports

import (
	"context"

	"github.com/hatlonely/bex/entity"
	"github.com/hatlonely/bex/validate"
)

// ItemEntity 商品实体
type ItemEntity struct {
	*entity.Entity[Item]
}

func NewItemEntityWithOptions(options *entity.Options) (*ItemEntity, error) {
	opts := *options
	opts.Rules = append(opts.Rules,
		validate.Required("item_name"),
		validate.NonNegative("price", "on_hand", "allocated"),
	)

	e, err := entity.NewEntityWithOptions[Item](&opts)
	if err != nil {
		return nil, err
	}
	return &ItemEntity{Entity: e}, nil
}

// GetItemByNumber 按商品编号获取商品，第二个返回值表示是否命中
func (e *ItemEntity) GetItemByNumber(ctx context.Context, itemNum int64) (*Item, bool, error) {
	return e.GetByKey(ctx, map[string]any{"item_num": itemNum})
}
