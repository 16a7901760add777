package sports

import (
	"time"

	"github.com/hatlonely/bex/cache"
	"github.com/hatlonely/bex/database"
	"github.com/hatlonely/bex/entity"
	"github.com/hatlonely/bex/keygen"
	"github.com/hatlonely/bex/log"
)

// 注册表中的实体名称
const (
	EntityItem     = "item"
	EntityCustomer = "customer"
	EntityOrder    = "order"
)

// RegistryOptions 实体注册表的共享依赖
type RegistryOptions struct {
	// 数据库后端，必填
	Database database.Database

	// 读穿透缓存，为 nil 时不启用
	Cache cache.Cache

	// 缓存过期时间
	CacheTTL time.Duration

	// 主键生成器
	KeyGen keygen.Generator

	// 日志记录器
	Logger log.Logger
}

// BuildRegistry 构建业务实体注册表
// 实体在首次获取时构造，同名实体共享同一实例
func BuildRegistry(options *RegistryOptions) *entity.Registry {
	registry := entity.NewRegistry()

	registry.Register(EntityItem, func() (any, error) {
		return NewItemEntityWithOptions(&entity.Options{
			Database: options.Database,
			Cache:    options.Cache,
			CacheTTL: options.CacheTTL,
			KeyGen:   options.KeyGen,
			Logger:   options.Logger,
		})
	})

	registry.Register(EntityCustomer, func() (any, error) {
		return NewCustomerEntityWithOptions(&entity.Options{
			Database: options.Database,
			Cache:    options.Cache,
			CacheTTL: options.CacheTTL,
			KeyGen:   options.KeyGen,
			Logger:   options.Logger,
		})
	})

	registry.Register(EntityOrder, func() (any, error) {
		return NewOrderEntityWithOptions(&OrderEntityOptions{
			Database: options.Database,
			KeyGen:   options.KeyGen,
			Logger:   options.Logger,
		})
	})

	return registry
}
