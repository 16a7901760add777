package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hatlonely/bex/query"
	"github.com/hatlonely/bex/schema"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
)

// CreateOptions 创建记录时的选项
type CreateOptions struct {
	IgnoreConflict bool
}

type CreateOption func(*CreateOptions)

// WithIgnoreConflict 主键冲突时忽略本次写入
func WithIgnoreConflict() CreateOption {
	return func(options *CreateOptions) {
		options.IgnoreConflict = true
	}
}

// FindOptions 查询选项
type FindOptions struct {
	Limit     int
	Offset    int
	OrderBy   string
	OrderDesc bool
}

type FindOption func(*FindOptions)

func WithLimit(limit int) FindOption {
	return func(options *FindOptions) {
		options.Limit = limit
	}
}

func WithOffset(offset int) FindOption {
	return func(options *FindOptions) {
		options.Offset = offset
	}
}

func WithOrderBy(field string, desc bool) FindOption {
	return func(options *FindOptions) {
		options.OrderBy = field
		options.OrderDesc = desc
	}
}

// Executor 记录级读写接口，Database 和 Transaction 都实现它
type Executor interface {
	// Create 创建记录，主键冲突时返回 ErrDuplicateKey
	Create(ctx context.Context, table string, record Record, opts ...CreateOption) error

	// Get 根据主键获取记录，不存在时返回 ErrRecordNotFound
	Get(ctx context.Context, table string, pk map[string]any) (Record, error)

	// Update 根据主键更新记录，fields 只包含需要写入的列
	Update(ctx context.Context, table string, pk map[string]any, fields map[string]any) error

	// Delete 根据主键删除记录
	Delete(ctx context.Context, table string, pk map[string]any) error

	// Find 根据查询条件查询多条记录
	Find(ctx context.Context, table string, q query.Query, opts ...FindOption) ([]Record, error)

	// BatchCreate 批量创建记录
	BatchCreate(ctx context.Context, table string, records []Record, opts ...CreateOption) error

	// BatchDelete 批量删除记录
	BatchDelete(ctx context.Context, table string, pks []map[string]any) error
}

// Transaction 事务接口
type Transaction interface {
	Executor

	Commit() error
	Rollback() error
}

// Database 数据库后端接口
type Database interface {
	Executor

	// Migrate 根据表结构定义创建表和索引
	Migrate(ctx context.Context, table *schema.Table) error

	// BeginTx 开启事务
	BeginTx(ctx context.Context) (Transaction, error)

	// WithTx 在事务中执行 fn，fn 返回错误或 panic 时回滚，否则提交
	WithTx(ctx context.Context, fn func(tx Executor) error) error

	Close() error
}
