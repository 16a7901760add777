package entity

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hatlonely/bex/database"
	"github.com/hatlonely/bex/dataset"
	"github.com/hatlonely/bex/log"
	"github.com/hatlonely/bex/query"
	"github.com/hatlonely/bex/schema"
	"github.com/hatlonely/bex/validate"
)

// DatasetOptions 多表实体依赖配置
type DatasetOptions struct {
	// 数据库后端，必填
	Database database.Database

	// 数据集结构定义，必填，表按父表在前的顺序声明
	Schema *schema.Dataset

	// 日志记录器，为 nil 时使用空实现
	Logger log.Logger

	// 每张表的跳过字段列表，更新时不参与增量比较
	Skip map[string][]string

	// 每张表的业务校验规则
	Rules map[string][]validate.Rule
}

// DatasetEntity 多表实体访问层
// 一次 Save 在单个事务中落盘整个数据集的变更，写入前做关联一致性检查
type DatasetEntity struct {
	schema *schema.Dataset
	db     database.Database
	logger log.Logger
	skip   map[string][]string
	rules  map[string][]validate.Rule
}

func NewDatasetEntityWithOptions(options *DatasetOptions) (*DatasetEntity, error) {
	if options == nil || options.Database == nil {
		return nil, errors.New("database is required")
	}
	if options.Schema == nil {
		return nil, errors.New("schema is required")
	}
	if err := options.Schema.Validate(); err != nil {
		return nil, errors.WithMessage(err, "schema.Validate failed")
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &DatasetEntity{
		schema: options.Schema,
		db:     options.Database,
		logger: logger,
		skip:   options.Skip,
		rules:  options.Rules,
	}, nil
}

func (e *DatasetEntity) Schema() *schema.Dataset {
	return e.schema
}

// Migrate 为数据集中的所有表创建表和索引
func (e *DatasetEntity) Migrate(ctx context.Context) error {
	for _, table := range e.schema.Tables {
		if err := e.db.Migrate(ctx, table); err != nil {
			return errors.WithMessagef(err, "migrate table %s failed", table.Name)
		}
	}
	return nil
}

// NewDataset 创建空数据集
func (e *DatasetEntity) NewDataset() (*dataset.Dataset, error) {
	return dataset.New(e.schema)
}

// Fill 按查询条件将记录装入数据集的指定表并开启变更跟踪
func (e *DatasetEntity) Fill(ctx context.Context, ds *dataset.Dataset, table string, q query.Query, opts ...database.FindOption) error {
	target, ok := ds.Table(table)
	if !ok {
		return errors.Errorf("table %s not found in dataset %s", table, e.schema.Name)
	}

	records, err := e.db.Find(ctx, table, q, opts...)
	if err != nil {
		return err
	}
	for _, record := range records {
		if _, err := target.Append(record.Fields()); err != nil {
			return err
		}
	}
	target.Track()
	return nil
}

// Validate 对数据集中所有新建和修改的行执行业务规则校验
func (e *DatasetEntity) Validate(ds *dataset.Dataset) validate.Errors {
	var es validate.Errors
	for _, table := range ds.Tables() {
		rules := e.rules[table.Schema().Name]
		if len(rules) == 0 {
			continue
		}
		for _, row := range table.Rows() {
			if row.State() != dataset.StateCreated && row.State() != dataset.StateModified {
				continue
			}
			es = append(es, validate.Apply(row.Values(), rules...)...)
		}
	}
	if len(es) == 0 {
		return nil
	}
	return es
}

// Save 在单个事务中落盘数据集的全部变更
// 创建和更新按表声明顺序执行（父表在前），删除按相反顺序执行（子表在前）
func (e *DatasetEntity) Save(ctx context.Context, ds *dataset.Dataset) error {
	if err := ds.CheckRelations(); err != nil {
		return err
	}
	if es := e.Validate(ds); es != nil {
		return es
	}

	err := e.db.WithTx(ctx, func(tx database.Executor) error {
		tables := ds.Tables()

		for _, table := range tables {
			if err := e.saveUpserts(ctx, tx, table); err != nil {
				return err
			}
		}
		for i := len(tables) - 1; i >= 0; i-- {
			if err := e.saveDeletes(ctx, tx, tables[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, table := range ds.Tables() {
		table.Compact()
		table.Track()
	}
	e.logger.InfoContext(ctx, "dataset saved", "dataset", e.schema.Name)
	return nil
}

func (e *DatasetEntity) saveUpserts(ctx context.Context, exec database.Executor, table *dataset.Table) error {
	name := table.Schema().Name
	skip := e.skip[name]

	for _, row := range table.RowsByState(dataset.StateCreated) {
		if err := exec.Create(ctx, name, database.NewRecord(row.Values())); err != nil {
			return errors.WithMessagef(err, "create row in %s failed", name)
		}
	}

	for _, row := range table.RowsByState(dataset.StateModified) {
		changes := row.Changes(skip...)
		if len(changes) == 0 {
			continue
		}
		pk, err := row.PK()
		if err != nil {
			return err
		}
		if err := exec.Update(ctx, name, pk, changes); err != nil {
			return errors.WithMessagef(err, "update row in %s failed", name)
		}
	}
	return nil
}

func (e *DatasetEntity) saveDeletes(ctx context.Context, exec database.Executor, table *dataset.Table) error {
	name := table.Schema().Name

	for _, row := range table.RowsByState(dataset.StateDeleted) {
		if row.Before() == nil {
			continue
		}
		pk, err := row.PK()
		if err != nil {
			return err
		}
		if err := exec.Delete(ctx, name, pk); err != nil {
			return errors.WithMessagef(err, "delete row in %s failed", name)
		}
	}
	return nil
}
