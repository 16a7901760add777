package entity

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hatlonely/bex/cache"
	"github.com/hatlonely/bex/codec"
	"github.com/hatlonely/bex/database"
	"github.com/hatlonely/bex/dataset"
	"github.com/hatlonely/bex/keygen"
	"github.com/hatlonely/bex/log"
	"github.com/hatlonely/bex/query"
	"github.com/hatlonely/bex/schema"
	"github.com/hatlonely/bex/validate"
)

// Interface 实体数据访问接口，Entity 和 ObservableEntity 都实现它
type Interface[T any] interface {
	Get(ctx context.Context, q query.Query) (*T, bool, error)
	GetByKey(ctx context.Context, pk map[string]any) (*T, bool, error)
	Find(ctx context.Context, q query.Query, opts ...database.FindOption) ([]*T, error)
	Fill(ctx context.Context, q query.Query, opts ...database.FindOption) (*dataset.Table, error)
	Create(ctx context.Context, object *T) error
	Update(ctx context.Context, object *T) error
	Delete(ctx context.Context, pk map[string]any) error
	Save(ctx context.Context, table *dataset.Table) error
	Validate(object *T) validate.Errors
}

// Options 实体依赖配置，全部依赖直接注入
type Options struct {
	// 数据库后端，必填
	Database database.Database

	// 读穿透缓存，为 nil 时不启用缓存
	Cache cache.Cache

	// 缓存过期时间
	CacheTTL time.Duration

	// 主键生成器，创建时为零值整数主键赋值，为 nil 时不生成
	KeyGen keygen.Generator

	// 日志记录器，为 nil 时使用空实现
	Logger log.Logger

	// 跳过字段列表，更新时这些字段不参与增量比较
	Skip []string

	// 业务校验规则，写入前依次执行
	Rules []validate.Rule
}

// Entity 单表实体访问层
// 表结构从 T 的 bex 标签推导，读写经由注入的数据库后端
type Entity[T any] struct {
	table      *schema.Table
	db         database.Database
	cache      cache.Cache
	cacheTTL   time.Duration
	keyGen     keygen.Generator
	logger     log.Logger
	skip       []string
	rules      []validate.Rule
	serializer codec.Serializer[map[string]any]
}

func NewEntityWithOptions[T any](options *Options) (*Entity[T], error) {
	if options == nil || options.Database == nil {
		return nil, errors.New("database is required")
	}

	table, err := schema.Of[T]()
	if err != nil {
		return nil, errors.WithMessage(err, "schema.Of failed")
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Entity[T]{
		table:      table,
		db:         options.Database,
		cache:      options.Cache,
		cacheTTL:   options.CacheTTL,
		keyGen:     options.KeyGen,
		logger:     logger,
		skip:       options.Skip,
		rules:      options.Rules,
		serializer: codec.NewMsgPackSerializer[map[string]any](),
	}, nil
}

func (e *Entity[T]) Table() *schema.Table {
	return e.table
}

// Migrate 创建表和索引
func (e *Entity[T]) Migrate(ctx context.Context) error {
	return e.db.Migrate(ctx, e.table)
}

// Get 根据查询条件获取单条记录，第二个返回值表示是否命中
func (e *Entity[T]) Get(ctx context.Context, q query.Query) (*T, bool, error) {
	records, err := e.db.Find(ctx, e.table.Name, q, database.WithLimit(1))
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}

	object := new(T)
	if err := records[0].Scan(object); err != nil {
		return nil, false, err
	}
	return object, true, nil
}

// GetByKey 根据主键获取单条记录，配置了缓存时走读穿透
func (e *Entity[T]) GetByKey(ctx context.Context, pk map[string]any) (*T, bool, error) {
	key := cache.KeyOf(e.table.Name, pk)

	if e.cache != nil {
		data, err := e.cache.Get(ctx, key)
		if err == nil {
			fields, err := e.serializer.Deserialize(data)
			if err == nil {
				object := new(T)
				if err := database.NewRecord(fields).Scan(object); err == nil {
					return object, true, nil
				}
			}
			// 缓存内容不可用，剔除后回源
			_ = e.cache.Del(ctx, key)
		}
	}

	record, err := e.db.Get(ctx, e.table.Name, pk)
	if err != nil {
		if errors.Is(err, database.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	object := new(T)
	if err := record.Scan(object); err != nil {
		return nil, false, err
	}

	if e.cache != nil {
		if data, err := e.serializer.Serialize(record.Fields()); err == nil {
			if err := e.cache.Set(ctx, key, data, e.cacheTTL); err != nil {
				e.logger.WarnContext(ctx, "cache set failed", "table", e.table.Name, "key", key, "error", err.Error())
			}
		}
	}
	return object, true, nil
}

// Find 根据查询条件查询多条记录
func (e *Entity[T]) Find(ctx context.Context, q query.Query, opts ...database.FindOption) ([]*T, error) {
	records, err := e.db.Find(ctx, e.table.Name, q, opts...)
	if err != nil {
		return nil, err
	}

	objects := make([]*T, 0, len(records))
	for _, record := range records {
		object := new(T)
		if err := record.Scan(object); err != nil {
			return nil, err
		}
		objects = append(objects, object)
	}
	return objects, nil
}

// Fill 查询结果装入内存表并开启变更跟踪
func (e *Entity[T]) Fill(ctx context.Context, q query.Query, opts ...database.FindOption) (*dataset.Table, error) {
	records, err := e.db.Find(ctx, e.table.Name, q, opts...)
	if err != nil {
		return nil, err
	}

	table, err := dataset.NewTable(e.table)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if _, err := table.Append(record.Fields()); err != nil {
			return nil, err
		}
	}
	table.Track()
	return table, nil
}

// Create 创建记录，校验通过后写库
// 配置了生成器且整数主键为零值时自动赋值
func (e *Entity[T]) Create(ctx context.Context, object *T) error {
	if es := e.Validate(object); es != nil {
		return es
	}

	record := database.FromStruct(object)
	fields := record.Fields()
	if err := e.assignKey(object, fields); err != nil {
		return err
	}

	if err := e.db.Create(ctx, e.table.Name, database.NewRecord(fields)); err != nil {
		return err
	}
	e.invalidate(ctx, fields)
	return nil
}

// Update 以主键定位整条覆盖更新，跳过字段不参与写入
func (e *Entity[T]) Update(ctx context.Context, object *T) error {
	if es := e.Validate(object); es != nil {
		return es
	}

	fields := database.FromStruct(object).Fields()
	pk, err := e.pkOf(fields)
	if err != nil {
		return err
	}

	updates := make(map[string]any, len(fields))
	for field, value := range fields {
		if e.isPrimaryKey(field) || e.isSkipped(field) {
			continue
		}
		updates[field] = value
	}
	if len(updates) == 0 {
		return nil
	}

	if err := e.db.Update(ctx, e.table.Name, pk, updates); err != nil {
		return err
	}
	e.invalidate(ctx, fields)
	return nil
}

// Delete 根据主键删除记录
func (e *Entity[T]) Delete(ctx context.Context, pk map[string]any) error {
	if err := e.db.Delete(ctx, e.table.Name, pk); err != nil {
		return err
	}
	if e.cache != nil {
		_ = e.cache.Del(ctx, cache.KeyOf(e.table.Name, pk))
	}
	return nil
}

// Validate 执行结构体标签校验和业务规则校验
func (e *Entity[T]) Validate(object *T) validate.Errors {
	es := validate.Struct(object)
	if len(e.rules) > 0 {
		fields := database.FromStruct(object).Fields()
		es = append(es, validate.Apply(fields, e.rules...)...)
	}
	if len(es) == 0 {
		return nil
	}
	return es
}

// Save 在单个事务中落盘内存表的全部变更
// 成功后移除已删除的行并重新建立跟踪基线
func (e *Entity[T]) Save(ctx context.Context, table *dataset.Table) error {
	if es := e.validateRows(table); es != nil {
		return es
	}

	err := e.db.WithTx(ctx, func(tx database.Executor) error {
		return e.saveTable(ctx, tx, table)
	})
	if err != nil {
		return err
	}

	table.Compact()
	table.Track()
	return nil
}

// saveTable 将内存表的变更写入执行器，创建在前删除在后
func (e *Entity[T]) saveTable(ctx context.Context, exec database.Executor, table *dataset.Table) error {
	for _, row := range table.RowsByState(dataset.StateCreated) {
		if err := exec.Create(ctx, e.table.Name, database.NewRecord(row.Values())); err != nil {
			return err
		}
		e.invalidate(ctx, row.Values())
	}

	for _, row := range table.RowsByState(dataset.StateModified) {
		changes := row.Changes(e.skip...)
		if len(changes) == 0 {
			continue
		}
		pk, err := row.PK()
		if err != nil {
			return err
		}
		if err := exec.Update(ctx, e.table.Name, pk, changes); err != nil {
			return err
		}
		// 主键本身被改写时旧键和新键的缓存都要剔除
		e.invalidate(ctx, pk)
		e.invalidate(ctx, row.Values())
	}

	for _, row := range table.RowsByState(dataset.StateDeleted) {
		// 从未落库的行直接丢弃
		if row.Before() == nil {
			continue
		}
		pk, err := row.PK()
		if err != nil {
			return err
		}
		if err := exec.Delete(ctx, e.table.Name, pk); err != nil {
			return err
		}
		e.invalidate(ctx, pk)
	}
	return nil
}

// validateRows 对新建和修改的行执行业务规则校验
func (e *Entity[T]) validateRows(table *dataset.Table) validate.Errors {
	if len(e.rules) == 0 {
		return nil
	}

	var es validate.Errors
	for _, row := range table.Rows() {
		if row.State() != dataset.StateCreated && row.State() != dataset.StateModified {
			continue
		}
		es = append(es, validate.Apply(row.Values(), e.rules...)...)
	}
	if len(es) == 0 {
		return nil
	}
	return es
}

// assignKey 为零值的单字段整数主键生成新值，并回写到结构体
func (e *Entity[T]) assignKey(object *T, fields map[string]any) error {
	if e.keyGen == nil || len(e.table.PrimaryKey) != 1 {
		return nil
	}
	pkField := e.table.PrimaryKey[0]
	value, ok := fields[pkField]
	if !ok || !isZeroInt(value) {
		return nil
	}

	id := e.keyGen.Generate()
	fields[pkField] = id
	return setStructField(object, pkField, id)
}

func (e *Entity[T]) pkOf(fields map[string]any) (map[string]any, error) {
	pk := make(map[string]any, len(e.table.PrimaryKey))
	for _, field := range e.table.PrimaryKey {
		value, ok := fields[field]
		if !ok {
			return nil, errors.Errorf("primary key field %s has no value", field)
		}
		pk[field] = value
	}
	return pk, nil
}

func (e *Entity[T]) isPrimaryKey(field string) bool {
	for _, pk := range e.table.PrimaryKey {
		if pk == field {
			return true
		}
	}
	return false
}

func (e *Entity[T]) isSkipped(field string) bool {
	for _, skip := range e.skip {
		if skip == field {
			return true
		}
	}
	return false
}

// invalidate 剔除记录对应的缓存键，fields 需包含全部主键字段
func (e *Entity[T]) invalidate(ctx context.Context, fields map[string]any) {
	if e.cache == nil {
		return
	}
	pk, err := e.pkOf(fields)
	if err != nil {
		return
	}
	_ = e.cache.Del(ctx, cache.KeyOf(e.table.Name, pk))
}

func isZeroInt(value any) bool {
	switch v := value.(type) {
	case int:
		return v == 0
	case int32:
		return v == 0
	case int64:
		return v == 0
	}
	return false
}

// setStructField 按列名将值写回结构体字段
func setStructField(object any, column string, value any) error {
	rv := reflect.ValueOf(object)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errors.New("object must be a struct pointer")
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name := field.Name
		if tag := field.Tag.Get("bex"); tag != "" && tag != "-" {
			if idx := strings.Index(tag, ","); idx != -1 {
				tag = tag[:idx]
			}
			if tag != "" {
				name = tag
			}
		}
		if name != column {
			continue
		}

		fieldValue := rv.Field(i)
		if !fieldValue.CanSet() {
			return errors.Errorf("field %s is not settable", field.Name)
		}
		valueRV := reflect.ValueOf(value)
		if !valueRV.Type().ConvertibleTo(fieldValue.Type()) {
			return errors.Errorf("cannot convert %T to %s", value, fieldValue.Type())
		}
		fieldValue.Set(valueRV.Convert(fieldValue.Type()))
		return nil
	}
	return errors.Errorf("column %s not found", column)
}
