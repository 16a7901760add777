package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/hatlonely/bex/query"
	"github.com/hatlonely/bex/schema"
)

type GORMOptions struct {
	Driver   string `cfg:"driver" def:"mysql" validate:"omitempty,oneof=mysql sqlite3"`
	DSN      string `cfg:"dsn"`
	Host     string `cfg:"host" def:"localhost"`
	Port     string `cfg:"port" def:"3306"`
	Database string `cfg:"database"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	Charset  string `cfg:"charset" def:"utf8mb4"`
}

// GORM 基于 gorm 的后端实现
type GORM struct {
	gormExecutor
}

func NewGORMWithOptions(options *GORMOptions) (*GORM, error) {
	dsn := options.DSN
	if dsn == "" {
		switch options.Driver {
		case "mysql":
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
				options.Username, options.Password, options.Host, options.Port, options.Database, options.Charset)
		case "sqlite3":
			dsn = options.Database
		default:
			return nil, errors.Errorf("unsupported driver: %s", options.Driver)
		}
	}

	var dialector gorm.Dialector
	switch options.Driver {
	case "mysql":
		dialector = gormmysql.Open(dsn)
	case "sqlite3":
		dialector = gormsqlite.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported driver: %s", options.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.WithMessage(err, "gorm.Open failed")
	}

	return &GORM{
		gormExecutor: gormExecutor{db: db, driver: options.Driver},
	}, nil
}

// Migrate 根据表结构定义创建表和索引
func (g *GORM) Migrate(ctx context.Context, table *schema.Table) error {
	createSQL, err := createTableSQL(g.driver, table)
	if err != nil {
		return err
	}
	if err := g.db.WithContext(ctx).Exec(createSQL).Error; err != nil {
		return errors.WithMessagef(err, "create table %s failed", table.Name)
	}
	for _, indexSQL := range createIndexSQLs(g.driver, table) {
		// mysql 下重复建索引会报错，忽略
		_ = g.db.WithContext(ctx).Exec(indexSQL).Error
	}
	return nil
}

func (g *GORM) BeginTx(ctx context.Context) (Transaction, error) {
	tx := g.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, errors.WithMessage(tx.Error, "gorm begin failed")
	}
	return &GORMTransaction{
		gormExecutor: gormExecutor{db: tx, driver: g.driver},
	}, nil
}

func (g *GORM) WithTx(ctx context.Context, fn func(tx Executor) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormExecutor{db: tx, driver: g.driver})
	})
}

func (g *GORM) Close() error {
	db, err := g.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// GORMTransaction 事务实现
type GORMTransaction struct {
	gormExecutor
}

func (tx *GORMTransaction) Commit() error {
	return tx.db.Commit().Error
}

func (tx *GORMTransaction) Rollback() error {
	return tx.db.Rollback().Error
}

// gormExecutor 连接和事务共享的读写实现
type gormExecutor struct {
	db     *gorm.DB
	driver string
}

func (e *gormExecutor) Create(ctx context.Context, table string, record Record, opts ...CreateOption) error {
	options := &CreateOptions{}
	for _, opt := range opts {
		opt(options)
	}

	tx := e.db.WithContext(ctx).Table(table)
	if options.IgnoreConflict {
		tx = tx.Clauses(clause.OnConflict{DoNothing: true})
	}

	if err := tx.Create(record.Fields()).Error; err != nil {
		return e.translateError(err)
	}
	return nil
}

func (e *gormExecutor) Get(ctx context.Context, table string, pk map[string]any) (Record, error) {
	result := make(map[string]any)
	err := e.db.WithContext(ctx).Table(table).Where(pk).Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, errors.WithMessage(err, "gorm take failed")
	}
	return NewRecord(result), nil
}

func (e *gormExecutor) Update(ctx context.Context, table string, pk map[string]any, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := e.db.WithContext(ctx).Table(table).Where(pk).Updates(fields).Error; err != nil {
		return e.translateError(err)
	}
	return nil
}

func (e *gormExecutor) Delete(ctx context.Context, table string, pk map[string]any) error {
	var parts []string
	var args []any
	for _, col := range sortedKeys(pk) {
		parts = append(parts, fmt.Sprintf("%s = ?", col))
		args = append(args, pk[col])
	}
	sqlStr := fmt.Sprintf("DELETE FROM %s WHERE %s", table, strings.Join(parts, " AND "))
	if err := e.db.WithContext(ctx).Exec(sqlStr, args...).Error; err != nil {
		return e.translateError(err)
	}
	return nil
}

func (e *gormExecutor) Find(ctx context.Context, table string, q query.Query, opts ...FindOption) ([]Record, error) {
	options := &FindOptions{}
	for _, opt := range opts {
		opt(options)
	}

	whereSQL, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}

	tx := e.db.WithContext(ctx).Table(table).Where(whereSQL, args...)
	if options.OrderBy != "" {
		direction := "ASC"
		if options.OrderDesc {
			direction = "DESC"
		}
		tx = tx.Order(fmt.Sprintf("%s %s", options.OrderBy, direction))
	}
	if options.Limit > 0 {
		tx = tx.Limit(options.Limit)
	}
	if options.Offset > 0 {
		tx = tx.Offset(options.Offset)
	}

	var results []map[string]any
	if err := tx.Find(&results).Error; err != nil {
		return nil, errors.WithMessage(err, "gorm find failed")
	}

	records := make([]Record, 0, len(results))
	for _, result := range results {
		records = append(records, NewRecord(result))
	}
	return records, nil
}

func (e *gormExecutor) BatchCreate(ctx context.Context, table string, records []Record, opts ...CreateOption) error {
	for _, record := range records {
		if err := e.Create(ctx, table, record, opts...); err != nil {
			return err
		}
	}
	return nil
}

func (e *gormExecutor) BatchDelete(ctx context.Context, table string, pks []map[string]any) error {
	for _, pk := range pks {
		if err := e.Delete(ctx, table, pk); err != nil {
			return err
		}
	}
	return nil
}

func (e *gormExecutor) translateError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return errors.WithMessage(err, "gorm exec failed")
}
