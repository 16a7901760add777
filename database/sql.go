package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/hatlonely/bex/query"
	"github.com/hatlonely/bex/schema"
)

type SQLOptions struct {
	Driver   string `cfg:"driver" def:"mysql" validate:"omitempty,oneof=mysql sqlite3"`
	DSN      string `cfg:"dsn"`
	Host     string `cfg:"host" def:"localhost"`
	Port     string `cfg:"port" def:"3306"`
	Database string `cfg:"database"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	Charset  string `cfg:"charset" def:"utf8mb4"`
	MaxConns int    `cfg:"maxConns" def:"10"`
	MaxIdle  int    `cfg:"maxIdle" def:"5"`
}

// SQL 基于 database/sql 的后端实现
type SQL struct {
	sqlExecutor
	db *sql.DB
}

func NewSQLWithOptions(options *SQLOptions) (*SQL, error) {
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

	db, err := sql.Open(options.Driver, dsn)
	if err != nil {
		return nil, errors.WithMessage(err, "sql.Open failed")
	}

	db.SetMaxOpenConns(options.MaxConns)
	db.SetMaxIdleConns(options.MaxIdle)

	if err := db.Ping(); err != nil {
		return nil, errors.WithMessage(err, "db.Ping failed")
	}

	return &SQL{
		sqlExecutor: sqlExecutor{conn: db, driver: options.Driver},
		db:          db,
	}, nil
}

// Migrate 根据表结构定义创建表和索引
func (s *SQL) Migrate(ctx context.Context, table *schema.Table) error {
	createSQL, err := createTableSQL(s.driver, table)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return errors.WithMessagef(err, "create table %s failed", table.Name)
	}
	for _, indexSQL := range createIndexSQLs(s.driver, table) {
		// mysql 下重复建索引会报错，忽略
		_, _ = s.db.ExecContext(ctx, indexSQL)
	}
	return nil
}

func (s *SQL) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.WithMessage(err, "db.BeginTx failed")
	}
	return &SQLTransaction{
		sqlExecutor: sqlExecutor{conn: tx, driver: s.driver},
		tx:          tx,
	}, nil
}

func (s *SQL) WithTx(ctx context.Context, fn func(tx Executor) error) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (s *SQL) Close() error {
	return s.db.Close()
}

// SQLTransaction 事务实现，复用 sqlExecutor 的读写逻辑
type SQLTransaction struct {
	sqlExecutor
	tx *sql.Tx
}

func (tx *SQLTransaction) Commit() error {
	return tx.tx.Commit()
}

func (tx *SQLTransaction) Rollback() error {
	return tx.tx.Rollback()
}

// sqlConn 连接和事务的公共子集
type sqlConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// sqlExecutor 连接和事务共享的读写实现
type sqlExecutor struct {
	conn   sqlConn
	driver string
}

func (e *sqlExecutor) Create(ctx context.Context, table string, record Record, opts ...CreateOption) error {
	options := &CreateOptions{}
	for _, opt := range opts {
		opt(options)
	}

	fields := record.Fields()
	columns := sortedKeys(fields)

	placeholders := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for _, col := range columns {
		placeholders = append(placeholders, "?")
		args = append(args, fields[col])
	}

	verb := "INSERT"
	if options.IgnoreConflict {
		switch e.driver {
		case "sqlite3":
			verb = "INSERT OR IGNORE"
		case "mysql":
			verb = "INSERT IGNORE"
		}
	}

	sqlStr := fmt.Sprintf("%s INTO %s (%s) VALUES (%s)",
		verb, table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	if _, err := e.conn.ExecContext(ctx, sqlStr, args...); err != nil {
		return e.translateError(err)
	}
	return nil
}

func (e *sqlExecutor) Get(ctx context.Context, table string, pk map[string]any) (Record, error) {
	whereSQL, args := e.buildWhere(pk)

	sqlStr := fmt.Sprintf("SELECT * FROM %s WHERE %s", table, whereSQL)
	rows, err := e.conn.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.WithMessage(err, "query failed")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.WithMessage(err, "iterate rows failed")
		}
		return nil, ErrRecordNotFound
	}

	return scanRowToRecord(rows)
}

func (e *sqlExecutor) Update(ctx context.Context, table string, pk map[string]any, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	var setParts []string
	var args []any
	for _, col := range sortedKeys(fields) {
		setParts = append(setParts, fmt.Sprintf("%s = ?", col))
		args = append(args, fields[col])
	}

	whereSQL, whereArgs := e.buildWhere(pk)
	args = append(args, whereArgs...)

	sqlStr := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(setParts, ", "), whereSQL)
	if _, err := e.conn.ExecContext(ctx, sqlStr, args...); err != nil {
		return e.translateError(err)
	}
	return nil
}

func (e *sqlExecutor) Delete(ctx context.Context, table string, pk map[string]any) error {
	whereSQL, args := e.buildWhere(pk)

	sqlStr := fmt.Sprintf("DELETE FROM %s WHERE %s", table, whereSQL)
	if _, err := e.conn.ExecContext(ctx, sqlStr, args...); err != nil {
		return e.translateError(err)
	}
	return nil
}

func (e *sqlExecutor) Find(ctx context.Context, table string, q query.Query, opts ...FindOption) ([]Record, error) {
	options := &FindOptions{}
	for _, opt := range opts {
		opt(options)
	}

	whereSQL, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}

	sqlStr := fmt.Sprintf("SELECT * FROM %s WHERE %s", table, whereSQL)

	if options.OrderBy != "" {
		direction := "ASC"
		if options.OrderDesc {
			direction = "DESC"
		}
		sqlStr += fmt.Sprintf(" ORDER BY %s %s", options.OrderBy, direction)
	}
	if options.Limit > 0 {
		sqlStr += fmt.Sprintf(" LIMIT %d", options.Limit)
	}
	if options.Offset > 0 {
		sqlStr += fmt.Sprintf(" OFFSET %d", options.Offset)
	}

	rows, err := e.conn.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.WithMessage(err, "query failed")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRowToRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func (e *sqlExecutor) BatchCreate(ctx context.Context, table string, records []Record, opts ...CreateOption) error {
	for _, record := range records {
		if err := e.Create(ctx, table, record, opts...); err != nil {
			return err
		}
	}
	return nil
}

func (e *sqlExecutor) BatchDelete(ctx context.Context, table string, pks []map[string]any) error {
	for _, pk := range pks {
		if err := e.Delete(ctx, table, pk); err != nil {
			return err
		}
	}
	return nil
}

// buildWhere 根据主键映射构造 WHERE 条件
func (e *sqlExecutor) buildWhere(pk map[string]any) (string, []any) {
	var parts []string
	var args []any
	for _, col := range sortedKeys(pk) {
		parts = append(parts, fmt.Sprintf("%s = ?", col))
		args = append(args, pk[col])
	}
	return strings.Join(parts, " AND "), args
}

// translateError 将驱动错误翻译为统一的哨兵错误
func (e *sqlExecutor) translateError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateKey
		}
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return ErrDuplicateKey
	}

	return errors.WithMessage(err, "exec failed")
}

// scanRowToRecord 扫描当前行到 Record
func scanRowToRecord(rows *sql.Rows) (Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.WithMessage(err, "rows.Columns failed")
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return nil, errors.WithMessage(err, "rows.Scan failed")
	}

	data := make(map[string]any, len(columns))
	for i, col := range columns {
		data[col] = values[i]
	}

	return NewRecord(data), nil
}
