package database

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hatlonely/bex/schema"
)

// columnType 将字段类型映射为对应数据库的列类型
func columnType(driver string, field *schema.Field) (string, error) {
	switch driver {
	case "sqlite3":
		switch field.Type {
		case schema.FieldTypeString:
			return "TEXT", nil
		case schema.FieldTypeInt:
			return "INTEGER", nil
		case schema.FieldTypeFloat:
			return "REAL", nil
		case schema.FieldTypeBool:
			return "INTEGER", nil
		case schema.FieldTypeDate:
			return "DATETIME", nil
		case schema.FieldTypeDecimal:
			return "NUMERIC", nil
		}
	case "mysql":
		switch field.Type {
		case schema.FieldTypeString:
			size := field.Size
			if size == 0 {
				size = 255
			}
			return fmt.Sprintf("VARCHAR(%d)", size), nil
		case schema.FieldTypeInt:
			return "BIGINT", nil
		case schema.FieldTypeFloat:
			return "DOUBLE", nil
		case schema.FieldTypeBool:
			return "TINYINT(1)", nil
		case schema.FieldTypeDate:
			return "DATETIME", nil
		case schema.FieldTypeDecimal:
			return "DECIMAL(18,4)", nil
		}
	default:
		return "", errors.Errorf("unsupported driver: %s", driver)
	}
	return "", errors.Errorf("unsupported field type: %s", field.Type)
}

// createTableSQL 根据表结构定义生成建表语句
func createTableSQL(driver string, table *schema.Table) (string, error) {
	if err := table.Validate(); err != nil {
		return "", err
	}

	var columns []string
	for i := range table.Fields {
		field := &table.Fields[i]
		colType, err := columnType(driver, field)
		if err != nil {
			return "", err
		}
		column := fmt.Sprintf("%s %s", field.Name, colType)
		if field.Required {
			column += " NOT NULL"
		}
		columns = append(columns, column)
	}
	columns = append(columns, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(table.PrimaryKey, ", ")))

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table.Name, strings.Join(columns, ", ")), nil
}

// createIndexSQLs 根据表结构定义生成建索引语句
func createIndexSQLs(driver string, table *schema.Table) []string {
	var statements []string
	for _, idx := range table.Indexes {
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		ifNotExists := ""
		if driver == "sqlite3" {
			// mysql 不支持 CREATE INDEX IF NOT EXISTS
			ifNotExists = "IF NOT EXISTS "
		}
		statements = append(statements, fmt.Sprintf("CREATE %sINDEX %s%s ON %s (%s)",
			unique, ifNotExists, idx.Name, table.Name, strings.Join(idx.Fields, ", ")))
	}
	return statements
}
