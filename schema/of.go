package schema

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// TableNamer 结构体可实现此接口来指定表名，否则使用结构体名
type TableNamer interface {
	TableName() string
}

// Of 从结构体的 bex 标签推导表结构
// 标签格式：bex:"列名[,primary][,required][,size=N]"，标签为 "-" 的字段忽略
func Of[T any]() (*Table, error) {
	var t T
	rt := reflect.TypeOf(t)
	for rt != nil && rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, errors.Errorf("type %T is not a struct", t)
	}

	table := &Table{Name: rt.Name()}
	if namer, ok := any(t).(TableNamer); ok {
		table.Name = namer.TableName()
	}

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("bex")
		if tag == "-" {
			continue
		}

		def := Field{Name: field.Name}
		primary := false
		if tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				def.Name = parts[0]
			}
			for _, part := range parts[1:] {
				switch {
				case part == "primary":
					primary = true
				case part == "required":
					def.Required = true
				case strings.HasPrefix(part, "size="):
					size, err := strconv.Atoi(strings.TrimPrefix(part, "size="))
					if err != nil {
						return nil, errors.Errorf("field %s has invalid size tag: %s", field.Name, part)
					}
					def.Size = size
				default:
					return nil, errors.Errorf("field %s has unknown tag option: %s", field.Name, part)
				}
			}
		}

		fieldType, err := fieldTypeOf(field.Type)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %s", field.Name)
		}
		def.Type = fieldType

		table.Fields = append(table.Fields, def)
		if primary {
			table.PrimaryKey = append(table.PrimaryKey, def.Name)
		}
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// MustOf 与 Of 相同，失败时 panic，用于包级变量初始化
func MustOf[T any]() *Table {
	table, err := Of[T]()
	if err != nil {
		panic(err)
	}
	return table
}

// fieldTypeOf 将 Go 类型映射到字段类型
func fieldTypeOf(rt reflect.Type) (FieldType, error) {
	if rt == reflect.TypeOf(time.Time{}) {
		return FieldTypeDate, nil
	}

	switch rt.Kind() {
	case reflect.String:
		return FieldTypeString, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return FieldTypeInt, nil
	case reflect.Float32, reflect.Float64:
		return FieldTypeFloat, nil
	case reflect.Bool:
		return FieldTypeBool, nil
	default:
		return "", errors.Errorf("unsupported field type %s", rt)
	}
}
