package database

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Record 一条数据库记录
type Record interface {
	// Fields 返回字段名到字段值的映射
	Fields() map[string]any
	// Scan 将记录填充到结构体指针
	Scan(dest any) error
}

// MapRecord 基于 map 的记录实现
type MapRecord struct {
	data map[string]any
}

// NewRecord 从字段映射构造记录
func NewRecord(data map[string]any) *MapRecord {
	return &MapRecord{data: data}
}

// FromStruct 从结构体构造记录，列名取自 bex 标签
func FromStruct(v any) *MapRecord {
	return &MapRecord{data: structToMap(v)}
}

func (r *MapRecord) Fields() map[string]any {
	return r.data
}

func (r *MapRecord) Scan(dest any) error {
	return mapToStruct(r.data, dest)
}

// columnName 从结构体字段解析列名，bex 标签优先，"-" 表示忽略
func columnName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("bex")
	if tag == "-" {
		return "", false
	}
	if tag != "" {
		name := tag
		if idx := strings.Index(tag, ","); idx != -1 {
			name = tag[:idx]
		}
		if name != "" {
			return name, true
		}
	}
	return field.Name, true
}

// 辅助函数：结构体转换为 map
func structToMap(v any) map[string]any {
	result := make(map[string]any)
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return result
	}

	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, ok := columnName(field)
		if !ok {
			continue
		}
		result[name] = rv.Field(i).Interface()
	}
	return result
}

// 辅助函数：map 转换为结构体
func mapToStruct(data map[string]any, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return errors.New("dest must be a pointer to struct")
	}

	rv = rv.Elem()
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, ok := columnName(field)
		if !ok {
			continue
		}

		value, exists := data[name]
		if !exists || value == nil {
			continue
		}

		fieldValue := rv.Field(i)
		if !fieldValue.CanSet() {
			continue
		}
		if err := setFieldValue(fieldValue, value); err != nil {
			return errors.WithMessagef(err, "failed to set field %s", name)
		}
	}
	return nil
}

// 辅助函数：设置字段值，处理驱动返回的 []byte 和时间字符串
func setFieldValue(fieldValue reflect.Value, value any) error {
	valueType := reflect.TypeOf(value)
	fieldType := fieldValue.Type()

	if valueType.AssignableTo(fieldType) {
		fieldValue.Set(reflect.ValueOf(value))
		return nil
	}

	// 驱动可能以 []byte 返回文本列
	if b, ok := value.([]byte); ok {
		if fieldType.Kind() == reflect.String {
			fieldValue.SetString(string(b))
			return nil
		}
		value = string(b)
		valueType = reflect.TypeOf(value)
	}

	// 时间列可能以字符串返回
	if fieldType == reflect.TypeOf(time.Time{}) {
		if s, ok := value.(string); ok {
			for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
				if parsed, err := time.Parse(layout, s); err == nil {
					fieldValue.Set(reflect.ValueOf(parsed))
					return nil
				}
			}
			return errors.Errorf("cannot parse time value %q", s)
		}
	}

	if valueType.ConvertibleTo(fieldType) {
		fieldValue.Set(reflect.ValueOf(value).Convert(fieldType))
		return nil
	}

	return errors.Errorf("cannot convert %v to %v", valueType, fieldType)
}

// sortedKeys 返回按字典序排序的键列表，保证生成的语句稳定
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
