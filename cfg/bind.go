package cfg

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Bind 将嵌套映射绑定到结构体，字段名取 cfg tag，缺省时不区分大小写匹配字段名
// tag 为 "-" 的字段跳过绑定
func Bind(values map[string]any, object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}
	return bindStruct(values, rv.Elem())
}

func bindStruct(values map[string]any, rv reflect.Value) error {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errors.Errorf("expect struct, got [%s]", rv.Kind())
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		tag := field.Tag.Get("cfg")
		if tag == "-" {
			continue
		}

		value, ok := lookup(values, tag, field.Name)
		if !ok || value == nil {
			continue
		}

		if err := bindValue(value, fieldValue); err != nil {
			return errors.WithMessagef(err, "bind field [%s] failed", field.Name)
		}
	}
	return nil
}

// lookup 先按 tag 精确匹配，再按字段名不区分大小写匹配
func lookup(values map[string]any, tag string, fieldName string) (any, bool) {
	if tag != "" {
		value, ok := values[tag]
		return value, ok
	}
	for key, value := range values {
		if strings.EqualFold(key, fieldName) {
			return value, true
		}
	}
	return nil, false
}

func bindValue(value any, rv reflect.Value) error {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return bindValue(value, rv.Elem())
	}

	// time.Duration 支持 "5s" 这样的字符串和数值纳秒
	if rv.Type() == reflect.TypeOf(time.Duration(0)) {
		return bindDuration(value, rv)
	}

	switch rv.Kind() {
	case reflect.Struct:
		nested, ok := toMap(value)
		if !ok {
			return errors.Errorf("expect map for struct, got [%T]", value)
		}
		return bindStruct(nested, rv)

	case reflect.Map:
		nested, ok := toMap(value)
		if !ok {
			return errors.Errorf("expect map, got [%T]", value)
		}
		if rv.IsNil() {
			rv.Set(reflect.MakeMapWithSize(rv.Type(), len(nested)))
		}
		for key, val := range nested {
			elem := reflect.New(rv.Type().Elem()).Elem()
			if err := bindValue(val, elem); err != nil {
				return errors.WithMessagef(err, "bind map key [%s] failed", key)
			}
			rv.SetMapIndex(reflect.ValueOf(key), elem)
		}
		return nil

	case reflect.Slice:
		items, ok := value.([]any)
		if !ok {
			return errors.Errorf("expect slice, got [%T]", value)
		}
		slice := reflect.MakeSlice(rv.Type(), len(items), len(items))
		for i, item := range items {
			if err := bindValue(item, slice.Index(i)); err != nil {
				return errors.WithMessagef(err, "bind slice element [%d] failed", i)
			}
		}
		rv.Set(slice)
		return nil

	case reflect.String:
		rv.SetString(toString(value))
		return nil

	case reflect.Bool:
		return bindBool(value, rv)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return bindInt(value, rv)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return bindUint(value, rv)

	case reflect.Float32, reflect.Float64:
		return bindFloat(value, rv)

	case reflect.Interface:
		rv.Set(reflect.ValueOf(value))
		return nil
	}

	return errors.Errorf("unsupported kind [%s]", rv.Kind())
}

// toMap 统一 json/yaml/toml 解码出的两种映射表示
func toMap(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		result := make(map[string]any, len(m))
		for key, val := range m {
			result[toString(key)] = val
		}
		return result, true
	}
	return nil, false
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func bindDuration(value any, rv reflect.Value) error {
	switch v := value.(type) {
	case string:
		duration, err := time.ParseDuration(v)
		if err != nil {
			return errors.WithMessagef(err, "time.ParseDuration failed. value: [%s]", v)
		}
		rv.SetInt(int64(duration))
		return nil
	case int:
		rv.SetInt(int64(v))
		return nil
	case int64:
		rv.SetInt(v)
		return nil
	case float64:
		rv.SetInt(int64(v))
		return nil
	}
	return errors.Errorf("cannot convert [%T] to duration", value)
}

func bindBool(value any, rv reflect.Value) error {
	switch v := value.(type) {
	case bool:
		rv.SetBool(v)
		return nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.WithMessagef(err, "strconv.ParseBool failed. value: [%s]", v)
		}
		rv.SetBool(b)
		return nil
	}
	return errors.Errorf("cannot convert [%T] to bool", value)
}

func bindInt(value any, rv reflect.Value) error {
	switch v := value.(type) {
	case int:
		rv.SetInt(int64(v))
	case int64:
		rv.SetInt(v)
	case float64:
		rv.SetInt(int64(v))
	case string:
		i, err := strconv.ParseInt(v, 0, rv.Type().Bits())
		if err != nil {
			return errors.WithMessagef(err, "strconv.ParseInt failed. value: [%s]", v)
		}
		rv.SetInt(i)
	default:
		return errors.Errorf("cannot convert [%T] to int", value)
	}
	return nil
}

func bindUint(value any, rv reflect.Value) error {
	switch v := value.(type) {
	case int:
		rv.SetUint(uint64(v))
	case int64:
		rv.SetUint(uint64(v))
	case float64:
		rv.SetUint(uint64(v))
	case string:
		u, err := strconv.ParseUint(v, 0, rv.Type().Bits())
		if err != nil {
			return errors.WithMessagef(err, "strconv.ParseUint failed. value: [%s]", v)
		}
		rv.SetUint(u)
	default:
		return errors.Errorf("cannot convert [%T] to uint", value)
	}
	return nil
}

func bindFloat(value any, rv reflect.Value) error {
	switch v := value.(type) {
	case int:
		rv.SetFloat(float64(v))
	case int64:
		rv.SetFloat(float64(v))
	case float64:
		rv.SetFloat(v)
	case string:
		f, err := strconv.ParseFloat(v, rv.Type().Bits())
		if err != nil {
			return errors.WithMessagef(err, "strconv.ParseFloat failed. value: [%s]", v)
		}
		rv.SetFloat(f)
	default:
		return errors.Errorf("cannot convert [%T] to float", value)
	}
	return nil
}
