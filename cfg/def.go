package cfg

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// SetDefaults 为结构体零值字段设置 def tag 声明的默认值，递归处理嵌套结构体
func SetDefaults(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}
	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		return setDefaults(rv.Elem())
	}
	if rv.Kind() != reflect.Struct || rv.Type() == reflect.TypeOf(time.Time{}) {
		return nil
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		if fieldValue.Kind() == reflect.Struct ||
			(fieldValue.Kind() == reflect.Ptr && fieldValue.Type().Elem().Kind() == reflect.Struct) {
			if err := setDefaults(fieldValue); err != nil {
				return errors.WithMessagef(err, "set defaults for field [%s] failed", field.Name)
			}
		}

		defTag := field.Tag.Get("def")
		if defTag == "" || !fieldValue.IsZero() {
			continue
		}

		if err := setDefaultValue(fieldValue, defTag); err != nil {
			return errors.WithMessagef(err, "set default for field [%s] failed", field.Name)
		}
	}
	return nil
}

func setDefaultValue(rv reflect.Value, defValue string) error {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}

	if rv.Type() == reflect.TypeOf(time.Duration(0)) {
		duration, err := time.ParseDuration(defValue)
		if err != nil {
			return errors.WithMessagef(err, "time.ParseDuration failed. value: [%s]", defValue)
		}
		rv.SetInt(int64(duration))
		return nil
	}

	switch rv.Kind() {
	case reflect.String:
		rv.SetString(defValue)
		return nil

	case reflect.Bool:
		val, err := strconv.ParseBool(defValue)
		if err != nil {
			return errors.WithMessagef(err, "strconv.ParseBool failed. value: [%s]", defValue)
		}
		rv.SetBool(val)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		val, err := strconv.ParseInt(defValue, 0, rv.Type().Bits())
		if err != nil {
			return errors.WithMessagef(err, "strconv.ParseInt failed. value: [%s]", defValue)
		}
		rv.SetInt(val)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		val, err := strconv.ParseUint(defValue, 0, rv.Type().Bits())
		if err != nil {
			return errors.WithMessagef(err, "strconv.ParseUint failed. value: [%s]", defValue)
		}
		rv.SetUint(val)
		return nil

	case reflect.Float32, reflect.Float64:
		val, err := strconv.ParseFloat(defValue, rv.Type().Bits())
		if err != nil {
			return errors.WithMessagef(err, "strconv.ParseFloat failed. value: [%s]", defValue)
		}
		rv.SetFloat(val)
		return nil

	case reflect.Slice:
		// 逗号分隔的元素列表
		parts := strings.Split(defValue, ",")
		slice := reflect.MakeSlice(rv.Type(), len(parts), len(parts))
		for i, part := range parts {
			if err := setDefaultValue(slice.Index(i), strings.TrimSpace(part)); err != nil {
				return errors.WithMessagef(err, "set slice element [%d] failed", i)
			}
		}
		rv.Set(slice)
		return nil
	}

	return errors.Errorf("unsupported type [%s]", rv.Type())
}
