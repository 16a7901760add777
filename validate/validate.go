package validate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError 单个字段的校验错误
// Reason 是机器可读的错误原因（如 required、min、gte），Message 是给人看的描述
type FieldError struct {
	Field   string `json:"field"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("field [%s] %s", e.Field, e.Message)
}

// Errors 一次校验产生的全部字段错误
type Errors []FieldError

func (es Errors) Error() string {
	if len(es) == 0 {
		return "validation passed"
	}
	var buf strings.Builder
	for i, e := range es {
		if i > 0 {
			buf.WriteString("; ")
		}
		buf.WriteString(e.Error())
	}
	return buf.String()
}

// Fields 返回出错的字段名列表
func (es Errors) Fields() []string {
	fields := make([]string, 0, len(es))
	for _, e := range es {
		fields = append(fields, e.Field)
	}
	return fields
}

var structValidator = validator.New()

// Struct 使用 validator 校验结构体，返回结构化的字段错误
// 非结构体、nil 指针直接跳过校验
func Struct(object any) Errors {
	if object == nil {
		return nil
	}

	rv := reflect.ValueOf(object)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	err := structValidator.Struct(rv.Interface())
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return Errors{{Field: "", Reason: "invalid", Message: err.Error()}}
	}

	es := make(Errors, 0, len(verrs))
	for _, ve := range verrs {
		message := fmt.Sprintf("failed on [%s]", ve.Tag())
		if ve.Param() != "" {
			message = fmt.Sprintf("failed on [%s=%s]", ve.Tag(), ve.Param())
		}
		es = append(es, FieldError{
			Field:   fieldName(ve),
			Reason:  ve.Tag(),
			Message: message,
		})
	}
	return es
}

// fieldName 去掉 validator 命名空间里的结构体前缀，只保留字段路径
func fieldName(ve validator.FieldError) string {
	ns := ve.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ve.Field()
}
