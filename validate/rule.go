package validate

import "fmt"

// Rule 针对记录字段做业务校验的规则函数
// 输入为字段映射，输出需要追加的字段错误，返回 nil 表示通过
type Rule func(values map[string]any) Errors

// Apply 依次执行所有规则，汇总字段错误
func Apply(values map[string]any, rules ...Rule) Errors {
	var es Errors
	for _, rule := range rules {
		es = append(es, rule(values)...)
	}
	return es
}

// Required 校验字段存在且非零值
func Required(fields ...string) Rule {
	return func(values map[string]any) Errors {
		var es Errors
		for _, field := range fields {
			v, ok := values[field]
			if !ok || isZero(v) {
				es = append(es, FieldError{
					Field:   field,
					Reason:  "required",
					Message: "is required",
				})
			}
		}
		return es
	}
}

// NonNegative 校验数值字段不为负数
func NonNegative(fields ...string) Rule {
	return func(values map[string]any) Errors {
		var es Errors
		for _, field := range fields {
			v, ok := values[field]
			if !ok {
				continue
			}
			if negative(v) {
				es = append(es, FieldError{
					Field:   field,
					Reason:  "gte",
					Message: fmt.Sprintf("must not be negative, got [%v]", v),
				})
			}
		}
		return es
	}
}

// Positive 校验数值字段大于零
func Positive(fields ...string) Rule {
	return func(values map[string]any) Errors {
		var es Errors
		for _, field := range fields {
			v, ok := values[field]
			if !ok {
				continue
			}
			if negative(v) || isZero(v) {
				es = append(es, FieldError{
					Field:   field,
					Reason:  "gt",
					Message: fmt.Sprintf("must be positive, got [%v]", v),
				})
			}
		}
		return es
	}
}

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case int:
		return x == 0
	case int32:
		return x == 0
	case int64:
		return x == 0
	case float32:
		return x == 0
	case float64:
		return x == 0
	}
	return false
}

func negative(v any) bool {
	switch x := v.(type) {
	case int:
		return x < 0
	case int32:
		return x < 0
	case int64:
		return x < 0
	case float32:
		return x < 0
	case float64:
		return x < 0
	}
	return false
}
