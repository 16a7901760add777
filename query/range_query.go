package query

import (
	"fmt"
	"strings"
)

// RangeQuery 范围查询
type RangeQuery struct {
	Field string `json:"field"`
	Gt    any    `json:"gt,omitempty"`
	Gte   any    `json:"gte,omitempty"`
	Lt    any    `json:"lt,omitempty"`
	Lte   any    `json:"lte,omitempty"`
}

// Range 构造范围查询，通过链式方法设置边界
func Range(field string) *RangeQuery {
	return &RangeQuery{Field: field}
}

func (q *RangeQuery) GreaterThan(v any) *RangeQuery {
	q.Gt = v
	return q
}

func (q *RangeQuery) GreaterOrEqual(v any) *RangeQuery {
	q.Gte = v
	return q
}

func (q *RangeQuery) LessThan(v any) *RangeQuery {
	q.Lt = v
	return q
}

func (q *RangeQuery) LessOrEqual(v any) *RangeQuery {
	q.Lte = v
	return q
}

func (q *RangeQuery) Type() QueryType {
	return QueryTypeRange
}

func (q *RangeQuery) ToSQL() (string, []any, error) {
	var conditions []string
	var args []any

	if q.Gt != nil {
		conditions = append(conditions, fmt.Sprintf("%s > ?", q.Field))
		args = append(args, q.Gt)
	}
	if q.Gte != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= ?", q.Field))
		args = append(args, q.Gte)
	}
	if q.Lt != nil {
		conditions = append(conditions, fmt.Sprintf("%s < ?", q.Field))
		args = append(args, q.Lt)
	}
	if q.Lte != nil {
		conditions = append(conditions, fmt.Sprintf("%s <= ?", q.Field))
		args = append(args, q.Lte)
	}

	if len(conditions) == 0 {
		return "1=1", nil, nil
	}

	return strings.Join(conditions, " AND "), args, nil
}

func (q *RangeQuery) ToMongo() (map[string]any, error) {
	condition := make(map[string]any)

	if q.Gt != nil {
		condition["$gt"] = q.Gt
	}
	if q.Gte != nil {
		condition["$gte"] = q.Gte
	}
	if q.Lt != nil {
		condition["$lt"] = q.Lt
	}
	if q.Lte != nil {
		condition["$lte"] = q.Lte
	}

	return map[string]any{
		q.Field: condition,
	}, nil
}
