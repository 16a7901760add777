package query

import "fmt"

// ExistsQuery 字段存在查询，SQL 后端渲染为 IS NOT NULL
type ExistsQuery struct {
	Field string `json:"field"`
}

func (q *ExistsQuery) Type() QueryType {
	return QueryTypeExists
}

func (q *ExistsQuery) ToSQL() (string, []any, error) {
	return fmt.Sprintf("%s IS NOT NULL", q.Field), nil, nil
}

func (q *ExistsQuery) ToMongo() (map[string]any, error) {
	return map[string]any{
		q.Field: map[string]any{
			"$exists": true,
		},
	}, nil
}
