package query

import "fmt"

// MatchQuery 模糊匹配查询，SQL 后端渲染为 LIKE
type MatchQuery struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (q *MatchQuery) Type() QueryType {
	return QueryTypeMatch
}

func (q *MatchQuery) ToSQL() (string, []any, error) {
	return fmt.Sprintf("%s LIKE ?", q.Field), []any{fmt.Sprintf("%%%v%%", q.Value)}, nil
}

func (q *MatchQuery) ToMongo() (map[string]any, error) {
	return map[string]any{
		q.Field: map[string]any{
			"$regex":   fmt.Sprintf("%v", q.Value),
			"$options": "i",
		},
	}, nil
}
