package query

import "fmt"

// TermQuery 精确匹配查询
type TermQuery struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (q *TermQuery) Type() QueryType {
	return QueryTypeTerm
}

func (q *TermQuery) ToSQL() (string, []any, error) {
	return fmt.Sprintf("%s = ?", q.Field), []any{q.Value}, nil
}

func (q *TermQuery) ToMongo() (map[string]any, error) {
	return map[string]any{
		q.Field: q.Value,
	}, nil
}
