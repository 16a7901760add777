package query

// QueryType 查询类型
type QueryType string

const (
	QueryTypeBool   QueryType = "bool"
	QueryTypeTerm   QueryType = "term"
	QueryTypeMatch  QueryType = "match"
	QueryTypeRange  QueryType = "range"
	QueryTypeExists QueryType = "exists"
)

// Query 查询节点接口
type Query interface {
	Type() QueryType
	// 后端适配器接口
	ToSQL() (string, []any, error)
	ToMongo() (map[string]any, error)
}

// Term 构造精确匹配查询
func Term(field string, value any) *TermQuery {
	return &TermQuery{Field: field, Value: value}
}

// Match 构造模糊匹配查询
func Match(field string, value any) *MatchQuery {
	return &MatchQuery{Field: field, Value: value}
}

// Exists 构造字段存在查询
func Exists(field string) *ExistsQuery {
	return &ExistsQuery{Field: field}
}

// And 构造所有条件都满足的布尔查询
func And(queries ...Query) *BoolQuery {
	return &BoolQuery{Must: queries}
}

// Or 构造任一条件满足的布尔查询
func Or(queries ...Query) *BoolQuery {
	return &BoolQuery{Should: queries}
}

// Not 构造所有条件都不满足的布尔查询
func Not(queries ...Query) *BoolQuery {
	return &BoolQuery{MustNot: queries}
}
