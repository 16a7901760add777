package query

import (
	"strings"

	"github.com/pkg/errors"
)

// BoolQuery 布尔查询
type BoolQuery struct {
	Must    []Query `json:"must,omitempty"`
	Should  []Query `json:"should,omitempty"`
	MustNot []Query `json:"must_not,omitempty"`
}

func (q *BoolQuery) Type() QueryType {
	return QueryTypeBool
}

func (q *BoolQuery) ToSQL() (string, []any, error) {
	var parts []string
	var args []any

	appendClauses := func(queries []Query, op string, negate bool) error {
		if len(queries) == 0 {
			return nil
		}
		var clauses []string
		for _, sub := range queries {
			sql, subArgs, err := sub.ToSQL()
			if err != nil {
				return err
			}
			clauses = append(clauses, "("+sql+")")
			args = append(args, subArgs...)
		}
		joined := strings.Join(clauses, " "+op+" ")
		if negate {
			joined = "NOT (" + joined + ")"
		}
		parts = append(parts, "("+joined+")")
		return nil
	}

	if err := appendClauses(q.Must, "AND", false); err != nil {
		return "", nil, err
	}
	if err := appendClauses(q.Should, "OR", false); err != nil {
		return "", nil, err
	}
	if err := appendClauses(q.MustNot, "OR", true); err != nil {
		return "", nil, err
	}

	if len(parts) == 0 {
		return "", nil, errors.New("empty bool query")
	}

	return strings.Join(parts, " AND "), args, nil
}

func (q *BoolQuery) ToMongo() (map[string]any, error) {
	result := make(map[string]any)

	collect := func(queries []Query) ([]any, error) {
		conditions := make([]any, 0, len(queries))
		for _, sub := range queries {
			cond, err := sub.ToMongo()
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, cond)
		}
		return conditions, nil
	}

	if len(q.Must) > 0 {
		conditions, err := collect(q.Must)
		if err != nil {
			return nil, err
		}
		result["$and"] = conditions
	}
	if len(q.Should) > 0 {
		conditions, err := collect(q.Should)
		if err != nil {
			return nil, err
		}
		result["$or"] = conditions
	}
	if len(q.MustNot) > 0 {
		conditions, err := collect(q.MustNot)
		if err != nil {
			return nil, err
		}
		result["$nor"] = conditions
	}

	if len(result) == 0 {
		return nil, errors.New("empty bool query")
	}

	return result, nil
}
