package dataset

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/hatlonely/bex/schema"
)

// Table 内存表，按表结构定义承载一组行
type Table struct {
	schema *schema.Table
	rows   []*Row
}

func NewTable(s *schema.Table) (*Table, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Table{schema: s}, nil
}

func (t *Table) Schema() *schema.Table {
	return t.schema
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Rows() []*Row {
	return t.rows
}

// RowsByState 返回指定状态的行
func (t *Table) RowsByState(state RowState) []*Row {
	var rows []*Row
	for _, row := range t.rows {
		if row.state == state {
			rows = append(rows, row)
		}
	}
	return rows
}

// Append 追加一行新建状态的行，未赋值的字段填充默认值
func (t *Table) Append(values map[string]any) (*Row, error) {
	for field := range values {
		if _, ok := t.schema.Field(field); !ok {
			return nil, errors.Errorf("field %s not found in table %s", field, t.schema.Name)
		}
	}

	rowValues := copyValues(values)
	for i := range t.schema.Fields {
		field := &t.schema.Fields[i]
		if _, ok := rowValues[field.Name]; !ok && field.Default != nil {
			rowValues[field.Name] = field.Default
		}
	}

	row := &Row{schema: t.schema, values: rowValues, state: StateCreated}
	t.rows = append(t.rows, row)
	return row, nil
}

// Track 为所有行建立修改前镜像并重置为未变更状态
func (t *Table) Track() {
	for _, row := range t.rows {
		row.track()
	}
}

// Find 根据主键查找行，比较不区分整数宽度
func (t *Table) Find(pk map[string]any) (*Row, bool) {
	for _, row := range t.rows {
		if row.state == StateDeleted {
			continue
		}
		matched := true
		for field, want := range pk {
			got, ok := row.values[field]
			if !ok || valueKey(got) != valueKey(want) {
				matched = false
				break
			}
		}
		if matched {
			return row, true
		}
	}
	return nil, false
}

// Compact 移除已删除的行，写库完成后调用
func (t *Table) Compact() {
	rows := t.rows[:0]
	for _, row := range t.rows {
		if row.state != StateDeleted {
			rows = append(rows, row)
		}
	}
	t.rows = rows
}

// valueKey 生成用于等值比较的字符串键，屏蔽 int/int64 等宽度差异
func valueKey(v any) string {
	return fmt.Sprintf("%v", v)
}
