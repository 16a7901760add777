package dataset

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/hatlonely/bex/schema"
)

// Dataset 按数据集定义组织的一组内存表
type Dataset struct {
	schema *schema.Dataset
	tables map[string]*Table
	order  []string
}

func New(s *schema.Dataset) (*Dataset, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	d := &Dataset{
		schema: s,
		tables: make(map[string]*Table, len(s.Tables)),
	}
	for _, tableSchema := range s.Tables {
		table, err := NewTable(tableSchema)
		if err != nil {
			return nil, err
		}
		d.tables[tableSchema.Name] = table
		d.order = append(d.order, tableSchema.Name)
	}
	return d, nil
}

func (d *Dataset) Schema() *schema.Dataset {
	return d.schema
}

// Table 根据名称获取内存表
func (d *Dataset) Table(name string) (*Table, bool) {
	table, ok := d.tables[name]
	return table, ok
}

// MustTable 根据名称获取内存表，不存在时 panic
func (d *Dataset) MustTable(name string) *Table {
	table, ok := d.tables[name]
	if !ok {
		panic(errors.Errorf("table %s not found in dataset %s", name, d.schema.Name))
	}
	return table
}

// Tables 按声明顺序返回所有内存表，父表先于子表
func (d *Dataset) Tables() []*Table {
	tables := make([]*Table, 0, len(d.order))
	for _, name := range d.order {
		tables = append(tables, d.tables[name])
	}
	return tables
}

// Track 为所有表的所有行建立修改前镜像
func (d *Dataset) Track() {
	for _, table := range d.tables {
		table.Track()
	}
}

// CheckRelations 多表写入前的一致性检查
// 每个未删除的子表行，其关联字段必须能匹配到一个未删除的父表行
func (d *Dataset) CheckRelations() error {
	for _, rel := range d.schema.Relations {
		parent := d.tables[rel.Parent]
		child := d.tables[rel.Child]

		// 父表行关联键集合
		parentKeys := make(map[string]struct{}, parent.Len())
		for _, row := range parent.Rows() {
			if row.state == StateDeleted {
				continue
			}
			parentKeys[relationKey(row, rel.Fields, true)] = struct{}{}
		}

		for _, row := range child.Rows() {
			if row.state == StateDeleted {
				continue
			}
			key := relationKey(row, rel.Fields, false)
			if _, ok := parentKeys[key]; !ok {
				return errors.Errorf("dataset %s: row in %s has no matching parent in %s (key %s)",
					d.schema.Name, rel.Child, rel.Parent, key)
			}
		}
	}
	return nil
}

// relationKey 拼接关联字段值作为匹配键
func relationKey(row *Row, fields []schema.RelationField, parent bool) string {
	parts := make([]string, 0, len(fields))
	for _, pair := range fields {
		field := pair.ChildField
		if parent {
			field = pair.ParentField
		}
		value, _ := row.Get(field)
		parts = append(parts, valueKey(value))
	}
	return strings.Join(parts, "\x00")
}
