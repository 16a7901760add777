package schema

import (
	"github.com/pkg/errors"
)

// FieldType 字段类型
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInt     FieldType = "int"
	FieldTypeFloat   FieldType = "float"
	FieldTypeBool    FieldType = "bool"
	FieldTypeDate    FieldType = "date"
	FieldTypeDecimal FieldType = "decimal"
)

// Field 字段定义
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Default  any
	Size     int // 字段长度，如 VARCHAR(255)
}

// Index 索引定义
type Index struct {
	Name   string
	Fields []string
	Unique bool
}

// Table 表结构定义，对应一张内存表及其镜像的数据库表
type Table struct {
	Name       string
	Fields     []Field
	PrimaryKey []string // 主键字段名列表，支持复合主键
	Indexes    []Index
}

// Field 根据名称查找字段定义
func (t *Table) Field(name string) (*Field, bool) {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// FieldNames 返回所有字段名，保持声明顺序
func (t *Table) FieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for i := range t.Fields {
		names = append(names, t.Fields[i].Name)
	}
	return names
}

// IsPrimaryKey 判断字段是否属于主键
func (t *Table) IsPrimaryKey(name string) bool {
	for _, pk := range t.PrimaryKey {
		if pk == name {
			return true
		}
	}
	return false
}

// Validate 校验表结构定义
// 主键不能为空，主键和索引引用的字段必须存在，字段名不能重复
func (t *Table) Validate() error {
	if t.Name == "" {
		return errors.New("table name is empty")
	}
	if len(t.Fields) == 0 {
		return errors.Errorf("table %s has no fields", t.Name)
	}

	seen := make(map[string]struct{}, len(t.Fields))
	for i := range t.Fields {
		name := t.Fields[i].Name
		if name == "" {
			return errors.Errorf("table %s has a field with empty name", t.Name)
		}
		if _, ok := seen[name]; ok {
			return errors.Errorf("table %s has duplicate field %s", t.Name, name)
		}
		seen[name] = struct{}{}
	}

	if len(t.PrimaryKey) == 0 {
		return errors.Errorf("table %s has no primary key", t.Name)
	}
	for _, pk := range t.PrimaryKey {
		if _, ok := seen[pk]; !ok {
			return errors.Errorf("table %s primary key field %s not found", t.Name, pk)
		}
	}

	for _, idx := range t.Indexes {
		for _, field := range idx.Fields {
			if _, ok := seen[field]; !ok {
				return errors.Errorf("table %s index %s field %s not found", t.Name, idx.Name, field)
			}
		}
	}

	return nil
}

// RelationField 关联字段对，父表字段和子表字段按位置一一对应
type RelationField struct {
	ParentField string
	ChildField  string
}

// Relation 父子表关联定义
type Relation struct {
	Parent string
	Child  string
	Fields []RelationField
}

// Dataset 数据集定义，一组表加上可选的父子关联
type Dataset struct {
	Name      string
	Tables    []*Table
	Relations []Relation
}

// Table 根据名称查找表定义
func (d *Dataset) Table(name string) (*Table, bool) {
	for _, t := range d.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Validate 校验数据集定义
// 所有表定义合法，关联引用的表必须存在，关联字段必须在两侧都存在且类型一致
func (d *Dataset) Validate() error {
	if d.Name == "" {
		return errors.New("dataset name is empty")
	}
	if len(d.Tables) == 0 {
		return errors.Errorf("dataset %s has no tables", d.Name)
	}

	for _, t := range d.Tables {
		if err := t.Validate(); err != nil {
			return errors.WithMessagef(err, "dataset %s", d.Name)
		}
	}

	for _, rel := range d.Relations {
		parent, ok := d.Table(rel.Parent)
		if !ok {
			return errors.Errorf("dataset %s relation parent table %s not found", d.Name, rel.Parent)
		}
		child, ok := d.Table(rel.Child)
		if !ok {
			return errors.Errorf("dataset %s relation child table %s not found", d.Name, rel.Child)
		}
		if len(rel.Fields) == 0 {
			return errors.Errorf("dataset %s relation %s/%s has no fields", d.Name, rel.Parent, rel.Child)
		}
		for _, pair := range rel.Fields {
			pf, ok := parent.Field(pair.ParentField)
			if !ok {
				return errors.Errorf("dataset %s relation field %s not found in parent table %s",
					d.Name, pair.ParentField, rel.Parent)
			}
			cf, ok := child.Field(pair.ChildField)
			if !ok {
				return errors.Errorf("dataset %s relation field %s not found in child table %s",
					d.Name, pair.ChildField, rel.Child)
			}
			if pf.Type != cf.Type {
				return errors.Errorf("dataset %s relation field type mismatch: %s.%s is %s, %s.%s is %s",
					d.Name, rel.Parent, pair.ParentField, pf.Type, rel.Child, pair.ChildField, cf.Type)
			}
		}
	}

	return nil
}
