package dataset

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/hatlonely/bex/schema"
)

// RowState 行状态
type RowState string

const (
	StateUnchanged RowState = "unchanged"
	StateCreated   RowState = "created"
	StateModified  RowState = "modified"
	StateDeleted   RowState = "deleted"
)

// Row 内存表中的一行
// 开启跟踪后保留修改前的完整镜像，写库时据此计算字段级增量
type Row struct {
	schema *schema.Table
	values map[string]any
	before map[string]any // 开启跟踪前为 nil
	state  RowState
}

func (r *Row) State() RowState {
	return r.state
}

// Get 读取字段值
func (r *Row) Get(field string) (any, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Values 返回当前字段值的副本
func (r *Row) Values() map[string]any {
	return copyValues(r.values)
}

// Before 返回修改前镜像的副本，未开启跟踪时返回 nil
func (r *Row) Before() map[string]any {
	if r.before == nil {
		return nil
	}
	return copyValues(r.before)
}

// Set 设置字段值，已跟踪的未变更行转为已修改状态
func (r *Row) Set(field string, value any) error {
	if _, ok := r.schema.Field(field); !ok {
		return errors.Errorf("field %s not found in table %s", field, r.schema.Name)
	}
	if r.state == StateDeleted {
		return errors.Errorf("cannot set field %s on a deleted row", field)
	}

	r.values[field] = value
	if r.state == StateUnchanged {
		r.state = StateModified
	}
	return nil
}

// MarkDeleted 标记行为待删除
func (r *Row) MarkDeleted() {
	r.state = StateDeleted
}

// track 建立修改前镜像，镜像结构与当前值保持一致
func (r *Row) track() {
	r.before = copyValues(r.values)
	r.state = StateUnchanged
}

// Changes 计算相对修改前镜像的字段级增量，skip 中的字段不参与比较
func (r *Row) Changes(skip ...string) map[string]any {
	if r.before == nil {
		return copyValues(r.values)
	}

	skipped := make(map[string]struct{}, len(skip))
	for _, field := range skip {
		skipped[field] = struct{}{}
	}

	changes := make(map[string]any)
	for field, value := range r.values {
		if _, ok := skipped[field]; ok {
			continue
		}
		if reflect.DeepEqual(r.before[field], value) {
			continue
		}
		changes[field] = value
	}
	return changes
}

// PK 返回主键字段映射，已跟踪的行取修改前的主键值
func (r *Row) PK() (map[string]any, error) {
	source := r.values
	if r.before != nil {
		source = r.before
	}

	pk := make(map[string]any, len(r.schema.PrimaryKey))
	for _, field := range r.schema.PrimaryKey {
		value, ok := source[field]
		if !ok {
			return nil, errors.Errorf("primary key field %s has no value in table %s", field, r.schema.Name)
		}
		pk[field] = value
	}
	return pk, nil
}

func copyValues(values map[string]any) map[string]any {
	result := make(map[string]any, len(values))
	for k, v := range values {
		result[k] = v
	}
	return result
}
