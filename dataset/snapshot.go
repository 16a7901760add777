package dataset

import (
	"github.com/pkg/errors"
)

// RowSnapshot 行快照，值语义的行副本
type RowSnapshot struct {
	Values map[string]any `json:"values" msgpack:"values" bson:"values"`
	Before map[string]any `json:"before,omitempty" msgpack:"before,omitempty" bson:"before,omitempty"`
	State  RowState       `json:"state" msgpack:"state" bson:"state"`
}

// TableSnapshot 表快照
type TableSnapshot struct {
	Name string        `json:"name" msgpack:"name" bson:"name"`
	Rows []RowSnapshot `json:"rows" msgpack:"rows" bson:"rows"`
}

// Snapshot 数据集快照，用于把数据按值传递给调用方
type Snapshot struct {
	Name   string          `json:"name" msgpack:"name" bson:"name"`
	Tables []TableSnapshot `json:"tables" msgpack:"tables" bson:"tables"`
}

// Snapshot 导出数据集当前内容的值副本
func (d *Dataset) Snapshot() *Snapshot {
	snap := &Snapshot{Name: d.schema.Name}
	for _, name := range d.order {
		table := d.tables[name]
		tableSnap := TableSnapshot{Name: name, Rows: make([]RowSnapshot, 0, table.Len())}
		for _, row := range table.Rows() {
			tableSnap.Rows = append(tableSnap.Rows, RowSnapshot{
				Values: row.Values(),
				Before: row.Before(),
				State:  row.state,
			})
		}
		snap.Tables = append(snap.Tables, tableSnap)
	}
	return snap
}

// Restore 从快照重建数据集内容，原有行被替换
func (d *Dataset) Restore(snap *Snapshot) error {
	if snap.Name != d.schema.Name {
		return errors.Errorf("snapshot %s does not match dataset %s", snap.Name, d.schema.Name)
	}

	for _, tableSnap := range snap.Tables {
		table, ok := d.tables[tableSnap.Name]
		if !ok {
			return errors.Errorf("snapshot table %s not found in dataset %s", tableSnap.Name, d.schema.Name)
		}

		rows := make([]*Row, 0, len(tableSnap.Rows))
		for _, rowSnap := range tableSnap.Rows {
			row := &Row{
				schema: table.schema,
				values: copyValues(rowSnap.Values),
				state:  rowSnap.State,
			}
			if rowSnap.Before != nil {
				row.before = copyValues(rowSnap.Before)
			}
			rows = append(rows, row)
		}
		table.rows = rows
	}
	return nil
}
