package planner

import (
	"fmt"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/types"
)

// StaticTableNode is a leaf holding literal rows, e.g. the VALUES clause of
// an INSERT.
type StaticTableNode struct {
	baseNode
	Schema *catalog.Schema
	Rows   [][]Expression
}

// NewStaticTableNode creates a leaf with literal rows.
func NewStaticTableNode(schema *catalog.Schema, rows [][]Expression) *StaticTableNode {
	for _, row := range rows {
		if len(row) != len(schema.Columns) {
			panic(fmt.Sprintf("static row has %d values, schema has %d columns", len(row), len(schema.Columns)))
		}
	}
	n := &StaticTableNode{Schema: schema, Rows: rows}
	n.init(n, nil, nil)
	return n
}

func (n *StaticTableNode) Type() NodeType { return NodeStaticTable }

func (n *StaticTableNode) ColumnExpressions() []Expression {
	cols := make([]Expression, len(n.Schema.Columns))
	for i, def := range n.Schema.Columns {
		cols[i] = NewColumnExpression("", def.Name, def.DataType, def.Nullable)
	}
	return cols
}

func (n *StaticTableNode) Statistics() *catalog.TableStatistics {
	stats := &catalog.TableStatistics{RowCount: float64(len(n.Rows))}
	for range n.Schema.Columns {
		stats.Columns = append(stats.Columns, &catalog.ColumnStatistics{
			DistinctCount: float64(len(n.Rows)),
			Min:           types.NewNullValue(),
			Max:           types.NewNullValue(),
		})
	}
	return stats
}

func (n *StaticTableNode) ShallowEquals(other Node) bool {
	o, ok := other.(*StaticTableNode)
	if !ok {
		return false
	}
	if !n.Schema.Equals(o.Schema) || len(n.Rows) != len(o.Rows) {
		return false
	}
	for i := range n.Rows {
		if !ExpressionListsEqual(n.Rows[i], o.Rows[i]) {
			return false
		}
	}
	return true
}

func (n *StaticTableNode) String() string {
	return fmt.Sprintf("StaticTable(%d rows)", len(n.Rows))
}

func (n *StaticTableNode) deepCopy(left, right Node) Node {
	rows := make([][]Expression, len(n.Rows))
	for i, row := range n.Rows {
		rows[i] = CopyExpressions(row)
	}
	clone := &StaticTableNode{Schema: n.Schema.Clone(), Rows: rows}
	clone.init(clone, left, right)
	return clone
}
