package planner

import (
	"fmt"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/storage"
)

// StoredTableNode is a leaf referring to a table in the storage manager.
type StoredTableNode struct {
	baseNode
	Name  string
	Alias string

	table *storage.Table
}

// NewStoredTableNode creates a leaf for a stored table. The table handle is
// resolved by the translator so the planner never reaches into a global
// catalog.
func NewStoredTableNode(name string, table *storage.Table) *StoredTableNode {
	n := &StoredTableNode{Name: name, table: table}
	n.init(n, nil, nil)
	return n
}

// WithAlias sets the alias used to qualify output columns.
func (n *StoredTableNode) WithAlias(alias string) *StoredTableNode {
	n.Alias = alias
	return n
}

// Table returns the referenced storage table.
func (n *StoredTableNode) Table() *storage.Table {
	return n.table
}

func (n *StoredTableNode) Type() NodeType { return NodeStoredTable }

func (n *StoredTableNode) qualifier() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

func (n *StoredTableNode) ColumnExpressions() []Expression {
	schema := n.table.Schema()
	cols := make([]Expression, len(schema.Columns))
	for i, def := range schema.Columns {
		cols[i] = NewColumnExpression(n.qualifier(), def.Name, def.DataType, def.Nullable)
	}
	return cols
}

func (n *StoredTableNode) Statistics() *catalog.TableStatistics {
	return n.table.Statistics()
}

func (n *StoredTableNode) ShallowEquals(other Node) bool {
	o, ok := other.(*StoredTableNode)
	if !ok {
		return false
	}
	return n.Name == o.Name && n.Alias == o.Alias
}

func (n *StoredTableNode) String() string {
	if n.Alias != "" && n.Alias != n.Name {
		return fmt.Sprintf("StoredTable(%s AS %s)", n.Name, n.Alias)
	}
	return fmt.Sprintf("StoredTable(%s)", n.Name)
}

func (n *StoredTableNode) deepCopy(left, right Node) Node {
	clone := &StoredTableNode{Name: n.Name, Alias: n.Alias, table: n.table}
	clone.init(clone, left, right)
	return clone
}

// MockNode is a leaf that exists only through its statistics. Tests use it
// to drive the optimizer without materializing tables.
type MockNode struct {
	baseNode
	ColumnNames []string

	stats *catalog.TableStatistics
}

// NewMockNode creates a mock leaf. When no names are given the columns are
// called a, b, c, ...
func NewMockNode(stats *catalog.TableStatistics, columnNames ...string) *MockNode {
	if len(columnNames) == 0 {
		for i := range stats.Columns {
			columnNames = append(columnNames, string(rune('a'+i)))
		}
	}
	if len(columnNames) != len(stats.Columns) {
		panic(fmt.Sprintf("mock node has %d column names for %d column statistics", len(columnNames), len(stats.Columns)))
	}
	n := &MockNode{ColumnNames: columnNames, stats: stats}
	n.init(n, nil, nil)
	return n
}

func (n *MockNode) Type() NodeType { return NodeMock }

func (n *MockNode) ColumnExpressions() []Expression {
	cols := make([]Expression, len(n.ColumnNames))
	for i, name := range n.ColumnNames {
		dataType := n.stats.Columns[i].Min.DataType()
		cols[i] = NewColumnExpression("", name, dataType, n.stats.Columns[i].NullFraction > 0)
	}
	return cols
}

func (n *MockNode) Statistics() *catalog.TableStatistics {
	return n.stats
}

func (n *MockNode) ShallowEquals(other Node) bool {
	o, ok := other.(*MockNode)
	if !ok {
		return false
	}
	if len(n.ColumnNames) != len(o.ColumnNames) {
		return false
	}
	for i := range n.ColumnNames {
		if n.ColumnNames[i] != o.ColumnNames[i] {
			return false
		}
	}
	return n.stats == o.stats || n.stats.RowCount == o.stats.RowCount
}

func (n *MockNode) String() string {
	return fmt.Sprintf("Mock(rows=%.0f)", n.stats.RowCount)
}

func (n *MockNode) deepCopy(left, right Node) Node {
	names := append([]string(nil), n.ColumnNames...)
	clone := &MockNode{ColumnNames: names, stats: n.stats.Clone()}
	clone.init(clone, left, right)
	return clone
}
