package planner

import (
	"fmt"

	"github.com/emberdb/ember/internal/catalog"
)

// dmlStatistics is shared by the modification nodes: they produce no result
// rows.
func dmlStatistics() *catalog.TableStatistics {
	return &catalog.TableStatistics{}
}

// InsertNode inserts the rows produced by its input into a stored table.
type InsertNode struct {
	baseNode
	TableName string
}

// NewInsertNode creates an insert into the named table.
func NewInsertNode(tableName string, input Node) *InsertNode {
	n := &InsertNode{TableName: tableName}
	n.init(n, input, nil)
	return n
}

func (n *InsertNode) Type() NodeType                  { return NodeInsert }
func (n *InsertNode) ColumnExpressions() []Expression { return nil }

func (n *InsertNode) Statistics() *catalog.TableStatistics { return dmlStatistics() }

func (n *InsertNode) ShallowEquals(other Node) bool {
	o, ok := other.(*InsertNode)
	if !ok {
		return false
	}
	return n.TableName == o.TableName
}

func (n *InsertNode) String() string {
	return fmt.Sprintf("Insert(%s)", n.TableName)
}

func (n *InsertNode) deepCopy(left, right Node) Node {
	clone := &InsertNode{TableName: n.TableName}
	clone.init(clone, left, right)
	return clone
}

// UpdateNode rewrites the rows produced by its input. SetColumns names the
// assigned columns; SetExpressions holds the new values in the same order.
type UpdateNode struct {
	baseNode
	TableName      string
	SetColumns     []string
	SetExpressions []Expression
}

// NewUpdateNode creates an update of the named table.
func NewUpdateNode(tableName string, setColumns []string, setExpressions []Expression, input Node) *UpdateNode {
	if len(setColumns) != len(setExpressions) {
		panic(fmt.Sprintf("update sets %d columns with %d expressions", len(setColumns), len(setExpressions)))
	}
	n := &UpdateNode{TableName: tableName, SetColumns: setColumns, SetExpressions: setExpressions}
	n.init(n, input, nil)
	return n
}

func (n *UpdateNode) Type() NodeType                  { return NodeUpdate }
func (n *UpdateNode) ColumnExpressions() []Expression { return nil }

func (n *UpdateNode) Statistics() *catalog.TableStatistics { return dmlStatistics() }

func (n *UpdateNode) ShallowEquals(other Node) bool {
	o, ok := other.(*UpdateNode)
	if !ok {
		return false
	}
	if n.TableName != o.TableName || len(n.SetColumns) != len(o.SetColumns) {
		return false
	}
	for i := range n.SetColumns {
		if n.SetColumns[i] != o.SetColumns[i] {
			return false
		}
	}
	return ExpressionListsEqual(n.SetExpressions, o.SetExpressions)
}

func (n *UpdateNode) String() string {
	return fmt.Sprintf("Update(%s)", n.TableName)
}

func (n *UpdateNode) deepCopy(left, right Node) Node {
	clone := &UpdateNode{
		TableName:      n.TableName,
		SetColumns:     append([]string(nil), n.SetColumns...),
		SetExpressions: CopyExpressions(n.SetExpressions),
	}
	clone.init(clone, left, right)
	return clone
}

// DeleteNode removes the rows produced by its input from a stored table.
type DeleteNode struct {
	baseNode
	TableName string
}

// NewDeleteNode creates a delete from the named table.
func NewDeleteNode(tableName string, input Node) *DeleteNode {
	n := &DeleteNode{TableName: tableName}
	n.init(n, input, nil)
	return n
}

func (n *DeleteNode) Type() NodeType                  { return NodeDelete }
func (n *DeleteNode) ColumnExpressions() []Expression { return nil }

func (n *DeleteNode) Statistics() *catalog.TableStatistics { return dmlStatistics() }

func (n *DeleteNode) ShallowEquals(other Node) bool {
	o, ok := other.(*DeleteNode)
	if !ok {
		return false
	}
	return n.TableName == o.TableName
}

func (n *DeleteNode) String() string {
	return fmt.Sprintf("Delete(%s)", n.TableName)
}

func (n *DeleteNode) deepCopy(left, right Node) Node {
	clone := &DeleteNode{TableName: n.TableName}
	clone.init(clone, left, right)
	return clone
}
