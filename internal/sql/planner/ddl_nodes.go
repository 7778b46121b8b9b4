package planner

import (
	"fmt"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/types"
)

// CreateTableNode creates a stored table with the given schema.
type CreateTableNode struct {
	baseNode
	TableName string
	Schema    *catalog.Schema
}

// NewCreateTableNode creates a CREATE TABLE node.
func NewCreateTableNode(tableName string, schema *catalog.Schema) *CreateTableNode {
	n := &CreateTableNode{TableName: tableName, Schema: schema}
	n.init(n, nil, nil)
	return n
}

func (n *CreateTableNode) Type() NodeType                  { return NodeCreateTable }
func (n *CreateTableNode) ColumnExpressions() []Expression { return nil }

func (n *CreateTableNode) Statistics() *catalog.TableStatistics {
	return &catalog.TableStatistics{}
}

func (n *CreateTableNode) ShallowEquals(other Node) bool {
	o, ok := other.(*CreateTableNode)
	if !ok {
		return false
	}
	return n.TableName == o.TableName && n.Schema.Equals(o.Schema)
}

func (n *CreateTableNode) String() string {
	return fmt.Sprintf("CreateTable(%s)", n.TableName)
}

func (n *CreateTableNode) deepCopy(left, right Node) Node {
	clone := &CreateTableNode{TableName: n.TableName, Schema: n.Schema.Clone()}
	clone.init(clone, left, right)
	return clone
}

// DropTableNode drops a stored table.
type DropTableNode struct {
	baseNode
	TableName string
}

// NewDropTableNode creates a DROP TABLE node.
func NewDropTableNode(tableName string) *DropTableNode {
	n := &DropTableNode{TableName: tableName}
	n.init(n, nil, nil)
	return n
}

func (n *DropTableNode) Type() NodeType                  { return NodeDropTable }
func (n *DropTableNode) ColumnExpressions() []Expression { return nil }

func (n *DropTableNode) Statistics() *catalog.TableStatistics {
	return &catalog.TableStatistics{}
}

func (n *DropTableNode) ShallowEquals(other Node) bool {
	o, ok := other.(*DropTableNode)
	if !ok {
		return false
	}
	return n.TableName == o.TableName
}

func (n *DropTableNode) String() string {
	return fmt.Sprintf("DropTable(%s)", n.TableName)
}

func (n *DropTableNode) deepCopy(left, right Node) Node {
	clone := &DropTableNode{TableName: n.TableName}
	clone.init(clone, left, right)
	return clone
}

// ShowTablesNode lists the catalog's table names.
type ShowTablesNode struct {
	baseNode
}

// NewShowTablesNode creates a SHOW TABLES node.
func NewShowTablesNode() *ShowTablesNode {
	n := &ShowTablesNode{}
	n.init(n, nil, nil)
	return n
}

func (n *ShowTablesNode) Type() NodeType { return NodeShowTables }

func (n *ShowTablesNode) ColumnExpressions() []Expression {
	return []Expression{NewColumnExpression("", "table_name", types.String, false)}
}

func (n *ShowTablesNode) Statistics() *catalog.TableStatistics {
	return &catalog.TableStatistics{}
}

func (n *ShowTablesNode) ShallowEquals(other Node) bool {
	_, ok := other.(*ShowTablesNode)
	return ok
}

func (n *ShowTablesNode) String() string { return "ShowTables" }

func (n *ShowTablesNode) deepCopy(left, right Node) Node {
	clone := &ShowTablesNode{}
	clone.init(clone, left, right)
	return clone
}

// ShowColumnsNode lists a table's columns.
type ShowColumnsNode struct {
	baseNode
	TableName string
}

// NewShowColumnsNode creates a SHOW COLUMNS node.
func NewShowColumnsNode(tableName string) *ShowColumnsNode {
	n := &ShowColumnsNode{TableName: tableName}
	n.init(n, nil, nil)
	return n
}

func (n *ShowColumnsNode) Type() NodeType { return NodeShowColumns }

func (n *ShowColumnsNode) ColumnExpressions() []Expression {
	return []Expression{
		NewColumnExpression("", "column_name", types.String, false),
		NewColumnExpression("", "column_type", types.String, false),
		NewColumnExpression("", "nullable", types.Int, false),
	}
}

func (n *ShowColumnsNode) Statistics() *catalog.TableStatistics {
	return &catalog.TableStatistics{}
}

func (n *ShowColumnsNode) ShallowEquals(other Node) bool {
	o, ok := other.(*ShowColumnsNode)
	if !ok {
		return false
	}
	return n.TableName == o.TableName
}

func (n *ShowColumnsNode) String() string {
	return fmt.Sprintf("ShowColumns(%s)", n.TableName)
}

func (n *ShowColumnsNode) deepCopy(left, right Node) Node {
	clone := &ShowColumnsNode{TableName: n.TableName}
	clone.init(clone, left, right)
	return clone
}
