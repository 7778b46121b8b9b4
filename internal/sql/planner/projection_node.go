package planner

import (
	"fmt"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/types"
)

// ProjectionNode computes its output columns from expressions over the
// input.
type ProjectionNode struct {
	baseNode
	Expressions []Expression
	// Aliases renames output columns; empty entries keep the expression's
	// own rendering.
	Aliases []string
}

// NewProjectionNode creates a projection over an input.
func NewProjectionNode(expressions []Expression, input Node) *ProjectionNode {
	n := &ProjectionNode{Expressions: expressions}
	n.init(n, input, nil)
	return n
}

// WithAliases attaches output column names. The list length must match the
// expression count.
func (n *ProjectionNode) WithAliases(aliases []string) *ProjectionNode {
	if len(aliases) != len(n.Expressions) {
		panic(fmt.Sprintf("projection has %d expressions but %d aliases", len(n.Expressions), len(aliases)))
	}
	n.Aliases = aliases
	return n
}

func (n *ProjectionNode) Type() NodeType { return NodeProjection }

func (n *ProjectionNode) ColumnExpressions() []Expression {
	cols := make([]Expression, len(n.Expressions))
	for i, e := range n.Expressions {
		if i < len(n.Aliases) && n.Aliases[i] != "" {
			cols[i] = NewColumnExpression("", n.Aliases[i], e.DataType(), e.IsNullable())
			continue
		}
		cols[i] = e
	}
	return cols
}

func (n *ProjectionNode) Statistics() *catalog.TableStatistics {
	input := n.leftStatistics()
	derived := &catalog.TableStatistics{RowCount: input.RowCount}

	for _, e := range n.Expressions {
		if col, ok := e.(*ColumnExpression); ok && n.LeftInput() != nil {
			if id := n.LeftInput().FindColumnID(col); id != types.InvalidColumnID {
				derived.Columns = append(derived.Columns, input.Column(id).Clone())
				continue
			}
		}
		// Computed columns fall back to an unknown-distribution estimate.
		derived.Columns = append(derived.Columns, &catalog.ColumnStatistics{
			DistinctCount: input.RowCount,
			Min:           types.NewNullValue(),
			Max:           types.NewNullValue(),
		})
	}
	return derived
}

func (n *ProjectionNode) ShallowEquals(other Node) bool {
	o, ok := other.(*ProjectionNode)
	if !ok {
		return false
	}
	if len(n.Aliases) != len(o.Aliases) {
		return false
	}
	for i := range n.Aliases {
		if n.Aliases[i] != o.Aliases[i] {
			return false
		}
	}
	return ExpressionListsEqual(n.Expressions, o.Expressions)
}

func (n *ProjectionNode) String() string {
	return fmt.Sprintf("Projection(%s)", describeExpressions(n.Expressions))
}

func (n *ProjectionNode) deepCopy(left, right Node) Node {
	clone := &ProjectionNode{
		Expressions: CopyExpressions(n.Expressions),
		Aliases:     append([]string(nil), n.Aliases...),
	}
	clone.init(clone, left, right)
	return clone
}

// ValidateNode enforces MVCC row visibility beneath every table access of a
// transactional query.
type ValidateNode struct {
	baseNode
}

// NewValidateNode creates a validate node over an input.
func NewValidateNode(input Node) *ValidateNode {
	n := &ValidateNode{}
	n.init(n, input, nil)
	return n
}

func (n *ValidateNode) Type() NodeType { return NodeValidate }

func (n *ValidateNode) ColumnExpressions() []Expression {
	return n.passThroughColumns()
}

func (n *ValidateNode) Statistics() *catalog.TableStatistics {
	return n.leftStatistics()
}

func (n *ValidateNode) ShallowEquals(other Node) bool {
	_, ok := other.(*ValidateNode)
	return ok
}

func (n *ValidateNode) String() string { return "Validate" }

func (n *ValidateNode) deepCopy(left, right Node) Node {
	clone := &ValidateNode{}
	clone.init(clone, left, right)
	return clone
}
