package planner

import (
	"fmt"
	"strings"

	"github.com/emberdb/ember/internal/catalog"
)

// OrderByDefinition pairs a sort expression with its direction.
type OrderByDefinition struct {
	Expression Expression
	Descending bool
}

func (o OrderByDefinition) String() string {
	if o.Descending {
		return o.Expression.ColumnName() + " DESC"
	}
	return o.Expression.ColumnName() + " ASC"
}

// SortNode orders its input.
type SortNode struct {
	baseNode
	OrderBy []OrderByDefinition
}

// NewSortNode creates a sort over an input.
func NewSortNode(orderBy []OrderByDefinition, input Node) *SortNode {
	n := &SortNode{OrderBy: orderBy}
	n.init(n, input, nil)
	return n
}

func (n *SortNode) Type() NodeType { return NodeSort }

func (n *SortNode) ColumnExpressions() []Expression {
	return n.passThroughColumns()
}

func (n *SortNode) Statistics() *catalog.TableStatistics {
	return n.leftStatistics()
}

func (n *SortNode) ShallowEquals(other Node) bool {
	o, ok := other.(*SortNode)
	if !ok {
		return false
	}
	if len(n.OrderBy) != len(o.OrderBy) {
		return false
	}
	for i := range n.OrderBy {
		if n.OrderBy[i].Descending != o.OrderBy[i].Descending {
			return false
		}
		if !ExpressionsEqual(n.OrderBy[i].Expression, o.OrderBy[i].Expression) {
			return false
		}
	}
	return true
}

func (n *SortNode) String() string {
	parts := make([]string, len(n.OrderBy))
	for i, o := range n.OrderBy {
		parts[i] = o.String()
	}
	return fmt.Sprintf("Sort(%s)", strings.Join(parts, ", "))
}

func (n *SortNode) deepCopy(left, right Node) Node {
	orderBy := make([]OrderByDefinition, len(n.OrderBy))
	for i, o := range n.OrderBy {
		orderBy[i] = OrderByDefinition{Expression: o.Expression.DeepCopy(), Descending: o.Descending}
	}
	clone := &SortNode{OrderBy: orderBy}
	clone.init(clone, left, right)
	return clone
}

// LimitNode caps the number of result rows.
type LimitNode struct {
	baseNode
	NumRows int64
	Offset  int64
}

// NewLimitNode creates a limit over an input.
func NewLimitNode(numRows, offset int64, input Node) *LimitNode {
	n := &LimitNode{NumRows: numRows, Offset: offset}
	n.init(n, input, nil)
	return n
}

func (n *LimitNode) Type() NodeType { return NodeLimit }

func (n *LimitNode) ColumnExpressions() []Expression {
	return n.passThroughColumns()
}

func (n *LimitNode) Statistics() *catalog.TableStatistics {
	input := n.leftStatistics()
	derived := input.Clone()
	remaining := input.RowCount - float64(n.Offset)
	if remaining < 0 {
		remaining = 0
	}
	if float64(n.NumRows) < remaining {
		remaining = float64(n.NumRows)
	}
	derived.RowCount = remaining
	return derived
}

func (n *LimitNode) ShallowEquals(other Node) bool {
	o, ok := other.(*LimitNode)
	if !ok {
		return false
	}
	return n.NumRows == o.NumRows && n.Offset == o.Offset
}

func (n *LimitNode) String() string {
	if n.Offset > 0 {
		return fmt.Sprintf("Limit(%d, offset %d)", n.NumRows, n.Offset)
	}
	return fmt.Sprintf("Limit(%d)", n.NumRows)
}

func (n *LimitNode) deepCopy(left, right Node) Node {
	clone := &LimitNode{NumRows: n.NumRows, Offset: n.Offset}
	clone.init(clone, left, right)
	return clone
}

// UnionMode distinguishes bag union from the positional union used when a
// plan re-merges row selections of the same table.
type UnionMode int

const (
	UnionAll UnionMode = iota
	UnionPositions
)

func (m UnionMode) String() string {
	if m == UnionPositions {
		return "Positions"
	}
	return "All"
}

// UnionNode merges two inputs with identical schemas.
type UnionNode struct {
	baseNode
	Mode UnionMode
}

// NewUnionNode creates a union over two inputs.
func NewUnionNode(mode UnionMode, left, right Node) *UnionNode {
	n := &UnionNode{Mode: mode}
	n.init(n, left, right)
	return n
}

func (n *UnionNode) Type() NodeType { return NodeUnion }

func (n *UnionNode) ColumnExpressions() []Expression {
	return n.passThroughColumns()
}

func (n *UnionNode) Statistics() *catalog.TableStatistics {
	left := n.leftStatistics()
	derived := left.Clone()
	if n.RightInput() != nil {
		derived.RowCount += n.RightInput().Statistics().RowCount
	}
	return derived
}

func (n *UnionNode) ShallowEquals(other Node) bool {
	o, ok := other.(*UnionNode)
	if !ok {
		return false
	}
	return n.Mode == o.Mode
}

func (n *UnionNode) String() string {
	return fmt.Sprintf("Union(%s)", n.Mode)
}

func (n *UnionNode) deepCopy(left, right Node) Node {
	clone := &UnionNode{Mode: n.Mode}
	clone.init(clone, left, right)
	return clone
}
