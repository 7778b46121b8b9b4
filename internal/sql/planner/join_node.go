package planner

import (
	"fmt"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/types"
)

// JoinMode is the join flavor.
type JoinMode int

const (
	JoinInner JoinMode = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
	JoinSemi
	JoinAnti
)

func (m JoinMode) String() string {
	switch m {
	case JoinInner:
		return "Inner"
	case JoinLeft:
		return "Left"
	case JoinRight:
		return "Right"
	case JoinFull:
		return "Full"
	case JoinCross:
		return "Cross"
	case JoinSemi:
		return "Semi"
	case JoinAnti:
		return "Anti"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// JoinNode combines two inputs. Predicate is nil for cross joins.
type JoinNode struct {
	baseNode
	Mode      JoinMode
	Predicate Expression
}

// NewJoinNode creates a join over two inputs.
func NewJoinNode(mode JoinMode, predicate Expression, left, right Node) *JoinNode {
	if mode == JoinCross && predicate != nil {
		panic("cross join cannot have a predicate")
	}
	if mode != JoinCross && predicate == nil {
		panic(fmt.Sprintf("%s join requires a predicate", mode))
	}
	n := &JoinNode{Mode: mode, Predicate: predicate}
	n.init(n, left, right)
	return n
}

func (n *JoinNode) Type() NodeType { return NodeJoin }

func (n *JoinNode) ColumnExpressions() []Expression {
	left := n.LeftInput().ColumnExpressions()
	switch n.Mode {
	case JoinSemi, JoinAnti:
		// Semi and anti joins only filter the left side.
		return left
	}
	return append(append([]Expression(nil), left...), n.RightInput().ColumnExpressions()...)
}

// EquiJoinColumns decomposes the predicate into one column of each input,
// when it has the `left.col = right.col` shape.
func (n *JoinNode) EquiJoinColumns() (left, right types.ColumnID, ok bool) {
	p, isBinary := n.Predicate.(*BinaryPredicate)
	if !isBinary || p.Condition != types.Equals {
		return 0, 0, false
	}
	a, aIsCol := p.Left.(*ColumnExpression)
	b, bIsCol := p.Right.(*ColumnExpression)
	if !aIsCol || !bIsCol {
		return 0, 0, false
	}

	if l := n.LeftInput().FindColumnID(a); l != types.InvalidColumnID {
		if r := n.RightInput().FindColumnID(b); r != types.InvalidColumnID {
			return l, r, true
		}
	}
	if l := n.LeftInput().FindColumnID(b); l != types.InvalidColumnID {
		if r := n.RightInput().FindColumnID(a); r != types.InvalidColumnID {
			return l, r, true
		}
	}
	return 0, 0, false
}

func (n *JoinNode) Statistics() *catalog.TableStatistics {
	left := n.LeftInput().Statistics()
	right := n.RightInput().Statistics()

	switch n.Mode {
	case JoinCross:
		return left.EstimateCrossJoin(right)
	case JoinSemi, JoinAnti:
		derived := left.Clone()
		derived.RowCount *= catalog.DefaultSelectivity
		return derived
	default:
		if l, r, ok := n.EquiJoinColumns(); ok {
			return left.EstimateEquiJoin(right, l, r)
		}
		joined := left.EstimateCrossJoin(right)
		joined.RowCount *= catalog.DefaultSelectivity
		return joined
	}
}

func (n *JoinNode) ShallowEquals(other Node) bool {
	o, ok := other.(*JoinNode)
	if !ok {
		return false
	}
	return n.Mode == o.Mode && ExpressionsEqual(n.Predicate, o.Predicate)
}

func (n *JoinNode) String() string {
	if n.Predicate == nil {
		return fmt.Sprintf("%sJoin", n.Mode)
	}
	return fmt.Sprintf("%sJoin(%s)", n.Mode, n.Predicate.ColumnName())
}

func (n *JoinNode) deepCopy(left, right Node) Node {
	clone := &JoinNode{Mode: n.Mode}
	if n.Predicate != nil {
		clone.Predicate = n.Predicate.DeepCopy()
	}
	clone.init(clone, left, right)
	return clone
}
