package planner

import (
	"fmt"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/types"
)

// PredicateNode filters its input by a boolean expression. ScanType records
// the access path the optimizer selected; translation to a physical
// operator honors it.
type PredicateNode struct {
	baseNode
	Predicate Expression
	ScanType  types.ScanType
}

// NewPredicateNode creates a predicate node over an input.
func NewPredicateNode(predicate Expression, input Node) *PredicateNode {
	n := &PredicateNode{Predicate: predicate, ScanType: types.TableScan}
	n.init(n, input, nil)
	return n
}

func (n *PredicateNode) Type() NodeType { return NodePredicate }

func (n *PredicateNode) ColumnExpressions() []Expression {
	return n.passThroughColumns()
}

// Statistics decomposes the predicate into the shapes the selectivity
// model understands. Anything it cannot decompose gets the default
// selectivity.
func (n *PredicateNode) Statistics() *catalog.TableStatistics {
	input := n.leftStatistics()
	return estimatePredicate(n.LeftInput(), input, n.Predicate)
}

// EstimatePredicateStatistics derives the statistics of applying a
// predicate directly to an input node, regardless of where the predicate
// currently sits. The predicate reordering rule ranks chain members with
// it so the ranking does not depend on their current positions.
func EstimatePredicateStatistics(input Node, predicate Expression) *catalog.TableStatistics {
	if input == nil {
		return &catalog.TableStatistics{}
	}
	return estimatePredicate(input, input.Statistics(), predicate)
}

func estimatePredicate(inputNode Node, input *catalog.TableStatistics, predicate Expression) *catalog.TableStatistics {
	if inputNode == nil {
		return input
	}

	switch p := predicate.(type) {
	case *BinaryPredicate:
		leftCol, leftIsCol := p.Left.(*ColumnExpression)
		rightCol, rightIsCol := p.Right.(*ColumnExpression)
		leftVal, leftIsVal := p.Left.(*ValueExpression)
		rightVal, rightIsVal := p.Right.(*ValueExpression)

		switch {
		case leftIsCol && rightIsVal:
			id := inputNode.FindColumnID(leftCol)
			if id == types.InvalidColumnID {
				return input.EstimateDefaultPredicate()
			}
			return input.EstimatePredicateVsValue(id, p.Condition, rightVal.Value)

		case leftIsVal && rightIsCol:
			id := inputNode.FindColumnID(rightCol)
			if id == types.InvalidColumnID {
				return input.EstimateDefaultPredicate()
			}
			return input.EstimatePredicateVsValue(id, p.Condition.Flipped(), leftVal.Value)

		case leftIsCol && rightIsCol:
			a := inputNode.FindColumnID(leftCol)
			b := inputNode.FindColumnID(rightCol)
			if a == types.InvalidColumnID || b == types.InvalidColumnID {
				return input.EstimateDefaultPredicate()
			}
			return input.EstimatePredicateVsColumn(a, p.Condition, b)
		}
		return input.EstimateDefaultPredicate()

	case *BetweenExpression:
		col, isCol := p.Value.(*ColumnExpression)
		lower, lowerIsVal := p.Lower.(*ValueExpression)
		upper, upperIsVal := p.Upper.(*ValueExpression)
		if !isCol || !lowerIsVal || !upperIsVal {
			return input.EstimateDefaultPredicate()
		}
		id := inputNode.FindColumnID(col)
		if id == types.InvalidColumnID {
			return input.EstimateDefaultPredicate()
		}
		narrowed := input.EstimatePredicateVsValue(id, types.GreaterThanEquals, lower.Value)
		return narrowed.EstimatePredicateVsValue(id, types.LessThanEquals, upper.Value)

	case *NullCheckExpression:
		col, isCol := p.Operand.(*ColumnExpression)
		if !isCol {
			return input.EstimateDefaultPredicate()
		}
		id := inputNode.FindColumnID(col)
		if id == types.InvalidColumnID {
			return input.EstimateDefaultPredicate()
		}
		return input.EstimatePredicateVsValue(id, p.Condition, types.NewNullValue())

	case *LogicalExpression:
		leftStats := estimatePredicate(inputNode, input, p.Left)
		if p.Op == OpAnd {
			// Feed the narrowed estimate into the right conjunct.
			return estimatePredicate(inputNode, leftStats, p.Right)
		}
		rightStats := estimatePredicate(inputNode, input, p.Right)
		union := input.Clone()
		union.RowCount = leftStats.RowCount + rightStats.RowCount
		if union.RowCount > input.RowCount {
			union.RowCount = input.RowCount
		}
		return union

	default:
		return input.EstimateDefaultPredicate()
	}
}

func (n *PredicateNode) ShallowEquals(other Node) bool {
	o, ok := other.(*PredicateNode)
	if !ok {
		return false
	}
	return n.ScanType == o.ScanType && ExpressionsEqual(n.Predicate, o.Predicate)
}

func (n *PredicateNode) String() string {
	return fmt.Sprintf("Predicate[%s](%s)", n.ScanType, n.Predicate.ColumnName())
}

func (n *PredicateNode) deepCopy(left, right Node) Node {
	clone := &PredicateNode{Predicate: n.Predicate.DeepCopy(), ScanType: n.ScanType}
	clone.init(clone, left, right)
	return clone
}
