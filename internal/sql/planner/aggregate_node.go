package planner

import (
	"fmt"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/types"
)

// AggregateNode groups its input and computes aggregates per group. Output
// columns are the group-by expressions followed by the aggregates.
type AggregateNode struct {
	baseNode
	GroupBy    []Expression
	Aggregates []Expression
}

// NewAggregateNode creates an aggregation over an input.
func NewAggregateNode(groupBy, aggregates []Expression, input Node) *AggregateNode {
	for _, a := range aggregates {
		if a.Type() != ExprAggregate {
			panic(fmt.Sprintf("aggregate node requires aggregate expressions, got %s", a))
		}
	}
	n := &AggregateNode{GroupBy: groupBy, Aggregates: aggregates}
	n.init(n, input, nil)
	return n
}

func (n *AggregateNode) Type() NodeType { return NodeAggregate }

func (n *AggregateNode) ColumnExpressions() []Expression {
	return append(append([]Expression(nil), n.GroupBy...), n.Aggregates...)
}

func (n *AggregateNode) Statistics() *catalog.TableStatistics {
	input := n.leftStatistics()

	if len(n.GroupBy) == 0 {
		stats := &catalog.TableStatistics{RowCount: 1}
		for range n.Aggregates {
			stats.Columns = append(stats.Columns, &catalog.ColumnStatistics{
				DistinctCount: 1,
				Min:           types.NewNullValue(),
				Max:           types.NewNullValue(),
			})
		}
		return stats
	}

	// Group count is the product of the group columns' distinct counts,
	// clamped by the input row count.
	groups := 1.0
	for _, g := range n.GroupBy {
		col, ok := g.(*ColumnExpression)
		if !ok || n.LeftInput() == nil {
			groups = input.RowCount
			break
		}
		id := n.LeftInput().FindColumnID(col)
		if id == types.InvalidColumnID || input.Column(id) == nil {
			groups = input.RowCount
			break
		}
		groups *= input.Column(id).DistinctCount
	}
	if groups > input.RowCount {
		groups = input.RowCount
	}

	stats := &catalog.TableStatistics{RowCount: groups}
	for range n.ColumnExpressions() {
		stats.Columns = append(stats.Columns, &catalog.ColumnStatistics{
			DistinctCount: groups,
			Min:           types.NewNullValue(),
			Max:           types.NewNullValue(),
		})
	}
	return stats
}

func (n *AggregateNode) ShallowEquals(other Node) bool {
	o, ok := other.(*AggregateNode)
	if !ok {
		return false
	}
	return ExpressionListsEqual(n.GroupBy, o.GroupBy) && ExpressionListsEqual(n.Aggregates, o.Aggregates)
}

func (n *AggregateNode) String() string {
	if len(n.GroupBy) == 0 {
		return fmt.Sprintf("Aggregate(%s)", describeExpressions(n.Aggregates))
	}
	return fmt.Sprintf("Aggregate(GROUP BY %s; %s)",
		describeExpressions(n.GroupBy), describeExpressions(n.Aggregates))
}

func (n *AggregateNode) deepCopy(left, right Node) Node {
	clone := &AggregateNode{
		GroupBy:    CopyExpressions(n.GroupBy),
		Aggregates: CopyExpressions(n.Aggregates),
	}
	clone.init(clone, left, right)
	return clone
}
