package executor

import (
	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/storage"
	"github.com/emberdb/ember/internal/txn"
	"github.com/emberdb/ember/internal/types"
)

// TranslateContext supplies the collaborators operators need.
type TranslateContext struct {
	Manager   *storage.Manager
	TxnLogger txn.Logger
	ChunkSize int
}

// Translate turns an optimized logical plan into an operator DAG. Shared
// plan nodes become shared operators, preserving the DAG shape.
func Translate(node planner.Node, tc *TranslateContext) (Operator, error) {
	if tc.ChunkSize <= 0 {
		tc.ChunkSize = outputChunkSize
	}
	tr := &planTranslator{tc: tc, memo: make(map[planner.Node]Operator)}
	return tr.translate(node)
}

type planTranslator struct {
	tc   *TranslateContext
	memo map[planner.Node]Operator
}

func (tr *planTranslator) translate(node planner.Node) (Operator, error) {
	if node == nil {
		return nil, nil
	}
	if op, ok := tr.memo[node]; ok {
		return op, nil
	}

	op, err := tr.translateNode(node)
	if err != nil {
		return nil, err
	}
	tr.memo[node] = op
	return op, nil
}

func (tr *planTranslator) translateNode(node planner.Node) (Operator, error) {
	switch n := node.(type) {
	case *planner.RootNode:
		return tr.translate(n.LeftInput())

	case *planner.StoredTableNode:
		return NewGetTable(n.Name, n.Table()), nil

	case *planner.StaticTableNode:
		return NewStaticTable(n.Schema.Clone(), n.Rows), nil

	case *planner.MockNode:
		return nil, errors.Newf(errors.InternalError, "mock nodes are not executable")

	case *planner.ValidateNode:
		input, err := tr.translate(n.LeftInput())
		if err != nil {
			return nil, err
		}
		return NewValidate(input), nil

	case *planner.PredicateNode:
		return tr.translatePredicate(n)

	case *planner.ProjectionNode:
		input, err := tr.translate(n.LeftInput())
		if err != nil {
			return nil, err
		}
		subqueries, err := tr.translateSubqueries(n.Expressions)
		if err != nil {
			return nil, err
		}
		return NewProjection(n.Expressions, schemaFromNode(n), input).WithSubqueries(subqueries), nil

	case *planner.JoinNode:
		return tr.translateJoin(n)

	case *planner.AggregateNode:
		input, err := tr.translate(n.LeftInput())
		if err != nil {
			return nil, err
		}
		aggregates := make([]*planner.AggregateExpression, len(n.Aggregates))
		for i, agg := range n.Aggregates {
			a, ok := agg.(*planner.AggregateExpression)
			if !ok {
				return nil, errors.Newf(errors.InternalError, "aggregate node carries non-aggregate %s", agg)
			}
			aggregates[i] = a
		}
		return NewAggregate(n.GroupBy, aggregates, schemaFromNode(n), input), nil

	case *planner.SortNode:
		input, err := tr.translate(n.LeftInput())
		if err != nil {
			return nil, err
		}
		return NewSort(n.OrderBy, input), nil

	case *planner.LimitNode:
		input, err := tr.translate(n.LeftInput())
		if err != nil {
			return nil, err
		}
		return NewLimit(n.NumRows, n.Offset, input), nil

	case *planner.UnionNode:
		left, err := tr.translate(n.LeftInput())
		if err != nil {
			return nil, err
		}
		right, err := tr.translate(n.RightInput())
		if err != nil {
			return nil, err
		}
		return NewUnionAll(left, right), nil

	case *planner.InsertNode:
		input, err := tr.translate(n.LeftInput())
		if err != nil {
			return nil, err
		}
		table, err := tr.tc.Manager.GetTable(n.TableName)
		if err != nil {
			return nil, err
		}
		return NewInsert(n.TableName, table, tr.tc.TxnLogger, input), nil

	case *planner.UpdateNode:
		input, err := tr.translate(n.LeftInput())
		if err != nil {
			return nil, err
		}
		table, err := tr.tc.Manager.GetTable(n.TableName)
		if err != nil {
			return nil, err
		}
		return NewUpdate(n.TableName, table, n.SetColumns, n.SetExpressions, tr.tc.TxnLogger, input), nil

	case *planner.DeleteNode:
		input, err := tr.translate(n.LeftInput())
		if err != nil {
			return nil, err
		}
		return NewDelete(n.TableName, tr.tc.TxnLogger, input), nil

	case *planner.CreateTableNode:
		return NewCreateTable(tr.tc.Manager, n.TableName, n.Schema, tr.tc.ChunkSize), nil

	case *planner.DropTableNode:
		return NewDropTable(tr.tc.Manager, n.TableName), nil

	case *planner.ShowTablesNode:
		return NewShowTables(tr.tc.Manager), nil

	case *planner.ShowColumnsNode:
		return NewShowColumns(tr.tc.Manager, n.TableName), nil

	default:
		return nil, errors.Newf(errors.InternalError, "no operator for plan node %T", node)
	}
}

func (tr *planTranslator) translatePredicate(n *planner.PredicateNode) (Operator, error) {
	input, err := tr.translate(n.LeftInput())
	if err != nil {
		return nil, err
	}

	if n.ScanType == types.IndexScan {
		column, condition, value, ok := decomposeIndexPredicate(n)
		if !ok {
			return nil, errors.OptimizerInvariantError(
				"predicate %s is marked IndexScan but is not a column-vs-constant comparison", n.Predicate)
		}
		return NewIndexScan(n.Predicate, column, condition, value, input), nil
	}

	subqueries, err := tr.translateSubqueries([]planner.Expression{n.Predicate})
	if err != nil {
		return nil, err
	}
	return NewTableScan(n.Predicate, input).WithSubqueries(subqueries), nil
}

// decomposeIndexPredicate matches `column OP constant` in either operand
// order against the predicate's input schema.
func decomposeIndexPredicate(n *planner.PredicateNode) (types.ColumnID, types.PredicateCondition, types.Value, bool) {
	binary, ok := n.Predicate.(*planner.BinaryPredicate)
	if !ok {
		return 0, 0, types.Value{}, false
	}
	if col, isCol := binary.Left.(*planner.ColumnExpression); isCol {
		if val, isVal := binary.Right.(*planner.ValueExpression); isVal {
			id := n.LeftInput().FindColumnID(col)
			return id, binary.Condition, val.Value, id != types.InvalidColumnID
		}
	}
	if col, isCol := binary.Right.(*planner.ColumnExpression); isCol {
		if val, isVal := binary.Left.(*planner.ValueExpression); isVal {
			id := n.LeftInput().FindColumnID(col)
			return id, binary.Condition.Flipped(), val.Value, id != types.InvalidColumnID
		}
	}
	return 0, 0, types.Value{}, false
}

func (tr *planTranslator) translateJoin(n *planner.JoinNode) (Operator, error) {
	left, err := tr.translate(n.LeftInput())
	if err != nil {
		return nil, err
	}
	right, err := tr.translate(n.RightInput())
	if err != nil {
		return nil, err
	}

	if n.Mode == planner.JoinInner {
		if l, r, ok := n.EquiJoinColumns(); ok {
			return NewHashJoin(n.Predicate, l, r, left, right).WithOutputSchema(schemaFromNode(n)), nil
		}
	}
	return NewNestedLoopJoin(n.Mode, n.Predicate, left, right).WithOutputSchema(schemaFromNode(n)), nil
}

// translateSubqueries builds operator subplans for every subquery
// expression found in the given expressions.
func (tr *planTranslator) translateSubqueries(exprs []planner.Expression) (map[*planner.SubqueryExpression]Operator, error) {
	var subqueries map[*planner.SubqueryExpression]Operator

	for _, expr := range exprs {
		var found []*planner.SubqueryExpression
		planner.VisitExpressions(expr, func(e planner.Expression) bool {
			if s, ok := e.(*planner.SubqueryExpression); ok {
				found = append(found, s)
				return false
			}
			return true
		})
		for _, s := range found {
			// Subplans get a fresh translator so shared nodes inside the
			// subquery stay shared, while nothing is shared with the
			// outer plan.
			subplan, err := Translate(s.Plan, tr.tc)
			if err != nil {
				return nil, err
			}
			if subqueries == nil {
				subqueries = make(map[*planner.SubqueryExpression]Operator)
			}
			subqueries[s] = subplan
		}
	}
	return subqueries, nil
}
