package optimizer

import (
	"github.com/emberdb/ember/internal/sql/planner"
)

// ColumnPruning inserts narrowing projections directly above stored tables
// whose columns are partly unused, so downstream operators materialize only
// what some consumer actually reads.
type ColumnPruning struct{}

// Name identifies the rule.
func (r *ColumnPruning) Name() string { return "ColumnPruning" }

// Apply collects every column referenced anywhere in the plan, then prunes
// each stored table to the referenced subset.
func (r *ColumnPruning) Apply(root planner.Node) (planner.Node, bool) {
	required := collectRequiredColumns(root)
	planRoot := root.LeftInput()

	changed := false
	planner.VisitPlan(root, func(n planner.Node) bool {
		table, ok := n.(*planner.StoredTableNode)
		if !ok {
			return true
		}
		if table == planRoot {
			// A bare table scan keeps its full schema.
			return true
		}
		if r.prune(table, required) {
			changed = true
		}
		return true
	})
	return root, changed
}

// collectRequiredColumns gathers the qualified names of every column any
// node consumes: predicates, projections, aggregates, sorts and join
// conditions. A plan whose root exposes bare table columns (no projection
// above a table) keeps those columns via the root's own schema.
func collectRequiredColumns(root planner.Node) map[string]struct{} {
	required := make(map[string]struct{})
	add := func(exprs ...planner.Expression) {
		for _, e := range exprs {
			if e == nil {
				continue
			}
			for _, col := range planner.FindColumnExpressions(e) {
				required[col.ColumnName()] = struct{}{}
			}
		}
	}

	planner.VisitPlan(root, func(n planner.Node) bool {
		switch node := n.(type) {
		case *planner.PredicateNode:
			add(node.Predicate)
		case *planner.ProjectionNode:
			add(node.Expressions...)
		case *planner.JoinNode:
			add(node.Predicate)
		case *planner.AggregateNode:
			add(node.GroupBy...)
			add(node.Aggregates...)
		case *planner.SortNode:
			for _, o := range node.OrderBy {
				add(o.Expression)
			}
		case *planner.UpdateNode:
			add(node.SetExpressions...)
		}
		return true
	})

	// Whatever the plan's true root exposes must survive pruning.
	if planRoot := root.LeftInput(); planRoot != nil {
		add(planRoot.ColumnExpressions()...)
	}

	return required
}

func (r *ColumnPruning) prune(table *planner.StoredTableNode, required map[string]struct{}) bool {
	outputs := table.Outputs()
	if len(outputs) == 0 {
		return false
	}
	for _, output := range outputs {
		switch output.(type) {
		case *planner.PredicateNode, *planner.ProjectionNode, *planner.JoinNode,
			*planner.AggregateNode, *planner.SortNode, *planner.LimitNode:
		default:
			// DML, validation and unions need full rows.
			return false
		}
	}

	columns := table.ColumnExpressions()
	var kept []planner.Expression
	for _, col := range columns {
		if _, ok := required[col.ColumnName()]; ok {
			kept = append(kept, col)
		}
	}
	if len(kept) == len(columns) || len(kept) == 0 {
		return false
	}

	// Already pruned: a single output that is a projection of exactly the
	// kept columns.
	if len(outputs) == 1 {
		if proj, ok := outputs[0].(*planner.ProjectionNode); ok {
			if planner.ExpressionListsEqual(proj.Expressions, kept) {
				return false
			}
		}
	}

	pruning := planner.NewProjectionNode(kept, nil)

	type attachment struct {
		output planner.Node
		left   bool
	}
	var attachments []attachment
	for _, output := range outputs {
		if output.LeftInput() == table {
			attachments = append(attachments, attachment{output, true})
		}
		if output.RightInput() == table {
			attachments = append(attachments, attachment{output, false})
		}
	}

	pruning.SetLeftInput(table)
	for _, a := range attachments {
		if a.left {
			a.output.SetLeftInput(pruning)
		} else {
			a.output.SetRightInput(pruning)
		}
	}
	return true
}
