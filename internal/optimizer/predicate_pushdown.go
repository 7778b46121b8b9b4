package optimizer

import (
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/types"
)

// PredicatePushdown moves predicates below projections and into join
// inputs when every referenced column exists there, so filtering happens
// before wider intermediates are built. Multi-output nodes stay put; a
// shared consumer relies on their current shape.
type PredicatePushdown struct{}

// Name identifies the rule.
func (r *PredicatePushdown) Name() string { return "PredicatePushdown" }

// Apply pushes one predicate at a time per pass; the fixpoint loop drives
// predicates as deep as they can go.
func (r *PredicatePushdown) Apply(root planner.Node) (planner.Node, bool) {
	changed := false
	planner.VisitPlan(root, func(n planner.Node) bool {
		p, ok := n.(*planner.PredicateNode)
		if !ok || p.OutputCount() != 1 {
			return true
		}
		if r.pushDown(p) {
			changed = true
		}
		return true
	})
	return root, changed
}

func (r *PredicatePushdown) pushDown(p *planner.PredicateNode) bool {
	switch child := p.LeftInput().(type) {
	case *planner.ProjectionNode:
		if child.OutputCount() != 1 {
			return false
		}
		below := child.LeftInput()
		if !allColumnsResolvable(p.Predicate, below) {
			return false
		}
		// parent → projection → predicate → below
		planner.ReplaceWith(p, child)
		p.SetLeftInput(below)
		child.SetLeftInput(p)
		return true

	case *planner.JoinNode:
		if child.OutputCount() != 1 {
			return false
		}
		if child.Mode != planner.JoinInner && child.Mode != planner.JoinCross {
			// Pushing through outer joins changes NULL-padding semantics.
			return false
		}

		var target planner.Node
		if allColumnsResolvable(p.Predicate, child.LeftInput()) {
			target = child.LeftInput()
		} else if allColumnsResolvable(p.Predicate, child.RightInput()) {
			target = child.RightInput()
		} else {
			return false
		}

		planner.ReplaceWith(p, child)
		if target == child.LeftInput() {
			p.SetLeftInput(target)
			child.SetLeftInput(p)
		} else {
			p.SetLeftInput(target)
			child.SetRightInput(p)
		}
		return true

	default:
		return false
	}
}

// allColumnsResolvable reports whether every column the predicate touches
// exists in the candidate input's schema. Predicates without column
// references stay where they are.
func allColumnsResolvable(predicate planner.Expression, input planner.Node) bool {
	if input == nil {
		return false
	}
	cols := planner.FindColumnExpressions(predicate)
	if len(cols) == 0 {
		return false
	}
	for _, col := range cols {
		if input.FindColumnID(col) == types.InvalidColumnID {
			return false
		}
	}
	return true
}
