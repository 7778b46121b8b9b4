package optimizer

import (
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/types"
)

// JoinDetection turns a cross product plus an equality predicate spanning
// both sides into an inner equi-join.
type JoinDetection struct{}

// Name identifies the rule.
func (r *JoinDetection) Name() string { return "JoinDetection" }

// Apply searches for Predicate → CrossJoin patterns.
func (r *JoinDetection) Apply(root planner.Node) (planner.Node, bool) {
	changed := false

	for {
		candidate := r.findCandidate(root)
		if candidate == nil {
			break
		}
		r.rewrite(candidate)
		changed = true
	}

	return root, changed
}

func (r *JoinDetection) findCandidate(root planner.Node) *planner.PredicateNode {
	var found *planner.PredicateNode
	planner.VisitPlan(root, func(n planner.Node) bool {
		if found != nil {
			return false
		}
		p, ok := n.(*planner.PredicateNode)
		if !ok {
			return true
		}
		cross, ok := p.LeftInput().(*planner.JoinNode)
		if !ok || cross.Mode != planner.JoinCross || cross.OutputCount() != 1 {
			return true
		}
		if spansBothSides(p.Predicate, cross) {
			found = p
			return false
		}
		return true
	})
	return found
}

// spansBothSides reports whether the predicate is an equality between one
// column of each join input.
func spansBothSides(predicate planner.Expression, join *planner.JoinNode) bool {
	binary, ok := predicate.(*planner.BinaryPredicate)
	if !ok || binary.Condition != types.Equals {
		return false
	}
	a, aIsCol := binary.Left.(*planner.ColumnExpression)
	b, bIsCol := binary.Right.(*planner.ColumnExpression)
	if !aIsCol || !bIsCol {
		return false
	}

	left, right := join.LeftInput(), join.RightInput()
	aLeft := left.FindColumnID(a) != types.InvalidColumnID
	aRight := right.FindColumnID(a) != types.InvalidColumnID
	bLeft := left.FindColumnID(b) != types.InvalidColumnID
	bRight := right.FindColumnID(b) != types.InvalidColumnID

	return (aLeft && !aRight && bRight && !bLeft) || (bLeft && !bRight && aRight && !aLeft)
}

func (r *JoinDetection) rewrite(p *planner.PredicateNode) {
	cross := p.LeftInput().(*planner.JoinNode)
	left, right := cross.LeftInput(), cross.RightInput()

	p.SetLeftInput(nil)
	cross.SetLeftInput(nil)
	cross.SetRightInput(nil)

	join := planner.NewJoinNode(planner.JoinInner, p.Predicate, left, right)
	planner.ReplaceWith(p, join)
}
