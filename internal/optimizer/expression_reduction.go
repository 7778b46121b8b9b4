package optimizer

import (
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/types"
)

// ExpressionReduction simplifies expressions in place: constant
// sub-expressions fold to literals, double negation drops, and literals
// move to the right-hand side of commutative operators so later rules see
// one canonical shape.
type ExpressionReduction struct{}

// Name identifies the rule.
func (r *ExpressionReduction) Name() string { return "ExpressionReduction" }

// Apply rewrites the expressions of every predicate and projection node.
func (r *ExpressionReduction) Apply(root planner.Node) (planner.Node, bool) {
	changed := false
	planner.VisitPlan(root, func(n planner.Node) bool {
		switch node := n.(type) {
		case *planner.PredicateNode:
			reduced, c := reduceExpression(node.Predicate)
			if c {
				node.Predicate = reduced
				changed = true
			}
		case *planner.ProjectionNode:
			for i, e := range node.Expressions {
				reduced, c := reduceExpression(e)
				if c {
					node.Expressions[i] = reduced
					changed = true
				}
			}
		case *planner.JoinNode:
			if node.Predicate != nil {
				reduced, c := reduceExpression(node.Predicate)
				if c {
					node.Predicate = reduced
					changed = true
				}
			}
		}
		return true
	})
	return root, changed
}

func reduceExpression(e planner.Expression) (planner.Expression, bool) {
	changed := false

	switch expr := e.(type) {
	case *planner.ArithmeticExpression:
		left, lc := reduceExpression(expr.Left)
		right, rc := reduceExpression(expr.Right)
		expr.Left, expr.Right = left, right
		changed = lc || rc

		lv, lIsVal := left.(*planner.ValueExpression)
		rv, rIsVal := right.(*planner.ValueExpression)

		if lIsVal && rIsVal {
			if folded, ok := foldArithmetic(expr.Op, lv.Value, rv.Value); ok {
				return &planner.ValueExpression{Value: folded}, true
			}
		}
		// Canonical side: column + literal, not literal + column.
		if lIsVal && !rIsVal && (expr.Op == planner.OpAdd || expr.Op == planner.OpMultiply) {
			expr.Left, expr.Right = expr.Right, expr.Left
			return expr, true
		}
		return expr, changed

	case *planner.BinaryPredicate:
		left, lc := reduceExpression(expr.Left)
		right, rc := reduceExpression(expr.Right)
		expr.Left, expr.Right = left, right
		changed = lc || rc

		_, lIsVal := left.(*planner.ValueExpression)
		_, rIsVal := right.(*planner.ValueExpression)
		if lIsVal && !rIsVal && expr.Condition.IsComparison() {
			// Literal moves to the right; the condition flips with it.
			expr.Left, expr.Right = expr.Right, expr.Left
			expr.Condition = expr.Condition.Flipped()
			return expr, true
		}
		return expr, changed

	case *planner.NotExpression:
		operand, c := reduceExpression(expr.Operand)
		expr.Operand = operand
		changed = c

		if inner, ok := operand.(*planner.NotExpression); ok {
			return inner.Operand, true
		}
		if cmp, ok := operand.(*planner.BinaryPredicate); ok {
			if negated, ok := negateCondition(cmp.Condition); ok {
				cmp.Condition = negated
				return cmp, true
			}
		}
		return expr, changed

	case *planner.LogicalExpression:
		left, lc := reduceExpression(expr.Left)
		right, rc := reduceExpression(expr.Right)
		expr.Left, expr.Right = left, right
		return expr, lc || rc

	case *planner.BetweenExpression:
		var c1, c2, c3 bool
		expr.Value, c1 = reduceExpression(expr.Value)
		expr.Lower, c2 = reduceExpression(expr.Lower)
		expr.Upper, c3 = reduceExpression(expr.Upper)
		return expr, c1 || c2 || c3

	case *planner.NullCheckExpression:
		operand, c := reduceExpression(expr.Operand)
		expr.Operand = operand
		return expr, c

	case *planner.CaseExpression:
		var c1, c2, c3 bool
		expr.When, c1 = reduceExpression(expr.When)
		expr.Then, c2 = reduceExpression(expr.Then)
		expr.Else, c3 = reduceExpression(expr.Else)
		return expr, c1 || c2 || c3

	case *planner.InExpression:
		operand, c := reduceExpression(expr.Operand)
		expr.Operand = operand
		changed = c
		for i, item := range expr.List {
			reduced, c := reduceExpression(item)
			if c {
				expr.List[i] = reduced
				changed = true
			}
		}
		return expr, changed

	case *planner.FunctionExpression:
		for i, arg := range expr.Args {
			reduced, c := reduceExpression(arg)
			if c {
				expr.Args[i] = reduced
				changed = true
			}
		}
		return expr, changed

	case *planner.AggregateExpression:
		if expr.Argument != nil {
			reduced, c := reduceExpression(expr.Argument)
			if c {
				expr.Argument = reduced
				changed = true
			}
		}
		return expr, changed

	default:
		// Columns, literals, placeholders and subqueries are left alone;
		// subquery plans are optimized on their own when they execute.
		return e, false
	}
}

func negateCondition(c types.PredicateCondition) (types.PredicateCondition, bool) {
	switch c {
	case types.Equals:
		return types.NotEquals, true
	case types.NotEquals:
		return types.Equals, true
	case types.LessThan:
		return types.GreaterThanEquals, true
	case types.LessThanEquals:
		return types.GreaterThan, true
	case types.GreaterThan:
		return types.LessThanEquals, true
	case types.GreaterThanEquals:
		return types.LessThan, true
	default:
		return c, false
	}
}

func foldArithmetic(op planner.ArithmeticOperator, a, b types.Value) (types.Value, bool) {
	if a.IsNull() || b.IsNull() {
		return types.NewNullValue(), true
	}
	if !a.DataType().IsNumeric() || !b.DataType().IsNumeric() {
		return types.Value{}, false
	}

	promoted, err := types.Promote(a.DataType(), b.DataType())
	if err != nil {
		return types.Value{}, false
	}

	if promoted.IsFloatingPoint() {
		fa, _ := a.AsFloat64()
		fb, _ := b.AsFloat64()
		var result float64
		switch op {
		case planner.OpAdd:
			result = fa + fb
		case planner.OpSubtract:
			result = fa - fb
		case planner.OpMultiply:
			result = fa * fb
		case planner.OpDivide:
			if fb == 0 {
				return types.NewNullValue(), true
			}
			result = fa / fb
		default:
			return types.Value{}, false
		}
		v, err := types.Cast(types.NewValue(result), promoted)
		if err != nil {
			return types.Value{}, false
		}
		return v, true
	}

	ia, _ := a.AsInt64()
	ib, _ := b.AsInt64()
	var result int64
	switch op {
	case planner.OpAdd:
		result = ia + ib
	case planner.OpSubtract:
		result = ia - ib
	case planner.OpMultiply:
		result = ia * ib
	case planner.OpDivide:
		if ib == 0 {
			return types.NewNullValue(), true
		}
		result = ia / ib
	case planner.OpModulo:
		if ib == 0 {
			return types.NewNullValue(), true
		}
		result = ia % ib
	default:
		return types.Value{}, false
	}
	v, err := types.Cast(types.NewValue(result), promoted)
	if err != nil {
		return types.Value{}, false
	}
	return v, true
}
