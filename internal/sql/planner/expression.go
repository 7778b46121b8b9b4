package planner

import (
	"hash/fnv"

	"github.com/emberdb/ember/internal/types"
)

// ExpressionType tags the variant of an expression node.
type ExpressionType int

const (
	ExprColumn ExpressionType = iota
	ExprValue
	ExprArithmetic
	ExprPredicate
	ExprBetween
	ExprNullCheck
	ExprLogical
	ExprNot
	ExprFunction
	ExprAggregate
	ExprCase
	ExprIn
	ExprExists
	ExprSubquery
	ExprPlaceholder
)

// Expression is a node of a typed expression tree. Implementations carry
// their child expressions in Arguments order.
type Expression interface {
	// Type returns the variant tag.
	Type() ExpressionType
	// Arguments returns the ordered child expressions.
	Arguments() []Expression
	// DataType returns the derived result type.
	DataType() types.DataType
	// IsNullable reports whether the expression can evaluate to NULL.
	IsNullable() bool
	// ColumnName returns the canonical rendering used as an output column
	// name.
	ColumnName() string
	// DeepCopy returns an isomorphic tree sharing no mutable state.
	DeepCopy() Expression
	// ShallowEquals compares only this node's own payload and child count.
	ShallowEquals(other Expression) bool
	// Hash combines the variant tag with child hashes and payload bytes.
	Hash() uint64
	// String returns the canonical rendering.
	String() string
}

// ExpressionsEqual compares two trees structurally. For commutative
// operators (AND, OR, +, *, =) the argument order is ignored.
func ExpressionsEqual(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !a.ShallowEquals(b) {
		return false
	}

	argsA, argsB := a.Arguments(), b.Arguments()
	if len(argsA) != len(argsB) {
		return false
	}

	if isCommutative(a) && len(argsA) == 2 {
		if ExpressionsEqual(argsA[0], argsB[0]) && ExpressionsEqual(argsA[1], argsB[1]) {
			return true
		}
		return ExpressionsEqual(argsA[0], argsB[1]) && ExpressionsEqual(argsA[1], argsB[0])
	}

	for i := range argsA {
		if !ExpressionsEqual(argsA[i], argsB[i]) {
			return false
		}
	}
	return true
}

func isCommutative(e Expression) bool {
	switch expr := e.(type) {
	case *LogicalExpression:
		return true
	case *ArithmeticExpression:
		return expr.Op == OpAdd || expr.Op == OpMultiply
	case *BinaryPredicate:
		return expr.Condition == types.Equals || expr.Condition == types.NotEquals
	default:
		return false
	}
}

// ExpressionListsEqual compares two expression lists element-wise.
func ExpressionListsEqual(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ExpressionsEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// CopyExpressions deep-copies a list of expressions.
func CopyExpressions(exprs []Expression) []Expression {
	if exprs == nil {
		return nil
	}
	copies := make([]Expression, len(exprs))
	for i, e := range exprs {
		copies[i] = e.DeepCopy()
	}
	return copies
}

// VisitExpressions walks an expression tree pre-order. The visitor returns
// false to prune the subtree.
func VisitExpressions(e Expression, visit func(Expression) bool) {
	if e == nil {
		return
	}
	if !visit(e) {
		return
	}
	for _, arg := range e.Arguments() {
		VisitExpressions(arg, visit)
	}
}

// ContainsAggregate reports whether the tree holds an aggregate expression.
// Subqueries are not descended into; their aggregates belong to the inner
// plan.
func ContainsAggregate(e Expression) bool {
	found := false
	VisitExpressions(e, func(expr Expression) bool {
		switch expr.Type() {
		case ExprAggregate:
			found = true
			return false
		case ExprSubquery:
			return false
		}
		return !found
	})
	return found
}

// FindParameterIDs collects placeholder IDs in tree order.
func FindParameterIDs(e Expression) []types.ParameterID {
	var ids []types.ParameterID
	VisitExpressions(e, func(expr Expression) bool {
		if p, ok := expr.(*PlaceholderExpression); ok {
			ids = append(ids, p.ID)
		}
		return true
	})
	return ids
}

// FindColumnExpressions collects all column references in tree order.
// Subquery internals are skipped; their correlated arguments are visited.
func FindColumnExpressions(e Expression) []*ColumnExpression {
	var cols []*ColumnExpression
	VisitExpressions(e, func(expr Expression) bool {
		switch c := expr.(type) {
		case *ColumnExpression:
			cols = append(cols, c)
		case *SubqueryExpression:
			for _, arg := range c.CorrelatedArguments {
				cols = append(cols, FindColumnExpressions(arg)...)
			}
			return false
		}
		return true
	})
	return cols
}

// hashCombine folds the variant tag, payload bytes and child hashes into
// one value.
func hashCombine(tag ExpressionType, payload []byte, args []Expression) uint64 {
	h := fnv.New64a()
	h.Write([]byte{byte(tag)})
	h.Write(payload)
	for _, arg := range args {
		child := arg.Hash()
		var buf [8]byte
		for i := 0; i < 8; i++ {
			buf[i] = byte(child >> (8 * i))
		}
		h.Write(buf[:])
	}
	return h.Sum64()
}
