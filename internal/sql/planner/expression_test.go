package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/types"
)

func col(name string) *ColumnExpression {
	return NewColumnExpression("", name, types.Int, false)
}

func TestColumnNameRendering(t *testing.T) {
	assert.Equal(t, "t.a", NewColumnExpression("t", "a", types.Int, false).ColumnName())
	assert.Equal(t, "a", col("a").ColumnName())
	assert.Equal(t, "a > 5", GreaterThan(col("a"), NewValueExpression(5)).ColumnName())
	assert.Equal(t, "SUM(a)", NewAggregateExpression(AggSum, col("a")).ColumnName())
	assert.Equal(t, "COUNT(*)", CountStar().ColumnName())
	assert.Equal(t, "CASE WHEN a > 1 THEN 1 ELSE 0 END",
		NewCaseExpression(GreaterThan(col("a"), NewValueExpression(1)),
			NewValueExpression(1), NewValueExpression(0)).ColumnName())
}

func TestShallowEqualsComparesPayloadOnly(t *testing.T) {
	a := GreaterThan(col("a"), NewValueExpression(5))
	b := GreaterThan(col("b"), NewValueExpression(7))
	assert.True(t, a.ShallowEquals(b), "same condition, children ignored")

	c := LessThan(col("a"), NewValueExpression(5))
	assert.False(t, a.ShallowEquals(c))

	assert.False(t, a.ShallowEquals(col("a")))
}

func TestDeepEqualsIgnoresCommutativeOrder(t *testing.T) {
	left := And(GreaterThan(col("a"), NewValueExpression(1)), LessThan(col("b"), NewValueExpression(2)))
	right := And(LessThan(col("b"), NewValueExpression(2)), GreaterThan(col("a"), NewValueExpression(1)))
	assert.True(t, ExpressionsEqual(left, right))

	eq1 := Equals(col("a"), col("b"))
	eq2 := Equals(col("b"), col("a"))
	assert.True(t, ExpressionsEqual(eq1, eq2))

	// < is not commutative
	lt1 := LessThan(col("a"), col("b"))
	lt2 := LessThan(col("b"), col("a"))
	assert.False(t, ExpressionsEqual(lt1, lt2))

	add1 := NewArithmeticExpression(OpAdd, col("a"), col("b"))
	add2 := NewArithmeticExpression(OpAdd, col("b"), col("a"))
	assert.True(t, ExpressionsEqual(add1, add2))

	sub1 := NewArithmeticExpression(OpSubtract, col("a"), col("b"))
	sub2 := NewArithmeticExpression(OpSubtract, col("b"), col("a"))
	assert.False(t, ExpressionsEqual(sub1, sub2))
}

func TestDeepCopySharesNoState(t *testing.T) {
	original := And(
		GreaterThan(col("a"), NewValueExpression(5)),
		NewCaseExpression(LessThan(col("b"), NewValueExpression(3)),
			NewValueExpression(1), NewNullExpression()))

	clone := original.DeepCopy()
	require.True(t, ExpressionsEqual(original, clone))

	// Mutating the copy leaves the original untouched.
	cloneAnd := clone.(*LogicalExpression)
	cloneAnd.Left.(*BinaryPredicate).Condition = types.LessThan
	assert.Equal(t, types.GreaterThan, original.Left.(*BinaryPredicate).Condition)
}

func TestHashRespectsEquality(t *testing.T) {
	a := GreaterThan(col("a"), NewValueExpression(5))
	b := GreaterThan(col("a"), NewValueExpression(5))
	assert.Equal(t, a.Hash(), b.Hash())

	c := GreaterThan(col("a"), NewValueExpression(6))
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestCaseDataTypePromotion(t *testing.T) {
	c := NewCaseExpression(
		GreaterThan(col("a"), NewValueExpression(0)),
		NewValueExpression(1),    // int
		NewValueExpression(2.5)) // double
	assert.Equal(t, types.Double, c.DataType())

	c2 := NewCaseExpression(
		GreaterThan(col("a"), NewValueExpression(0)),
		NewValueExpression(1),
		NewValueExpression("x"))
	assert.Equal(t, types.Null, c2.DataType(), "no common promotion")
}

func TestCaseShallowEqualsIsStructural(t *testing.T) {
	a := NewCaseExpression(GreaterThan(col("a"), NewValueExpression(1)), NewValueExpression(1), NewValueExpression(0))
	b := NewCaseExpression(GreaterThan(col("a"), NewValueExpression(1)), NewValueExpression(1), NewValueExpression(0))
	c := NewCaseExpression(GreaterThan(col("a"), NewValueExpression(9)), NewValueExpression(1), NewValueExpression(0))

	assert.True(t, ExpressionsEqual(a, b))
	assert.False(t, ExpressionsEqual(a, c), "all three children compare structurally")
}

func TestSubqueryArityInvariant(t *testing.T) {
	mock := NewMockNode(catalog.NewTableStatistics(10, catalog.NewColumnStatistics(0, 10, 0, 9)))

	assert.Panics(t, func() {
		NewSubqueryExpression(mock, []types.ParameterID{1, 2}, []Expression{col("a")})
	})

	s := NewSubqueryExpression(mock, []types.ParameterID{0}, []Expression{col("a")})
	assert.Len(t, s.Arguments(), 1)
}

func TestSubqueryDeepCopyCopiesPlan(t *testing.T) {
	mock := NewMockNode(catalog.NewTableStatistics(10, catalog.NewColumnStatistics(0, 10, 0, 9)))
	pred := NewPredicateNode(GreaterThan(col("a"), NewPlaceholderExpression(0, types.Int, false)), mock)
	s := NewSubqueryExpression(pred, []types.ParameterID{0}, []Expression{col("b")})

	clone := s.DeepCopy().(*SubqueryExpression)
	assert.NotSame(t, s.Plan, clone.Plan)
	assert.True(t, PlansEqual(s.Plan, clone.Plan))
	// The degenerate hash still respects equality.
	assert.Equal(t, s.Hash(), clone.Hash())
}

func TestFindParameterIDs(t *testing.T) {
	expr := And(
		GreaterThan(col("a"), NewPlaceholderExpression(2, types.Int, false)),
		Equals(col("b"), NewPlaceholderExpression(0, types.Int, false)))
	assert.Equal(t, []types.ParameterID{2, 0}, FindParameterIDs(expr))
}

func TestContainsAggregateSkipsSubqueries(t *testing.T) {
	assert.True(t, ContainsAggregate(GreaterThan(NewAggregateExpression(AggSum, col("a")), NewValueExpression(1))))
	assert.False(t, ContainsAggregate(GreaterThan(col("a"), NewValueExpression(1))))

	mock := NewMockNode(catalog.NewTableStatistics(10, catalog.NewColumnStatistics(0, 10, 0, 9)))
	sub := NewSubqueryExpression(mock, nil, nil)
	assert.False(t, ContainsAggregate(NewExistsExpression(sub)))
}
