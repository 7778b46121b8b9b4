package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/storage"
	"github.com/emberdb/ember/internal/types"
)

// reorderingMockNode mirrors the statistics used across the reordering scenarios:
// a dist=20 range 10..100, b dist=5 range 50..60, c dist=2 range 110..1100,
// 100 rows.
func reorderingMockNode() *planner.MockNode {
	return planner.NewMockNode(catalog.NewTableStatistics(100,
		catalog.NewColumnStatistics(0, 20, 10, 100),
		catalog.NewColumnStatistics(0, 5, 50, 60),
		catalog.NewColumnStatistics(0, 2, 110, 1100),
	))
}

func column(name string) *planner.ColumnExpression {
	return planner.NewColumnExpression("", name, types.Int, false)
}

func greaterThan(name string, value int) *planner.BinaryPredicate {
	return planner.GreaterThan(column(name), planner.NewValueExpression(value))
}

func TestSimpleReordering(t *testing.T) {
	mock := reorderingMockNode()

	// P(a>50) → P(a>10) → mock
	inner := planner.NewPredicateNode(greaterThan("a", 10), mock)
	top := planner.NewPredicateNode(greaterThan("a", 50), inner)

	result, changed := ApplyRule(&PredicateReordering{}, top)
	assert.True(t, changed)

	// a>10 keeps everything, a>50 is more selective: it moves to the
	// bottom.
	first := result.(*planner.PredicateNode)
	assert.True(t, planner.ExpressionsEqual(first.Predicate, greaterThan("a", 10)))
	second := first.LeftInput().(*planner.PredicateNode)
	assert.True(t, planner.ExpressionsEqual(second.Predicate, greaterThan("a", 50)))
	assert.Same(t, mock, second.LeftInput().(*planner.MockNode))
}

func TestThreePredicateReordering(t *testing.T) {
	mock := reorderingMockNode()

	// P(a>99) → P(b>55) → P(c>100) → mock
	p0 := planner.NewPredicateNode(greaterThan("c", 100), mock)
	p1 := planner.NewPredicateNode(greaterThan("b", 55), p0)
	p2 := planner.NewPredicateNode(greaterThan("a", 99), p1)

	result, changed := ApplyRule(&PredicateReordering{}, p2)
	assert.True(t, changed)

	// Estimated output rows: a>99 ≈ 1, b>55 = 50, c>100 = 100 (the value
	// lies below the column's range, so everything qualifies). The most
	// selective predicate a>99 belongs at the bottom.
	chain := []*planner.PredicateNode{}
	for n := result; n != nil; {
		p, ok := n.(*planner.PredicateNode)
		if !ok {
			break
		}
		chain = append(chain, p)
		n = p.LeftInput()
	}
	require.Len(t, chain, 3)
	assert.True(t, planner.ExpressionsEqual(chain[0].Predicate, greaterThan("c", 100)))
	assert.True(t, planner.ExpressionsEqual(chain[1].Predicate, greaterThan("b", 55)))
	assert.True(t, planner.ExpressionsEqual(chain[2].Predicate, greaterThan("a", 99)))
}

func TestReorderingIsStableAndIdempotent(t *testing.T) {
	mock := reorderingMockNode()
	p0 := planner.NewPredicateNode(greaterThan("c", 100), mock)
	p1 := planner.NewPredicateNode(greaterThan("b", 55), p0)
	p2 := planner.NewPredicateNode(greaterThan("a", 99), p1)

	result, changed := ApplyRule(&PredicateReordering{}, p2)
	require.True(t, changed)

	// A second application finds the chain already sorted.
	result2, changed2 := ApplyRule(&PredicateReordering{}, result)
	assert.False(t, changed2)
	assert.Same(t, result, result2)
}

func TestPredicateWithMultipleOutputsIsPinned(t *testing.T) {
	// Union(left = P_a(a>90) → P_b(a>10) → mock, right = P_b).
	// P_b has two outputs; its position is fixed and P_a must not move
	// below it even though a>90 is far more selective than a>10.
	mock := reorderingMockNode()
	pb := planner.NewPredicateNode(greaterThan("a", 10), mock)
	pa := planner.NewPredicateNode(greaterThan("a", 90), pb)
	union := planner.NewUnionNode(planner.UnionAll, pa, pb)

	require.Equal(t, 2, pb.OutputCount())

	result, changed := ApplyRule(&PredicateReordering{}, union)
	assert.False(t, changed)

	u := result.(*planner.UnionNode)
	assert.Same(t, pa, u.LeftInput())
	assert.Same(t, pb, u.RightInput())
	assert.Same(t, pb, pa.LeftInput())
	assert.Same(t, mock, pb.LeftInput())
}

func TestReorderingAcrossProjection(t *testing.T) {
	// Chains on both sides of a projection reorder independently.
	mock := reorderingMockNode()
	lower0 := planner.NewPredicateNode(greaterThan("a", 10), mock)  // keeps all
	lower1 := planner.NewPredicateNode(greaterThan("b", 55), lower0) // keeps half
	proj := planner.NewProjectionNode([]planner.Expression{column("a"), column("b")}, lower1)
	upper0 := planner.NewPredicateNode(greaterThan("a", 50), proj)
	upper1 := planner.NewPredicateNode(greaterThan("a", 99), upper0)

	_, changed := ApplyRule(&PredicateReordering{}, upper1)
	assert.True(t, changed)

	// Lower chain: b>55 (50 rows) above, a>10 (100 rows)... a>10 keeps
	// more rows so it belongs on top of the lower chain.
	assert.Same(t, lower0, proj.LeftInput(), "a>10 stays on top of the lower chain")
	assert.Same(t, lower1, lower0.LeftInput())
	assert.Same(t, mock, lower1.LeftInput())
}

// indexRuleFixture builds a stored table with the statistics of the
// index-scan scenarios: 1M rows, column c with 10 distinct values in
// 0..20000.
func indexRuleFixture(t *testing.T) (*storage.Manager, *storage.Table, *planner.StoredTableNode) {
	t.Helper()
	schema := catalog.NewSchema(
		catalog.ColumnDefinition{Name: "a", DataType: types.Int},
		catalog.ColumnDefinition{Name: "b", DataType: types.Int},
		catalog.ColumnDefinition{Name: "c", DataType: types.Int},
	)
	table := storage.NewTable(schema, 1024)
	table.SetStatistics(catalog.NewTableStatistics(1_000_000,
		catalog.NewColumnStatistics(0, 10, 0, 20),
		catalog.NewColumnStatistics(0, 10, 0, 20),
		catalog.NewColumnStatistics(0, 10, 0, 20_000),
	))

	manager := storage.NewManager()
	require.NoError(t, manager.AddTable("a", table))

	return manager, table, planner.NewStoredTableNode("a", table)
}

func applyIndexRule(t *testing.T, p *planner.PredicateNode) bool {
	t.Helper()
	rule := &IndexScanRule{SelectivityThreshold: 0.01}
	_, changed := ApplyRule(rule, p)
	return changed
}

func TestNoIndexScanWithoutIndex(t *testing.T) {
	_, _, tableNode := indexRuleFixture(t)

	p := planner.NewPredicateNode(greaterThan("a", 10), tableNode)
	changed := applyIndexRule(t, p)

	assert.False(t, changed)
	assert.Equal(t, types.TableScan, p.ScanType)
}

func TestNoIndexScanWithIndexOnOtherColumn(t *testing.T) {
	_, table, tableNode := indexRuleFixture(t)
	_, err := table.CreateIndex(storage.GroupKeyIndex, []types.ColumnID{2})
	require.NoError(t, err)

	p := planner.NewPredicateNode(greaterThan("a", 10), tableNode)
	applyIndexRule(t, p)

	assert.Equal(t, types.TableScan, p.ScanType)
}

func TestNoIndexScanWithMultiColumnIndex(t *testing.T) {
	_, table, tableNode := indexRuleFixture(t)
	_, err := table.CreateIndex(storage.CompositeGroupKeyIndex, []types.ColumnID{2, 1})
	require.NoError(t, err)

	p := planner.NewPredicateNode(greaterThan("c", 19_900), tableNode)
	applyIndexRule(t, p)

	assert.Equal(t, types.TableScan, p.ScanType)
}

func TestNoIndexScanWithTwoColumnPredicate(t *testing.T) {
	_, table, tableNode := indexRuleFixture(t)
	_, err := table.CreateIndex(storage.GroupKeyIndex, []types.ColumnID{2})
	require.NoError(t, err)

	p := planner.NewPredicateNode(
		planner.GreaterThan(column("c"), column("b")), tableNode)
	applyIndexRule(t, p)

	assert.Equal(t, types.TableScan, p.ScanType)
}

func TestNoIndexScanWithHighSelectivity(t *testing.T) {
	_, table, tableNode := indexRuleFixture(t)
	_, err := table.CreateIndex(storage.GroupKeyIndex, []types.ColumnID{2})
	require.NoError(t, err)

	// c > 10 retains (20000-10)/20000 ≈ 0.999 of the rows.
	p := planner.NewPredicateNode(greaterThan("c", 10), tableNode)
	applyIndexRule(t, p)

	assert.Equal(t, types.TableScan, p.ScanType)
}

func TestIndexScanSelectedOnLowSelectivity(t *testing.T) {
	_, table, tableNode := indexRuleFixture(t)
	_, err := table.CreateIndex(storage.GroupKeyIndex, []types.ColumnID{2})
	require.NoError(t, err)

	// c > 19900 retains 100/20000 = 0.005 ≤ 1%.
	p := planner.NewPredicateNode(greaterThan("c", 19_900), tableNode)
	changed := applyIndexRule(t, p)

	assert.True(t, changed)
	assert.Equal(t, types.IndexScan, p.ScanType)
}

func TestIndexScanOnlyDirectlyAboveStoredTable(t *testing.T) {
	_, table, tableNode := indexRuleFixture(t)
	_, err := table.CreateIndex(storage.GroupKeyIndex, []types.ColumnID{2})
	require.NoError(t, err)

	// A projection between predicate and table disqualifies the rewrite.
	proj := planner.NewProjectionNode([]planner.Expression{
		planner.NewColumnExpression("a", "c", types.Int, false),
	}, tableNode)
	p := planner.NewPredicateNode(greaterThan("c", 19_900), proj)
	applyIndexRule(t, p)

	assert.Equal(t, types.TableScan, p.ScanType)
}

func TestIndexRuleMonotonicity(t *testing.T) {
	// Without an index the rule never fires, even for the predicate the
	// tests above rewrite once a group-key index on c exists.
	_, _, tableNode := indexRuleFixture(t)
	p := planner.NewPredicateNode(greaterThan("c", 19_900), tableNode)
	applyIndexRule(t, p)
	assert.Equal(t, types.TableScan, p.ScanType)
}

func TestJoinDetection(t *testing.T) {
	leftStats := catalog.NewTableStatistics(100, catalog.NewColumnStatistics(0, 100, 0, 99))
	rightStats := catalog.NewTableStatistics(50, catalog.NewColumnStatistics(0, 50, 0, 49))
	left := planner.NewMockNode(leftStats, "x")
	right := planner.NewMockNode(rightStats, "y")

	cross := planner.NewJoinNode(planner.JoinCross, nil, left, right)
	p := planner.NewPredicateNode(
		planner.Equals(column("x"), column("y")), cross)

	result, changed := ApplyRule(&JoinDetection{}, p)
	require.True(t, changed)

	join, ok := result.(*planner.JoinNode)
	require.True(t, ok, "predicate over cross join becomes an equi-join")
	assert.Equal(t, planner.JoinInner, join.Mode)
	assert.Same(t, left, join.LeftInput())
	assert.Same(t, right, join.RightInput())

	// row estimate: 100*50 / max(100, 50)
	assert.InDelta(t, 50, join.OutputRowCount(), 0.01)
}

func TestJoinDetectionLeavesSingleSidedPredicates(t *testing.T) {
	stats := catalog.NewTableStatistics(100, catalog.NewColumnStatistics(0, 100, 0, 99))
	left := planner.NewMockNode(stats.Clone(), "x")
	right := planner.NewMockNode(stats.Clone(), "y")

	cross := planner.NewJoinNode(planner.JoinCross, nil, left, right)
	p := planner.NewPredicateNode(greaterThan("x", 10), cross)

	result, changed := ApplyRule(&JoinDetection{}, p)
	assert.False(t, changed)
	assert.Same(t, p, result)
}

func TestExpressionReductionFoldsConstants(t *testing.T) {
	mock := reorderingMockNode()
	// a > 40 + 10 folds to a > 50
	pred := planner.GreaterThan(column("a"),
		planner.NewArithmeticExpression(planner.OpAdd,
			planner.NewValueExpression(40), planner.NewValueExpression(10)))
	p := planner.NewPredicateNode(pred, mock)

	_, changed := ApplyRule(&ExpressionReduction{}, p)
	require.True(t, changed)

	folded := p.Predicate.(*planner.BinaryPredicate)
	value, ok := folded.Right.(*planner.ValueExpression)
	require.True(t, ok)
	assert.Equal(t, 0, types.Compare(value.Value, types.NewValue(50)))
}

func TestExpressionReductionCanonicalizesLiteralSide(t *testing.T) {
	mock := reorderingMockNode()
	// 50 < a becomes a > 50
	pred := planner.LessThan(planner.NewValueExpression(50), column("a"))
	p := planner.NewPredicateNode(pred, mock)

	_, changed := ApplyRule(&ExpressionReduction{}, p)
	require.True(t, changed)

	flipped := p.Predicate.(*planner.BinaryPredicate)
	assert.Equal(t, types.GreaterThan, flipped.Condition)
	_, leftIsCol := flipped.Left.(*planner.ColumnExpression)
	assert.True(t, leftIsCol)

	_, changedAgain := ApplyRule(&ExpressionReduction{}, p)
	assert.False(t, changedAgain)
}

func TestExpressionReductionDropsDoubleNegation(t *testing.T) {
	mock := reorderingMockNode()
	pred := planner.Not(planner.Not(greaterThan("a", 10)))
	p := planner.NewPredicateNode(pred, mock)

	_, changed := ApplyRule(&ExpressionReduction{}, p)
	require.True(t, changed)
	_, isBinary := p.Predicate.(*planner.BinaryPredicate)
	assert.True(t, isBinary)
}

func TestPredicatePushdownThroughProjection(t *testing.T) {
	mock := reorderingMockNode()
	proj := planner.NewProjectionNode([]planner.Expression{column("a"), column("b")}, mock)
	p := planner.NewPredicateNode(greaterThan("a", 50), proj)

	result, changed := ApplyRule(&PredicatePushdown{}, p)
	require.True(t, changed)

	top, ok := result.(*planner.ProjectionNode)
	require.True(t, ok)
	pushed := top.LeftInput().(*planner.PredicateNode)
	assert.Same(t, p, pushed)
	assert.Same(t, mock, pushed.LeftInput())
}

func TestPredicatePushdownIntoJoinSide(t *testing.T) {
	stats := catalog.NewTableStatistics(100, catalog.NewColumnStatistics(0, 100, 0, 99))
	left := planner.NewMockNode(stats.Clone(), "x")
	right := planner.NewMockNode(stats.Clone(), "y")
	join := planner.NewJoinNode(planner.JoinInner,
		planner.Equals(column("x"), column("y")), left, right)
	p := planner.NewPredicateNode(greaterThan("y", 10), join)

	result, changed := ApplyRule(&PredicatePushdown{}, p)
	require.True(t, changed)

	top, ok := result.(*planner.JoinNode)
	require.True(t, ok)
	assert.Same(t, left, top.LeftInput())
	pushed := top.RightInput().(*planner.PredicateNode)
	assert.Same(t, p, pushed)
	assert.Same(t, right, pushed.LeftInput())
}

func TestColumnPruningInsertsProjection(t *testing.T) {
	_, _, tableNode := indexRuleFixture(t)
	p := planner.NewPredicateNode(greaterThan("a", 10), tableNode)
	proj := planner.NewProjectionNode([]planner.Expression{
		planner.NewColumnExpression("a", "a", types.Int, false),
	}, p)

	_, changed := ApplyRule(&ColumnPruning{}, proj)
	require.True(t, changed)

	pruning, ok := p.LeftInput().(*planner.ProjectionNode)
	require.True(t, ok, "narrowing projection inserted above the table")
	assert.Same(t, tableNode, pruning.LeftInput())
	assert.Len(t, pruning.Expressions, 1, "only column a survives")

	_, changedAgain := ApplyRule(&ColumnPruning{}, proj)
	assert.False(t, changedAgain)
}

func TestOptimizerReachesFixpoint(t *testing.T) {
	mock := reorderingMockNode()
	p0 := planner.NewPredicateNode(greaterThan("c", 100), mock)
	p1 := planner.NewPredicateNode(greaterThan("b", 55), p0)
	p2 := planner.NewPredicateNode(greaterThan("a", 99), p1)

	o := NewOptimizer(DefaultOptions(), nil)
	once := o.Optimize(p2)
	printed := planner.PrintPlan(once)

	twice := o.Optimize(once)
	assert.Equal(t, printed, planner.PrintPlan(twice), "second run must be a no-op")
}
