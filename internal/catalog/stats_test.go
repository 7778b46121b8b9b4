package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/internal/types"
)

// Statistics mirroring the three-column mock table used across the
// optimizer tests: a dist=20 range 10..100, b dist=5 range 50..60,
// c dist=2 range 110..1100, 100 rows.
func mockStatistics() *TableStatistics {
	return NewTableStatistics(100,
		NewColumnStatistics(0, 20, 10, 100),
		NewColumnStatistics(0, 5, 50, 60),
		NewColumnStatistics(0, 2, 110, 1100),
	)
}

func TestEqualsSelectivity(t *testing.T) {
	stats := mockStatistics()

	derived := stats.EstimatePredicateVsValue(0, types.Equals, types.NewValue(42))
	assert.InDelta(t, 5.0, derived.RowCount, 0.01) // 100 / 20 distinct

	// out of range matches nothing
	derived = stats.EstimatePredicateVsValue(0, types.Equals, types.NewValue(9999))
	assert.Zero(t, derived.RowCount)
}

func TestRangeSelectivityIsProportional(t *testing.T) {
	stats := mockStatistics()

	// a > 50 retains (100-50)/(100-10) of the rows
	derived := stats.EstimatePredicateVsValue(0, types.GreaterThan, types.NewValue(50))
	assert.InDelta(t, 100*50.0/90.0, derived.RowCount, 0.01)

	// a > 10 retains everything
	derived = stats.EstimatePredicateVsValue(0, types.GreaterThan, types.NewValue(10))
	assert.InDelta(t, 100, derived.RowCount, 0.01)

	// c > 100 lies below the range minimum and is clamped to everything
	derived = stats.EstimatePredicateVsValue(2, types.GreaterThan, types.NewValue(100))
	assert.InDelta(t, 100, derived.RowCount, 0.01)

	// b > 55 retains half
	derived = stats.EstimatePredicateVsValue(1, types.GreaterThan, types.NewValue(55))
	assert.InDelta(t, 50, derived.RowCount, 0.01)
}

func TestRangePredicateNarrowsColumnBounds(t *testing.T) {
	stats := mockStatistics()

	derived := stats.EstimatePredicateVsValue(0, types.GreaterThan, types.NewValue(50))
	col := derived.Column(0)
	require.NotNil(t, col)
	assert.Equal(t, 0, types.Compare(col.Min, types.NewValue(50)))
	assert.Equal(t, 0, types.Compare(col.Max, types.NewValue(100)))
}

func TestNullFractionHandling(t *testing.T) {
	stats := NewTableStatistics(100, NewColumnStatistics(0.25, 10, 0, 9))

	derived := stats.EstimatePredicateVsValue(0, types.IsNull, types.NewNullValue())
	assert.InDelta(t, 25, derived.RowCount, 0.01)

	derived = stats.EstimatePredicateVsValue(0, types.IsNotNull, types.NewNullValue())
	assert.InDelta(t, 75, derived.RowCount, 0.01)

	// equality only ever matches non-null rows
	derived = stats.EstimatePredicateVsValue(0, types.Equals, types.NewValue(3))
	assert.InDelta(t, 7.5, derived.RowCount, 0.01)
}

func TestColumnVsColumnEquality(t *testing.T) {
	stats := mockStatistics()

	derived := stats.EstimatePredicateVsColumn(0, types.Equals, 1)
	assert.InDelta(t, 5, derived.RowCount, 0.01) // 100 / max(20, 5)

	derived = stats.EstimatePredicateVsColumn(0, types.LessThan, 1)
	assert.InDelta(t, 30, derived.RowCount, 0.01) // default open-ended
}

func TestEquiJoinEstimate(t *testing.T) {
	left := NewTableStatistics(1000, NewColumnStatistics(0, 100, 0, 99))
	right := NewTableStatistics(50, NewColumnStatistics(0, 50, 0, 49))

	joined := left.EstimateEquiJoin(right, 0, 0)
	assert.InDelta(t, 1000*50/100.0, joined.RowCount, 0.01)
	assert.Len(t, joined.Columns, 2)
}

func TestCloneSharesNoState(t *testing.T) {
	stats := mockStatistics()
	clone := stats.Clone()
	clone.Columns[0].DistinctCount = 999

	assert.Equal(t, 20.0, stats.Columns[0].DistinctCount)
}
