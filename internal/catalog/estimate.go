package catalog

import (
	"github.com/emberdb/ember/internal/types"
)

// Selectivity defaults used when the uniform-distribution model has nothing
// to work with.
const (
	DefaultSelectivity          = 0.5
	DefaultOpenEndedSelectivity = 0.3
	DefaultLikeSelectivity      = 0.1
)

func clampSelectivity(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

// valueRange returns the bounds [min, max] of a column as floats, or ok=false when
// the bounds are unusable (NULL or non-numeric).
func (c *ColumnStatistics) valueRange() (min, max float64, ok bool) {
	if c.Min.IsNull() || c.Max.IsNull() {
		return 0, 0, false
	}
	minF, err := c.Min.AsFloat64()
	if err != nil {
		return 0, 0, false
	}
	maxF, err := c.Max.AsFloat64()
	if err != nil {
		return 0, 0, false
	}
	return minF, maxF, true
}

// SelectivityVsValue estimates the fraction of rows a `column OP constant`
// predicate retains, under a uniform distribution of DistinctCount values
// across [Min, Max]. Equality retains 1/distinct; range conditions retain
// the covered fraction of the range.
func (c *ColumnStatistics) SelectivityVsValue(cond types.PredicateCondition, value types.Value) float64 {
	nonNull := 1 - c.NullFraction

	switch cond {
	case types.IsNull:
		return clampSelectivity(c.NullFraction)
	case types.IsNotNull:
		return clampSelectivity(nonNull)
	}

	if value.IsNull() {
		// Comparison against NULL matches nothing.
		return 0
	}

	switch cond {
	case types.Like, types.NotLike:
		return clampSelectivity(nonNull * DefaultLikeSelectivity)
	}

	min, max, ok := c.valueRange()
	v, err := value.AsFloat64()
	if !ok || err != nil {
		return clampSelectivity(nonNull * defaultFor(cond))
	}

	switch cond {
	case types.Equals:
		if v < min || v > max {
			return 0
		}
		if c.DistinctCount <= 0 {
			return clampSelectivity(nonNull * DefaultSelectivity)
		}
		return clampSelectivity(nonNull / c.DistinctCount)

	case types.NotEquals:
		if v < min || v > max || c.DistinctCount <= 0 {
			return clampSelectivity(nonNull)
		}
		return clampSelectivity(nonNull * (1 - 1/c.DistinctCount))

	case types.LessThan, types.LessThanEquals:
		if max == min {
			if cond.Matches(c.Min, value) {
				return clampSelectivity(nonNull)
			}
			return 0
		}
		return clampSelectivity(nonNull * (v - min) / (max - min))

	case types.GreaterThan, types.GreaterThanEquals:
		if max == min {
			if cond.Matches(c.Min, value) {
				return clampSelectivity(nonNull)
			}
			return 0
		}
		return clampSelectivity(nonNull * (max - v) / (max - min))

	default:
		return clampSelectivity(nonNull * defaultFor(cond))
	}
}

// SelectivityVsColumn estimates a `columnA OP columnB` predicate. The model
// is deliberately conservative: equality assumes the smaller domain is a
// subset of the larger one; everything else falls back to a default.
func (c *ColumnStatistics) SelectivityVsColumn(cond types.PredicateCondition, other *ColumnStatistics) float64 {
	nonNull := (1 - c.NullFraction) * (1 - other.NullFraction)

	if cond == types.Equals {
		larger := c.DistinctCount
		if other.DistinctCount > larger {
			larger = other.DistinctCount
		}
		if larger <= 0 {
			return clampSelectivity(nonNull * DefaultSelectivity)
		}
		return clampSelectivity(nonNull / larger)
	}

	return clampSelectivity(nonNull * defaultFor(cond))
}

func defaultFor(cond types.PredicateCondition) float64 {
	switch cond {
	case types.Equals:
		return DefaultSelectivity
	case types.NotEquals:
		return 1 - DefaultSelectivity
	case types.LessThan, types.LessThanEquals, types.GreaterThan, types.GreaterThanEquals, types.Between:
		return DefaultOpenEndedSelectivity
	default:
		return DefaultSelectivity
	}
}

// scaled returns column statistics adjusted for a predicate that retained
// the given fraction of rows.
func (c *ColumnStatistics) scaled(selectivity float64) *ColumnStatistics {
	scaled := c.Clone()
	scaled.DistinctCount = c.DistinctCount * selectivity
	if scaled.DistinctCount < 1 && selectivity > 0 {
		scaled.DistinctCount = 1
	}
	return scaled
}

// EstimatePredicateVsValue derives the statistics of applying
// `column(id) cond value` to this table.
func (t *TableStatistics) EstimatePredicateVsValue(id types.ColumnID, cond types.PredicateCondition, value types.Value) *TableStatistics {
	col := t.Column(id)
	if col == nil {
		return t.scale(DefaultSelectivity)
	}

	selectivity := col.SelectivityVsValue(cond, value)
	derived := t.scale(selectivity)

	if int(id) < len(derived.Columns) {
		narrowed := col.scaled(selectivity)
		switch cond {
		case types.Equals:
			narrowed.Min = value
			narrowed.Max = value
			narrowed.DistinctCount = 1
		case types.LessThan, types.LessThanEquals:
			narrowed.Max = value
		case types.GreaterThan, types.GreaterThanEquals:
			narrowed.Min = value
		}
		derived.Columns[id] = narrowed
	}

	return derived
}

// EstimatePredicateVsColumn derives the statistics of applying
// `column(a) cond column(b)` to this table.
func (t *TableStatistics) EstimatePredicateVsColumn(a types.ColumnID, cond types.PredicateCondition, b types.ColumnID) *TableStatistics {
	colA, colB := t.Column(a), t.Column(b)
	if colA == nil || colB == nil {
		return t.scale(DefaultSelectivity)
	}
	return t.scale(colA.SelectivityVsColumn(cond, colB))
}

// EstimateDefaultPredicate derives statistics for predicates the model
// cannot decompose, e.g. compound boolean expressions.
func (t *TableStatistics) EstimateDefaultPredicate() *TableStatistics {
	return t.scale(DefaultSelectivity)
}

// EstimateCrossJoin derives statistics of the cross product with another
// table.
func (t *TableStatistics) EstimateCrossJoin(other *TableStatistics) *TableStatistics {
	joined := &TableStatistics{RowCount: t.RowCount * other.RowCount}
	for _, c := range t.Columns {
		joined.Columns = append(joined.Columns, c.Clone())
	}
	for _, c := range other.Columns {
		joined.Columns = append(joined.Columns, c.Clone())
	}
	return joined
}

// EstimateEquiJoin derives statistics of an equality join between a column
// of this table and a column of the other, using the classic
// |A|*|B| / max(d_a, d_b) estimate.
func (t *TableStatistics) EstimateEquiJoin(other *TableStatistics, left, right types.ColumnID) *TableStatistics {
	joined := t.EstimateCrossJoin(other)

	colA, colB := t.Column(left), other.Column(right)
	if colA == nil || colB == nil {
		joined.RowCount *= DefaultSelectivity
		return joined
	}
	larger := colA.DistinctCount
	if colB.DistinctCount > larger {
		larger = colB.DistinctCount
	}
	if larger > 0 {
		joined.RowCount /= larger
	}
	return joined
}

func (t *TableStatistics) scale(selectivity float64) *TableStatistics {
	selectivity = clampSelectivity(selectivity)
	derived := t.Clone()
	derived.RowCount = t.RowCount * selectivity
	return derived
}
