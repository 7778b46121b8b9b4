package catalog

import (
	"fmt"
	"strings"

	"github.com/emberdb/ember/internal/types"
)

// ColumnStatistics holds per-column distribution estimates. Distinct counts
// are kept fractional so that derived statistics stay proportional after
// repeated scaling.
type ColumnStatistics struct {
	NullFraction  float64
	DistinctCount float64
	Min           types.Value
	Max           types.Value
}

// NewColumnStatistics creates column statistics from concrete bounds.
func NewColumnStatistics(nullFraction, distinctCount float64, min, max any) *ColumnStatistics {
	return &ColumnStatistics{
		NullFraction:  nullFraction,
		DistinctCount: distinctCount,
		Min:           types.NewValue(min),
		Max:           types.NewValue(max),
	}
}

// Clone returns a copy.
func (c *ColumnStatistics) Clone() *ColumnStatistics {
	clone := *c
	return &clone
}

func (c *ColumnStatistics) String() string {
	return fmt.Sprintf("{null=%.2f distinct=%.1f range=[%s, %s]}",
		c.NullFraction, c.DistinctCount, c.Min, c.Max)
}

// TableStatistics holds row-count and per-column estimates for one table or
// for the output of a plan node.
type TableStatistics struct {
	RowCount float64
	Columns  []*ColumnStatistics
}

// NewTableStatistics creates table statistics.
func NewTableStatistics(rowCount float64, columns ...*ColumnStatistics) *TableStatistics {
	return &TableStatistics{RowCount: rowCount, Columns: columns}
}

// Clone deep-copies the statistics.
func (t *TableStatistics) Clone() *TableStatistics {
	columns := make([]*ColumnStatistics, len(t.Columns))
	for i, col := range t.Columns {
		columns[i] = col.Clone()
	}
	return &TableStatistics{RowCount: t.RowCount, Columns: columns}
}

func (t *TableStatistics) String() string {
	var cols []string
	for _, c := range t.Columns {
		cols = append(cols, c.String())
	}
	return fmt.Sprintf("TableStatistics{rows=%.1f, columns=[%s]}", t.RowCount, strings.Join(cols, ", "))
}

// Column returns the statistics of one column, or nil when unknown.
func (t *TableStatistics) Column(id types.ColumnID) *ColumnStatistics {
	if id < 0 || int(id) >= len(t.Columns) {
		return nil
	}
	return t.Columns[id]
}
