package storage

import (
	"sort"

	"github.com/emberdb/ember/internal/types"
)

// run is one stretch of equal values. end is the exclusive upper offset.
type run struct {
	value types.Value
	end   int
}

// RunLengthColumn stores consecutive equal values as runs. Effective on
// sorted or low-cardinality data.
type RunLengthColumn struct {
	dataType types.DataType
	size     int
	runs     []run
}

// NewRunLengthColumn builds a run-length column from an unencoded one.
func NewRunLengthColumn(source *ValueColumn) *RunLengthColumn {
	col := &RunLengthColumn{dataType: source.DataType(), size: source.Size()}

	values := source.Values()
	for i := 0; i < len(values); i++ {
		v := values[i]
		if len(col.runs) > 0 {
			last := &col.runs[len(col.runs)-1]
			same := (v.IsNull() && last.value.IsNull()) ||
				(!v.IsNull() && !last.value.IsNull() && types.Compare(v, last.value) == 0)
			if same {
				last.end = i + 1
				continue
			}
		}
		col.runs = append(col.runs, run{value: v, end: i + 1})
	}

	return col
}

// DataType returns the column's type tag.
func (c *RunLengthColumn) DataType() types.DataType {
	return c.dataType
}

// Size returns the number of rows.
func (c *RunLengthColumn) Size() int {
	return c.size
}

// Value returns the value at the given offset.
func (c *RunLengthColumn) Value(offset types.ChunkOffset) types.Value {
	i := sort.Search(len(c.runs), func(i int) bool {
		return c.runs[i].end > int(offset)
	})
	return c.runs[i].value
}

// RunCount returns the number of runs.
func (c *RunLengthColumn) RunCount() int {
	return len(c.runs)
}
