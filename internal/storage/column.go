package storage

import (
	"github.com/emberdb/ember/internal/types"
)

// Column is a read interface over one column of one chunk. Implementations
// are immutable after construction except for ValueColumn, which accepts
// appends while its chunk is the table's mutable tail.
type Column interface {
	// DataType returns the column's type tag.
	DataType() types.DataType
	// Size returns the number of rows.
	Size() int
	// Value returns the value at the given offset.
	Value(offset types.ChunkOffset) types.Value
}

// ValueColumn stores values uncompressed in insertion order.
type ValueColumn struct {
	dataType types.DataType
	values   []types.Value
}

// NewValueColumn creates an empty value column.
func NewValueColumn(dataType types.DataType) *ValueColumn {
	return &ValueColumn{dataType: dataType}
}

// DataType returns the column's type tag.
func (c *ValueColumn) DataType() types.DataType {
	return c.dataType
}

// Size returns the number of rows.
func (c *ValueColumn) Size() int {
	return len(c.values)
}

// Value returns the value at the given offset.
func (c *ValueColumn) Value(offset types.ChunkOffset) types.Value {
	return c.values[offset]
}

// Append adds a value. The caller has already type-checked it against the
// schema.
func (c *ValueColumn) Append(v types.Value) {
	c.values = append(c.values, v)
}

// Values exposes the backing slice for bulk readers.
func (c *ValueColumn) Values() []types.Value {
	return c.values
}
