package storage

import (
	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/types"
)

// Chunk is a horizontal partition of a table: one column per schema column
// plus the MVCC bookkeeping columns.
type Chunk struct {
	columns  []Column
	mvcc     *MvccData
	capacity int
}

// NewChunk creates an empty chunk with unencoded columns.
func NewChunk(schema *catalog.Schema, capacity int) *Chunk {
	columns := make([]Column, len(schema.Columns))
	for i, def := range schema.Columns {
		columns[i] = NewValueColumn(def.DataType)
	}
	return &Chunk{
		columns:  columns,
		mvcc:     NewMvccData(capacity),
		capacity: capacity,
	}
}

// Size returns the number of rows.
func (c *Chunk) Size() int {
	if len(c.columns) == 0 {
		return 0
	}
	return c.columns[0].Size()
}

// Full reports whether the chunk reached its capacity.
func (c *Chunk) Full() bool {
	return c.Size() >= c.capacity
}

// Column returns the column at the given position.
func (c *Chunk) Column(id types.ColumnID) Column {
	return c.columns[id]
}

// ColumnCount returns the number of columns.
func (c *Chunk) ColumnCount() int {
	return len(c.columns)
}

// Mvcc returns the chunk's MVCC columns.
func (c *Chunk) Mvcc() *MvccData {
	return c.mvcc
}

// Value returns one cell.
func (c *Chunk) Value(column types.ColumnID, offset types.ChunkOffset) types.Value {
	return c.columns[column].Value(offset)
}

// appendRow adds a row to the mutable tail chunk. Only callable while every
// column is still a ValueColumn.
func (c *Chunk) appendRow(values []types.Value, tid types.TransactionID) types.ChunkOffset {
	row := c.mvcc.appendRow(tid)
	for i, v := range values {
		c.columns[i].(*ValueColumn).Append(v)
	}
	return types.ChunkOffset(row)
}

// replaceColumn swaps in an encoded column. Used by the chunk encoder.
func (c *Chunk) replaceColumn(id types.ColumnID, col Column) {
	c.columns[id] = col
}
