package storage

import (
	"fmt"
	"sync"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/types"
)

// Table is a main-memory columnar table: a schema, a list of chunks, the
// indexes built over it, and cached statistics.
type Table struct {
	mu        sync.RWMutex
	schema    *catalog.Schema
	chunks    []*Chunk
	chunkSize int
	indexes   []*Index
	stats     *catalog.TableStatistics
}

// NewTable creates an empty table.
func NewTable(schema *catalog.Schema, chunkSize int) *Table {
	if chunkSize <= 0 {
		panic("table chunk size must be positive")
	}
	t := &Table{schema: schema, chunkSize: chunkSize}
	t.chunks = append(t.chunks, NewChunk(schema, chunkSize))
	return t
}

// Schema returns the table's schema.
func (t *Table) Schema() *catalog.Schema {
	return t.schema
}

// ChunkCount returns the number of chunks.
func (t *Table) ChunkCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.chunks)
}

// Chunk returns the chunk with the given ID.
func (t *Table) Chunk(id types.ChunkID) *Chunk {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.chunks[id]
}

// RowCount returns the total number of row slots, including rows that are
// invisible to any particular transaction.
func (t *Table) RowCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	total := 0
	for _, c := range t.chunks {
		total += c.Size()
	}
	return total
}

// Value returns one cell by global row ID.
func (t *Table) Value(column types.ColumnID, row types.RowID) types.Value {
	return t.Chunk(row.Chunk).Value(column, row.Offset)
}

// AppendRow adds a row on behalf of a transaction. The row is invisible
// until the transaction commits. Statistics and indexes are invalidated.
func (t *Table) AppendRow(values []types.Value, tid types.TransactionID) (types.RowID, error) {
	if len(values) != len(t.schema.Columns) {
		return types.RowID{}, fmt.Errorf("row has %d values, schema has %d columns", len(values), len(t.schema.Columns))
	}
	for i, v := range values {
		def := t.schema.Columns[i]
		if v.IsNull() {
			if !def.Nullable {
				return types.RowID{}, fmt.Errorf("column %q is not nullable", def.Name)
			}
			continue
		}
		if v.DataType() != def.DataType {
			cast, err := types.Cast(v, def.DataType)
			if err != nil {
				return types.RowID{}, fmt.Errorf("column %q: %w", def.Name, err)
			}
			values[i] = cast
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tail := t.chunks[len(t.chunks)-1]
	if tail.Full() {
		tail = NewChunk(t.schema, t.chunkSize)
		t.chunks = append(t.chunks, tail)
	}

	offset := tail.appendRow(values, tid)
	t.stats = nil
	t.indexes = nil

	return types.RowID{Chunk: types.ChunkID(len(t.chunks) - 1), Offset: offset}, nil
}

// CreateIndex builds an index of the given kind over the given columns.
func (t *Table) CreateIndex(kind IndexKind, columns []types.ColumnID) (*Index, error) {
	for _, c := range columns {
		if int(c) >= len(t.schema.Columns) {
			return nil, fmt.Errorf("column %d out of range", c)
		}
	}
	if kind == GroupKeyIndex && len(columns) != 1 {
		return nil, fmt.Errorf("group-key index requires exactly one column, got %d", len(columns))
	}
	if kind == CompositeGroupKeyIndex && len(columns) < 2 {
		return nil, fmt.Errorf("composite group-key index requires at least two columns")
	}

	ix := buildIndex(t, kind, columns)

	t.mu.Lock()
	t.indexes = append(t.indexes, ix)
	t.mu.Unlock()

	return ix, nil
}

// Indexes returns all indexes of the table.
func (t *Table) Indexes() []*Index {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*Index(nil), t.indexes...)
}

// IndexesOn returns the indexes whose first key column is the given column.
func (t *Table) IndexesOn(column types.ColumnID) []*Index {
	var result []*Index
	for _, ix := range t.Indexes() {
		if ix.columns[0] == column {
			result = append(result, ix)
		}
	}
	return result
}

// SetStatistics installs externally computed statistics, e.g. from a test.
func (t *Table) SetStatistics(stats *catalog.TableStatistics) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = stats
}

// Statistics returns the table's statistics, generating them from the data
// on first use.
func (t *Table) Statistics() *catalog.TableStatistics {
	t.mu.RLock()
	stats := t.stats
	t.mu.RUnlock()
	if stats != nil {
		return stats
	}

	stats = t.generateStatistics()

	t.mu.Lock()
	t.stats = stats
	t.mu.Unlock()
	return stats
}

func (t *Table) generateStatistics() *catalog.TableStatistics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rowCount := 0
	for _, c := range t.chunks {
		rowCount += c.Size()
	}

	stats := &catalog.TableStatistics{RowCount: float64(rowCount)}
	for colID := range t.schema.Columns {
		nulls := 0
		distinct := make(map[string]struct{})
		var min, max types.Value
		min, max = types.NewNullValue(), types.NewNullValue()

		for _, chunk := range t.chunks {
			col := chunk.Column(types.ColumnID(colID))
			for row := 0; row < chunk.Size(); row++ {
				v := col.Value(types.ChunkOffset(row))
				if v.IsNull() {
					nulls++
					continue
				}
				distinct[fmt.Sprintf("%T:%v", v.Data, v.Data)] = struct{}{}
				if min.IsNull() || types.Compare(v, min) < 0 {
					min = v
				}
				if max.IsNull() || types.Compare(v, max) > 0 {
					max = v
				}
			}
		}

		colStats := &catalog.ColumnStatistics{
			DistinctCount: float64(len(distinct)),
			Min:           min,
			Max:           max,
		}
		if rowCount > 0 {
			colStats.NullFraction = float64(nulls) / float64(rowCount)
		}
		stats.Columns = append(stats.Columns, colStats)
	}

	return stats
}
