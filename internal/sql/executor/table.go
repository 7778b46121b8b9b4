package executor

import (
	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/storage"
	"github.com/emberdb/ember/internal/types"
)

// outputChunkSize is the chunk size of materialized intermediate results.
const outputChunkSize = 65536

// schemaFromNode derives an output schema from a plan node's column
// expressions; the qualified renderings become the column names so that
// downstream operators resolve references by name.
func schemaFromNode(node planner.Node) *catalog.Schema {
	exprs := node.ColumnExpressions()
	columns := make([]catalog.ColumnDefinition, len(exprs))
	for i, e := range exprs {
		columns[i] = catalog.ColumnDefinition{
			Name:     e.ColumnName(),
			DataType: e.DataType(),
			Nullable: e.IsNullable(),
		}
	}
	return catalog.NewSchema(columns...)
}

// newOutputTable creates an empty materialized result table.
func newOutputTable(schema *catalog.Schema) *storage.Table {
	return storage.NewTable(schema.Clone(), outputChunkSize)
}

// appendOutputRow adds a committed-from-birth row to a result table.
// Result tables are transaction-internal; visibility filtering already
// happened upstream.
func appendOutputRow(table *storage.Table, values []types.Value) error {
	rowID, err := table.AppendRow(values, types.InvalidTransactionID)
	if err != nil {
		return err
	}
	mvcc := table.Chunk(rowID.Chunk).Mvcc()
	mvcc.SetBegin(rowID.Offset, 0)
	return nil
}

// readRow copies one row out of a result.
func readRow(table *storage.Table, row types.RowID) []types.Value {
	width := len(table.Schema().Columns)
	values := make([]types.Value, width)
	for col := 0; col < width; col++ {
		values[col] = table.Value(types.ColumnID(col), row)
	}
	return values
}

// forEachRow walks all row slots of a table in chunk order.
func forEachRow(table *storage.Table, fn func(row types.RowID) error) error {
	for chunkID := 0; chunkID < table.ChunkCount(); chunkID++ {
		chunk := table.Chunk(types.ChunkID(chunkID))
		for offset := 0; offset < chunk.Size(); offset++ {
			row := types.RowID{Chunk: types.ChunkID(chunkID), Offset: types.ChunkOffset(offset)}
			if err := fn(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// allRowIDs enumerates every row slot of a table.
func allRowIDs(table *storage.Table) []types.RowID {
	var rows []types.RowID
	_ = forEachRow(table, func(row types.RowID) error {
		rows = append(rows, row)
		return nil
	})
	return rows
}
