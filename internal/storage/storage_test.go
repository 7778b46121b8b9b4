package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/types"
)

func intStringSchema() *catalog.Schema {
	return catalog.NewSchema(
		catalog.ColumnDefinition{Name: "id", DataType: types.Int},
		catalog.ColumnDefinition{Name: "name", DataType: types.String, Nullable: true},
	)
}

func appendCommitted(t *testing.T, table *Table, values ...[]types.Value) {
	t.Helper()
	for _, row := range values {
		rowID, err := table.AppendRow(row, 1)
		require.NoError(t, err)
		mvcc := table.Chunk(rowID.Chunk).Mvcc()
		mvcc.SetBegin(rowID.Offset, 1)
		mvcc.SetTid(rowID.Offset, types.InvalidTransactionID)
	}
}

func TestAppendAndRead(t *testing.T) {
	table := NewTable(intStringSchema(), 2)
	appendCommitted(t, table,
		[]types.Value{types.NewValue(1), types.NewValue("alpha")},
		[]types.Value{types.NewValue(2), types.NewValue("beta")},
		[]types.Value{types.NewValue(3), types.NewNullValue()},
	)

	// chunk size 2 forces a second chunk
	assert.Equal(t, 2, table.ChunkCount())
	assert.Equal(t, 3, table.RowCount())

	v := table.Value(1, types.RowID{Chunk: 0, Offset: 1})
	s, err := v.AsString()
	require.NoError(t, err)
	assert.Equal(t, "beta", s)

	assert.True(t, table.Value(1, types.RowID{Chunk: 1, Offset: 0}).IsNull())
}

func TestAppendRejectsBadRows(t *testing.T) {
	table := NewTable(intStringSchema(), 10)

	_, err := table.AppendRow([]types.Value{types.NewValue(1)}, 1)
	assert.Error(t, err)

	_, err = table.AppendRow([]types.Value{types.NewNullValue(), types.NewValue("x")}, 1)
	assert.Error(t, err, "id is not nullable")
}

func TestDictionaryColumnRoundTrip(t *testing.T) {
	source := NewValueColumn(types.String)
	words := []string{"cherry", "apple", "banana", "apple", "cherry", "apple"}
	for _, w := range words {
		source.Append(types.NewValue(w))
	}
	source.Append(types.NewNullValue())

	dict := NewDictionaryColumn(source)
	assert.Equal(t, 7, dict.Size())
	assert.Len(t, dict.Dictionary(), 3)

	// dictionary is sorted
	first, _ := dict.Dictionary()[0].AsString()
	assert.Equal(t, "apple", first)

	for i, w := range words {
		got, err := dict.Value(types.ChunkOffset(i)).AsString()
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}
	assert.True(t, dict.Value(6).IsNull())

	code, ok := dict.CodeOf(types.NewValue("banana"))
	assert.True(t, ok)
	assert.Equal(t, uint32(1), code)

	_, ok = dict.CodeOf(types.NewValue("durian"))
	assert.False(t, ok)
}

func TestDictionaryColumnNumeric(t *testing.T) {
	source := NewValueColumn(types.Int)
	for _, v := range []int{5, 3, 5, 9, 3} {
		source.Append(types.NewValue(v))
	}
	dict := NewDictionaryColumn(source)
	assert.Len(t, dict.Dictionary(), 3)
	assert.Equal(t, 0, types.Compare(dict.Value(3), types.NewValue(9)))
}

func TestRunLengthColumn(t *testing.T) {
	source := NewValueColumn(types.Int)
	for _, v := range []int{1, 1, 1, 2, 2, 3} {
		source.Append(types.NewValue(v))
	}
	rle := NewRunLengthColumn(source)
	assert.Equal(t, 3, rle.RunCount())
	assert.Equal(t, 6, rle.Size())
	for i, want := range []int{1, 1, 1, 2, 2, 3} {
		assert.Equal(t, 0, types.Compare(rle.Value(types.ChunkOffset(i)), types.NewValue(want)))
	}
}

func TestEncodeAllChunksSkipsMutableTail(t *testing.T) {
	table := NewTable(intStringSchema(), 2)
	appendCommitted(t, table,
		[]types.Value{types.NewValue(1), types.NewValue("a")},
		[]types.Value{types.NewValue(2), types.NewValue("b")},
		[]types.Value{types.NewValue(3), types.NewValue("c")},
	)

	EncodeAllChunks(table, Dictionary)

	_, isDict := table.Chunk(0).Column(0).(*DictionaryColumn)
	assert.True(t, isDict)
	_, isValue := table.Chunk(1).Column(0).(*ValueColumn)
	assert.True(t, isValue, "tail chunk must stay appendable")
}

func TestGroupKeyIndexScan(t *testing.T) {
	table := NewTable(intStringSchema(), 4)
	appendCommitted(t, table,
		[]types.Value{types.NewValue(10), types.NewValue("a")},
		[]types.Value{types.NewValue(20), types.NewValue("b")},
		[]types.Value{types.NewValue(10), types.NewValue("c")},
		[]types.Value{types.NewValue(30), types.NewValue("d")},
	)

	ix, err := table.CreateIndex(GroupKeyIndex, []types.ColumnID{0})
	require.NoError(t, err)
	assert.True(t, ix.IsSingleColumn())

	rows := ix.Lookup(types.NewValue(10))
	assert.Len(t, rows, 2)

	rows = ix.Scan(types.GreaterThanEquals, types.NewValue(20))
	assert.Len(t, rows, 2)

	rows = ix.Lookup(types.NewValue(99))
	assert.Empty(t, rows)
}

func TestCreateIndexValidation(t *testing.T) {
	table := NewTable(intStringSchema(), 4)
	_, err := table.CreateIndex(GroupKeyIndex, []types.ColumnID{0, 1})
	assert.Error(t, err)
	_, err = table.CreateIndex(CompositeGroupKeyIndex, []types.ColumnID{1})
	assert.Error(t, err)
	_, err = table.CreateIndex(GroupKeyIndex, []types.ColumnID{7})
	assert.Error(t, err)
}

func TestGeneratedStatistics(t *testing.T) {
	table := NewTable(intStringSchema(), 10)
	appendCommitted(t, table,
		[]types.Value{types.NewValue(5), types.NewValue("x")},
		[]types.Value{types.NewValue(15), types.NewNullValue()},
		[]types.Value{types.NewValue(5), types.NewValue("y")},
	)

	stats := table.Statistics()
	assert.Equal(t, 3.0, stats.RowCount)

	idStats := stats.Column(0)
	assert.Equal(t, 2.0, idStats.DistinctCount)
	assert.Equal(t, 0, types.Compare(idStats.Min, types.NewValue(5)))
	assert.Equal(t, 0, types.Compare(idStats.Max, types.NewValue(15)))

	nameStats := stats.Column(1)
	assert.InDelta(t, 1.0/3.0, nameStats.NullFraction, 1e-9)
}

func TestMvccVisibility(t *testing.T) {
	mvcc := NewMvccData(4)

	// committed row: begin 5, no end
	row := mvcc.appendRow(types.InvalidTransactionID)
	mvcc.SetBegin(types.ChunkOffset(row), 5)

	assert.True(t, mvcc.Visible(0, 99, 10))
	assert.False(t, mvcc.Visible(0, 99, 4), "snapshot predates the insert")

	// uncommitted insert by tid 7
	row = mvcc.appendRow(7)
	offset := types.ChunkOffset(row)
	assert.True(t, mvcc.Visible(offset, 7, 10), "own insert is visible")
	assert.False(t, mvcc.Visible(offset, 8, 10), "foreign uncommitted insert is not")

	// deleted row: begin 2, end 6
	row = mvcc.appendRow(types.InvalidTransactionID)
	offset = types.ChunkOffset(row)
	mvcc.SetBegin(offset, 2)
	mvcc.SetEnd(offset, 6)
	assert.True(t, mvcc.Visible(offset, 99, 5))
	assert.False(t, mvcc.Visible(offset, 99, 6))
}

func TestClaimTid(t *testing.T) {
	mvcc := NewMvccData(2)
	row := mvcc.appendRow(types.InvalidTransactionID)
	offset := types.ChunkOffset(row)
	mvcc.SetBegin(offset, 1)

	assert.True(t, mvcc.ClaimTid(offset, 7))
	assert.False(t, mvcc.ClaimTid(offset, 8), "slot already claimed")

	mvcc.SetTid(offset, types.InvalidTransactionID)
	assert.True(t, mvcc.ClaimTid(offset, 8))
}

func TestManager(t *testing.T) {
	m := NewManager()
	table := NewTable(intStringSchema(), 8)

	require.NoError(t, m.AddTable("users", table))
	assert.Error(t, m.AddTable("users", table))

	got, err := m.GetTable("users")
	require.NoError(t, err)
	assert.Same(t, table, got)

	_, err = m.GetTable("ghosts")
	assert.Error(t, err)

	assert.Equal(t, []string{"users"}, m.TableNames())
	require.NoError(t, m.DropTable("users"))
	assert.False(t, m.HasTable("users"))
}
