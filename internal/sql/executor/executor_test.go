package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/scheduler"
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/storage"
	"github.com/emberdb/ember/internal/txn"
	"github.com/emberdb/ember/internal/types"
)

func usersSchema() *catalog.Schema {
	return catalog.NewSchema(
		catalog.ColumnDefinition{Name: "id", DataType: types.Int},
		catalog.ColumnDefinition{Name: "name", DataType: types.String, Nullable: true},
		catalog.ColumnDefinition{Name: "age", DataType: types.Int},
	)
}

// usersTable creates a committed table with four rows.
func usersTable(t *testing.T) *storage.Table {
	t.Helper()
	table := storage.NewTable(usersSchema(), 1024)
	rows := [][]types.Value{
		{types.NewValue(1), types.NewValue("ada"), types.NewValue(31)},
		{types.NewValue(2), types.NewValue("grace"), types.NewValue(45)},
		{types.NewValue(3), types.NewValue("edsger"), types.NewValue(72)},
		{types.NewValue(4), types.NewNullValue(), types.NewValue(19)},
	}
	for _, row := range rows {
		rowID, err := table.AppendRow(row, types.InvalidTransactionID)
		require.NoError(t, err)
		table.Chunk(rowID.Chunk).Mvcc().SetBegin(rowID.Offset, 0)
	}
	return table
}

func idColumn() *planner.ColumnExpression {
	return planner.NewColumnExpression("", "id", types.Int, false)
}

func ageColumn() *planner.ColumnExpression {
	return planner.NewColumnExpression("", "age", types.Int, false)
}

func executed(t *testing.T, op Operator) *Result {
	t.Helper()
	require.NoError(t, ExecuteSynchronously(op))
	require.NotNil(t, op.Output())
	return op.Output()
}

func TestGetTableExposesAllRows(t *testing.T) {
	table := usersTable(t)
	get := NewGetTable("users", table)

	out := executed(t, get)
	assert.Equal(t, 4, out.Table.RowCount())
	assert.Len(t, out.RowIDs, 4)
	assert.Same(t, table, out.Source)
}

func TestValidateFiltersInvisibleRows(t *testing.T) {
	table := usersTable(t)

	// One uncommitted row by a foreign transaction.
	rowID, err := table.AppendRow([]types.Value{
		types.NewValue(9), types.NewValue("ghost"), types.NewValue(1),
	}, 42)
	require.NoError(t, err)
	_ = rowID

	manager := txn.NewManager(nil)
	ctx := manager.NewContext()

	validate := NewValidate(NewGetTable("users", table))
	SetTransactionContextRecursively(validate, ctx)

	out := executed(t, validate)
	assert.Equal(t, 4, out.Table.RowCount(), "foreign uncommitted row is invisible")
}

func TestTableScanFiltersAndKeepsProvenance(t *testing.T) {
	table := usersTable(t)
	scan := NewTableScan(
		planner.GreaterThan(ageColumn(), planner.NewValueExpression(30)),
		NewGetTable("users", table))

	out := executed(t, scan)
	assert.Equal(t, 3, out.Table.RowCount())
	assert.Len(t, out.RowIDs, 3)
	assert.Same(t, table, out.Source)
}

func TestIndexScanUsesIndex(t *testing.T) {
	table := usersTable(t)
	_, err := table.CreateIndex(storage.GroupKeyIndex, []types.ColumnID{2})
	require.NoError(t, err)

	predicate := planner.GreaterThan(ageColumn(), planner.NewValueExpression(40))
	scan := NewIndexScan(predicate, 2, types.GreaterThan, types.NewValue(40), NewGetTable("users", table))

	out := executed(t, scan)
	assert.Equal(t, 2, out.Table.RowCount())
}

func TestProjectionEvaluatesExpressions(t *testing.T) {
	table := usersTable(t)
	doubled := planner.NewArithmeticExpression(planner.OpMultiply, ageColumn(), planner.NewValueExpression(2))
	schema := catalog.NewSchema(
		catalog.ColumnDefinition{Name: "id", DataType: types.Int},
		catalog.ColumnDefinition{Name: "age2", DataType: types.Int},
	)
	proj := NewProjection([]planner.Expression{idColumn(), doubled}, schema, NewGetTable("users", table))

	out := executed(t, proj)
	assert.Equal(t, 4, out.Table.RowCount())
	v := out.Table.Value(1, types.RowID{})
	assert.Equal(t, 0, types.Compare(v, types.NewValue(62)))
}

func TestSortAndLimit(t *testing.T) {
	table := usersTable(t)
	sorted := NewSort([]planner.OrderByDefinition{
		{Expression: ageColumn(), Descending: true},
	}, NewGetTable("users", table))
	limited := NewLimit(2, 0, sorted)

	out := executed(t, limited)
	require.Equal(t, 2, out.Table.RowCount())
	first, _ := out.Table.Value(2, types.RowID{Chunk: 0, Offset: 0}).AsInt64()
	second, _ := out.Table.Value(2, types.RowID{Chunk: 0, Offset: 1}).AsInt64()
	assert.Equal(t, int64(72), first)
	assert.Equal(t, int64(45), second)
}

func ordersTable(t *testing.T) *storage.Table {
	t.Helper()
	schema := catalog.NewSchema(
		catalog.ColumnDefinition{Name: "user_id", DataType: types.Int},
		catalog.ColumnDefinition{Name: "total", DataType: types.Int},
	)
	table := storage.NewTable(schema, 1024)
	for _, row := range [][]types.Value{
		{types.NewValue(1), types.NewValue(100)},
		{types.NewValue(1), types.NewValue(150)},
		{types.NewValue(3), types.NewValue(20)},
		{types.NewValue(9), types.NewValue(5)},
	} {
		rowID, err := table.AppendRow(row, types.InvalidTransactionID)
		require.NoError(t, err)
		table.Chunk(rowID.Chunk).Mvcc().SetBegin(rowID.Offset, 0)
	}
	return table
}

func TestHashJoin(t *testing.T) {
	users := usersTable(t)
	orders := ordersTable(t)

	predicate := planner.Equals(
		planner.NewColumnExpression("", "id", types.Int, false),
		planner.NewColumnExpression("", "user_id", types.Int, false))
	join := NewHashJoin(predicate, 0, 0, NewGetTable("users", users), NewGetTable("orders", orders))

	out := executed(t, join)
	assert.Equal(t, 3, out.Table.RowCount(), "user 1 matches twice, user 3 once")
	assert.Len(t, out.Table.Schema().Columns, 5)
}

func TestNestedLoopLeftJoin(t *testing.T) {
	users := usersTable(t)
	orders := ordersTable(t)

	predicate := planner.Equals(
		planner.NewColumnExpression("", "id", types.Int, false),
		planner.NewColumnExpression("", "user_id", types.Int, false))
	join := NewNestedLoopJoin(planner.JoinLeft, predicate,
		NewGetTable("users", users), NewGetTable("orders", orders))

	out := executed(t, join)
	// users 1 (×2), 3 (×1) match; users 2 and 4 are padded with NULLs.
	assert.Equal(t, 5, out.Table.RowCount())
}

func TestNestedLoopSemiAndAntiJoin(t *testing.T) {
	users := usersTable(t)
	orders := ordersTable(t)

	predicate := planner.Equals(
		planner.NewColumnExpression("", "id", types.Int, false),
		planner.NewColumnExpression("", "user_id", types.Int, false))

	semi := NewNestedLoopJoin(planner.JoinSemi, predicate,
		NewGetTable("users", users), NewGetTable("orders", orders))
	out := executed(t, semi)
	assert.Equal(t, 2, out.Table.RowCount())
	assert.Len(t, out.Table.Schema().Columns, 3, "semi join keeps the left schema")

	anti := NewNestedLoopJoin(planner.JoinAnti, predicate,
		NewGetTable("users", users), NewGetTable("orders", orders))
	out = executed(t, anti)
	assert.Equal(t, 2, out.Table.RowCount())
}

func TestAggregateGroupBy(t *testing.T) {
	orders := ordersTable(t)

	userID := planner.NewColumnExpression("", "user_id", types.Int, false)
	total := planner.NewColumnExpression("", "total", types.Int, false)
	sum := planner.NewAggregateExpression(planner.AggSum, total)
	count := planner.CountStar()

	schema := catalog.NewSchema(
		catalog.ColumnDefinition{Name: "user_id", DataType: types.Int},
		catalog.ColumnDefinition{Name: "SUM(total)", DataType: types.Long, Nullable: true},
		catalog.ColumnDefinition{Name: "COUNT(*)", DataType: types.Long},
	)
	agg := NewAggregate([]planner.Expression{userID},
		[]*planner.AggregateExpression{sum, count}, schema, NewGetTable("orders", orders))

	out := executed(t, agg)
	require.Equal(t, 3, out.Table.RowCount())

	// first group in input order is user 1
	s, _ := out.Table.Value(1, types.RowID{}).AsInt64()
	c, _ := out.Table.Value(2, types.RowID{}).AsInt64()
	assert.Equal(t, int64(250), s)
	assert.Equal(t, int64(2), c)
}

func TestUngroupedAggregateOverEmptyInput(t *testing.T) {
	table := usersTable(t)
	scan := NewTableScan(
		planner.GreaterThan(ageColumn(), planner.NewValueExpression(1000)),
		NewGetTable("users", table))

	schema := catalog.NewSchema(
		catalog.ColumnDefinition{Name: "COUNT(*)", DataType: types.Long},
	)
	agg := NewAggregate(nil, []*planner.AggregateExpression{planner.CountStar()}, schema, scan)

	out := executed(t, agg)
	require.Equal(t, 1, out.Table.RowCount())
	c, _ := out.Table.Value(0, types.RowID{}).AsInt64()
	assert.Equal(t, int64(0), c)
}

func TestAbortShortCircuitsExecution(t *testing.T) {
	table := usersTable(t)
	manager := txn.NewManager(nil)
	ctx := manager.NewContext()

	scan := NewTableScan(
		planner.GreaterThan(ageColumn(), planner.NewValueExpression(0)),
		NewGetTable("users", table))
	SetTransactionContextRecursively(scan, ctx)

	ctx.Abort()
	require.NoError(t, ExecuteSynchronously(scan))

	assert.Equal(t, Aborted, scan.State())
	assert.Nil(t, scan.Output(), "aborted operators produce no output")
}

func TestOutputProducedExactlyOnce(t *testing.T) {
	table := usersTable(t)
	get := NewGetTable("users", table)
	require.NoError(t, get.Execute())
	assert.Error(t, get.Execute(), "second execution is rejected")
}

func TestRecreatePreservesDagSharing(t *testing.T) {
	table := usersTable(t)

	shared := NewGetTable("users", table)
	left := NewTableScan(planner.GreaterThan(ageColumn(), planner.NewValueExpression(30)), shared)
	right := NewTableScan(planner.LessThan(ageColumn(), planner.NewValueExpression(100)), shared)
	union := NewUnionAll(left, right)

	executed(t, union)

	fresh := Recreate(union)
	assert.Same(t, fresh.LeftInput().LeftInput(), fresh.RightInput().LeftInput(),
		"shared input stays shared in the copy")
	assert.Equal(t, Unexecuted, fresh.State())
	assert.Nil(t, fresh.Output())

	// The copy executes independently.
	out := executed(t, fresh)
	assert.Equal(t, 7, out.Table.RowCount())
}

func TestInsertCommitPublishesRows(t *testing.T) {
	table := usersTable(t)
	manager := txn.NewManager(nil)

	// snapshot before the insert
	before := manager.NewContext()

	writer := manager.NewContext()
	static := NewStaticTable(usersSchema(), [][]planner.Expression{{
		planner.NewValueExpression(5),
		planner.NewValueExpression("hopper"),
		planner.NewValueExpression(85),
	}})
	insert := NewInsert("users", table, nil, static)
	SetTransactionContextRecursively(insert, writer)

	executed(t, insert)
	require.NoError(t, writer.Commit())

	// A fresh snapshot sees 5 rows, the old one still 4.
	after := manager.NewContext()
	countVisible := func(ctx *txn.Context) int {
		validate := NewValidate(NewGetTable("users", table))
		SetTransactionContextRecursively(validate, ctx)
		return executed(t, validate).Table.RowCount()
	}
	assert.Equal(t, 5, countVisible(after))
	assert.Equal(t, 4, countVisible(before))
}

func TestInsertRollbackLeavesRowsInvisible(t *testing.T) {
	table := usersTable(t)
	manager := txn.NewManager(nil)

	writer := manager.NewContext()
	static := NewStaticTable(usersSchema(), [][]planner.Expression{{
		planner.NewValueExpression(6),
		planner.NewValueExpression("lovelace"),
		planner.NewValueExpression(36),
	}})
	insert := NewInsert("users", table, nil, static)
	SetTransactionContextRecursively(insert, writer)

	executed(t, insert)
	require.NoError(t, writer.Rollback())

	reader := manager.NewContext()
	validate := NewValidate(NewGetTable("users", table))
	SetTransactionContextRecursively(validate, reader)
	assert.Equal(t, 4, executed(t, validate).Table.RowCount())
}

func TestDeleteCommit(t *testing.T) {
	table := usersTable(t)
	manager := txn.NewManager(nil)

	writer := manager.NewContext()
	scan := NewTableScan(
		planner.GreaterThan(ageColumn(), planner.NewValueExpression(40)),
		NewValidate(NewGetTable("users", table)))
	del := NewDelete("users", nil, scan)
	SetTransactionContextRecursively(del, writer)

	executed(t, del)
	require.NoError(t, writer.Commit())

	reader := manager.NewContext()
	validate := NewValidate(NewGetTable("users", table))
	SetTransactionContextRecursively(validate, reader)
	assert.Equal(t, 2, executed(t, validate).Table.RowCount())
}

func TestDeleteConflictAborts(t *testing.T) {
	table := usersTable(t)
	manager := txn.NewManager(nil)

	// A competing transaction holds row 0's tid slot.
	require.True(t, table.Chunk(0).Mvcc().ClaimTid(0, 99))

	writer := manager.NewContext()
	scan := NewTableScan(
		planner.GreaterThan(ageColumn(), planner.NewValueExpression(0)),
		NewValidate(NewGetTable("users", table)))
	del := NewDelete("users", nil, scan)
	SetTransactionContextRecursively(del, writer)

	err := ExecuteSynchronously(del)
	require.Error(t, err)
	assert.True(t, writer.Aborted(), "conflict aborts the transaction")
}

func TestUpdateRewritesRows(t *testing.T) {
	table := usersTable(t)
	manager := txn.NewManager(nil)

	writer := manager.NewContext()
	scan := NewTableScan(
		planner.Equals(idColumn(), planner.NewValueExpression(1)),
		NewValidate(NewGetTable("users", table)))
	update := NewUpdate("users", table, []string{"age"},
		[]planner.Expression{planner.NewValueExpression(32)}, nil, scan)
	SetTransactionContextRecursively(update, writer)

	executed(t, update)
	require.NoError(t, writer.Commit())

	reader := manager.NewContext()
	validate := NewValidate(NewGetTable("users", table))
	SetTransactionContextRecursively(validate, reader)
	out := executed(t, validate)
	require.Equal(t, 4, out.Table.RowCount())

	// Find user 1's current age.
	found := false
	_ = forEachRow(out.Table, func(row types.RowID) error {
		id, _ := out.Table.Value(0, row).AsInt64()
		if id == 1 {
			age, _ := out.Table.Value(2, row).AsInt64()
			assert.Equal(t, int64(32), age)
			found = true
		}
		return nil
	})
	assert.True(t, found)
}

func TestScheduledExecution(t *testing.T) {
	users := usersTable(t)
	orders := ordersTable(t)

	predicate := planner.Equals(
		planner.NewColumnExpression("", "id", types.Int, false),
		planner.NewColumnExpression("", "user_id", types.Int, false))
	join := NewHashJoin(predicate, 0, 0, NewGetTable("users", users), NewGetTable("orders", orders))

	s := scheduler.New(scheduler.FakeNumaTopology(2, 2), false, nil)
	tasks := MakeTasks(join)
	require.NoError(t, s.ScheduleAll(tasks.Tasks))
	require.NoError(t, tasks.Wait())
	s.Finish()

	require.NotNil(t, join.Output())
	assert.Equal(t, 3, join.Output().Table.RowCount())
}

func TestScheduledAbortProducesNoOutput(t *testing.T) {
	table := usersTable(t)
	manager := txn.NewManager(nil)
	ctx := manager.NewContext()

	scan := NewTableScan(
		planner.GreaterThan(ageColumn(), planner.NewValueExpression(0)),
		NewValidate(NewGetTable("users", table)))
	SetTransactionContextRecursively(scan, ctx)

	ctx.Abort()

	s := scheduler.New(scheduler.FakeNumaTopology(1, 2), false, nil)
	tasks := MakeTasks(scan)
	require.NoError(t, s.ScheduleAll(tasks.Tasks))
	require.NoError(t, tasks.Wait())
	s.Finish()

	assert.Nil(t, scan.Output())
	assert.Equal(t, Aborted, scan.State())
}

func TestCorrelatedSubqueryEvaluation(t *testing.T) {
	users := usersTable(t)
	orders := ordersTable(t)

	// EXISTS (SELECT user_id FROM orders WHERE user_id = <outer id>)
	ordersManager := storage.NewManager()
	require.NoError(t, ordersManager.AddTable("orders", orders))

	ordersNode := planner.NewStoredTableNode("orders", orders)
	paramID := types.ParameterID(0)
	inner := planner.NewPredicateNode(
		planner.Equals(
			planner.NewColumnExpression("orders", "user_id", types.Int, false),
			planner.NewPlaceholderExpression(paramID, types.Int, false)),
		ordersNode)

	subquery := planner.NewSubqueryExpression(inner,
		[]types.ParameterID{paramID},
		[]planner.Expression{idColumn()})
	exists := planner.NewExistsExpression(subquery)

	tc := &TranslateContext{Manager: ordersManager}
	subplan, err := Translate(inner, tc)
	require.NoError(t, err)

	scan := NewTableScan(exists, NewGetTable("users", users)).
		WithSubqueries(map[*planner.SubqueryExpression]Operator{subquery: subplan})

	out := executed(t, scan)
	assert.Equal(t, 2, out.Table.RowCount(), "users 1 and 3 have orders")
}
