package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/log"
	"github.com/emberdb/ember/internal/types"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(nil, log.Discard())
	t.Cleanup(e.Shutdown)
	return e
}

func mustExec(t *testing.T, e *Engine, sql string) {
	t.Helper()
	_, err := e.Execute(sql)
	require.NoError(t, err, sql)
}

func seed(t *testing.T, e *Engine) {
	t.Helper()
	mustExec(t, e, "CREATE TABLE users (id INT NOT NULL, name STRING, age INT NOT NULL)")
	mustExec(t, e, "INSERT INTO users VALUES (1, 'ada', 31), (2, 'grace', 45), (3, 'edsger', 72)")
}

func TestEndToEndSelect(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e)

	result, err := e.Execute("SELECT name, age FROM users WHERE age > 40 ORDER BY age DESC")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, 2, result.Table.RowCount())

	name, _ := result.Table.Value(0, types.RowID{}).AsString()
	assert.Equal(t, "edsger", name)
}

func TestEndToEndAggregate(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e)

	result, err := e.Execute("SELECT COUNT(*), MIN(age) FROM users WHERE age > 30")
	require.NoError(t, err)
	require.Equal(t, 1, result.Table.RowCount())

	count, _ := result.Table.Value(0, types.RowID{}).AsInt64()
	minAge, _ := result.Table.Value(1, types.RowID{}).AsInt64()
	assert.Equal(t, int64(3), count)
	assert.Equal(t, int64(31), minAge)
}

func TestEndToEndJoin(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e)
	mustExec(t, e, "CREATE TABLE orders (user_id INT NOT NULL, total INT NOT NULL)")
	mustExec(t, e, "INSERT INTO orders VALUES (1, 100), (1, 150), (3, 20)")

	result, err := e.Execute(
		"SELECT name, total FROM users JOIN orders ON id = user_id WHERE total > 50")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Table.RowCount())
}

func TestEndToEndUpdateAndDelete(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e)

	mustExec(t, e, "UPDATE users SET age = 32 WHERE id = 1")
	result, err := e.Execute("SELECT age FROM users WHERE id = 1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Table.RowCount())
	age, _ := result.Table.Value(0, types.RowID{}).AsInt64()
	assert.Equal(t, int64(32), age)

	mustExec(t, e, "DELETE FROM users WHERE age > 40")
	result, err = e.Execute("SELECT id FROM users")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Table.RowCount())
}

func TestEndToEndGroupByHaving(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e)
	mustExec(t, e, "CREATE TABLE orders (user_id INT NOT NULL, total INT NOT NULL)")
	mustExec(t, e, "INSERT INTO orders VALUES (1, 100), (1, 150), (3, 20)")

	result, err := e.Execute(
		"SELECT user_id, SUM(total) FROM orders GROUP BY user_id HAVING SUM(total) > 50")
	require.NoError(t, err)
	require.Equal(t, 1, result.Table.RowCount())

	sum, _ := result.Table.Value(1, types.RowID{}).AsInt64()
	assert.Equal(t, int64(250), sum)
}

func TestShowStatements(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e)

	result, err := e.Execute("SHOW TABLES")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Table.RowCount())

	result, err = e.Execute("SHOW COLUMNS FROM users")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Table.RowCount())
}

func TestErrorClassification(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e)

	_, err := e.Execute("SELEKT 1")
	assert.Equal(t, 1, ExitCode(err))

	_, err = e.Execute("SELECT ghost FROM users")
	assert.True(t, errors.Is(err, errors.UnknownIdentifier))
	assert.Equal(t, 1, ExitCode(err))

	_, err = e.Execute("SELECT name FROM users WHERE name > 5")
	assert.True(t, errors.Is(err, errors.TypeMismatch))

	_, err = e.Execute("SELECT name FROM users GROUP BY age")
	assert.True(t, errors.Is(err, errors.AggregateMisuse))

	assert.Equal(t, 0, ExitCode(nil))
}

func TestPlanRendersOptimizedPlan(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e)

	plan, err := e.Plan("SELECT name FROM users WHERE age > 40")
	require.NoError(t, err)
	assert.Contains(t, plan, "Predicate")
	assert.Contains(t, plan, "StoredTable(users)")
}

func TestSnapshotAdvancesPastCommittedInsert(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e)

	// A context opened after an insert commits reads at a later snapshot
	// than one opened before it.
	before := e.Txns.NewContext()
	mustExec(t, e, "INSERT INTO users VALUES (9, 'curie', 66)")
	after := e.Txns.NewContext()

	assert.Less(t, before.SnapshotCommitID(), after.SnapshotCommitID())
	_ = before.Rollback()
	_ = after.Rollback()
}
