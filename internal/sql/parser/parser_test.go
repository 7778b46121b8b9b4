package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/sql/ast"
)

func parseSelect(t *testing.T, sql string) *ast.SelectStatement {
	t.Helper()
	stmt, err := Parse(sql)
	require.NoError(t, err, sql)
	sel, ok := stmt.(*ast.SelectStatement)
	require.True(t, ok)
	return sel
}

func TestParseSelectClauses(t *testing.T) {
	sel := parseSelect(t,
		"SELECT name, age AS years FROM users u WHERE age > 30 AND name LIKE 'a%' "+
			"GROUP BY name HAVING COUNT(*) > 1 ORDER BY age DESC, name LIMIT 10 OFFSET 5")

	require.Len(t, sel.Items, 2)
	assert.Equal(t, "years", sel.Items[1].Alias)

	ref, ok := sel.From.(*ast.TableRef)
	require.True(t, ok)
	assert.Equal(t, "users", ref.Name)
	assert.Equal(t, "u", ref.Alias)

	where, ok := sel.Where.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "AND", where.Op)

	require.Len(t, sel.GroupBy, 1)
	require.NotNil(t, sel.Having)

	require.Len(t, sel.OrderBy, 2)
	assert.True(t, sel.OrderBy[0].Desc)
	assert.False(t, sel.OrderBy[1].Desc)

	require.NotNil(t, sel.Limit)
	assert.Equal(t, int64(10), sel.Limit.Count)
	assert.Equal(t, int64(5), sel.Limit.Offset)
}

func TestParseJoins(t *testing.T) {
	sel := parseSelect(t, "SELECT * FROM a JOIN b ON a.x = b.y LEFT JOIN c ON b.y = c.z")

	outer, ok := sel.From.(*ast.JoinExpr)
	require.True(t, ok)
	assert.Equal(t, ast.JoinLeft, outer.Type)

	inner, ok := outer.Left.(*ast.JoinExpr)
	require.True(t, ok)
	assert.Equal(t, ast.JoinInner, inner.Type)

	cond, ok := inner.Condition.(*ast.BinaryExpr)
	require.True(t, ok)
	left, ok := cond.Left.(*ast.Identifier)
	require.True(t, ok)
	assert.Equal(t, "a", left.Table)
	assert.Equal(t, "x", left.Name)
}

func TestParseCommaIsCrossJoin(t *testing.T) {
	sel := parseSelect(t, "SELECT * FROM a, b WHERE a.x = b.y")
	join, ok := sel.From.(*ast.JoinExpr)
	require.True(t, ok)
	assert.Equal(t, ast.JoinCross, join.Type)
	assert.Nil(t, join.Condition)
}

func TestParseOperatorPrecedence(t *testing.T) {
	sel := parseSelect(t, "SELECT * FROM t WHERE a + 2 * 3 > 7 OR NOT b = 1")

	or, ok := sel.Where.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, "OR", or.Op)

	cmp, ok := or.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ">", cmp.Op)

	add, ok := cmp.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, "+", add.Op)
	mul, ok := add.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "*", mul.Op)

	not, ok := or.Right.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, "NOT", not.Op)
}

func TestParseExpressionsForms(t *testing.T) {
	sel := parseSelect(t, "SELECT CASE WHEN a > 1 THEN 'hi' ELSE 'lo' END FROM t "+
		"WHERE a BETWEEN 1 AND 9 AND b IN (1, 2, 3) AND c IS NOT NULL AND d = $1")

	_, ok := sel.Items[0].Expr.(*ast.CaseExpr)
	assert.True(t, ok)

	found := map[string]bool{}
	var walk func(e ast.Expr)
	walk = func(e ast.Expr) {
		switch expr := e.(type) {
		case *ast.BinaryExpr:
			walk(expr.Left)
			walk(expr.Right)
		case *ast.BetweenExpr:
			found["between"] = true
		case *ast.InExpr:
			found["in"] = true
			assert.Len(t, expr.List, 3)
		case *ast.IsNullExpr:
			found["isnull"] = true
			assert.True(t, expr.Not)
		case *ast.Parameter:
			found["param"] = true
			assert.Equal(t, 1, expr.Index)
		}
	}
	walk(sel.Where)
	assert.True(t, found["between"] && found["in"] && found["isnull"] && found["param"])
}

func TestParseSubqueries(t *testing.T) {
	sel := parseSelect(t, "SELECT * FROM t WHERE EXISTS (SELECT * FROM u WHERE u.a = t.a)")
	_, ok := sel.Where.(*ast.ExistsExpr)
	assert.True(t, ok)

	sel = parseSelect(t, "SELECT * FROM t WHERE a IN (SELECT b FROM u)")
	in, ok := sel.Where.(*ast.InExpr)
	require.True(t, ok)
	assert.NotNil(t, in.Subquery)
}

func TestParseInsert(t *testing.T) {
	stmt, err := Parse("INSERT INTO t (a, b) VALUES (1, 'x'), (2, NULL)")
	require.NoError(t, err)
	ins := stmt.(*ast.InsertStatement)
	assert.Equal(t, []string{"a", "b"}, ins.Columns)
	require.Len(t, ins.Rows, 2)

	lit := ins.Rows[1][1].(*ast.Literal)
	assert.True(t, lit.Null)

	stmt, err = Parse("INSERT INTO t SELECT * FROM u")
	require.NoError(t, err)
	assert.NotNil(t, stmt.(*ast.InsertStatement).Select)
}

func TestParseUpdateDelete(t *testing.T) {
	stmt, err := Parse("UPDATE t SET a = a + 1, b = 'x' WHERE id = 3")
	require.NoError(t, err)
	upd := stmt.(*ast.UpdateStatement)
	require.Len(t, upd.Assignments, 2)
	assert.NotNil(t, upd.Where)

	stmt, err = Parse("DELETE FROM t WHERE a < 0")
	require.NoError(t, err)
	del := stmt.(*ast.DeleteStatement)
	assert.Equal(t, "t", del.TableName)
}

func TestParseDDL(t *testing.T) {
	stmt, err := Parse("CREATE TABLE t (id INT NOT NULL, name STRING)")
	require.NoError(t, err)
	create := stmt.(*ast.CreateTableStatement)
	require.Len(t, create.Columns, 2)
	assert.True(t, create.Columns[0].NotNull)

	stmt, err = Parse("DROP TABLE t")
	require.NoError(t, err)
	assert.Equal(t, "t", stmt.(*ast.DropTableStatement).TableName)

	stmt, err = Parse("SHOW COLUMNS FROM t")
	require.NoError(t, err)
	show := stmt.(*ast.ShowStatement)
	assert.Equal(t, ast.ShowColumns, show.Kind)
}

func TestParseErrors(t *testing.T) {
	for _, sql := range []string{
		"",
		"SELEKT 1",
		"SELECT FROM t",
		"SELECT * FROM",
		"SELECT * FROM t WHERE",
		"INSERT INTO t VALUES (1",
		"SELECT * FROM t LIMIT x",
		"SELECT 'unterminated FROM t",
	} {
		_, err := Parse(sql)
		require.Error(t, err, sql)
		assert.True(t, errors.Is(err, errors.ParseError), sql)
	}
}

func TestParseCountStarAndDistinct(t *testing.T) {
	sel := parseSelect(t, "SELECT COUNT(*), SUM(DISTINCT a) FROM t")
	count := sel.Items[0].Expr.(*ast.FuncCall)
	assert.True(t, count.Star)
	sum := sel.Items[1].Expr.(*ast.FuncCall)
	assert.True(t, sum.Distinct)
	require.Len(t, sum.Args, 1)
}
