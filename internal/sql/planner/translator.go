package planner

import (
	"strings"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/sql/ast"
	"github.com/emberdb/ember/internal/storage"
	"github.com/emberdb/ember/internal/types"
)

// TranslateOptions steer statement translation.
type TranslateOptions struct {
	// Validate inserts Validate nodes above every table access so the
	// query observes MVCC row visibility.
	Validate bool
}

// Translator converts parser output into a logical query plan, one root
// per statement.
type Translator struct {
	storage *storage.Manager

	opts       TranslateOptions
	scopes     []*identifierScope
	frames     []*parameterFrame
	paramNext  types.ParameterID
}

// NewTranslator creates a translator resolving tables through the given
// storage manager.
func NewTranslator(manager *storage.Manager) *Translator {
	return &Translator{storage: manager}
}

// Translate converts one statement into a plan root.
func (t *Translator) Translate(stmt ast.Statement, opts TranslateOptions) (Node, error) {
	t.opts = opts
	t.scopes = nil
	t.frames = nil
	t.paramNext = 0

	switch s := stmt.(type) {
	case *ast.SelectStatement:
		t.pushScope()
		defer t.popScope()
		return t.translateSelect(s)
	case *ast.InsertStatement:
		return t.translateInsert(s)
	case *ast.UpdateStatement:
		return t.translateUpdate(s)
	case *ast.DeleteStatement:
		return t.translateDelete(s)
	case *ast.CreateTableStatement:
		return t.translateCreateTable(s)
	case *ast.DropTableStatement:
		return NewDropTableNode(s.TableName), nil
	case *ast.ShowStatement:
		if s.Kind == ast.ShowColumns {
			return NewShowColumnsNode(s.TableName), nil
		}
		return NewShowTablesNode(), nil
	default:
		return nil, errors.InternalErrorf("unsupported statement type %T", stmt)
	}
}

func (t *Translator) pushScope() {
	t.scopes = append(t.scopes, newIdentifierScope())
	t.frames = append(t.frames, &parameterFrame{})
}

func (t *Translator) popScope() {
	t.scopes = t.scopes[:len(t.scopes)-1]
	t.frames = t.frames[:len(t.frames)-1]
}

func (t *Translator) currentScope() *identifierScope {
	return t.scopes[len(t.scopes)-1]
}

func (t *Translator) currentFrame() *parameterFrame {
	return t.frames[len(t.frames)-1]
}

func (t *Translator) nextParameterID() types.ParameterID {
	id := t.paramNext
	t.paramNext++
	return id
}

// resolveIdentifier looks an identifier up in the scope stack, innermost
// first. A hit in an outer scope makes the reference correlated: the outer
// column is recorded in the current frame and a fresh placeholder stands in
// for it.
func (t *Translator) resolveIdentifier(id *ast.Identifier) (Expression, error) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		col, err := t.scopes[i].resolve(id.Table, id.Name)
		if err != nil {
			return nil, err
		}
		if col == nil {
			continue
		}
		if i == len(t.scopes)-1 {
			return col.DeepCopy(), nil
		}
		// Outer-scope hit: bind through a parameter.
		paramID := t.nextParameterID()
		t.currentFrame().add(paramID, col.DeepCopy())
		return NewPlaceholderExpression(paramID, col.ValueType, col.Nullable), nil
	}
	return nil, errors.UnknownIdentifierError(identifierName(id))
}

func identifierName(id *ast.Identifier) string {
	if id.Table != "" {
		return id.Table + "." + id.Name
	}
	return id.Name
}

// translateSelect builds the node layering FROM → WHERE → GROUP BY/HAVING →
// SELECT list → ORDER BY → LIMIT.
func (t *Translator) translateSelect(sel *ast.SelectStatement) (Node, error) {
	if sel.From == nil {
		return nil, errors.InternalErrorf("SELECT without FROM is not supported")
	}

	node, err := t.translateTableExpression(sel.From)
	if err != nil {
		return nil, err
	}

	if sel.Where != nil {
		where, err := t.translateExpr(sel.Where)
		if err != nil {
			return nil, err
		}
		if ContainsAggregate(where) {
			return nil, errors.AggregateMisuseError(where.ColumnName())
		}
		node = buildPredicateChain(where, node)
	}

	return t.translateSelectList(sel, node)
}

// buildPredicateChain splits top-level conjunctions into a chain of
// predicate nodes so the optimizer can reorder them independently.
func buildPredicateChain(predicate Expression, input Node) Node {
	if logical, ok := predicate.(*LogicalExpression); ok && logical.Op == OpAnd {
		input = buildPredicateChain(logical.Left, input)
		return buildPredicateChain(logical.Right, input)
	}
	return NewPredicateNode(predicate, input)
}

func (t *Translator) translateSelectList(sel *ast.SelectStatement, node Node) (Node, error) {
	groupBy := make([]Expression, 0, len(sel.GroupBy))
	for _, g := range sel.GroupBy {
		expr, err := t.translateExpr(g)
		if err != nil {
			return nil, err
		}
		groupBy = append(groupBy, expr)
	}

	items := make([]Expression, 0, len(sel.Items))
	aliases := make([]string, 0, len(sel.Items))
	starOnly := true
	for _, item := range sel.Items {
		if item.Star {
			for _, col := range t.currentScope().allColumns() {
				items = append(items, col.DeepCopy())
				aliases = append(aliases, "")
			}
			continue
		}
		starOnly = false
		expr, err := t.translateExpr(item.Expr)
		if err != nil {
			return nil, err
		}
		items = append(items, expr)
		aliases = append(aliases, item.Alias)
	}

	var having Expression
	if sel.Having != nil {
		var err error
		having, err = t.translateExpr(sel.Having)
		if err != nil {
			return nil, err
		}
	}

	aggregates := collectAggregates(items)
	havingAggregates := collectAggregates([]Expression{having})

	if len(groupBy) > 0 || len(aggregates) > 0 || len(havingAggregates) > 0 {
		if err := validateAggregation(items, groupBy); err != nil {
			return nil, err
		}
		// HAVING may use aggregates the SELECT list does not; add them
		// implicitly so the predicate can resolve against the aggregate
		// output.
		for _, agg := range havingAggregates {
			if !containsExpression(aggregates, agg) {
				aggregates = append(aggregates, agg)
			}
		}
		node = NewAggregateNode(groupBy, aggregates, node)
		if having != nil {
			node = NewPredicateNode(having, node)
		}
	} else if having != nil {
		return nil, errors.AggregateMisuseError("HAVING without aggregation")
	}

	if !starOnly || len(groupBy) > 0 || len(aggregates) > 0 {
		node = NewProjectionNode(items, node).WithAliases(aliases)
	}

	if len(sel.OrderBy) > 0 {
		orderBy := make([]OrderByDefinition, 0, len(sel.OrderBy))
		for _, item := range sel.OrderBy {
			expr, err := t.translateExpr(item.Expr)
			if err != nil {
				return nil, err
			}
			orderBy = append(orderBy, OrderByDefinition{Expression: expr, Descending: item.Desc})
		}
		node = NewSortNode(orderBy, node)
	}

	if sel.Limit != nil {
		node = NewLimitNode(sel.Limit.Count, sel.Limit.Offset, node)
	}

	return node, nil
}

func collectAggregates(exprs []Expression) []Expression {
	var aggs []Expression
	for _, e := range exprs {
		if e == nil {
			continue
		}
		VisitExpressions(e, func(expr Expression) bool {
			if expr.Type() == ExprAggregate {
				if !containsExpression(aggs, expr) {
					aggs = append(aggs, expr)
				}
				return false
			}
			return expr.Type() != ExprSubquery
		})
	}
	return aggs
}

func containsExpression(list []Expression, e Expression) bool {
	for _, candidate := range list {
		if ExpressionsEqual(candidate, e) {
			return true
		}
	}
	return false
}

// validateAggregation checks that every bare column in the SELECT list is
// covered by the GROUP BY clause.
func validateAggregation(items, groupBy []Expression) error {
	for _, item := range items {
		if err := validateAggregationExpr(item, groupBy); err != nil {
			return err
		}
	}
	return nil
}

func validateAggregationExpr(e Expression, groupBy []Expression) error {
	if containsExpression(groupBy, e) {
		return nil
	}
	switch e.Type() {
	case ExprAggregate, ExprValue, ExprPlaceholder, ExprSubquery:
		return nil
	case ExprColumn:
		return errors.AggregateMisuseError(e.ColumnName()).
			WithDetail("column is neither aggregated nor in GROUP BY")
	}
	for _, arg := range e.Arguments() {
		if err := validateAggregationExpr(arg, groupBy); err != nil {
			return err
		}
	}
	return nil
}

func (t *Translator) translateTableExpression(te ast.TableExpression) (Node, error) {
	switch table := te.(type) {
	case *ast.TableRef:
		return t.translateTableRef(table)

	case *ast.JoinExpr:
		left, err := t.translateTableExpression(table.Left)
		if err != nil {
			return nil, err
		}
		right, err := t.translateTableExpression(table.Right)
		if err != nil {
			return nil, err
		}

		if table.Type == ast.JoinCross {
			return NewJoinNode(JoinCross, nil, left, right), nil
		}

		condition, err := t.translateExpr(table.Condition)
		if err != nil {
			return nil, err
		}
		return NewJoinNode(joinMode(table.Type), condition, left, right), nil

	default:
		return nil, errors.InternalErrorf("unsupported table expression %T", te)
	}
}

func joinMode(jt ast.JoinType) JoinMode {
	switch jt {
	case ast.JoinLeft:
		return JoinLeft
	case ast.JoinRight:
		return JoinRight
	case ast.JoinFull:
		return JoinFull
	case ast.JoinCross:
		return JoinCross
	default:
		return JoinInner
	}
}

func (t *Translator) translateTableRef(ref *ast.TableRef) (Node, error) {
	table, err := t.storage.GetTable(ref.Name)
	if err != nil {
		return nil, err
	}

	alias := ref.Alias
	if alias == "" {
		alias = ref.Name
	}

	schema := table.Schema()
	if len(ref.ColumnAliases) > 0 && len(ref.ColumnAliases) != len(schema.Columns) {
		return nil, errors.RenamingArityError(len(schema.Columns), len(ref.ColumnAliases))
	}

	node := NewStoredTableNode(ref.Name, table).WithAlias(alias)

	columns := make([]scopeColumn, len(schema.Columns))
	for i, def := range schema.Columns {
		name := def.Name
		if len(ref.ColumnAliases) > 0 {
			name = ref.ColumnAliases[i]
		}
		columns[i] = scopeColumn{
			name: name,
			expr: NewColumnExpression(alias, def.Name, def.DataType, def.Nullable),
		}
	}
	t.currentScope().addEntry(alias, columns)

	if t.opts.Validate {
		return NewValidateNode(node), nil
	}
	return node, nil
}

func (t *Translator) translateExpr(e ast.Expr) (Expression, error) {
	switch expr := e.(type) {
	case *ast.Identifier:
		return t.resolveIdentifier(expr)

	case *ast.Literal:
		if expr.Null {
			return NewNullExpression(), nil
		}
		return NewValueExpression(expr.Value), nil

	case *ast.BinaryExpr:
		return t.translateBinaryExpr(expr)

	case *ast.UnaryExpr:
		operand, err := t.translateExpr(expr.Operand)
		if err != nil {
			return nil, err
		}
		switch strings.ToUpper(expr.Op) {
		case "NOT":
			return Not(operand), nil
		case "-":
			return NewArithmeticExpression(OpSubtract, NewValueExpression(0), operand), nil
		default:
			return nil, errors.InternalErrorf("unsupported unary operator %q", expr.Op)
		}

	case *ast.FuncCall:
		return t.translateFuncCall(expr)

	case *ast.CaseExpr:
		when, err := t.translateExpr(expr.When)
		if err != nil {
			return nil, err
		}
		then, err := t.translateExpr(expr.Then)
		if err != nil {
			return nil, err
		}
		var els Expression = NewNullExpression()
		if expr.Else != nil {
			if els, err = t.translateExpr(expr.Else); err != nil {
				return nil, err
			}
		}
		return NewCaseExpression(when, then, els), nil

	case *ast.BetweenExpr:
		operand, err := t.translateExpr(expr.Operand)
		if err != nil {
			return nil, err
		}
		lower, err := t.translateExpr(expr.Lower)
		if err != nil {
			return nil, err
		}
		upper, err := t.translateExpr(expr.Upper)
		if err != nil {
			return nil, err
		}
		return NewBetweenExpression(operand, lower, upper), nil

	case *ast.IsNullExpr:
		operand, err := t.translateExpr(expr.Operand)
		if err != nil {
			return nil, err
		}
		cond := types.IsNull
		if expr.Not {
			cond = types.IsNotNull
		}
		return NewNullCheckExpression(cond, operand), nil

	case *ast.InExpr:
		operand, err := t.translateExpr(expr.Operand)
		if err != nil {
			return nil, err
		}
		if expr.Subquery != nil {
			subquery, err := t.translateSubquery(expr.Subquery)
			if err != nil {
				return nil, err
			}
			return NewInExpression(operand, subquery), nil
		}
		list := make([]Expression, 0, len(expr.List))
		for _, item := range expr.List {
			translated, err := t.translateExpr(item)
			if err != nil {
				return nil, err
			}
			list = append(list, translated)
		}
		return NewInExpression(operand, list...), nil

	case *ast.ExistsExpr:
		subquery, err := t.translateSubquery(expr.Select)
		if err != nil {
			return nil, err
		}
		return NewExistsExpression(subquery), nil

	case *ast.SubqueryExpr:
		return t.translateSubquery(expr.Select)

	case *ast.Parameter:
		id := types.ParameterID(expr.Index)
		if id >= t.paramNext {
			t.paramNext = id + 1
		}
		return NewPlaceholderExpression(id, types.Null, true), nil

	default:
		return nil, errors.InternalErrorf("unsupported expression type %T", e)
	}
}

func (t *Translator) translateBinaryExpr(expr *ast.BinaryExpr) (Expression, error) {
	left, err := t.translateExpr(expr.Left)
	if err != nil {
		return nil, err
	}
	right, err := t.translateExpr(expr.Right)
	if err != nil {
		return nil, err
	}

	op := strings.ToUpper(expr.Op)
	switch op {
	case "+", "-", "*", "/", "%":
		if err := checkOperandTypes(left, right); err != nil {
			return nil, err
		}
		ops := map[string]ArithmeticOperator{
			"+": OpAdd, "-": OpSubtract, "*": OpMultiply, "/": OpDivide, "%": OpModulo,
		}
		return NewArithmeticExpression(ops[op], left, right), nil

	case "=", "<>", "!=", "<", "<=", ">", ">=":
		if err := checkOperandTypes(left, right); err != nil {
			return nil, err
		}
		conds := map[string]types.PredicateCondition{
			"=": types.Equals, "<>": types.NotEquals, "!=": types.NotEquals,
			"<": types.LessThan, "<=": types.LessThanEquals,
			">": types.GreaterThan, ">=": types.GreaterThanEquals,
		}
		return NewBinaryPredicate(conds[op], left, right), nil

	case "AND":
		return And(left, right), nil
	case "OR":
		return Or(left, right), nil

	case "LIKE", "NOT LIKE":
		if left.DataType() != types.String || right.DataType() != types.String {
			return nil, errors.TypeMismatchError(left.DataType().Name(), right.DataType().Name())
		}
		cond := types.Like
		if op == "NOT LIKE" {
			cond = types.NotLike
		}
		return NewBinaryPredicate(cond, left, right), nil

	default:
		return nil, errors.InternalErrorf("unsupported binary operator %q", expr.Op)
	}
}

// checkOperandTypes rejects operand combinations with no common type.
// Untyped placeholders pass; their type is only known at bind time.
func checkOperandTypes(left, right Expression) error {
	lt, rt := left.DataType(), right.DataType()
	if lt == types.Null || rt == types.Null {
		return nil
	}
	if _, err := types.Promote(lt, rt); err != nil {
		return errors.TypeMismatchError(lt.Name(), rt.Name())
	}
	return nil
}

func (t *Translator) translateFuncCall(call *ast.FuncCall) (Expression, error) {
	name := strings.ToUpper(call.Name)

	aggs := map[string]AggregateFunction{
		"SUM": AggSum, "MIN": AggMin, "MAX": AggMax, "COUNT": AggCount, "AVG": AggAvg,
	}
	if fn, isAgg := aggs[name]; isAgg {
		if call.Star {
			if fn != AggCount {
				return nil, errors.AggregateMisuseError(name + "(*)")
			}
			return CountStar(), nil
		}
		if len(call.Args) != 1 {
			return nil, errors.AggregateMisuseError(name).
				WithDetailf("expected 1 argument, got %d", len(call.Args))
		}
		arg, err := t.translateExpr(call.Args[0])
		if err != nil {
			return nil, err
		}
		agg := NewAggregateExpression(fn, arg)
		agg.Distinct = call.Distinct
		return agg, nil
	}

	args := make([]Expression, 0, len(call.Args))
	for _, a := range call.Args {
		translated, err := t.translateExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, translated)
	}
	return NewFunctionExpression(name, args...), nil
}

func (t *Translator) translateSubquery(sel *ast.SelectStatement) (*SubqueryExpression, error) {
	t.pushScope()
	frame := t.currentFrame()
	plan, err := t.translateSelect(sel)
	t.popScope()
	if err != nil {
		return nil, err
	}
	return NewSubqueryExpression(plan, frame.ids, frame.args), nil
}

func (t *Translator) translateInsert(ins *ast.InsertStatement) (Node, error) {
	table, err := t.storage.GetTable(ins.TableName)
	if err != nil {
		return nil, err
	}
	schema := table.Schema()

	if ins.Select != nil {
		t.pushScope()
		input, err := t.translateSelect(ins.Select)
		t.popScope()
		if err != nil {
			return nil, err
		}
		return NewInsertNode(ins.TableName, input), nil
	}

	// Map the listed columns (default: all, in schema order).
	positions := make([]types.ColumnID, 0, len(schema.Columns))
	if len(ins.Columns) == 0 {
		for i := range schema.Columns {
			positions = append(positions, types.ColumnID(i))
		}
	} else {
		for _, name := range ins.Columns {
			id := schema.ColumnID(name)
			if id == types.InvalidColumnID {
				return nil, errors.UnknownIdentifierError(name)
			}
			positions = append(positions, id)
		}
	}

	rows := make([][]Expression, 0, len(ins.Rows))
	for _, astRow := range ins.Rows {
		if len(astRow) != len(positions) {
			return nil, errors.Newf(errors.TypeMismatch,
				"INSERT row has %d values for %d columns", len(astRow), len(positions))
		}
		row := make([]Expression, len(schema.Columns))
		for i := range row {
			row[i] = NewNullExpression()
		}
		for i, e := range astRow {
			translated, err := t.translateExpr(e)
			if err != nil {
				return nil, err
			}
			row[positions[i]] = translated
		}
		rows = append(rows, row)
	}

	return NewInsertNode(ins.TableName, NewStaticTableNode(schema.Clone(), rows)), nil
}

func (t *Translator) translateUpdate(upd *ast.UpdateStatement) (Node, error) {
	t.pushScope()
	defer t.popScope()

	input, err := t.translateTableRef(&ast.TableRef{Name: upd.TableName})
	if err != nil {
		return nil, err
	}

	if upd.Where != nil {
		where, err := t.translateExpr(upd.Where)
		if err != nil {
			return nil, err
		}
		input = buildPredicateChain(where, input)
	}

	table, _ := t.storage.GetTable(upd.TableName)
	schema := table.Schema()

	columns := make([]string, 0, len(upd.Assignments))
	values := make([]Expression, 0, len(upd.Assignments))
	for _, a := range upd.Assignments {
		if schema.ColumnID(a.Column) == types.InvalidColumnID {
			return nil, errors.UnknownIdentifierError(a.Column)
		}
		value, err := t.translateExpr(a.Value)
		if err != nil {
			return nil, err
		}
		columns = append(columns, a.Column)
		values = append(values, value)
	}

	return NewUpdateNode(upd.TableName, columns, values, input), nil
}

func (t *Translator) translateDelete(del *ast.DeleteStatement) (Node, error) {
	t.pushScope()
	defer t.popScope()

	input, err := t.translateTableRef(&ast.TableRef{Name: del.TableName})
	if err != nil {
		return nil, err
	}

	if del.Where != nil {
		where, err := t.translateExpr(del.Where)
		if err != nil {
			return nil, err
		}
		input = buildPredicateChain(where, input)
	}

	return NewDeleteNode(del.TableName, input), nil
}

func (t *Translator) translateCreateTable(create *ast.CreateTableStatement) (Node, error) {
	if t.storage.HasTable(create.TableName) {
		return nil, errors.Newf(errors.InternalError, "table %q already exists", create.TableName)
	}

	typeNames := map[string]types.DataType{
		"INT": types.Int, "INTEGER": types.Int,
		"LONG": types.Long, "BIGINT": types.Long,
		"FLOAT": types.Float, "REAL": types.Float,
		"DOUBLE": types.Double,
		"STRING": types.String, "TEXT": types.String, "VARCHAR": types.String,
	}

	columns := make([]catalog.ColumnDefinition, 0, len(create.Columns))
	for _, def := range create.Columns {
		dataType, ok := typeNames[strings.ToUpper(def.TypeName)]
		if !ok {
			return nil, errors.Newf(errors.TypeMismatch, "unknown type %q", def.TypeName)
		}
		columns = append(columns, catalog.ColumnDefinition{
			Name:     def.Name,
			DataType: dataType,
			Nullable: !def.NotNull,
		})
	}

	return NewCreateTableNode(create.TableName, catalog.NewSchema(columns...)), nil
}
