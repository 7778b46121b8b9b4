package executor

import (
	"strings"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/types"
)

// Evaluator computes expression values over the rows of a materialized
// result. Placeholders resolve through the parameter map; subquery
// expressions resolve through pre-translated operator subplans that are
// recreated and run per evaluation.
type Evaluator struct {
	input      *Result
	params     map[types.ParameterID]types.Value
	subqueries map[*planner.SubqueryExpression]Operator

	// row evaluation mode: columns read from rowValues instead of a table
	rowSchema *catalog.Schema
	rowValues []types.Value
}

// NewEvaluator creates an evaluator over a result.
func NewEvaluator(input *Result) *Evaluator {
	return &Evaluator{input: input}
}

// NewRowEvaluator creates an evaluator over a single in-memory row. Joins
// use it to test predicates over candidate row pairs without materializing
// them.
func NewRowEvaluator(schema *catalog.Schema) *Evaluator {
	return &Evaluator{rowSchema: schema}
}

// SetRow installs the values the next evaluation reads columns from.
func (ev *Evaluator) SetRow(values []types.Value) {
	ev.rowValues = values
}

// WithParameters attaches bound placeholder values.
func (ev *Evaluator) WithParameters(params map[types.ParameterID]types.Value) *Evaluator {
	ev.params = params
	return ev
}

// WithSubqueries attaches the operator subplans of subquery expressions.
func (ev *Evaluator) WithSubqueries(subqueries map[*planner.SubqueryExpression]Operator) *Evaluator {
	ev.subqueries = subqueries
	return ev
}

// Matches evaluates a predicate over one row. NULL results are false.
func (ev *Evaluator) Matches(expr planner.Expression, row types.RowID) (bool, error) {
	v, err := ev.Evaluate(expr, row)
	if err != nil {
		return false, err
	}
	return isTrue(v), nil
}

func isTrue(v types.Value) bool {
	if v.IsNull() {
		return false
	}
	i, err := v.AsInt64()
	return err == nil && i != 0
}

func boolValue(b bool) types.Value {
	if b {
		return types.NewValue(int32(1))
	}
	return types.NewValue(int32(0))
}

// Evaluate computes one expression over one row of the input.
func (ev *Evaluator) Evaluate(expr planner.Expression, row types.RowID) (types.Value, error) {
	switch e := expr.(type) {
	case *planner.ColumnExpression:
		id := ev.resolveColumn(e)
		if id == types.InvalidColumnID {
			return types.Value{}, errors.ColumnNotFoundError(e.ColumnName())
		}
		if ev.rowSchema != nil {
			return ev.rowValues[id], nil
		}
		return ev.input.Table.Value(id, row), nil

	case *planner.ValueExpression:
		return e.Value, nil

	case *planner.PlaceholderExpression:
		v, bound := ev.params[e.ID]
		if !bound {
			return types.Value{}, errors.Newf(errors.InternalError, "parameter $%d is not bound", e.ID)
		}
		return v, nil

	case *planner.ArithmeticExpression:
		return ev.evaluateArithmetic(e, row)

	case *planner.BinaryPredicate:
		return ev.evaluateComparison(e, row)

	case *planner.BetweenExpression:
		v, err := ev.Evaluate(e.Value, row)
		if err != nil {
			return types.Value{}, err
		}
		lower, err := ev.Evaluate(e.Lower, row)
		if err != nil {
			return types.Value{}, err
		}
		upper, err := ev.Evaluate(e.Upper, row)
		if err != nil {
			return types.Value{}, err
		}
		if v.IsNull() || lower.IsNull() || upper.IsNull() {
			return types.NewNullValue(), nil
		}
		return boolValue(types.Compare(v, lower) >= 0 && types.Compare(v, upper) <= 0), nil

	case *planner.NullCheckExpression:
		v, err := ev.Evaluate(e.Operand, row)
		if err != nil {
			return types.Value{}, err
		}
		if e.Condition == types.IsNull {
			return boolValue(v.IsNull()), nil
		}
		return boolValue(!v.IsNull()), nil

	case *planner.LogicalExpression:
		left, err := ev.Evaluate(e.Left, row)
		if err != nil {
			return types.Value{}, err
		}
		// Short circuit where three-valued logic allows it.
		if e.Op == planner.OpAnd && !left.IsNull() && !isTrue(left) {
			return boolValue(false), nil
		}
		if e.Op == planner.OpOr && isTrue(left) {
			return boolValue(true), nil
		}
		right, err := ev.Evaluate(e.Right, row)
		if err != nil {
			return types.Value{}, err
		}
		if e.Op == planner.OpAnd {
			if left.IsNull() || right.IsNull() {
				if !left.IsNull() && !isTrue(left) || !right.IsNull() && !isTrue(right) {
					return boolValue(false), nil
				}
				return types.NewNullValue(), nil
			}
			return boolValue(isTrue(left) && isTrue(right)), nil
		}
		if left.IsNull() || right.IsNull() {
			if isTrue(left) || isTrue(right) {
				return boolValue(true), nil
			}
			return types.NewNullValue(), nil
		}
		return boolValue(isTrue(left) || isTrue(right)), nil

	case *planner.NotExpression:
		v, err := ev.Evaluate(e.Operand, row)
		if err != nil {
			return types.Value{}, err
		}
		if v.IsNull() {
			return types.NewNullValue(), nil
		}
		return boolValue(!isTrue(v)), nil

	case *planner.CaseExpression:
		when, err := ev.Evaluate(e.When, row)
		if err != nil {
			return types.Value{}, err
		}
		if isTrue(when) {
			return ev.Evaluate(e.Then, row)
		}
		return ev.Evaluate(e.Else, row)

	case *planner.InExpression:
		return ev.evaluateIn(e, row)

	case *planner.ExistsExpression:
		result, err := ev.runSubquery(e.Subquery, row)
		if err != nil {
			return types.Value{}, err
		}
		return boolValue(result.Table.RowCount() > 0), nil

	case *planner.SubqueryExpression:
		result, err := ev.runSubquery(e, row)
		if err != nil {
			return types.Value{}, err
		}
		if result.Table.RowCount() == 0 {
			return types.NewNullValue(), nil
		}
		return result.Table.Value(0, types.RowID{}), nil

	case *planner.FunctionExpression:
		return ev.evaluateFunction(e, row)

	case *planner.AggregateExpression:
		// Above an aggregate operator the aggregate's value is a column of
		// the input, named by its rendering.
		if id := ev.resolveByName(e.ColumnName()); id != types.InvalidColumnID {
			if ev.rowSchema != nil {
				return ev.rowValues[id], nil
			}
			return ev.input.Table.Value(id, row), nil
		}
		return types.Value{}, errors.Newf(errors.InternalError,
			"aggregate %s evaluated outside an aggregation", e.ColumnName())

	default:
		return types.Value{}, errors.Newf(errors.InternalError, "cannot evaluate expression %T", expr)
	}
}

// resolveByName matches a rendered expression against the input schema.
func (ev *Evaluator) resolveByName(name string) types.ColumnID {
	schema := ev.rowSchema
	if schema == nil {
		schema = ev.input.Table.Schema()
	}
	return schema.ColumnID(name)
}

// resolveColumn matches a column reference against the input schema by
// qualified name, falling back to the bare name for unqualified
// references.
func (ev *Evaluator) resolveColumn(col *planner.ColumnExpression) types.ColumnID {
	schema := ev.rowSchema
	if schema == nil {
		schema = ev.input.Table.Schema()
	}
	want := col.ColumnName()
	if id := schema.ColumnID(want); id != types.InvalidColumnID {
		return id
	}
	// Qualified reference against a stored table's bare column names.
	if id := schema.ColumnID(col.Name); id != types.InvalidColumnID {
		return id
	}
	// Unqualified reference against qualified schema names: match the
	// suffix after the dot.
	match := types.InvalidColumnID
	for i, def := range schema.Columns {
		if suffix, ok := strings.CutPrefix(def.Name, colQualifierPrefix(def.Name)); ok && suffix == want {
			if match != types.InvalidColumnID {
				return types.InvalidColumnID
			}
			match = types.ColumnID(i)
		}
	}
	return match
}

func colQualifierPrefix(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i+1]
	}
	return ""
}

func (ev *Evaluator) evaluateArithmetic(e *planner.ArithmeticExpression, row types.RowID) (types.Value, error) {
	left, err := ev.Evaluate(e.Left, row)
	if err != nil {
		return types.Value{}, err
	}
	right, err := ev.Evaluate(e.Right, row)
	if err != nil {
		return types.Value{}, err
	}
	if left.IsNull() || right.IsNull() {
		return types.NewNullValue(), nil
	}
	if !left.DataType().IsNumeric() || !right.DataType().IsNumeric() {
		return types.Value{}, errors.Newf(errors.RuntimeTypeMismatch,
			"cannot apply %s to %s and %s", e.Op, left.DataType().Name(), right.DataType().Name())
	}

	promoted, err := types.Promote(left.DataType(), right.DataType())
	if err != nil {
		return types.Value{}, errors.Newf(errors.RuntimeTypeMismatch, "%v", err)
	}

	if promoted.IsFloatingPoint() {
		fa, _ := left.AsFloat64()
		fb, _ := right.AsFloat64()
		var result float64
		switch e.Op {
		case planner.OpAdd:
			result = fa + fb
		case planner.OpSubtract:
			result = fa - fb
		case planner.OpMultiply:
			result = fa * fb
		case planner.OpDivide:
			if fb == 0 {
				return types.NewNullValue(), nil
			}
			result = fa / fb
		case planner.OpModulo:
			return types.Value{}, errors.Newf(errors.RuntimeTypeMismatch, "modulo requires integers")
		}
		return types.Cast(types.NewValue(result), promoted)
	}

	ia, _ := left.AsInt64()
	ib, _ := right.AsInt64()
	var result int64
	switch e.Op {
	case planner.OpAdd:
		result = ia + ib
	case planner.OpSubtract:
		result = ia - ib
	case planner.OpMultiply:
		result = ia * ib
	case planner.OpDivide:
		if ib == 0 {
			return types.NewNullValue(), nil
		}
		result = ia / ib
	case planner.OpModulo:
		if ib == 0 {
			return types.NewNullValue(), nil
		}
		result = ia % ib
	}

	v, err := types.Cast(types.NewValue(result), promoted)
	if err != nil {
		return types.Value{}, errors.OverflowError(promoted.Name())
	}
	return v, nil
}

func (ev *Evaluator) evaluateComparison(e *planner.BinaryPredicate, row types.RowID) (types.Value, error) {
	left, err := ev.Evaluate(e.Left, row)
	if err != nil {
		return types.Value{}, err
	}
	right, err := ev.Evaluate(e.Right, row)
	if err != nil {
		return types.Value{}, err
	}
	if left.IsNull() || right.IsNull() {
		return types.NewNullValue(), nil
	}

	switch e.Condition {
	case types.Like, types.NotLike:
		s, err1 := left.AsString()
		pattern, err2 := right.AsString()
		if err1 != nil || err2 != nil {
			return types.Value{}, errors.Newf(errors.RuntimeTypeMismatch, "LIKE requires strings")
		}
		matched := likeMatch(s, pattern)
		if e.Condition == types.NotLike {
			matched = !matched
		}
		return boolValue(matched), nil
	}

	if (left.DataType() == types.String) != (right.DataType() == types.String) {
		return types.Value{}, errors.Newf(errors.RuntimeTypeMismatch,
			"cannot compare %s with %s", left.DataType().Name(), right.DataType().Name())
	}
	return boolValue(e.Condition.Matches(left, right)), nil
}

// likeMatch implements SQL LIKE with % and _ wildcards.
func likeMatch(s, pattern string) bool {
	var match func(si, pi int) bool
	match = func(si, pi int) bool {
		for pi < len(pattern) {
			switch pattern[pi] {
			case '%':
				for i := si; i <= len(s); i++ {
					if match(i, pi+1) {
						return true
					}
				}
				return false
			case '_':
				if si >= len(s) {
					return false
				}
				si++
				pi++
			default:
				if si >= len(s) || s[si] != pattern[pi] {
					return false
				}
				si++
				pi++
			}
		}
		return si == len(s)
	}
	return match(0, 0)
}

func (ev *Evaluator) evaluateIn(e *planner.InExpression, row types.RowID) (types.Value, error) {
	operand, err := ev.Evaluate(e.Operand, row)
	if err != nil {
		return types.Value{}, err
	}
	if operand.IsNull() {
		return types.NewNullValue(), nil
	}

	// IN (subquery): the list holds exactly the subquery expression.
	if len(e.List) == 1 {
		if subquery, ok := e.List[0].(*planner.SubqueryExpression); ok {
			result, err := ev.runSubquery(subquery, row)
			if err != nil {
				return types.Value{}, err
			}
			found := false
			_ = forEachRow(result.Table, func(r types.RowID) error {
				if types.Equal(result.Table.Value(0, r), operand) {
					found = true
				}
				return nil
			})
			return boolValue(found), nil
		}
	}

	for _, item := range e.List {
		v, err := ev.Evaluate(item, row)
		if err != nil {
			return types.Value{}, err
		}
		if types.Equal(v, operand) {
			return boolValue(true), nil
		}
	}
	return boolValue(false), nil
}

func (ev *Evaluator) evaluateFunction(e *planner.FunctionExpression, row types.RowID) (types.Value, error) {
	args := make([]types.Value, len(e.Args))
	for i, arg := range e.Args {
		v, err := ev.Evaluate(arg, row)
		if err != nil {
			return types.Value{}, err
		}
		args[i] = v
	}
	for _, a := range args {
		if a.IsNull() {
			return types.NewNullValue(), nil
		}
	}

	switch e.Name {
	case "UPPER", "LOWER", "TRIM":
		s, err := args[0].AsString()
		if err != nil {
			return types.Value{}, errors.Newf(errors.RuntimeTypeMismatch, "%s requires a string", e.Name)
		}
		switch e.Name {
		case "UPPER":
			return types.NewValue(strings.ToUpper(s)), nil
		case "LOWER":
			return types.NewValue(strings.ToLower(s)), nil
		default:
			return types.NewValue(strings.TrimSpace(s)), nil
		}

	case "LENGTH":
		s, err := args[0].AsString()
		if err != nil {
			return types.Value{}, errors.Newf(errors.RuntimeTypeMismatch, "LENGTH requires a string")
		}
		return types.NewValue(int32(len(s))), nil

	case "CONCAT":
		var sb strings.Builder
		for _, a := range args {
			s, err := a.AsString()
			if err != nil {
				s = a.String()
			}
			sb.WriteString(s)
		}
		return types.NewValue(sb.String()), nil

	case "SUBSTR":
		if len(args) != 3 {
			return types.Value{}, errors.Newf(errors.RuntimeTypeMismatch, "SUBSTR requires 3 arguments")
		}
		s, err := args[0].AsString()
		if err != nil {
			return types.Value{}, errors.Newf(errors.RuntimeTypeMismatch, "SUBSTR requires a string")
		}
		start, _ := args[1].AsInt64()
		length, _ := args[2].AsInt64()
		if start < 1 {
			start = 1
		}
		from := int(start - 1)
		if from > len(s) {
			return types.NewValue(""), nil
		}
		to := from + int(length)
		if to > len(s) {
			to = len(s)
		}
		return types.NewValue(s[from:to]), nil

	case "ABS":
		switch d := args[0].Data.(type) {
		case int32:
			if d < 0 {
				return types.NewValue(-d), nil
			}
		case int64:
			if d < 0 {
				return types.NewValue(-d), nil
			}
		case float32:
			if d < 0 {
				return types.NewValue(-d), nil
			}
		case float64:
			if d < 0 {
				return types.NewValue(-d), nil
			}
		}
		return args[0], nil

	default:
		return types.Value{}, errors.Newf(errors.InternalError, "unknown function %s", e.Name)
	}
}

// runSubquery executes a correlated subquery for one row: the subplan is
// recreated, the correlated arguments are evaluated against the current
// row and bound as parameters, then the fresh plan runs to completion.
func (ev *Evaluator) runSubquery(subquery *planner.SubqueryExpression, row types.RowID) (*Result, error) {
	subplan, ok := ev.subqueries[subquery]
	if !ok {
		return nil, errors.Newf(errors.InternalError, "subquery has no translated plan")
	}

	params := make(map[types.ParameterID]types.Value, len(subquery.ParameterIDs))
	for k, v := range ev.params {
		params[k] = v
	}
	for i, id := range subquery.ParameterIDs {
		v, err := ev.Evaluate(subquery.CorrelatedArguments[i], row)
		if err != nil {
			return nil, err
		}
		params[id] = v
	}

	fresh := Recreate(subplan)
	SetParametersRecursively(fresh, params)
	if err := ExecuteSynchronously(fresh); err != nil {
		return nil, err
	}
	output := fresh.Output()
	if output == nil {
		return nil, errors.TransactionAbortedError()
	}
	return output, nil
}

// ExecuteSynchronously runs an operator DAG inline, inputs first, without
// the scheduler. Subquery evaluation and tests use it.
func ExecuteSynchronously(op Operator) error {
	if op == nil {
		return nil
	}
	visited := make(map[Operator]struct{})
	var run func(Operator) error
	run = func(o Operator) error {
		if o == nil {
			return nil
		}
		if _, seen := visited[o]; seen {
			return nil
		}
		visited[o] = struct{}{}
		if err := run(o.LeftInput()); err != nil {
			return err
		}
		if err := run(o.RightInput()); err != nil {
			return err
		}
		return o.Execute()
	}
	return run(op)
}
