package executor

import (
	"fmt"
	"sort"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/txn"
	"github.com/emberdb/ember/internal/types"
)

// Projection evaluates one expression per output column.
type Projection struct {
	baseOperator
	expressions []planner.Expression
	schema      *catalog.Schema
	params      map[types.ParameterID]types.Value
	subqueries  map[*planner.SubqueryExpression]Operator
}

// NewProjection creates a projection with a fixed output schema.
func NewProjection(expressions []planner.Expression, schema *catalog.Schema, input Operator) *Projection {
	op := &Projection{expressions: expressions, schema: schema}
	op.init(op, input, nil)
	return op
}

// WithSubqueries attaches translated subplans.
func (op *Projection) WithSubqueries(subqueries map[*planner.SubqueryExpression]Operator) *Projection {
	op.subqueries = subqueries
	return op
}

func (op *Projection) Description() string {
	return fmt.Sprintf("Projection(%d columns)", len(op.expressions))
}

func (op *Projection) onSetParameters(params map[types.ParameterID]types.Value) {
	op.params = params
}

func (op *Projection) onExecute(*txn.Context) (*Result, error) {
	input := op.left.Output()
	ev := NewEvaluator(input).WithParameters(op.params).WithSubqueries(op.subqueries)

	output := newOutputTable(op.schema)
	err := forEachRow(input.Table, func(row types.RowID) error {
		values := make([]types.Value, len(op.expressions))
		for i, expr := range op.expressions {
			v, err := ev.Evaluate(expr, row)
			if err != nil {
				return err
			}
			values[i] = v
		}
		return appendOutputRow(output, values)
	})
	if err != nil {
		return nil, err
	}
	return &Result{Table: output}, nil
}

func (op *Projection) onRecreate(left, right Operator) Operator {
	clone := &Projection{
		expressions: op.expressions,
		schema:      op.schema,
		params:      op.params,
		subqueries:  op.subqueries,
	}
	clone.init(clone, left, right)
	return clone
}

// Sort materializes its input in order.
type Sort struct {
	baseOperator
	orderBy []planner.OrderByDefinition
	params  map[types.ParameterID]types.Value
}

// NewSort creates a sort over an input.
func NewSort(orderBy []planner.OrderByDefinition, input Operator) *Sort {
	op := &Sort{orderBy: orderBy}
	op.init(op, input, nil)
	return op
}

func (op *Sort) Description() string {
	return fmt.Sprintf("Sort(%d keys)", len(op.orderBy))
}

func (op *Sort) onSetParameters(params map[types.ParameterID]types.Value) {
	op.params = params
}

func (op *Sort) onExecute(*txn.Context) (*Result, error) {
	input := op.left.Output()
	ev := NewEvaluator(input).WithParameters(op.params)

	rows := allRowIDs(input.Table)

	// Precompute sort keys once per row.
	keys := make([][]types.Value, len(rows))
	for i, row := range rows {
		key := make([]types.Value, len(op.orderBy))
		for k, def := range op.orderBy {
			v, err := ev.Evaluate(def.Expression, row)
			if err != nil {
				return nil, err
			}
			key[k] = v
		}
		keys[i] = key
	}

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		for k, def := range op.orderBy {
			c := types.Compare(keys[order[a]][k], keys[order[b]][k])
			if c == 0 {
				continue
			}
			if def.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	output := newOutputTable(input.Table.Schema())
	for _, i := range order {
		if err := appendOutputRow(output, readRow(input.Table, rows[i])); err != nil {
			return nil, err
		}
	}
	return &Result{Table: output}, nil
}

func (op *Sort) onRecreate(left, right Operator) Operator {
	clone := &Sort{orderBy: op.orderBy, params: op.params}
	clone.init(clone, left, right)
	return clone
}

// Limit passes through the first rows of its input.
type Limit struct {
	baseOperator
	numRows int64
	offset  int64
}

// NewLimit creates a limit over an input.
func NewLimit(numRows, offset int64, input Operator) *Limit {
	op := &Limit{numRows: numRows, offset: offset}
	op.init(op, input, nil)
	return op
}

func (op *Limit) Description() string {
	return fmt.Sprintf("Limit(%d)", op.numRows)
}

func (op *Limit) onExecute(*txn.Context) (*Result, error) {
	input := op.left.Output()
	output := newOutputTable(input.Table.Schema())

	skipped := int64(0)
	taken := int64(0)
	err := forEachRow(input.Table, func(row types.RowID) error {
		if skipped < op.offset {
			skipped++
			return nil
		}
		if taken >= op.numRows {
			return nil
		}
		taken++
		return appendOutputRow(output, readRow(input.Table, row))
	})
	if err != nil {
		return nil, err
	}
	return &Result{Table: output}, nil
}

func (op *Limit) onRecreate(left, right Operator) Operator {
	clone := &Limit{numRows: op.numRows, offset: op.offset}
	clone.init(clone, left, right)
	return clone
}

// UnionAll concatenates two inputs with matching schema widths.
type UnionAll struct {
	baseOperator
}

// NewUnionAll creates a bag union of two inputs.
func NewUnionAll(left, right Operator) *UnionAll {
	op := &UnionAll{}
	op.init(op, left, right)
	return op
}

func (op *UnionAll) Description() string { return "UnionAll" }

func (op *UnionAll) onExecute(*txn.Context) (*Result, error) {
	left := op.left.Output()
	right := op.right.Output()

	if len(left.Table.Schema().Columns) != len(right.Table.Schema().Columns) {
		return nil, errors.Newf(errors.RuntimeTypeMismatch,
			"union inputs have %d and %d columns",
			len(left.Table.Schema().Columns), len(right.Table.Schema().Columns))
	}

	output := newOutputTable(left.Table.Schema())
	for _, side := range []*Result{left, right} {
		err := forEachRow(side.Table, func(row types.RowID) error {
			return appendOutputRow(output, readRow(side.Table, row))
		})
		if err != nil {
			return nil, err
		}
	}
	return &Result{Table: output}, nil
}

func (op *UnionAll) onRecreate(left, right Operator) Operator {
	clone := &UnionAll{}
	clone.init(clone, left, right)
	return clone
}
