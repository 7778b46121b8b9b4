package executor

import (
	"fmt"

	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/storage"
	"github.com/emberdb/ember/internal/txn"
	"github.com/emberdb/ember/internal/types"
)

// TableScan filters its input row by row with a predicate expression.
type TableScan struct {
	baseOperator
	predicate  planner.Expression
	params     map[types.ParameterID]types.Value
	subqueries map[*planner.SubqueryExpression]Operator
}

// NewTableScan creates a scan with a predicate over an input.
func NewTableScan(predicate planner.Expression, input Operator) *TableScan {
	op := &TableScan{predicate: predicate}
	op.init(op, input, nil)
	return op
}

// WithSubqueries attaches translated subplans for subquery expressions
// inside the predicate.
func (op *TableScan) WithSubqueries(subqueries map[*planner.SubqueryExpression]Operator) *TableScan {
	op.subqueries = subqueries
	return op
}

func (op *TableScan) Description() string {
	return fmt.Sprintf("TableScan(%s)", op.predicate.ColumnName())
}

func (op *TableScan) onSetParameters(params map[types.ParameterID]types.Value) {
	op.params = params
}

func (op *TableScan) onExecute(*txn.Context) (*Result, error) {
	input := op.left.Output()
	ev := NewEvaluator(input).WithParameters(op.params).WithSubqueries(op.subqueries)

	output := newOutputTable(input.Table.Schema())
	var kept []types.RowID
	keepIDs := input.RowIDs != nil

	err := forEachRow(input.Table, func(row types.RowID) error {
		matches, err := ev.Matches(op.predicate, row)
		if err != nil {
			return err
		}
		if !matches {
			return nil
		}
		if keepIDs {
			kept = append(kept, op.sourceRowID(input, row))
		}
		return appendOutputRow(output, readRow(input.Table, row))
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Table: output}
	if keepIDs {
		result.RowIDs = kept
		result.Source = input.Source
	}
	return result, nil
}

// sourceRowID maps a position in the input table back to the stored row it
// came from.
func (op *TableScan) sourceRowID(input *Result, row types.RowID) types.RowID {
	if input.Table == input.Source {
		return row
	}
	// Materialized inputs carry their provenance positionally.
	index := 0
	for c := types.ChunkID(0); c < types.ChunkID(row.Chunk); c++ {
		index += input.Table.Chunk(c).Size()
	}
	index += int(row.Offset)
	return input.RowIDs[index]
}

// onRecreate shares the predicate tree: expressions are read-only at
// runtime, and sharing keeps the subquery subplan map's keys valid.
func (op *TableScan) onRecreate(left, right Operator) Operator {
	clone := &TableScan{
		predicate:  op.predicate,
		params:     op.params,
		subqueries: op.subqueries,
	}
	clone.init(clone, left, right)
	return clone
}

// IndexScan answers a single-column predicate from a group-key index
// instead of scanning every row. It sits directly on a GetTable input.
type IndexScan struct {
	baseOperator
	predicate planner.Expression
	column    types.ColumnID
	condition types.PredicateCondition
	value     types.Value
}

// NewIndexScan creates an index scan. The decomposed predicate pieces come
// from the optimizer's rewrite.
func NewIndexScan(predicate planner.Expression, column types.ColumnID, condition types.PredicateCondition, value types.Value, input Operator) *IndexScan {
	op := &IndexScan{predicate: predicate, column: column, condition: condition, value: value}
	op.init(op, input, nil)
	return op
}

func (op *IndexScan) Description() string {
	return fmt.Sprintf("IndexScan(%s)", op.predicate.ColumnName())
}

func (op *IndexScan) onExecute(*txn.Context) (*Result, error) {
	input := op.left.Output()
	if input.Source == nil {
		return nil, errors.Newf(errors.InternalError, "index scan requires a stored-table input")
	}

	var index *storage.Index
	for _, ix := range input.Source.IndexesOn(op.column) {
		if ix.Kind() == storage.GroupKeyIndex && ix.IsSingleColumn() {
			index = ix
			break
		}
	}
	if index == nil {
		return nil, errors.Newf(errors.InternalError,
			"no group-key index on column %d of scanned table", op.column)
	}

	rows := index.Scan(op.condition, op.value)
	output := newOutputTable(input.Table.Schema())
	for _, row := range rows {
		if err := appendOutputRow(output, readRow(input.Source, row)); err != nil {
			return nil, err
		}
	}

	return &Result{Table: output, RowIDs: rows, Source: input.Source}, nil
}

func (op *IndexScan) onRecreate(left, right Operator) Operator {
	clone := &IndexScan{
		predicate: op.predicate,
		column:    op.column,
		condition: op.condition,
		value:     op.value,
	}
	clone.init(clone, left, right)
	return clone
}
