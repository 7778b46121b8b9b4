package executor

import (
	"fmt"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/storage"
	"github.com/emberdb/ember/internal/txn"
	"github.com/emberdb/ember/internal/types"
)

// GetTable exposes a stored table as an operator result. Every row slot is
// included; Validate filters visibility when the query is transactional.
type GetTable struct {
	baseOperator
	name  string
	table *storage.Table
}

// NewGetTable creates the leaf operator for a stored table.
func NewGetTable(name string, table *storage.Table) *GetTable {
	op := &GetTable{name: name, table: table}
	op.init(op, nil, nil)
	// A table fetch holds no scratch state and may be re-executed after
	// ClearOutput.
	op.recyclable = true
	return op
}

func (op *GetTable) Description() string {
	return fmt.Sprintf("GetTable(%s)", op.name)
}

func (op *GetTable) onExecute(*txn.Context) (*Result, error) {
	return &Result{
		Table:  op.table,
		RowIDs: allRowIDs(op.table),
		Source: op.table,
	}, nil
}

func (op *GetTable) onRecreate(left, right Operator) Operator {
	return NewGetTable(op.name, op.table)
}

// Validate filters its input to the rows visible to the transaction:
// committed at or before the snapshot, not deleted at the snapshot, or
// written by the transaction itself.
type Validate struct {
	baseOperator
}

// NewValidate creates a validate operator over an input.
func NewValidate(input Operator) *Validate {
	op := &Validate{}
	op.init(op, input, nil)
	return op
}

func (op *Validate) Description() string { return "Validate" }

func (op *Validate) onExecute(ctx *txn.Context) (*Result, error) {
	input := op.left.Output()
	if input.Source == nil || input.Source != input.Table {
		return nil, fmt.Errorf("validate requires direct stored-table input")
	}

	tid := types.InvalidTransactionID
	snapshot := types.MaxCommitID
	if ctx != nil {
		tid = ctx.Tid()
		snapshot = ctx.SnapshotCommitID()
	}

	output := newOutputTable(input.Table.Schema())
	var visible []types.RowID
	for _, row := range input.RowIDs {
		mvcc := input.Source.Chunk(row.Chunk).Mvcc()
		if !mvcc.Visible(row.Offset, tid, snapshot) {
			continue
		}
		if err := appendOutputRow(output, readRow(input.Table, row)); err != nil {
			return nil, err
		}
		visible = append(visible, row)
	}

	return &Result{Table: output, RowIDs: visible, Source: input.Source}, nil
}

func (op *Validate) onRecreate(left, right Operator) Operator {
	clone := &Validate{}
	clone.init(clone, left, right)
	return clone
}

// StaticTable materializes literal rows, e.g. an INSERT's VALUES clause.
type StaticTable struct {
	baseOperator
	schema *catalog.Schema
	rows   [][]planner.Expression
	params map[types.ParameterID]types.Value
}

// NewStaticTable creates a literal-row leaf.
func NewStaticTable(schema *catalog.Schema, rows [][]planner.Expression) *StaticTable {
	op := &StaticTable{schema: schema, rows: rows}
	op.init(op, nil, nil)
	return op
}

func (op *StaticTable) Description() string {
	return fmt.Sprintf("StaticTable(%d rows)", len(op.rows))
}

func (op *StaticTable) onSetParameters(params map[types.ParameterID]types.Value) {
	op.params = params
}

func (op *StaticTable) onExecute(*txn.Context) (*Result, error) {
	output := newOutputTable(op.schema)
	// Literal rows have no input; evaluate against an empty result.
	ev := NewEvaluator(&Result{Table: output}).WithParameters(op.params)

	for _, row := range op.rows {
		values := make([]types.Value, len(row))
		for i, expr := range row {
			v, err := ev.Evaluate(expr, types.RowID{})
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		if err := appendOutputRow(output, values); err != nil {
			return nil, err
		}
	}
	return &Result{Table: output}, nil
}

func (op *StaticTable) onRecreate(left, right Operator) Operator {
	clone := NewStaticTable(op.schema, op.rows)
	clone.params = op.params
	return clone
}
