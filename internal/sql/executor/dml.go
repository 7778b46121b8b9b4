package executor

import (
	"fmt"

	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/storage"
	"github.com/emberdb/ember/internal/txn"
	"github.com/emberdb/ember/internal/types"
)

// Insert appends its input's rows to a stored table. The rows stay
// invisible until the transaction commits; rollback leaves them dead.
type Insert struct {
	baseOperator
	tableName string
	table     *storage.Table
	txnLogger txn.Logger
}

// NewInsert creates an insert into the given table.
func NewInsert(tableName string, table *storage.Table, txnLogger txn.Logger, input Operator) *Insert {
	if txnLogger == nil {
		txnLogger = txn.NewInitialLogger()
	}
	op := &Insert{tableName: tableName, table: table, txnLogger: txnLogger}
	op.init(op, input, nil)
	return op
}

func (op *Insert) Description() string {
	return fmt.Sprintf("Insert(%s)", op.tableName)
}

func (op *Insert) onExecute(ctx *txn.Context) (*Result, error) {
	input := op.left.Output()

	tid := types.InvalidTransactionID
	if ctx != nil {
		tid = ctx.Tid()
	}

	var inserted []types.RowID
	err := forEachRow(input.Table, func(row types.RowID) error {
		values := readRow(input.Table, row)
		rowID, err := op.table.AppendRow(values, tid)
		if err != nil {
			return err
		}
		inserted = append(inserted, rowID)
		op.txnLogger.LogValue(tid, rowID, values)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ctx != nil {
		table := op.table
		ctx.RegisterCommitListener(func(cid types.CommitID) {
			for _, row := range inserted {
				mvcc := table.Chunk(row.Chunk).Mvcc()
				mvcc.SetBegin(row.Offset, cid)
				mvcc.SetTid(row.Offset, types.InvalidTransactionID)
			}
		})
		// Rolled-back inserts keep begin = MaxCommitID and stay invisible
		// forever; only the tid slot is released.
		ctx.RegisterRollbackListener(func() {
			for _, row := range inserted {
				table.Chunk(row.Chunk).Mvcc().SetTid(row.Offset, types.InvalidTransactionID)
			}
		})
	} else {
		for _, row := range inserted {
			mvcc := op.table.Chunk(row.Chunk).Mvcc()
			mvcc.SetBegin(row.Offset, 0)
			mvcc.SetTid(row.Offset, types.InvalidTransactionID)
		}
	}

	return &Result{Table: newOutputTable(op.table.Schema())}, nil
}

func (op *Insert) onRecreate(left, right Operator) Operator {
	clone := &Insert{tableName: op.tableName, table: op.table, txnLogger: op.txnLogger}
	clone.init(clone, left, right)
	return clone
}

// Delete invalidates its input rows. It claims each row's tid slot; a
// conflicting claim aborts the transaction.
type Delete struct {
	baseOperator
	tableName string
	txnLogger txn.Logger
}

// NewDelete creates a delete fed by a row-selecting input.
func NewDelete(tableName string, txnLogger txn.Logger, input Operator) *Delete {
	if txnLogger == nil {
		txnLogger = txn.NewInitialLogger()
	}
	op := &Delete{tableName: tableName, txnLogger: txnLogger}
	op.init(op, input, nil)
	return op
}

func (op *Delete) Description() string {
	return fmt.Sprintf("Delete(%s)", op.tableName)
}

// claimRows claims the tid slots of every row, rolling back the claims on
// conflict.
func claimRows(source *storage.Table, rows []types.RowID, tid types.TransactionID, tableName string) error {
	var claimed []types.RowID
	for _, row := range rows {
		mvcc := source.Chunk(row.Chunk).Mvcc()
		if !mvcc.ClaimTid(row.Offset, tid) {
			for _, c := range claimed {
				source.Chunk(c.Chunk).Mvcc().SetTid(c.Offset, types.InvalidTransactionID)
			}
			return errors.TransactionConflictError(tableName)
		}
		claimed = append(claimed, row)
	}
	return nil
}

func (op *Delete) onExecute(ctx *txn.Context) (*Result, error) {
	input := op.left.Output()
	if input.Source == nil {
		return nil, errors.Newf(errors.InternalError, "delete input carries no row identities")
	}
	if ctx == nil {
		return nil, errors.Newf(errors.InternalError, "delete requires a transaction context")
	}

	source := input.Source
	rows := input.RowIDs
	if err := claimRows(source, rows, ctx.Tid(), op.tableName); err != nil {
		return nil, err
	}
	for _, row := range rows {
		op.txnLogger.LogInvalidate(ctx.Tid(), row)
	}

	ctx.RegisterCommitListener(func(cid types.CommitID) {
		for _, row := range rows {
			mvcc := source.Chunk(row.Chunk).Mvcc()
			mvcc.SetEnd(row.Offset, cid)
			mvcc.SetTid(row.Offset, types.InvalidTransactionID)
		}
	})
	ctx.RegisterRollbackListener(func() {
		for _, row := range rows {
			source.Chunk(row.Chunk).Mvcc().SetTid(row.Offset, types.InvalidTransactionID)
		}
	})

	return &Result{Table: newOutputTable(input.Table.Schema())}, nil
}

func (op *Delete) onRecreate(left, right Operator) Operator {
	clone := &Delete{tableName: op.tableName, txnLogger: op.txnLogger}
	clone.init(clone, left, right)
	return clone
}

// Update deletes the selected rows and inserts rewritten versions, the
// MVCC way of updating in place.
type Update struct {
	baseOperator
	tableName      string
	table          *storage.Table
	setColumns     []string
	setExpressions []planner.Expression
	txnLogger      txn.Logger
	params         map[types.ParameterID]types.Value
}

// NewUpdate creates an update fed by a row-selecting input.
func NewUpdate(tableName string, table *storage.Table, setColumns []string, setExpressions []planner.Expression, txnLogger txn.Logger, input Operator) *Update {
	if txnLogger == nil {
		txnLogger = txn.NewInitialLogger()
	}
	op := &Update{
		tableName:      tableName,
		table:          table,
		setColumns:     setColumns,
		setExpressions: setExpressions,
		txnLogger:      txnLogger,
	}
	op.init(op, input, nil)
	return op
}

func (op *Update) Description() string {
	return fmt.Sprintf("Update(%s)", op.tableName)
}

func (op *Update) onSetParameters(params map[types.ParameterID]types.Value) {
	op.params = params
}

func (op *Update) onExecute(ctx *txn.Context) (*Result, error) {
	input := op.left.Output()
	if input.Source == nil {
		return nil, errors.Newf(errors.InternalError, "update input carries no row identities")
	}
	if ctx == nil {
		return nil, errors.Newf(errors.InternalError, "update requires a transaction context")
	}

	source := input.Source
	oldRows := input.RowIDs
	if err := claimRows(source, oldRows, ctx.Tid(), op.tableName); err != nil {
		return nil, err
	}

	schema := op.table.Schema()
	positions := make([]types.ColumnID, len(op.setColumns))
	for i, name := range op.setColumns {
		positions[i] = schema.ColumnID(name)
		if positions[i] == types.InvalidColumnID {
			return nil, errors.ColumnNotFoundError(name)
		}
	}

	ev := NewEvaluator(input).WithParameters(op.params)

	// Insert the rewritten rows, invisible until commit.
	var newRows []types.RowID
	for i, inputRow := range allRowIDs(input.Table) {
		values := readRow(input.Table, inputRow)
		for k, pos := range positions {
			v, err := ev.Evaluate(op.setExpressions[k], inputRow)
			if err != nil {
				return nil, err
			}
			values[pos] = v
		}
		rowID, err := op.table.AppendRow(values, ctx.Tid())
		if err != nil {
			return nil, err
		}
		newRows = append(newRows, rowID)
		op.txnLogger.LogValue(ctx.Tid(), rowID, values)
		op.txnLogger.LogInvalidate(ctx.Tid(), oldRows[i])
	}

	table := op.table
	ctx.RegisterCommitListener(func(cid types.CommitID) {
		for _, row := range oldRows {
			mvcc := source.Chunk(row.Chunk).Mvcc()
			mvcc.SetEnd(row.Offset, cid)
			mvcc.SetTid(row.Offset, types.InvalidTransactionID)
		}
		for _, row := range newRows {
			mvcc := table.Chunk(row.Chunk).Mvcc()
			mvcc.SetBegin(row.Offset, cid)
			mvcc.SetTid(row.Offset, types.InvalidTransactionID)
		}
	})
	ctx.RegisterRollbackListener(func() {
		for _, row := range oldRows {
			source.Chunk(row.Chunk).Mvcc().SetTid(row.Offset, types.InvalidTransactionID)
		}
		for _, row := range newRows {
			table.Chunk(row.Chunk).Mvcc().SetTid(row.Offset, types.InvalidTransactionID)
		}
	})

	return &Result{Table: newOutputTable(schema)}, nil
}

func (op *Update) onRecreate(left, right Operator) Operator {
	clone := &Update{
		tableName:      op.tableName,
		table:          op.table,
		setColumns:     op.setColumns,
		setExpressions: op.setExpressions,
		txnLogger:      op.txnLogger,
		params:         op.params,
	}
	clone.init(clone, left, right)
	return clone
}
