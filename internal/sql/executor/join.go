package executor

import (
	"fmt"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/txn"
	"github.com/emberdb/ember/internal/types"
)

// joinOutputSchema concatenates the input schemas; semi and anti joins
// keep the left side only.
func joinOutputSchema(mode planner.JoinMode, left, right *catalog.Schema) *catalog.Schema {
	if mode == planner.JoinSemi || mode == planner.JoinAnti {
		return left.Clone()
	}
	columns := append([]catalog.ColumnDefinition(nil), left.Columns...)
	if mode == planner.JoinLeft || mode == planner.JoinFull {
		for _, col := range right.Columns {
			col.Nullable = true
			columns = append(columns, col)
		}
	} else {
		columns = append(columns, right.Columns...)
	}
	if mode == planner.JoinRight || mode == planner.JoinFull {
		for i := range left.Columns {
			columns[i].Nullable = true
		}
	}
	return &catalog.Schema{Columns: columns}
}

// NestedLoopJoin evaluates an arbitrary predicate over every row pair. It
// covers every join mode; the hash join takes over for inner equi-joins.
type NestedLoopJoin struct {
	baseOperator
	mode      planner.JoinMode
	predicate planner.Expression
	schema    *catalog.Schema
	params    map[types.ParameterID]types.Value
}

// NewNestedLoopJoin creates a join over two inputs. The predicate is nil
// for cross joins.
func NewNestedLoopJoin(mode planner.JoinMode, predicate planner.Expression, left, right Operator) *NestedLoopJoin {
	op := &NestedLoopJoin{mode: mode, predicate: predicate}
	op.init(op, left, right)
	return op
}

// WithOutputSchema overrides the derived output schema, e.g. with the plan
// node's qualified column names so references above a self join stay
// unambiguous.
func (op *NestedLoopJoin) WithOutputSchema(schema *catalog.Schema) *NestedLoopJoin {
	op.schema = schema
	return op
}

func (op *NestedLoopJoin) Description() string {
	return fmt.Sprintf("NestedLoopJoin(%s)", op.mode)
}

func (op *NestedLoopJoin) onSetParameters(params map[types.ParameterID]types.Value) {
	op.params = params
}

func (op *NestedLoopJoin) onExecute(*txn.Context) (*Result, error) {
	left := op.left.Output()
	right := op.right.Output()

	outSchema := op.schema
	if outSchema == nil {
		outSchema = joinOutputSchema(op.mode, left.Table.Schema(), right.Table.Schema())
	}
	output := newOutputTable(outSchema)

	leftRows := allRowIDs(left.Table)
	rightRows := allRowIDs(right.Table)
	rightWidth := len(right.Table.Schema().Columns)
	leftWidth := len(left.Table.Schema().Columns)

	// Candidate pairs are tested against a virtual combined row. When the
	// plan supplied a qualified schema and the output covers both sides,
	// the predicate resolves against it.
	combined := joinOutputSchema(planner.JoinInner, left.Table.Schema(), right.Table.Schema())
	if op.schema != nil && op.mode != planner.JoinSemi && op.mode != planner.JoinAnti {
		combined = op.schema
	}
	ev := NewRowEvaluator(combined)
	ev.WithParameters(op.params)

	matchedRight := make([]bool, len(rightRows))

	for _, lr := range leftRows {
		leftValues := readRow(left.Table, lr)
		matched := false

		for ri, rr := range rightRows {
			rightValues := readRow(right.Table, rr)

			ok := true
			if op.predicate != nil {
				pair := append(append([]types.Value(nil), leftValues...), rightValues...)
				ev.SetRow(pair)
				var err error
				ok, err = ev.Matches(op.predicate, types.RowID{})
				if err != nil {
					return nil, err
				}
			}
			if !ok {
				continue
			}
			matched = true
			matchedRight[ri] = true

			switch op.mode {
			case planner.JoinSemi, planner.JoinAnti:
				// Row-level emit handled below.
			default:
				pair := append(append([]types.Value(nil), leftValues...), rightValues...)
				if err := appendOutputRow(output, pair); err != nil {
					return nil, err
				}
			}
			if op.mode == planner.JoinSemi {
				break
			}
		}

		switch op.mode {
		case planner.JoinSemi:
			if matched {
				if err := appendOutputRow(output, leftValues); err != nil {
					return nil, err
				}
			}
		case planner.JoinAnti:
			if !matched {
				if err := appendOutputRow(output, leftValues); err != nil {
					return nil, err
				}
			}
		case planner.JoinLeft, planner.JoinFull:
			if !matched {
				padded := append(append([]types.Value(nil), leftValues...), nullRow(rightWidth)...)
				if err := appendOutputRow(output, padded); err != nil {
					return nil, err
				}
			}
		}
	}

	if op.mode == planner.JoinRight || op.mode == planner.JoinFull {
		for ri, rr := range rightRows {
			if matchedRight[ri] {
				continue
			}
			padded := append(nullRow(leftWidth), readRow(right.Table, rr)...)
			if err := appendOutputRow(output, padded); err != nil {
				return nil, err
			}
		}
	}

	return &Result{Table: output}, nil
}

func nullRow(width int) []types.Value {
	values := make([]types.Value, width)
	for i := range values {
		values[i] = types.NewNullValue()
	}
	return values
}

func (op *NestedLoopJoin) onRecreate(left, right Operator) Operator {
	clone := &NestedLoopJoin{mode: op.mode, params: op.params, predicate: op.predicate, schema: op.schema}
	clone.init(clone, left, right)
	return clone
}

// HashJoin performs an inner equi-join: build on the right input, probe
// with the left.
type HashJoin struct {
	baseOperator
	predicate   planner.Expression
	leftColumn  types.ColumnID
	rightColumn types.ColumnID
	schema      *catalog.Schema

	hashTable map[uint64][]types.RowID
}

// NewHashJoin creates an inner equi-join over the decomposed column pair.
func NewHashJoin(predicate planner.Expression, leftColumn, rightColumn types.ColumnID, left, right Operator) *HashJoin {
	op := &HashJoin{predicate: predicate, leftColumn: leftColumn, rightColumn: rightColumn}
	op.init(op, left, right)
	return op
}

// WithOutputSchema overrides the derived output schema.
func (op *HashJoin) WithOutputSchema(schema *catalog.Schema) *HashJoin {
	op.schema = schema
	return op
}

func (op *HashJoin) Description() string {
	return fmt.Sprintf("HashJoin(%s)", op.predicate.ColumnName())
}

func (op *HashJoin) onExecute(*txn.Context) (*Result, error) {
	left := op.left.Output()
	right := op.right.Output()

	// Build side: hash every right row by its join key.
	op.hashTable = make(map[uint64][]types.RowID)
	err := forEachRow(right.Table, func(row types.RowID) error {
		key := right.Table.Value(op.rightColumn, row)
		if key.IsNull() {
			return nil
		}
		h := types.Hash(key)
		op.hashTable[h] = append(op.hashTable[h], row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	outSchema := op.schema
	if outSchema == nil {
		outSchema = joinOutputSchema(planner.JoinInner, left.Table.Schema(), right.Table.Schema())
	}
	output := newOutputTable(outSchema)

	err = forEachRow(left.Table, func(row types.RowID) error {
		key := left.Table.Value(op.leftColumn, row)
		if key.IsNull() {
			return nil
		}
		for _, candidate := range op.hashTable[types.Hash(key)] {
			// Hash collisions resolve by comparing the actual keys.
			if !types.Equal(right.Table.Value(op.rightColumn, candidate), key) {
				continue
			}
			pair := append(readRow(left.Table, row), readRow(right.Table, candidate)...)
			if err := appendOutputRow(output, pair); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Result{Table: output}, nil
}

// onCleanup drops the build-side hash table once the output exists.
func (op *HashJoin) onCleanup() {
	op.hashTable = nil
}

func (op *HashJoin) onRecreate(left, right Operator) Operator {
	clone := &HashJoin{
		predicate:   op.predicate,
		leftColumn:  op.leftColumn,
		rightColumn: op.rightColumn,
		schema:      op.schema,
	}
	clone.init(clone, left, right)
	return clone
}
