// Package executor holds the physical operators. Each operator mirrors one
// logical plan node and produces a fully materialized result exactly once;
// the scheduler drives a DAG of them through operator tasks.
package executor

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/storage"
	"github.com/emberdb/ember/internal/txn"
	"github.com/emberdb/ember/internal/types"
)

// OperatorState is the lifecycle of an operator. Terminal states are
// Executed and Aborted.
type OperatorState int32

const (
	Unexecuted OperatorState = iota
	Executing
	Executed
	Aborted
)

// Result is an operator's materialized output: the value table plus, when
// the rows come straight from a stored table, their row identities. Write
// operators need the provenance; everything else reads Table only.
type Result struct {
	Table  *storage.Table
	RowIDs []types.RowID
	// Source is the stored table RowIDs index into.
	Source *storage.Table
}

// Operator is a node of the physical execution DAG.
type Operator interface {
	// Execute runs the operator. All inputs must have executed before.
	Execute() error
	// Output returns the result, or nil before execution or after an
	// abort.
	Output() *Result
	// Description names the operator for plan printing.
	Description() string
	// LeftInput returns the first input operator, or nil.
	LeftInput() Operator
	// RightInput returns the second input operator, or nil.
	RightInput() Operator
	// State returns the lifecycle state.
	State() OperatorState
	// WallTime returns how long OnExecute ran.
	WallTime() time.Duration
	// SetTransactionContext attaches a transaction context to this
	// operator only.
	SetTransactionContext(*txn.Context)
	// SetParameters rebinds placeholder values on this operator only.
	SetParameters(map[types.ParameterID]types.Value)

	// Hooks implemented per operator.
	onExecute(ctx *txn.Context) (*Result, error)
	onCleanup()
	onRecreate(left, right Operator) Operator
	onSetParameters(params map[types.ParameterID]types.Value)

	base() *baseOperator
}

// baseOperator carries the shared execute state machine. Concrete
// operators embed it and hand themselves to init.
type baseOperator struct {
	self  Operator
	left  Operator
	right Operator

	state    atomic.Int32
	output   atomic.Pointer[Result]
	ctx      *txn.Context
	wallTime time.Duration

	// ClearOutput is only honored for operators that opt in.
	recyclable bool
}

func (b *baseOperator) init(self Operator, left, right Operator) {
	b.self = self
	b.left = left
	b.right = right
}

func (b *baseOperator) base() *baseOperator { return b }

func (b *baseOperator) LeftInput() Operator  { return b.left }
func (b *baseOperator) RightInput() Operator { return b.right }

func (b *baseOperator) State() OperatorState {
	return OperatorState(b.state.Load())
}

func (b *baseOperator) WallTime() time.Duration {
	return b.wallTime
}

// Output publishes via an atomic pointer: the executing worker stores it
// once, every later reader acquires it.
func (b *baseOperator) Output() *Result {
	return b.output.Load()
}

func (b *baseOperator) SetTransactionContext(ctx *txn.Context) {
	b.ctx = ctx
}

func (b *baseOperator) SetParameters(params map[types.ParameterID]types.Value) {
	b.self.onSetParameters(params)
}

// Execute runs the state machine around the operator hook: inputs must be
// done, output is produced exactly once, and an aborted transaction
// short-circuits without output.
func (b *baseOperator) Execute() error {
	for _, input := range []Operator{b.left, b.right} {
		if input == nil {
			continue
		}
		switch input.State() {
		case Executed:
		case Aborted:
			// Abort cascades: downstream operators of an aborted input
			// produce no output either.
			b.state.Store(int32(Aborted))
			return nil
		default:
			return errors.InternalErrorf("%s: input %s has not been executed", b.self.Description(), input.Description())
		}
	}
	if !b.state.CompareAndSwap(int32(Unexecuted), int32(Executing)) {
		return errors.InternalErrorf("%s: operator has already been executed", b.self.Description())
	}

	started := time.Now()

	if b.ctx != nil {
		if b.ctx.Aborted() {
			b.state.Store(int32(Aborted))
			return nil
		}
		b.ctx.OnOperatorStarted()
		defer b.ctx.OnOperatorFinished()
	}

	result, err := b.self.onExecute(b.ctx)
	b.self.onCleanup()
	b.wallTime = time.Since(started)

	if err != nil {
		if b.ctx != nil {
			b.ctx.Abort()
		}
		b.state.Store(int32(Aborted))
		return err
	}

	b.output.Store(result)
	b.state.Store(int32(Executed))
	return nil
}

// ClearOutput re-enters Unexecuted, but only for operators that opted into
// result recycling.
func (b *baseOperator) ClearOutput() {
	if !b.recyclable {
		return
	}
	b.output.Store(nil)
	b.state.Store(int32(Unexecuted))
}

// Recreate clones the DAG below self. The memo keeps shared sub-DAGs
// shared in the copy.
func recreate(op Operator, memo map[Operator]Operator) Operator {
	if op == nil {
		return nil
	}
	if copied, ok := memo[op]; ok {
		return copied
	}

	left := recreate(op.LeftInput(), memo)
	right := recreate(op.RightInput(), memo)

	copied := op.onRecreate(left, right)
	if ctx := op.base().ctx; ctx != nil {
		copied.SetTransactionContext(ctx)
	}
	memo[op] = copied
	return copied
}

// Default hook implementations.

func (b *baseOperator) onCleanup() {}

func (b *baseOperator) onSetParameters(map[types.ParameterID]types.Value) {}

// SetTransactionContextRecursively attaches a context to a whole DAG.
func SetTransactionContextRecursively(op Operator, ctx *txn.Context) {
	if op == nil {
		return
	}
	op.SetTransactionContext(ctx)
	SetTransactionContextRecursively(op.LeftInput(), ctx)
	SetTransactionContextRecursively(op.RightInput(), ctx)
}

// SetParametersRecursively rebinds placeholders across a whole DAG.
func SetParametersRecursively(op Operator, params map[types.ParameterID]types.Value) {
	if op == nil {
		return
	}
	op.SetParameters(params)
	SetParametersRecursively(op.LeftInput(), params)
	SetParametersRecursively(op.RightInput(), params)
}

// Recreate clones an operator DAG for re-execution, e.g. after a replan or
// under a new transaction context.
func Recreate(op Operator) Operator {
	return recreate(op, make(map[Operator]Operator))
}

// PrintOperators renders the operator DAG for debugging.
func PrintOperators(root Operator) string {
	var render func(op Operator, indent string) string
	render = func(op Operator, indent string) string {
		if op == nil {
			return ""
		}
		line := indent + op.Description()
		if out := op.Output(); out != nil && out.Table != nil {
			line += fmt.Sprintf(" (%d rows, %s)", out.Table.RowCount(), op.WallTime())
		}
		return line + "\n" + render(op.LeftInput(), indent+"  ") + render(op.RightInput(), indent+"  ")
	}
	return render(root, "")
}
