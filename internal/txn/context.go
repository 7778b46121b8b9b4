package txn

import (
	"sync"
	"sync/atomic"

	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/types"
)

// Phase is the lifecycle state of a transaction context.
type Phase int32

const (
	Active Phase = iota
	Committing
	Committed
	RolledBack
)

func (p Phase) String() string {
	switch p {
	case Active:
		return "Active"
	case Committing:
		return "Committing"
	case Committed:
		return "Committed"
	case RolledBack:
		return "RolledBack"
	default:
		return "Unknown"
	}
}

// Context carries one query's transactional state across the operators
// executing it. Operators consult the aborted flag at entry and report
// themselves through the operator counter; commit is gated on that counter
// reaching zero.
type Context struct {
	manager *Manager

	tid      types.TransactionID
	snapshot types.CommitID

	phase           atomic.Int32
	aborted         atomic.Bool
	operatorCounter atomic.Int64

	mu                sync.Mutex
	commitListeners   []func(types.CommitID)
	rollbackListeners []func()
}

// Tid returns the transaction ID.
func (c *Context) Tid() types.TransactionID {
	return c.tid
}

// SnapshotCommitID returns the commit ID this transaction reads at. Rows
// committed later are invisible.
func (c *Context) SnapshotCommitID() types.CommitID {
	return c.snapshot
}

// Phase returns the lifecycle phase.
func (c *Context) Phase() Phase {
	return Phase(c.phase.Load())
}

// Aborted reports whether the transaction was aborted. Operators load this
// with acquire semantics at entry and produce no output when set.
func (c *Context) Aborted() bool {
	return c.aborted.Load()
}

// Abort marks the transaction aborted. Idempotent and irreversible; running
// operators finish their current step, unstarted ones return immediately.
func (c *Context) Abort() {
	c.aborted.Store(true)
}

// OnOperatorStarted counts an operator entering execution.
func (c *Context) OnOperatorStarted() {
	c.operatorCounter.Add(1)
}

// OnOperatorFinished counts an operator leaving execution.
func (c *Context) OnOperatorFinished() {
	if c.operatorCounter.Add(-1) < 0 {
		panic("operator counter went negative")
	}
}

// OperatorCount returns the number of in-flight operators.
func (c *Context) OperatorCount() int64 {
	return c.operatorCounter.Load()
}

// RegisterCommitListener adds a callback fired with the commit ID when the
// transaction commits. Write operators use this to publish their rows.
func (c *Context) RegisterCommitListener(fn func(types.CommitID)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commitListeners = append(c.commitListeners, fn)
}

// RegisterRollbackListener adds a callback fired when the transaction rolls
// back. Write operators use this to release claimed rows.
func (c *Context) RegisterRollbackListener(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollbackListeners = append(c.rollbackListeners, fn)
}

// Commit finishes the transaction. It is rejected while operators are in
// flight or after an abort.
func (c *Context) Commit() error {
	if c.Aborted() {
		return errors.New(errors.TransactionAborted, "cannot commit an aborted transaction")
	}
	if n := c.operatorCounter.Load(); n > 0 {
		return errors.Newf(errors.InternalError, "cannot commit with %d operators in flight", n)
	}
	if !c.phase.CompareAndSwap(int32(Active), int32(Committing)) {
		return errors.Newf(errors.InternalError, "cannot commit transaction in phase %s", c.Phase())
	}

	commitCtx := c.manager.prepareCommit(c)
	c.manager.commit(commitCtx, func(cid types.CommitID) {
		c.mu.Lock()
		listeners := c.commitListeners
		c.mu.Unlock()
		for _, fn := range listeners {
			fn(cid)
		}
	})

	c.phase.Store(int32(Committed))
	c.manager.forget(c)
	return nil
}

// Rollback aborts (if not already) and undoes the transaction's writes.
func (c *Context) Rollback() error {
	c.Abort()
	if n := c.operatorCounter.Load(); n > 0 {
		return errors.Newf(errors.InternalError, "cannot roll back with %d operators in flight", n)
	}
	if !c.phase.CompareAndSwap(int32(Active), int32(RolledBack)) {
		return errors.Newf(errors.InternalError, "cannot roll back transaction in phase %s", c.Phase())
	}

	c.mu.Lock()
	listeners := c.rollbackListeners
	c.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}

	c.manager.forget(c)
	return nil
}
