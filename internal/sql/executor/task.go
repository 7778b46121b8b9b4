package executor

import (
	"sync"

	"github.com/emberdb/ember/internal/scheduler"
)

// OperatorTasks is an operator DAG lowered to scheduler tasks: one task
// per operator, linked along the data dependencies. The first task error
// is retained; the transaction context was already aborted by the failing
// operator, so the remaining tasks short-circuit.
type OperatorTasks struct {
	Tasks []*scheduler.Task
	Root  *scheduler.Task

	mu  sync.Mutex
	err error
}

// Err returns the first operator error, if any.
func (ot *OperatorTasks) Err() error {
	ot.mu.Lock()
	defer ot.mu.Unlock()
	return ot.err
}

func (ot *OperatorTasks) recordError(err error) {
	ot.mu.Lock()
	defer ot.mu.Unlock()
	if ot.err == nil {
		ot.err = err
	}
}

// MakeTasks builds the task DAG for an operator DAG. Tasks appear in
// dependency order (inputs first), ready for ScheduleAll.
func MakeTasks(root Operator) *OperatorTasks {
	ot := &OperatorTasks{}
	memo := make(map[Operator]*scheduler.Task)
	ot.Root = ot.taskFor(root, memo)
	return ot
}

func (ot *OperatorTasks) taskFor(op Operator, memo map[Operator]*scheduler.Task) *scheduler.Task {
	if op == nil {
		return nil
	}
	if task, ok := memo[op]; ok {
		return task
	}

	left := ot.taskFor(op.LeftInput(), memo)
	right := ot.taskFor(op.RightInput(), memo)

	task := scheduler.NewNamedTask(op.Description(), func() {
		if err := op.Execute(); err != nil {
			ot.recordError(err)
		}
	})
	if left != nil {
		left.SetAsPredecessorOf(task)
	}
	if right != nil {
		right.SetAsPredecessorOf(task)
	}

	memo[op] = task
	ot.Tasks = append(ot.Tasks, task)
	return task
}

// Wait blocks until the root task is done and returns the first error.
func (ot *OperatorTasks) Wait() error {
	ot.Root.Wait()
	return ot.Err()
}
