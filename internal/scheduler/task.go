package scheduler

import (
	"sync"
	"sync/atomic"
)

// TaskState is the lifecycle of a task.
type TaskState int32

const (
	TaskCreated TaskState = iota
	TaskScheduled
	TaskReady
	TaskRunning
	TaskDone
)

// Task wraps a unit of work for the scheduler: a closure plus the
// predecessor/successor links forming the execution DAG. A task becomes
// ready when its last predecessor finishes; the finishing worker enqueues
// it on its own queue, keeping dependent work on the same NUMA node.
type Task struct {
	job  func()
	name string

	id    uint64
	state atomic.Int32

	pendingPredecessors atomic.Int32

	mu         sync.Mutex
	successors []*Task

	// filled in by Schedule
	scheduler *Scheduler
	priority  Priority

	done chan struct{}
}

// NewTask wraps a closure.
func NewTask(job func()) *Task {
	return &Task{job: job, done: make(chan struct{})}
}

// NewNamedTask wraps a closure with a description for logs.
func NewNamedTask(name string, job func()) *Task {
	t := NewTask(job)
	t.name = name
	return t
}

// ID returns the scheduler-assigned task ID. Valid after Schedule.
func (t *Task) ID() uint64 {
	return t.id
}

// State returns the task's lifecycle state.
func (t *Task) State() TaskState {
	return TaskState(t.state.Load())
}

// IsReady reports whether all predecessors have finished.
func (t *Task) IsReady() bool {
	return t.pendingPredecessors.Load() == 0
}

// SetAsPredecessorOf links this task before the successor: the successor
// will not run until this task is done.
func (t *Task) SetAsPredecessorOf(successor *Task) {
	successor.pendingPredecessors.Add(1)
	t.mu.Lock()
	t.successors = append(t.successors, successor)
	t.mu.Unlock()
}

// Wait blocks until the task has finished.
func (t *Task) Wait() {
	<-t.done
}

// execute runs the job on the given worker and releases the successors.
// A successor whose predecessor count reaches zero is enqueued on the
// finishing worker's queue.
func (t *Task) execute(w *Worker) {
	t.state.Store(int32(TaskRunning))
	t.job()
	t.state.Store(int32(TaskDone))
	close(t.done)

	if w != nil {
		w.finishedTasks.Add(1)
	}

	t.mu.Lock()
	successors := append([]*Task(nil), t.successors...)
	t.mu.Unlock()

	for _, successor := range successors {
		if successor.pendingPredecessors.Add(-1) == 0 {
			successor.enqueueAfterPredecessors(w)
		}
	}
}

// enqueueAfterPredecessors places a now-ready task on a queue. Tasks that
// were never scheduled stay dormant until their own Schedule call; the
// Scheduled→Ready transition decides the race against Schedule itself.
func (t *Task) enqueueAfterPredecessors(w *Worker) {
	if !t.state.CompareAndSwap(int32(TaskScheduled), int32(TaskReady)) {
		return
	}
	if w != nil {
		w.queue.Push(t, t.priority)
		return
	}
	if t.scheduler != nil {
		t.scheduler.enqueue(t, NodeID(0), t.priority)
	}
}
