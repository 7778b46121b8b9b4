// Package scheduler executes task DAGs on a fixed pool of workers, one per
// CPU, with a ready queue per NUMA node and work stealing across nodes.
package scheduler

import (
	"sync/atomic"
	"time"

	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/log"
)

// NodeID identifies a NUMA node. Two sentinels steer placement.
type NodeID int

const (
	// CurrentNodeID passed to Schedule resolves to node 0, whether or not
	// the caller is a worker; the caller's own node is not detected. Only
	// successors released by a finishing predecessor stay on that worker's
	// queue.
	CurrentNodeID NodeID = -1
	// AnyNodeID schedules onto the least-loaded node.
	AnyNodeID NodeID = -2
)

// Scheduler drives task DAGs across per-node queues and pinned workers.
type Scheduler struct {
	topology *Topology
	queues   []*TaskQueue
	workers  []*Worker
	logger   log.Logger

	taskCounter atomic.Uint64
	shutDown    atomic.Bool
}

// New creates a scheduler for a topology and starts its workers: one queue
// per node, one worker per CPU.
func New(topology *Topology, pinWorkers bool, logger log.Logger) *Scheduler {
	if topology == nil {
		topology = DetectTopology()
	}
	if logger == nil {
		logger = log.Discard()
	}

	s := &Scheduler{topology: topology, logger: logger}

	for nodeID, node := range topology.Nodes {
		queue := NewTaskQueue(NodeID(nodeID))
		s.queues = append(s.queues, queue)
		for _, cpu := range node.CPUs {
			s.workers = append(s.workers, newWorker(s, queue, cpu, pinWorkers))
		}
	}
	for _, w := range s.workers {
		w.start()
	}

	s.logger.Debug("scheduler started",
		"nodes", topology.NumNodes(), "cpus", topology.NumCPUs(), "pinned", pinWorkers)
	return s
}

// Topology returns the layout the scheduler runs on.
func (s *Scheduler) Topology() *Topology {
	return s.topology
}

// Queues exposes the per-node queues, mainly to tests and the drain check.
func (s *Scheduler) Queues() []*TaskQueue {
	return s.queues
}

// Schedule submits a task. If the task still has outstanding predecessors
// it only takes its ID now; the last-finishing predecessor enqueues it
// later, on the finishing worker's queue.
func (s *Scheduler) Schedule(t *Task, preferredNode NodeID, priority Priority) error {
	if s.shutDown.Load() {
		return errors.SchedulerShutdownError()
	}

	t.id = s.taskCounter.Add(1)
	t.scheduler = s
	t.priority = priority
	t.state.Store(int32(TaskScheduled))

	if !t.IsReady() {
		return nil
	}

	// A predecessor finishing concurrently races this path; whoever wins
	// the Scheduled→Ready transition enqueues.
	if t.state.CompareAndSwap(int32(TaskScheduled), int32(TaskReady)) {
		s.enqueue(t, preferredNode, priority)
	}
	return nil
}

// ScheduleAll submits a batch in order.
func (s *Scheduler) ScheduleAll(tasks []*Task) error {
	for _, t := range tasks {
		if err := s.Schedule(t, CurrentNodeID, PriorityDefault); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) enqueue(t *Task, preferredNode NodeID, priority Priority) {
	node := s.resolveNode(preferredNode)
	s.queues[node].Push(t, priority)
}

func (s *Scheduler) resolveNode(preferred NodeID) NodeID {
	switch {
	case preferred == AnyNodeID:
		return s.leastLoadedNode()
	case preferred == CurrentNodeID:
		// Calls from a non-worker goroutine land on node 0; successor
		// enqueueing inside workers keeps locality without consulting
		// this path.
		return 0
	case int(preferred) < len(s.queues):
		return preferred
	default:
		return 0
	}
}

func (s *Scheduler) leastLoadedNode() NodeID {
	best := 0
	bestLen := s.queues[0].Len()
	for i := 1; i < len(s.queues); i++ {
		if l := s.queues[i].Len(); l < bestLen {
			best, bestLen = i, l
		}
	}
	return NodeID(best)
}

// TaskCount returns the number of tasks scheduled so far.
func (s *Scheduler) TaskCount() uint64 {
	return s.taskCounter.Load()
}

// FinishedCount sums the workers' finished counters.
func (s *Scheduler) FinishedCount() uint64 {
	var total uint64
	for _, w := range s.workers {
		total += w.FinishedTasks()
	}
	return total
}

// Finish drains and shuts the scheduler down: it spin-waits until the
// summed finished counts match the task counter, stops every worker, joins
// them, and verifies the queues ran dry. Further Schedule calls are
// rejected.
func (s *Scheduler) Finish() {
	for s.FinishedCount() != s.TaskCount() {
		time.Sleep(time.Millisecond)
	}

	s.shutDown.Store(true)

	for _, w := range s.workers {
		w.shutdown()
	}
	for _, w := range s.workers {
		w.join()
	}

	for _, queue := range s.queues {
		if !queue.Empty() {
			panic(errors.InternalErrorf("scheduler bug: queue of node %d not empty after drain", queue.Node()))
		}
	}

	s.logger.Debug("scheduler finished", "tasks", s.TaskCount())
}

// WaitForTasks blocks until every given task is done. Usable from
// non-worker goroutines only.
func WaitForTasks(tasks []*Task) {
	for _, t := range tasks {
		t.Wait()
	}
}
