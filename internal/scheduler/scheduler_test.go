package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/internal/errors"
)

func newTestScheduler(nodes, cpusPerNode int) *Scheduler {
	return New(FakeNumaTopology(nodes, cpusPerNode), false, nil)
}

func TestSchedulerRunsTasks(t *testing.T) {
	s := newTestScheduler(1, 2)

	var counter atomic.Int64
	var tasks []*Task
	for i := 0; i < 100; i++ {
		tasks = append(tasks, NewTask(func() { counter.Add(1) }))
	}
	require.NoError(t, s.ScheduleAll(tasks))

	s.Finish()
	assert.Equal(t, int64(100), counter.Load())
}

func TestFinishDrainsEverything(t *testing.T) {
	s := newTestScheduler(2, 2)

	var tasks []*Task
	for i := 0; i < 50; i++ {
		tasks = append(tasks, NewTask(func() { time.Sleep(time.Millisecond) }))
	}
	require.NoError(t, s.ScheduleAll(tasks))

	s.Finish()

	assert.Equal(t, s.TaskCount(), s.FinishedCount(), "finished counts match the task counter")
	for _, q := range s.Queues() {
		assert.True(t, q.Empty())
	}
}

func TestScheduleAfterFinishIsRejected(t *testing.T) {
	s := newTestScheduler(1, 1)
	s.Finish()

	err := s.Schedule(NewTask(func() {}), CurrentNodeID, PriorityDefault)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.SchedulerShutdown))
}

func TestPredecessorOrdering(t *testing.T) {
	s := newTestScheduler(2, 2)

	var order []int
	var mu atomic.Int32

	first := NewTask(func() {
		time.Sleep(5 * time.Millisecond)
		mu.Store(1)
		order = append(order, 1)
	})
	second := NewTask(func() {
		// must observe the predecessor's effects
		assert.Equal(t, int32(1), mu.Load())
		order = append(order, 2)
	})
	first.SetAsPredecessorOf(second)

	require.NoError(t, s.Schedule(second, CurrentNodeID, PriorityDefault))
	require.NoError(t, s.Schedule(first, CurrentNodeID, PriorityDefault))

	second.Wait()
	s.Finish()

	assert.Equal(t, []int{1, 2}, order)
}

func TestDiamondDependency(t *testing.T) {
	s := newTestScheduler(1, 4)

	var stage atomic.Int32
	results := make([]int32, 4)

	top := NewTask(func() { results[0] = stage.Add(1) })
	left := NewTask(func() { results[1] = stage.Add(1) })
	right := NewTask(func() { results[2] = stage.Add(1) })
	bottom := NewTask(func() { results[3] = stage.Add(1) })

	top.SetAsPredecessorOf(left)
	top.SetAsPredecessorOf(right)
	left.SetAsPredecessorOf(bottom)
	right.SetAsPredecessorOf(bottom)

	require.NoError(t, s.ScheduleAll([]*Task{bottom, left, right, top}))
	bottom.Wait()
	s.Finish()

	assert.Equal(t, int32(1), results[0], "top runs first")
	assert.Equal(t, int32(4), results[3], "bottom runs last")
}

func TestHighPriorityDrainsFirst(t *testing.T) {
	// Single worker so queue order is observable.
	s := newTestScheduler(1, 1)

	var order []string
	gate := NewTask(func() { time.Sleep(10 * time.Millisecond) })
	require.NoError(t, s.Schedule(gate, NodeID(0), PriorityDefault))

	low := NewTask(func() { order = append(order, "low") })
	high := NewTask(func() { order = append(order, "high") })
	require.NoError(t, s.Schedule(low, NodeID(0), PriorityDefault))
	require.NoError(t, s.Schedule(high, NodeID(0), PriorityHigh))

	s.Finish()
	require.Len(t, order, 2)
	assert.Equal(t, "high", order[0], "high priority band empties before default")
}

func TestWorkStealingAcrossNodes(t *testing.T) {
	// Two nodes; all tasks pushed to node 0. Node 1's worker can only get
	// work by stealing; either way every task must finish.
	s := newTestScheduler(2, 1)

	var counter atomic.Int64
	for i := 0; i < 20; i++ {
		task := NewTask(func() {
			time.Sleep(time.Millisecond)
			counter.Add(1)
		})
		require.NoError(t, s.Schedule(task, NodeID(0), PriorityDefault))
	}

	s.Finish()
	assert.Equal(t, int64(20), counter.Load())
}

func TestAnyNodePicksLeastLoaded(t *testing.T) {
	s := newTestScheduler(2, 1)
	defer s.Finish()

	// Saturate node 0's queue with a gate.
	for i := 0; i < 4; i++ {
		require.NoError(t, s.Schedule(NewTask(func() { time.Sleep(time.Millisecond) }), NodeID(0), PriorityDefault))
	}

	done := NewTask(func() {})
	require.NoError(t, s.Schedule(done, AnyNodeID, PriorityDefault))
	done.Wait()
}

func TestTaskIDsAreMonotonic(t *testing.T) {
	s := newTestScheduler(1, 1)

	var ids []uint64
	for i := 0; i < 10; i++ {
		task := NewTask(func() {})
		require.NoError(t, s.Schedule(task, CurrentNodeID, PriorityDefault))
		ids = append(ids, task.ID())
	}
	s.Finish()

	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1])
	}
}

func TestTopologyParsing(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3}, parseCPUList("0-3"))
	assert.Equal(t, []int{0, 2, 4, 5, 6}, parseCPUList("0,2,4-6"))
	assert.Empty(t, parseCPUList(""))

	topo := FakeNumaTopology(4, 2)
	assert.Equal(t, 4, topo.NumNodes())
	assert.Equal(t, 8, topo.NumCPUs())
}
