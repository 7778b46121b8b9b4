package scheduler

import (
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// Worker is one processing unit: a goroutine locked to an OS thread,
// pinned (best effort) to its CPU and bound to its node's queue.
type Worker struct {
	scheduler *Scheduler
	queue     *TaskQueue
	cpu       int
	pin       bool

	finishedTasks atomic.Uint64
	stop          chan struct{}
	stopped       chan struct{}
}

func newWorker(s *Scheduler, queue *TaskQueue, cpu int, pin bool) *Worker {
	return &Worker{
		scheduler: s,
		queue:     queue,
		cpu:       cpu,
		pin:       pin,
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// FinishedTasks returns how many tasks this worker completed.
func (w *Worker) FinishedTasks() uint64 {
	return w.finishedTasks.Load()
}

// Node returns the worker's NUMA node.
func (w *Worker) Node() NodeID {
	return w.queue.Node()
}

func (w *Worker) start() {
	go w.loop()
}

func (w *Worker) loop() {
	defer close(w.stopped)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if w.pin {
		w.pinToCPU()
	}

	idle := time.Duration(0)
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		task := w.queue.Pop()
		if task == nil {
			task = w.stealFromPeers()
		}
		if task == nil {
			// Park briefly; the backoff caps at 1ms so shutdown and new
			// work are picked up promptly.
			if idle < time.Millisecond {
				idle += 50 * time.Microsecond
			}
			time.Sleep(idle)
			continue
		}
		idle = 0
		task.execute(w)
	}
}

// stealFromPeers scans the other nodes' queues for work.
func (w *Worker) stealFromPeers() *Task {
	for _, queue := range w.scheduler.queues {
		if queue == w.queue {
			continue
		}
		if task := queue.Steal(); task != nil {
			return task
		}
	}
	return nil
}

// pinToCPU applies a CPU affinity mask for this thread. Failure is
// tolerated; the scheduler still works, just without locality.
func (w *Worker) pinToCPU() {
	var set unix.CPUSet
	set.Zero()
	set.Set(w.cpu)
	_ = unix.SchedSetaffinity(0, &set)
}

func (w *Worker) shutdown() {
	close(w.stop)
}

func (w *Worker) join() {
	<-w.stopped
}
