package secs

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"
)

// scheduledTask is a one-shot unit registered with Runner.After.
type scheduledTask struct {
	executeAt time.Time
	unit      Runnable
	cancelled atomic.Bool

	// index is the position in the heap, -1 once popped.
	index int
}

// taskHeap orders tasks by due time. It implements heap.Interface.
type taskHeap []*scheduledTask

func (h taskHeap) Len() int           { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].executeAt.Before(h[j].executeAt) }

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*scheduledTask)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old) - 1
	t := old[n]
	old[n] = nil
	t.index = -1
	*h = old[:n]
	return t
}

// taskQueue is the runner's pending one-shot units.
type taskQueue struct {
	mu    sync.Mutex
	tasks taskHeap
	notif chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{notif: make(chan struct{}, 1)}
}

// Push queues task and wakes the tick loop.
// Cancelled tasks are pruned every 64 pushes.
func (q *taskQueue) Push(task *scheduledTask) {
	q.mu.Lock()
	if n := len(q.tasks); n > 0 && n%64 == 0 {
		q.prune()
	}
	heap.Push(&q.tasks, task)
	q.mu.Unlock()

	select {
	case q.notif <- struct{}{}:
	default:
	}
}

// PopDue removes the tasks due at now and returns the live ones, earliest first.
func (q *taskQueue) PopDue(now time.Time) []*scheduledTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*scheduledTask
	for len(q.tasks) > 0 && !q.tasks[0].executeAt.After(now) {
		t := heap.Pop(&q.tasks).(*scheduledTask)
		if t.cancelled.Load() {
			continue
		}
		due = append(due, t)
	}
	return due
}

// Len counts queued tasks, cancelled ones included.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Notify is signalled after every Push.
func (q *taskQueue) Notify() <-chan struct{} {
	return q.notif
}

// prune drops cancelled tasks. Caller must hold mu.
func (q *taskQueue) prune() {
	live := q.tasks[:0]
	for _, t := range q.tasks {
		if !t.cancelled.Load() {
			live = append(live, t)
		}
	}
	clear(q.tasks[len(live):])
	q.tasks = live
	for i, t := range q.tasks {
		t.index = i
	}
	heap.Init(&q.tasks)
}

// TaskHandle cancels a unit scheduled with Runner.After.
type TaskHandle struct {
	task *scheduledTask
}

// Cancel prevents the unit from running if it has not run yet.
func (h *TaskHandle) Cancel() {
	if h != nil && h.task != nil {
		h.task.cancelled.Store(true)
	}
}
