package dispatch

import "sync"

// taskQueue is a coalescing FIFO of task keys.
//
// Each key has at most one pending task; enqueuing an existing key only
// raises its version. A key handed to a worker is in flight until Done.
// While in flight, a new enqueue for that key is held back and becomes
// ready when Done is called, so one key never runs on two workers.
//
// Waiting uses a buffered signal channel so workers can select on it
// together with ctx.Done().
type taskQueue struct {
	mu       sync.Mutex
	ready    []Key
	pending  map[Key]Task
	inflight map[Key]struct{}
	closed   bool
	signal   chan struct{} // buffered, size 1
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		ready:    make([]Key, 0, 64),
		pending:  make(map[Key]Task),
		inflight: make(map[Key]struct{}),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds t or merges it into the pending task with the same key.
// Returns ok=false if the queue is closed.
func (q *taskQueue) Enqueue(t Task) (coalesced, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, false
	}

	key := t.Key()
	if existing, found := q.pending[key]; found {
		if t.Version > existing.Version {
			q.pending[key] = t
		}
		return true, true
	}

	q.pending[key] = t
	if _, running := q.inflight[key]; !running {
		q.ready = append(q.ready, key)
		q.notify()
	}
	return false, true
}

// TryDequeue hands out the oldest ready task and marks its key in flight.
// Returns (Task{}, false) when nothing is ready.
func (q *taskQueue) TryDequeue() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ready) == 0 {
		return Task{}, false
	}

	key := q.ready[0]
	if len(q.ready) == 1 {
		q.ready = q.ready[:0]
	} else {
		q.ready = q.ready[1:]
	}

	t := q.pending[key]
	delete(q.pending, key)
	q.inflight[key] = struct{}{}

	// One signal wakes one waiter; pass it on while work remains.
	if len(q.ready) > 0 {
		q.notify()
	}
	return t, true
}

// Done releases key. A task enqueued for it meanwhile becomes ready.
func (q *taskQueue) Done(key Key) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.inflight, key)
	if _, found := q.pending[key]; found {
		q.ready = append(q.ready, key)
		q.notify()
	}
}

// notify signals without blocking. Caller holds mu.
func (q *taskQueue) notify() {
	if q.closed {
		return
	}
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Wait returns a channel that signals when tasks may be ready. It is
// closed by Close.
func (q *taskQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending tasks, ready or held back.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Idle reports whether no task is pending or in flight.
func (q *taskQueue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) == 0 && len(q.inflight) == 0
}

// Closed reports whether Close was called.
func (q *taskQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further enqueues and wakes all waiters. Tasks already
// queued are still handed out.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
