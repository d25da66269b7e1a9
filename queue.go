package appsync

import "sync"

// DispatchQueue runs callbacks. Implementations decide the goroutine and order.
type DispatchQueue interface {
	Async(fn func())
}

// SerialQueue runs submitted functions one at a time, in submission order,
// on a dedicated goroutine.
type SerialQueue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// NewSerialQueue starts a SerialQueue. Call Close to stop it.
func NewSerialQueue() *SerialQueue {
	q := &SerialQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

// Async enqueues fn. It never blocks, so callbacks may enqueue more work.
func (q *SerialQueue) Async(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Close stops the queue. Pending functions are dropped.
func (q *SerialQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.tasks = nil
	close(q.done)
}

func (q *SerialQueue) run() {
	for {
		select {
		case <-q.wake:
		case <-q.done:
			return
		}
		for {
			q.mu.Lock()
			if q.closed || len(q.tasks) == 0 {
				q.mu.Unlock()
				break
			}
			fn := q.tasks[0]
			q.tasks[0] = nil
			q.tasks = q.tasks[1:]
			q.mu.Unlock()
			fn()
		}
	}
}

var mainQueue = sync.OnceValue(NewSerialQueue)

// MainQueue returns the process-wide serial queue used when no queue is given.
func MainQueue() DispatchQueue {
	return mainQueue()
}

type immediateQueue struct{}

func (immediateQueue) Async(fn func()) { fn() }

// ImmediateQueue runs callbacks synchronously on the calling goroutine.
var ImmediateQueue DispatchQueue = immediateQueue{}
