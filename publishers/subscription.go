package publishers

import (
	"sync"

	appsync "github.com/sony/appsync-publisher-go"
)

// subscription is shared by every publisher. The subscriber reference is
// the cancel token: callbacks that arrive after it is cleared are dropped.
type subscription[T any] struct {
	start func(s *subscription[T]) appsync.Cancellable

	mu         sync.Mutex
	subscriber Subscriber[T]
	task       appsync.Cancellable
	requested  bool
}

func newSubscription[T any](subscriber Subscriber[T], start func(s *subscription[T]) appsync.Cancellable) *subscription[T] {
	return &subscription[T]{start: start, subscriber: subscriber}
}

func (s *subscription[T]) Request(n Demand) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	if s.requested || s.subscriber == nil {
		s.mu.Unlock()
		return
	}
	s.requested = true
	s.mu.Unlock()

	// start may call back synchronously, so it runs without the lock.
	task := s.start(s)
	if task == nil {
		return
	}

	s.mu.Lock()
	if s.subscriber == nil {
		s.mu.Unlock()
		task.Cancel()
		return
	}
	s.task = task
	s.mu.Unlock()
}

func (s *subscription[T]) Cancel() {
	s.mu.Lock()
	task := s.task
	s.task = nil
	s.subscriber = nil
	s.mu.Unlock()

	if task != nil {
		task.Cancel()
	}
}

func (s *subscription[T]) current() Subscriber[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscriber
}

func (s *subscription[T]) next(value T) {
	if subscriber := s.current(); subscriber != nil {
		subscriber.OnNext(value)
	}
}

// finish delivers the terminal event, at most once, and releases the task.
func (s *subscription[T]) finish(err error) {
	s.mu.Lock()
	subscriber := s.subscriber
	task := s.task
	s.subscriber = nil
	s.task = nil
	s.mu.Unlock()

	if subscriber == nil {
		return
	}
	if task != nil {
		task.Cancel()
	}
	if err != nil {
		subscriber.OnError(err)
		return
	}
	subscriber.OnComplete()
}
