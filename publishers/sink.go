package publishers

import (
	"context"
	"sync"
)

type sink[T any] struct {
	onNext     func(T)
	onComplete func(error)
}

func (s *sink[T]) OnSubscribe(subscription Subscription) { subscription.Request(Unlimited) }
func (s *sink[T]) OnNext(value T)                         { s.onNext(value) }
func (s *sink[T]) OnError(err error)                      { s.onComplete(err) }
func (s *sink[T]) OnComplete()                            { s.onComplete(nil) }

// Sink subscribes to publisher with unlimited demand. onNext receives every
// value; onComplete receives nil on completion or the failure. Either
// function may be nil.
func Sink[T any](publisher Publisher[T], onNext func(T), onComplete func(error)) Subscription {
	if onNext == nil {
		onNext = func(T) {}
	}
	if onComplete == nil {
		onComplete = func(error) {}
	}
	var subscription Subscription
	publisher.Subscribe(&capture[T]{Subscriber: &sink[T]{onNext, onComplete}, subscription: &subscription})
	return subscription
}

// capture records the subscription handed to the wrapped subscriber.
type capture[T any] struct {
	Subscriber[T]
	subscription *Subscription
}

func (c *capture[T]) OnSubscribe(subscription Subscription) {
	*c.subscription = subscription
	c.Subscriber.OnSubscribe(subscription)
}

type channelSubscriber[T any] struct {
	ctx    context.Context
	values chan T
	errs   chan error
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func (c *channelSubscriber[T]) OnSubscribe(subscription Subscription) {
	go func() {
		select {
		case <-c.ctx.Done():
			subscription.Cancel()
			c.close(c.ctx.Err())
		case <-c.done:
		}
	}()
	subscription.Request(Unlimited)
}

func (c *channelSubscriber[T]) OnNext(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.values <- value:
	case <-c.ctx.Done():
	}
}

func (c *channelSubscriber[T]) OnError(err error) { c.close(err) }
func (c *channelSubscriber[T]) OnComplete()       { c.close(nil) }

func (c *channelSubscriber[T]) close(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if err != nil {
		c.errs <- err
	}
	close(c.values)
	close(c.errs)
	close(c.done)
}

// Channel subscribes to publisher and forwards its values to the returned
// channel, which is closed when the publisher terminates or ctx is done.
// The error channel then yields the failure, or ctx.Err(), and is closed.
//
// Values are handed over on the delivery queue, which blocks until the
// consumer receives them. A consumer that stops reading must cancel ctx;
// otherwise it stalls every publisher sharing that queue, MainQueue included.
func Channel[T any](ctx context.Context, publisher Publisher[T]) (<-chan T, <-chan error) {
	return BufferedChannel(ctx, publisher, 0)
}

// BufferedChannel is Channel with a values channel holding up to size
// values, so delivery only blocks once size values are unread.
func BufferedChannel[T any](ctx context.Context, publisher Publisher[T], size int) (<-chan T, <-chan error) {
	if size < 0 {
		size = 0
	}
	c := &channelSubscriber[T]{
		ctx:    ctx,
		values: make(chan T, size),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	publisher.Subscribe(c)
	return c.values, c.errs
}
