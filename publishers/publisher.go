// Package publishers exposes the callback-based operations of an AppSync
// client as publishers. Each publisher is a reusable description of one
// operation; every Subscribe call starts an independent subscription that
// invokes the client once the subscriber requests demand.
//
// Fetch, Perform, Upload and ClearCache are one-shot: they emit one value
// and complete, or fail. Fetch under ReturnCacheDataAndFetch may emit the
// cached result before the server result. Watch and Subscribe are
// continuous and never complete on their own.
package publishers

import (
	"math"

	appsync "github.com/sony/appsync-publisher-go"
)

// Demand is the number of values a subscriber is ready to receive.
type Demand int64

// Unlimited requests every value the publisher produces.
const Unlimited Demand = math.MaxInt64

// Publisher produces values of type T for any number of subscribers.
type Publisher[T any] interface {
	Subscribe(subscriber Subscriber[T])
}

// Subscriber receives a Subscription once, then values and at most one
// terminal event.
type Subscriber[T any] interface {
	OnSubscribe(subscription Subscription)
	OnNext(value T)
	OnError(err error)
	OnComplete()
}

// Subscription links one Subscriber to one Publisher.
//
// The first Request with a positive demand starts the operation. Further
// requests are ignored; the underlying client delivers at its own pace.
// After Cancel the subscriber receives nothing more. This holds when Cancel
// runs on the delivery queue or from a subscriber callback. Called from any
// other goroutine, Cancel may race with a callback already in progress, so
// one value can still arrive after Cancel returns.
type Subscription interface {
	Request(n Demand)
	Cancel()
}

// Result carries either a value or an error from a continuous publisher.
type Result struct {
	Value *appsync.GraphQLResult
	Err   error
}

// FailureMode selects how continuous publishers report failures.
type FailureMode int

const (
	// SuppressFailures delivers failures as Result values. The stream never fails.
	SuppressFailures FailureMode = iota
	// PropagateFailures ends the stream with OnError on the first failure.
	PropagateFailures
)

func (m FailureMode) String() string {
	if m == PropagateFailures {
		return "propagate"
	}
	return "suppress"
}
