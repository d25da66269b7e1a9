package publishers

import (
	"context"

	appsync "github.com/sony/appsync-publisher-go"
	"github.com/sony/appsync-publisher-go/graphql"
)

// WatchConfiguration holds the arguments of Client.Watch.
type WatchConfiguration struct {
	Client      Client
	Query       graphql.PostRequest
	CachePolicy appsync.CachePolicy
	Context     context.Context
	Queue       appsync.DispatchQueue
	FailureMode FailureMode
}

// Watch publishes a Result every time the watched query delivers. It never
// completes on its own.
type Watch struct {
	configuration WatchConfiguration
}

// NewWatch returns a Watch publisher.
func NewWatch(configuration WatchConfiguration) *Watch {
	return &Watch{configuration}
}

// Subscribe implements Publisher.
func (p *Watch) Subscribe(subscriber Subscriber[Result]) {
	c := p.configuration
	s := newSubscription(subscriber, func(s *subscription[Result]) appsync.Cancellable {
		return c.Client.Watch(c.Context, c.Query, c.CachePolicy, c.Queue, continuous(s, c.FailureMode))
	})
	subscriber.OnSubscribe(s)
}

// continuous publishes every callback as a Result. Failures end the stream
// only under PropagateFailures.
func continuous(s *subscription[Result], mode FailureMode) appsync.ResultHandler {
	return func(result *appsync.GraphQLResult, err error) {
		if err != nil && mode == PropagateFailures {
			s.finish(err)
			return
		}
		s.next(Result{Value: result, Err: err})
	}
}
