package publishers

import (
	"context"

	appsync "github.com/sony/appsync-publisher-go"
	"github.com/sony/appsync-publisher-go/graphql"
)

// PerformConfiguration holds the arguments of Client.Perform.
type PerformConfiguration struct {
	Client               Client
	Mutation             graphql.PostRequest
	PublishResultToStore bool
	Context              context.Context
	Queue                appsync.DispatchQueue
}

// Perform publishes the result of a mutation, then completes.
type Perform struct {
	configuration PerformConfiguration
}

// NewPerform returns a Perform publisher.
func NewPerform(configuration PerformConfiguration) *Perform {
	return &Perform{configuration}
}

// Subscribe implements Publisher.
func (p *Perform) Subscribe(subscriber Subscriber[*appsync.GraphQLResult]) {
	c := p.configuration
	s := newSubscription(subscriber, func(s *subscription[*appsync.GraphQLResult]) appsync.Cancellable {
		return c.Client.Perform(c.Context, c.Mutation, c.PublishResultToStore, c.Queue, oneShot(s))
	})
	subscriber.OnSubscribe(s)
}

// oneShot publishes a single result and completes, or fails.
func oneShot(s *subscription[*appsync.GraphQLResult]) appsync.ResultHandler {
	return func(result *appsync.GraphQLResult, err error) {
		if err != nil {
			s.finish(err)
			return
		}
		s.next(result)
		s.finish(nil)
	}
}
