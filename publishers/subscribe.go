package publishers

import (
	"context"

	appsync "github.com/sony/appsync-publisher-go"
	"github.com/sony/appsync-publisher-go/graphql"
)

// SubscribeConfiguration holds the arguments of Client.Subscribe.
type SubscribeConfiguration struct {
	Client       Client
	Subscription graphql.PostRequest
	Context      context.Context
	Queue        appsync.DispatchQueue
	FailureMode  FailureMode
}

// Subscribe publishes a Result per subscription message. It never completes
// on its own.
type Subscribe struct {
	configuration SubscribeConfiguration
}

// NewSubscribe returns a Subscribe publisher.
func NewSubscribe(configuration SubscribeConfiguration) *Subscribe {
	return &Subscribe{configuration}
}

// Subscribe implements Publisher.
func (p *Subscribe) Subscribe(subscriber Subscriber[Result]) {
	c := p.configuration
	s := newSubscription(subscriber, func(s *subscription[Result]) appsync.Cancellable {
		return c.Client.Subscribe(c.Context, c.Subscription, c.Queue, continuous(s, c.FailureMode))
	})
	subscriber.OnSubscribe(s)
}
