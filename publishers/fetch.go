package publishers

import (
	"context"

	"github.com/google/uuid"
	appsync "github.com/sony/appsync-publisher-go"
	"github.com/sony/appsync-publisher-go/graphql"
)

// FetchConfiguration holds the arguments of Client.Fetch.
type FetchConfiguration struct {
	Client            Client
	Query             graphql.PostRequest
	CachePolicy       appsync.CachePolicy
	ContextIdentifier *uuid.UUID
	Context           context.Context
	Queue             appsync.DispatchQueue
}

// Fetch publishes the result of a query, then completes.
//
// Under ReturnCacheDataAndFetch a cached result is published without
// completing, and the server result that follows completes the stream.
type Fetch struct {
	configuration FetchConfiguration
}

// NewFetch returns a Fetch publisher.
func NewFetch(configuration FetchConfiguration) *Fetch {
	return &Fetch{configuration}
}

// Subscribe implements Publisher.
func (p *Fetch) Subscribe(subscriber Subscriber[*appsync.GraphQLResult]) {
	c := p.configuration
	s := newSubscription(subscriber, func(s *subscription[*appsync.GraphQLResult]) appsync.Cancellable {
		return c.Client.Fetch(c.Context, c.Query, c.CachePolicy, c.ContextIdentifier, c.Queue, func(result *appsync.GraphQLResult, err error) {
			if err != nil {
				s.finish(err)
				return
			}
			s.next(result)
			if c.CachePolicy == appsync.ReturnCacheDataAndFetch && result != nil && result.Source == appsync.SourceCache {
				return
			}
			s.finish(nil)
		})
	})
	subscriber.OnSubscribe(s)
}
