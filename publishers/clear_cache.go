package publishers

import (
	appsync "github.com/sony/appsync-publisher-go"
)

// ClearCacheConfiguration holds the arguments of Client.ClearCache.
type ClearCacheConfiguration struct {
	Client Client
	Queue  appsync.DispatchQueue
}

// ClearCache clears the client's cache, publishes one empty value and
// completes. Cancel cannot stop a clear in progress; it only stops delivery.
type ClearCache struct {
	configuration ClearCacheConfiguration
}

// NewClearCache returns a ClearCache publisher.
func NewClearCache(configuration ClearCacheConfiguration) *ClearCache {
	return &ClearCache{configuration}
}

// Subscribe implements Publisher.
func (p *ClearCache) Subscribe(subscriber Subscriber[struct{}]) {
	c := p.configuration
	s := newSubscription(subscriber, func(s *subscription[struct{}]) appsync.Cancellable {
		c.Client.ClearCache(c.Queue, func(err error) {
			if err != nil {
				s.finish(err)
				return
			}
			s.next(struct{}{})
			s.finish(nil)
		})
		return nil
	})
	subscriber.OnSubscribe(s)
}
