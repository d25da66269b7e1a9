package publishers

import (
	"context"

	"github.com/google/uuid"
	appsync "github.com/sony/appsync-publisher-go"
	"github.com/sony/appsync-publisher-go/graphql"
)

// Client is the callback-based client the publishers drive.
// *appsync.Client implements it.
type Client interface {
	Fetch(ctx context.Context, query graphql.PostRequest, cachePolicy appsync.CachePolicy, contextIdentifier *uuid.UUID, queue appsync.DispatchQueue, handler appsync.ResultHandler) appsync.Cancellable
	Perform(ctx context.Context, mutation graphql.PostRequest, publishResultToStore bool, queue appsync.DispatchQueue, handler appsync.ResultHandler) appsync.Cancellable
	Upload(ctx context.Context, operation graphql.PostRequest, files []graphql.File, queue appsync.DispatchQueue, handler appsync.ResultHandler) appsync.Cancellable
	Watch(ctx context.Context, query graphql.PostRequest, cachePolicy appsync.CachePolicy, queue appsync.DispatchQueue, handler appsync.ResultHandler) appsync.Watcher
	Subscribe(ctx context.Context, subscription graphql.PostRequest, queue appsync.DispatchQueue, handler appsync.ResultHandler) appsync.Cancellable
	ClearCache(queue appsync.DispatchQueue, completion func(error))
}

// FetchPublisher returns a publisher fetching query through client.
func FetchPublisher(client Client, query graphql.PostRequest, opts ...Option) *Fetch {
	o := newOptions(opts)
	return NewFetch(FetchConfiguration{
		Client:            client,
		Query:             query,
		CachePolicy:       o.cachePolicy,
		ContextIdentifier: o.contextIdentifier,
		Context:           o.ctx,
		Queue:             o.queue,
	})
}

// PerformPublisher returns a publisher performing mutation through client.
func PerformPublisher(client Client, mutation graphql.PostRequest, opts ...Option) *Perform {
	o := newOptions(opts)
	return NewPerform(PerformConfiguration{
		Client:               client,
		Mutation:             mutation,
		PublishResultToStore: o.publishResultToStore,
		Context:              o.ctx,
		Queue:                o.queue,
	})
}

// UploadPublisher returns a publisher uploading files with operation through client.
func UploadPublisher(client Client, operation graphql.PostRequest, files []graphql.File, opts ...Option) *Upload {
	o := newOptions(opts)
	return NewUpload(UploadConfiguration{
		Client:    client,
		Operation: operation,
		Files:     files,
		Context:   o.ctx,
		Queue:     o.queue,
	})
}

// WatchPublisher returns a publisher watching query through client.
func WatchPublisher(client Client, query graphql.PostRequest, opts ...Option) *Watch {
	o := newOptions(opts)
	return NewWatch(WatchConfiguration{
		Client:      client,
		Query:       query,
		CachePolicy: o.cachePolicy,
		Context:     o.ctx,
		Queue:       o.queue,
		FailureMode: o.failureMode,
	})
}

// SubscribePublisher returns a publisher subscribing to subscription through client.
func SubscribePublisher(client Client, subscription graphql.PostRequest, opts ...Option) *Subscribe {
	o := newOptions(opts)
	return NewSubscribe(SubscribeConfiguration{
		Client:       client,
		Subscription: subscription,
		Context:      o.ctx,
		Queue:        o.queue,
		FailureMode:  o.failureMode,
	})
}

// ClearCachePublisher returns a publisher clearing client's cache.
func ClearCachePublisher(client Client, opts ...Option) *ClearCache {
	o := newOptions(opts)
	return NewClearCache(ClearCacheConfiguration{
		Client: client,
		Queue:  o.queue,
	})
}
