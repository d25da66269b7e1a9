package appsync

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sony/appsync-publisher-go/graphql"
)

// QueryWatcher delivers a query's result, then delivers it again every time
// the cached entry for the query is written by another request.
type QueryWatcher struct {
	client            *Client
	ctx               context.Context
	query             graphql.PostRequest
	cachePolicy       CachePolicy
	contextIdentifier uuid.UUID
	queue             DispatchQueue
	handler           ResultHandler

	mu       sync.Mutex
	fetching Cancellable
	unwatch  func()
	canceled bool
}

// Watch fetches query with cachePolicy and keeps watching the cache for it.
func (c *Client) Watch(ctx context.Context, query graphql.PostRequest, cachePolicy CachePolicy, queue DispatchQueue, handler ResultHandler) Watcher {
	if ctx == nil {
		ctx = context.Background()
	}
	if queue == nil {
		queue = MainQueue()
	}
	w := &QueryWatcher{
		client:            c,
		ctx:               ctx,
		query:             query,
		cachePolicy:       cachePolicy,
		contextIdentifier: uuid.New(),
		queue:             queue,
		handler:           handler,
	}
	w.unwatch = c.cache.Watch(cacheKey(query), w.changed)
	w.fetch(cachePolicy)
	return w
}

// ContextIdentifier identifies the watcher's own requests.
func (w *QueryWatcher) ContextIdentifier() uuid.UUID {
	return w.contextIdentifier
}

// Refetch fetches the query from the server, bypassing cached data.
func (w *QueryWatcher) Refetch() {
	w.fetch(FetchIgnoringCacheData)
}

// Cancel stops watching. No callbacks are dispatched afterwards.
func (w *QueryWatcher) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.canceled {
		return
	}
	w.canceled = true
	if w.fetching != nil {
		w.fetching.Cancel()
		w.fetching = nil
	}
	w.unwatch()
}

func (w *QueryWatcher) fetch(cachePolicy CachePolicy) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.canceled {
		return
	}
	if w.fetching != nil {
		w.fetching.Cancel()
	}
	w.fetching = w.client.Fetch(w.ctx, w.query, cachePolicy, &w.contextIdentifier, w.queue, w.handler)
}

func (w *QueryWatcher) changed(contextIdentifier *uuid.UUID) {
	if contextIdentifier != nil && *contextIdentifier == w.contextIdentifier {
		return
	}
	w.fetch(ReturnCacheDataDontFetch)
}
