package appsync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sony/appsync-publisher-go/graphql"
)

// task is a cancellable operation whose callbacks are dispatched on queue.
// Nothing is dispatched once Cancel has been called.
type task struct {
	ctx      context.Context
	cancel   context.CancelFunc
	queue    DispatchQueue
	canceled atomic.Bool
}

func newTask(ctx context.Context, queue DispatchQueue) *task {
	if ctx == nil {
		ctx = context.Background()
	}
	if queue == nil {
		queue = MainQueue()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &task{ctx: ctx, cancel: cancel, queue: queue}
}

func (t *task) Cancel() {
	t.canceled.Store(true)
	t.cancel()
}

func (t *task) deliver(handler ResultHandler, result *GraphQLResult, err error) {
	if t.canceled.Load() {
		return
	}
	t.queue.Async(func() {
		if t.canceled.Load() {
			return
		}
		handler(result, err)
	})
}

// cacheKey identifies a request in the cache. Variables are re-encoded so
// that key order does not matter.
func cacheKey(request graphql.PostRequest) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(request.Query)))
	h.Write([]byte{0})
	if request.OperationName != nil {
		h.Write([]byte(*request.OperationName))
	}
	h.Write([]byte{0})
	if request.Variables != nil {
		var v interface{}
		if err := json.Unmarshal(*request.Variables, &v); err == nil {
			b, _ := json.Marshal(v)
			h.Write(b)
		} else {
			h.Write(*request.Variables)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Client) readCache(ctx context.Context, key string) (*graphql.Response, bool, error) {
	b, ok, err := c.cache.Read(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	response := new(graphql.Response)
	if err := json.Unmarshal(b, response); err != nil {
		return nil, false, err
	}
	return response, true, nil
}

func (c *Client) writeCache(ctx context.Context, key string, response *graphql.Response, contextIdentifier *uuid.UUID) {
	b, err := json.Marshal(response)
	if err != nil {
		slog.Error("error encoding response for cache", "error", err)
		return
	}
	if err := c.cache.Write(ctx, key, b, contextIdentifier); err != nil {
		slog.Error("error writing cache", "key", key, "error", err)
	}
}

// Fetch fetches a query from the server or from the cache, depending on the
// cache policy. Under ReturnCacheDataAndFetch the handler is called twice
// when the query is cached: first with the cached result, then with the
// server result.
func (c *Client) Fetch(ctx context.Context, query graphql.PostRequest, cachePolicy CachePolicy, contextIdentifier *uuid.UUID, queue DispatchQueue, handler ResultHandler) Cancellable {
	t := newTask(ctx, queue)
	go c.fetch(t, query, cachePolicy, contextIdentifier, handler)
	return t
}

func (c *Client) fetch(t *task, query graphql.PostRequest, cachePolicy CachePolicy, contextIdentifier *uuid.UUID, handler ResultHandler) {
	key := cacheKey(query)

	if cachePolicy.readsCache() {
		response, ok, err := c.readCache(t.ctx, key)
		if err != nil {
			slog.Warn("error reading cache", "key", key, "error", err)
		}
		switch {
		case ok:
			t.deliver(handler, &GraphQLResult{response, SourceCache, contextIdentifier}, nil)
			if cachePolicy != ReturnCacheDataAndFetch {
				return
			}
		case cachePolicy == ReturnCacheDataDontFetch:
			if err == nil {
				err = ErrCacheMiss
			}
			t.deliver(handler, nil, err)
			return
		}
	}

	response, err := c.send(t.ctx, query)
	if err != nil {
		t.deliver(handler, nil, err)
		return
	}
	if cachePolicy.writesCache() && !response.HasErrors() {
		c.writeCache(t.ctx, key, response, contextIdentifier)
	}
	t.deliver(handler, &GraphQLResult{response, SourceServer, contextIdentifier}, nil)
}

// Perform sends a mutation to the server. When publishResultToStore is true
// a successful response is written to the cache.
func (c *Client) Perform(ctx context.Context, mutation graphql.PostRequest, publishResultToStore bool, queue DispatchQueue, handler ResultHandler) Cancellable {
	t := newTask(ctx, queue)
	go func() {
		response, err := c.send(t.ctx, mutation)
		if err != nil {
			t.deliver(handler, nil, err)
			return
		}
		if publishResultToStore && !response.HasErrors() {
			c.writeCache(t.ctx, cacheKey(mutation), response, nil)
		}
		t.deliver(handler, &GraphQLResult{Response: response, Source: SourceServer}, nil)
	}()
	return t
}

// Upload sends operation together with files as a multipart request.
func (c *Client) Upload(ctx context.Context, operation graphql.PostRequest, files []graphql.File, queue DispatchQueue, handler ResultHandler) Cancellable {
	t := newTask(ctx, queue)
	go func() {
		response, err := c.upload(t.ctx, operation, files)
		if err != nil {
			t.deliver(handler, nil, err)
			return
		}
		t.deliver(handler, &GraphQLResult{Response: response, Source: SourceServer}, nil)
	}()
	return t
}

// ClearCache removes every cached response and calls completion on queue.
func (c *Client) ClearCache(queue DispatchQueue, completion func(error)) {
	if queue == nil {
		queue = MainQueue()
	}
	go func() {
		err := c.cache.Clear(context.Background())
		queue.Async(func() { completion(err) })
	}()
}
