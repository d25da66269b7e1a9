// Package cache stores GraphQL responses for the client's cache policies and
// notifies watchers when an entry changes.
package cache

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store is a key/value backend for cached responses.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error
	Close() error
}

// ChangeFunc is called after a key is written. contextIdentifier is the
// identifier of the request that wrote it, or nil.
type ChangeFunc func(contextIdentifier *uuid.UUID)

type watch struct {
	fn ChangeFunc
}

// Cache wraps a Store with change notification.
type Cache struct {
	store Store

	mu       sync.Mutex
	watchers map[string]map[*watch]struct{}
}

// New returns a Cache backed by store. A nil store selects a MemoryStore.
func New(store Store) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Cache{
		store:    store,
		watchers: map[string]map[*watch]struct{}{},
	}
}

// Read loads the value stored under key.
func (c *Cache) Read(ctx context.Context, key string) ([]byte, bool, error) {
	return c.store.Load(ctx, key)
}

// Write stores value under key and notifies the key's watchers.
func (c *Cache) Write(ctx context.Context, key string, value []byte, contextIdentifier *uuid.UUID) error {
	if err := c.store.Save(ctx, key, value); err != nil {
		return err
	}
	for _, fn := range c.listeners(key) {
		fn(contextIdentifier)
	}
	return nil
}

// Clear removes every entry. Watchers are not notified.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Watch registers fn for writes to key and returns a function that removes it.
func (c *Cache) Watch(key string, fn ChangeFunc) (unwatch func()) {
	w := &watch{fn}
	c.mu.Lock()
	set, ok := c.watchers[key]
	if !ok {
		set = map[*watch]struct{}{}
		c.watchers[key] = set
	}
	set[w] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.watchers[key], w)
			if len(c.watchers[key]) == 0 {
				delete(c.watchers, key)
			}
		})
	}
}

func (c *Cache) listeners(key string) []ChangeFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	fns := make([]ChangeFunc, 0, len(c.watchers[key]))
	for w := range c.watchers[key] {
		fns = append(fns, w.fn)
	}
	return fns
}
