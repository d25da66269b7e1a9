package publishers

import (
	"context"

	"github.com/google/uuid"
	appsync "github.com/sony/appsync-publisher-go"
)

type options struct {
	cachePolicy          appsync.CachePolicy
	contextIdentifier    *uuid.UUID
	ctx                  context.Context
	queue                appsync.DispatchQueue
	publishResultToStore bool
	failureMode          FailureMode
}

// Option configures the publishers built by the factory functions.
// Options that do not apply to an operation are ignored.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		cachePolicy:          appsync.DefaultCachePolicy,
		ctx:                  context.Background(),
		queue:                appsync.MainQueue(),
		publishResultToStore: true,
		failureMode:          SuppressFailures,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCachePolicy sets the cache policy of fetch and watch publishers.
func WithCachePolicy(policy appsync.CachePolicy) Option {
	return func(o *options) {
		o.cachePolicy = policy
	}
}

// WithContextIdentifier sets the identifier attached to a fetch.
func WithContextIdentifier(id uuid.UUID) Option {
	return func(o *options) {
		o.contextIdentifier = &id
	}
}

// WithContext sets the request context.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// WithQueue sets the queue results are delivered on.
func WithQueue(queue appsync.DispatchQueue) Option {
	return func(o *options) {
		o.queue = queue
	}
}

// WithPublishResultToStore sets whether a mutation result is written to the cache.
func WithPublishResultToStore(publish bool) Option {
	return func(o *options) {
		o.publishResultToStore = publish
	}
}

// WithFailureMode sets how watch and subscribe publishers report failures.
func WithFailureMode(mode FailureMode) Option {
	return func(o *options) {
		o.failureMode = mode
	}
}
