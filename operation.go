package appsync

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sony/appsync-publisher-go/graphql"
)

var (
	// ErrCacheMiss is returned by ReturnCacheDataDontFetch when the query is not cached.
	ErrCacheMiss = errors.New("appsync: query is not cached")
	// ErrNoMQTTConnection is returned when a subscription response carries no usable MQTT connection.
	ErrNoMQTTConnection = errors.New("appsync: no mqtt connection in subscription response")
)

// CachePolicy selects whether results come from the local cache, the server or both.
type CachePolicy int

const (
	// ReturnCacheDataElseFetch returns cached data when present, otherwise fetches from the server.
	ReturnCacheDataElseFetch CachePolicy = iota
	// FetchIgnoringCacheData always fetches from the server and stores the result.
	FetchIgnoringCacheData
	// FetchIgnoringCacheCompletely always fetches from the server and never touches the cache.
	FetchIgnoringCacheCompletely
	// ReturnCacheDataDontFetch returns cached data, or ErrCacheMiss.
	ReturnCacheDataDontFetch
	// ReturnCacheDataAndFetch returns cached data when present and then the server result.
	ReturnCacheDataAndFetch
)

// DefaultCachePolicy is the policy used when none is given.
const DefaultCachePolicy = ReturnCacheDataElseFetch

func (p CachePolicy) String() string {
	switch p {
	case ReturnCacheDataElseFetch:
		return "returnCacheDataElseFetch"
	case FetchIgnoringCacheData:
		return "fetchIgnoringCacheData"
	case FetchIgnoringCacheCompletely:
		return "fetchIgnoringCacheCompletely"
	case ReturnCacheDataDontFetch:
		return "returnCacheDataDontFetch"
	case ReturnCacheDataAndFetch:
		return "returnCacheDataAndFetch"
	}
	return fmt.Sprintf("CachePolicy(%d)", int(p))
}

// ParseCachePolicy returns the policy named s, as printed by CachePolicy.String.
func ParseCachePolicy(s string) (CachePolicy, error) {
	for p := ReturnCacheDataElseFetch; p <= ReturnCacheDataAndFetch; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return DefaultCachePolicy, fmt.Errorf("unknown cache policy %q", s)
}

func (p CachePolicy) readsCache() bool {
	return p == ReturnCacheDataElseFetch || p == ReturnCacheDataDontFetch || p == ReturnCacheDataAndFetch
}

func (p CachePolicy) writesCache() bool {
	return p != FetchIgnoringCacheCompletely
}

// ResultSource tells where a result came from.
type ResultSource int

const (
	SourceServer ResultSource = iota
	SourceCache
)

func (s ResultSource) String() string {
	if s == SourceCache {
		return "cache"
	}
	return "server"
}

// GraphQLResult is a response plus the metadata the client attaches to it.
type GraphQLResult struct {
	*graphql.Response
	Source ResultSource
	// ContextIdentifier is the identifier of the request that produced the result.
	ContextIdentifier *uuid.UUID
}

// ResultHandler receives the outcome of an operation.
type ResultHandler func(result *GraphQLResult, err error)

// Cancellable is an in-flight operation.
type Cancellable interface {
	Cancel()
}

// CancelFunc adapts a function to Cancellable.
type CancelFunc func()

// Cancel calls f.
func (f CancelFunc) Cancel() { f() }

// Watcher is a live query returned by Client.Watch.
type Watcher interface {
	Cancellable
	// Refetch fetches the query from the server again.
	Refetch()
}
