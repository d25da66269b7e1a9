package appsync

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sony/appsync-publisher-go/cache"
	"github.com/sony/appsync-publisher-go/graphql"
)

// Client is the AppSync GraphQL API client
type Client struct {
	graphQLAPI   GraphQLClient
	subscriberID string
	signer       sigv4
	cache        *cache.Cache
	realtime     *realtimeConfig
}

type realtimeConfig struct {
	endpoint string
	opts     []PureWebSocketSubscriberOption
}

// NewClient returns a Client instance.
func NewClient(graphql GraphQLClient, opts ...ClientOption) *Client {
	c := &Client{graphQLAPI: graphql}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.New(cache.NewMemoryStore())
	}
	return c
}

// Close releases the cache store.
func (c *Client) Close() error {
	return c.cache.Close()
}

func (c *Client) baseHeader(request graphql.PostRequest) http.Header {
	header := http.Header{}
	if request.IsSubscription() && len(c.subscriberID) > 0 {
		header.Set("x-amz-subscriber-id", c.subscriberID)
	}
	return header
}

func (c *Client) header(request graphql.PostRequest) (http.Header, error) {
	if c.signer == nil {
		return c.baseHeader(request), nil
	}
	payload, err := json.Marshal(request)
	if err != nil {
		slog.Error("error marshaling request", "error", err)
		return nil, err
	}
	return c.signedHeader(request, payload)
}

// signedHeader signs payload, which must be the exact body sent.
func (c *Client) signedHeader(request graphql.PostRequest, payload []byte) (http.Header, error) {
	header := c.baseHeader(request)
	if c.signer == nil {
		return header, nil
	}
	h, err := c.signer.signHTTP(payload)
	if err != nil {
		slog.Error("error signing request", "error", err)
		return nil, err
	}
	for k, v := range h {
		header[k] = v
	}
	return header, nil
}

// Post is a synchronous AppSync GraphQL POST request.
func (c *Client) Post(request graphql.PostRequest) (*graphql.Response, error) {
	header, err := c.header(request)
	if err != nil {
		return nil, err
	}
	return c.graphQLAPI.Post(header, request)
}

// PostAsync is an asynchronous AppSync GraphQL POST request.
func (c *Client) PostAsync(request graphql.PostRequest, callback func(*graphql.Response, error)) (context.CancelFunc, error) {
	return c.postAsync(context.Background(), request, callback)
}

func (c *Client) postAsync(ctx context.Context, request graphql.PostRequest, callback func(*graphql.Response, error)) (context.CancelFunc, error) {
	header, err := c.header(request)
	if err != nil {
		return nil, err
	}
	return c.graphQLAPI.PostAsync(ctx, header, request, callback)
}

type ret struct {
	response *graphql.Response
	err      error
}

// send posts request and waits for the response or ctx.
func (c *Client) send(ctx context.Context, request graphql.PostRequest) (*graphql.Response, error) {
	ch := make(chan ret, 1)
	cancel, err := c.postAsync(ctx, request, func(r *graphql.Response, err error) { ch <- ret{r, err} })
	if err != nil {
		return nil, err
	}
	select {
	case r := <-ch:
		return r.response, r.err
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
}

func (c *Client) upload(ctx context.Context, request graphql.PostRequest, files []graphql.File) (*graphql.Response, error) {
	body, err := graphql.NewMultipart(request, files)
	if err != nil {
		return nil, err
	}
	header, err := c.signedHeader(request, body.Body)
	if err != nil {
		return nil, err
	}
	ch := make(chan ret, 1)
	cancel, err := c.graphQLAPI.PostMultipartAsync(ctx, header, body, func(r *graphql.Response, err error) { ch <- ret{r, err} })
	if err != nil {
		return nil, err
	}
	select {
	case r := <-ch:
		return r.response, r.err
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
}
