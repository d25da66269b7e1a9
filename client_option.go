package appsync

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	sdkv2_v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	sdkv1_v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
	"github.com/sony/appsync-publisher-go/cache"
)

// ClientOption represents options for an AppSync client.
type ClientOption func(*Client)

// WithSubscriberID returns a ClientOption configured with the given AppSync subscriber ID
func WithSubscriberID(subscriberID string) ClientOption {
	return func(c *Client) {
		c.subscriberID = subscriberID
	}
}

// WithIAMAuthorizationV1 returns a ClientOption configured with the given sdk v1 signature version 4 signer.
func WithIAMAuthorizationV1(signer *sdkv1_v4.Signer, region, url string) ClientOption {
	return func(c *Client) {
		c.signer = &_signer{signer, region, url, nil}
	}
}

// WithIAMAuthorizationV2 returns a ClientOption configured with the given sdk v2 signature version 4 signer.
func WithIAMAuthorizationV2(signer *sdkv2_v4.Signer, creds aws.Credentials, region, url string) ClientOption {
	return func(c *Client) {
		c.signer = &_signer{signer, region, url, &creds}
	}
}

// WithCache returns a ClientOption storing responses in the given store.
// The default is an in-memory store.
func WithCache(store cache.Store) ClientOption {
	return func(c *Client) {
		c.cache = cache.New(store)
	}
}

// WithRealtimeEndpoint returns a ClientOption that makes Subscribe use the
// graphql-ws protocol against the given AppSync realtime endpoint. Without
// it Subscribe falls back to MQTT over WebSocket.
func WithRealtimeEndpoint(endpoint string, opts ...PureWebSocketSubscriberOption) ClientOption {
	return func(c *Client) {
		c.realtime = &realtimeConfig{endpoint, opts}
	}
}
