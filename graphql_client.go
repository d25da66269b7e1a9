package appsync

import (
	"context"
	"net/http"

	"github.com/sony/appsync-publisher-go/graphql"
)

// GraphQLClient is the interface to access GraphQL server.
type GraphQLClient interface {
	Post(header http.Header, request graphql.PostRequest) (*graphql.Response, error)
	PostAsync(ctx context.Context, header http.Header, request graphql.PostRequest, callback func(*graphql.Response, error)) (context.CancelFunc, error)
	PostMultipartAsync(ctx context.Context, header http.Header, body *graphql.Multipart, callback func(*graphql.Response, error)) (context.CancelFunc, error)
}

type graphQLClient struct {
	client *graphql.Client
}

// NewGraphQLClient returns a GraphQLClient interface
func NewGraphQLClient(client *graphql.Client) GraphQLClient {
	return &graphQLClient{client}
}

func (d *graphQLClient) Post(header http.Header, request graphql.PostRequest) (*graphql.Response, error) {
	return d.client.Post(header, request)
}

func (d *graphQLClient) PostAsync(ctx context.Context, header http.Header, request graphql.PostRequest, callback func(*graphql.Response, error)) (context.CancelFunc, error) {
	return d.client.PostAsync(ctx, header, request, callback)
}

func (d *graphQLClient) PostMultipartAsync(ctx context.Context, header http.Header, body *graphql.Multipart, callback func(*graphql.Response, error)) (context.CancelFunc, error) {
	return d.client.PostMultipartAsync(ctx, header, body, callback)
}
