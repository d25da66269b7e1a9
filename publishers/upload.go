package publishers

import (
	"context"

	appsync "github.com/sony/appsync-publisher-go"
	"github.com/sony/appsync-publisher-go/graphql"
)

// UploadConfiguration holds the arguments of Client.Upload.
type UploadConfiguration struct {
	Client    Client
	Operation graphql.PostRequest
	Files     []graphql.File
	Context   context.Context
	Queue     appsync.DispatchQueue
}

// Upload publishes the result of a multipart upload, then completes.
type Upload struct {
	configuration UploadConfiguration
}

// NewUpload returns an Upload publisher.
func NewUpload(configuration UploadConfiguration) *Upload {
	return &Upload{configuration}
}

// Subscribe implements Publisher.
func (p *Upload) Subscribe(subscriber Subscriber[*appsync.GraphQLResult]) {
	c := p.configuration
	s := newSubscription(subscriber, func(s *subscription[*appsync.GraphQLResult]) appsync.Cancellable {
		return c.Client.Upload(c.Context, c.Operation, c.Files, c.Queue, oneShot(s))
	})
	subscriber.OnSubscribe(s)
}
