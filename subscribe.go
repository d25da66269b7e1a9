package appsync

import (
	"context"
	"log/slog"

	"github.com/sony/appsync-publisher-go/graphql"
)

type subscriber interface {
	Start() error
	Stop()
}

// Subscribe starts a subscription and calls handler once per message.
// Connection loss is reported to handler as an error. The subscription runs
// until Cancel is called or ctx is done.
func (c *Client) Subscribe(ctx context.Context, subscription graphql.PostRequest, queue DispatchQueue, handler ResultHandler) Cancellable {
	t := newTask(ctx, queue)
	onReceive := func(r *graphql.Response) {
		t.deliver(handler, &GraphQLResult{Response: r, Source: SourceServer}, nil)
	}
	onConnectionLost := func(err error) {
		t.deliver(handler, nil, err)
	}

	go func() {
		s, err := c.newSubscriber(t.ctx, subscription, onReceive, onConnectionLost)
		if err != nil {
			t.deliver(handler, nil, err)
			return
		}
		if err := s.Start(); err != nil {
			slog.Error("unable to start subscriber", "error", err)
			t.deliver(handler, nil, err)
			return
		}
		<-t.ctx.Done()
		s.Stop()
	}()
	return t
}

func (c *Client) newSubscriber(ctx context.Context, subscription graphql.PostRequest,
	onReceive func(*graphql.Response), onConnectionLost func(error)) (subscriber, error) {
	if c.realtime != nil {
		opts := c.realtime.opts
		if c.signer != nil {
			opts = append([]PureWebSocketSubscriberOption{func(p *PureWebSocketSubscriber) { p.sigv4 = c.signer }}, opts...)
		}
		return newPureWebSocketSubscriber(ctx, c.realtime.endpoint, subscription, onReceive, onConnectionLost, opts...), nil
	}

	response, err := c.send(ctx, subscription)
	if err != nil {
		return nil, err
	}
	ext, err := NewExtensions(response)
	if err != nil {
		return nil, err
	}
	s := NewSubscriber(*ext, onReceive, onConnectionLost)
	if s == nil {
		return nil, ErrNoMQTTConnection
	}
	return s, nil
}
