package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Client represents a generic GraphQL API client.
type Client struct {
	endpoint       string
	timeout        time.Duration
	maxElapsedTime time.Duration
	header         http.Header
	http           *http.Client
}

// NewClient returns a Client instance.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	c := &Client{
		endpoint:       endpoint,
		timeout:        30 * time.Second,
		maxElapsedTime: 20 * time.Second,
		header:         http.Header{},
		http:           &http.Client{Transport: transport},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post is a synchronous GraphQL POST request.
func (c *Client) Post(header http.Header, request PostRequest) (*Response, error) {
	type ret struct {
		response *Response
		err      error
	}
	ch := make(chan ret, 1)
	if _, err := c.PostAsync(context.Background(), header, request, func(response *Response, err error) { ch <- ret{response, err} }); err != nil {
		return nil, err
	}
	r := <-ch
	return r.response, r.err
}

// PostAsync is an asynchronous GraphQL POST request.
// The callback is invoked exactly once from another goroutine.
func (c *Client) PostAsync(ctx context.Context, header http.Header, request PostRequest, callback func(*Response, error)) (context.CancelFunc, error) {
	body, err := json.Marshal(request)
	if err != nil {
		slog.Error("error marshaling request", "error", err)
		return nil, err
	}
	return c.do(ctx, header, "application/json", body, callback), nil
}

// UploadAsync is an asynchronous GraphQL multipart request carrying files.
func (c *Client) UploadAsync(ctx context.Context, header http.Header, request PostRequest, files []File, callback func(*Response, error)) (context.CancelFunc, error) {
	m, err := NewMultipart(request, files)
	if err != nil {
		slog.Error("error building multipart body", "error", err)
		return nil, err
	}
	return c.PostMultipartAsync(ctx, header, m, callback)
}

// PostMultipartAsync sends an already encoded multipart request.
func (c *Client) PostMultipartAsync(ctx context.Context, header http.Header, m *Multipart, callback func(*Response, error)) (context.CancelFunc, error) {
	if m == nil || len(m.Body) == 0 {
		return nil, errors.New("empty multipart request")
	}
	return c.do(ctx, header, m.ContentType, m.Body, callback), nil
}

func (c *Client) do(ctx context.Context, header http.Header, contentType string, body []byte, callback func(*Response, error)) context.CancelFunc {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	newRequest := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		for k, v := range c.header {
			req.Header[k] = v
		}
		for k, v := range header {
			req.Header[k] = v
		}
		return req, nil
	}

	go func() {
		defer cancel()

		var response Response
		var errToCallback error
		b := backoff.NewExponentialBackOff()
		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			response = Response{}
			errToCallback = nil

			req, e := newRequest()
			if e != nil {
				errToCallback = e
				return struct{}{}, nil
			}
			r, e := c.http.Do(req)
			if e != nil {
				slog.Debug("error posting graphql request", "error", e)
				errToCallback = e
				var uerr *url.Error
				if errors.As(e, &uerr) && uerr.Timeout() {
					if t, ok := c.http.Transport.(*http.Transport); ok {
						t.CloseIdleConnections()
					}
				}
				return struct{}{}, nil
			}
			defer func() {
				if e := r.Body.Close(); e != nil {
					slog.Debug("error closing response body", "error", e)
				}
			}()

			payload, e := io.ReadAll(r.Body)
			if e != nil {
				errToCallback = e
				return struct{}{}, nil
			}

			if r.StatusCode != http.StatusOK {
				response.StatusCode = &r.StatusCode
				errs := []interface{}{http.StatusText(r.StatusCode)}
				response.Errors = &errs
				// should retry
				if r.StatusCode == http.StatusInternalServerError || r.StatusCode == http.StatusServiceUnavailable {
					e := fmt.Errorf("%s", http.StatusText(r.StatusCode))
					slog.Debug("retrying graphql request", "status", r.StatusCode)
					return struct{}{}, e
				}
				return struct{}{}, nil
			}

			if e := json.Unmarshal(payload, &response); e != nil {
				errToCallback = e
				return struct{}{}, nil
			}
			response.StatusCode = &r.StatusCode
			return struct{}{}, nil
		}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(c.maxElapsedTime))
		// canceled while waiting to retry
		if err != nil && errToCallback == nil && ctx.Err() != nil {
			errToCallback = ctx.Err()
		}

		if errToCallback != nil {
			callback(nil, errToCallback)
			return
		}
		callback(&response, nil)
	}()

	return cancel
}
