package appsync

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sony/appsync-publisher-go/graphql"
)

// testGraphQLAPI answers every request with response (or err) from a new goroutine.
type testGraphQLAPI struct {
	mu       sync.Mutex
	header   http.Header
	request  graphql.PostRequest
	files    []graphql.File
	body     []byte
	posts    int
	response *graphql.Response
	err      error
	delay    time.Duration
}

func (t *testGraphQLAPI) record(header http.Header, request graphql.PostRequest) (*graphql.Response, error, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.header = header
	t.request = request
	t.posts++
	if t.err != nil {
		return nil, t.err, t.delay
	}
	if t.response != nil {
		return t.response, nil, t.delay
	}
	return &testResponse, nil, t.delay
}

func (t *testGraphQLAPI) Post(header http.Header, request graphql.PostRequest) (*graphql.Response, error) {
	r, err, _ := t.record(header, request)
	return r, err
}

func (t *testGraphQLAPI) PostAsync(ctx context.Context, header http.Header, request graphql.PostRequest, callback func(*graphql.Response, error)) (context.CancelFunc, error) {
	r, err, delay := t.record(header, request)
	go func() {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				callback(nil, ctx.Err())
				return
			}
		}
		callback(r, err)
	}()
	return func() {}, nil
}

func (t *testGraphQLAPI) PostMultipartAsync(ctx context.Context, header http.Header, body *graphql.Multipart, callback func(*graphql.Response, error)) (context.CancelFunc, error) {
	t.mu.Lock()
	t.files = body.Files
	t.body = body.Body
	t.mu.Unlock()
	return t.PostAsync(ctx, header, body.Request, callback)
}

func (t *testGraphQLAPI) GetPostedHeader() http.Header {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.header
}

func (t *testGraphQLAPI) GetPostedPostRequest() graphql.PostRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.request
}

func (t *testGraphQLAPI) Posts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.posts
}

func (t *testGraphQLAPI) SetResponse(data interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.response = &graphql.Response{Data: data}
}

func variables(t *testing.T, v interface{}) *json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	raw := json.RawMessage(b)
	return &raw
}

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     slog.LevelWarn,
		AddSource: true,
	})))
	os.Exit(m.Run())
}
