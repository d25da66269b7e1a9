package appsync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/appsync-publisher-go/graphql"
)

// newInspectServer answers with the request's content type and X-Test header.
func newInspectServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType := r.Header.Get("Content-Type")
		if r.Header.Get("X-Delay") != "" {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"inspect": {"contentType": "` + contentType + `", "test": "` + r.Header.Get("X-Test") + `"}}}`))
	}))
}

type inspected struct {
	ContentType string `json:"contentType"`
	Test        string `json:"test"`
}

func TestGraphQLClient(t *testing.T) {
	server := newInspectServer()
	defer server.Close()
	api := NewGraphQLClient(graphql.NewClient(server.URL))
	header := http.Header{"X-Test": {"forwarded"}}

	multipart, err := graphql.NewMultipart(graphql.PostRequest{Query: "mutation"},
		[]graphql.File{{FieldName: "file", OriginalName: "a.txt", Data: []byte("alpha")}})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name            string
		call            func(cb func(*graphql.Response, error)) (context.CancelFunc, error)
		wantContentType string
	}{
		{
			name: "post",
			call: func(cb func(*graphql.Response, error)) (context.CancelFunc, error) {
				res, err := api.Post(header, graphql.PostRequest{})
				cb(res, err)
				return func() {}, nil
			},
			wantContentType: "application/json",
		},
		{
			name: "post async",
			call: func(cb func(*graphql.Response, error)) (context.CancelFunc, error) {
				return api.PostAsync(context.Background(), header, graphql.PostRequest{}, cb)
			},
			wantContentType: "application/json",
		},
		{
			name: "multipart",
			call: func(cb func(*graphql.Response, error)) (context.CancelFunc, error) {
				return api.PostMultipartAsync(context.Background(), header, multipart, cb)
			},
			wantContentType: multipart.ContentType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := make(chan ret, 1)
			cancel, err := tt.call(func(r *graphql.Response, err error) { ch <- ret{r, err} })
			if err != nil {
				t.Fatal(err)
			}
			if cancel == nil {
				t.Fatal("cancel is nil")
			}
			r := <-ch
			if r.err != nil {
				t.Fatal(r.err)
			}
			if *r.response.StatusCode != http.StatusOK {
				t.Fatal(r.response.StatusCode)
			}
			var got inspected
			if err := r.response.DataAs(&got); err != nil {
				t.Fatal(err)
			}
			if got.ContentType != tt.wantContentType || got.Test != "forwarded" {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestGraphQLClientForwardsContext(t *testing.T) {
	server := newInspectServer()
	defer server.Close()
	api := NewGraphQLClient(graphql.NewClient(server.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ch := make(chan ret, 1)
	if _, err := api.PostAsync(ctx, http.Header{"X-Delay": {"1"}}, graphql.PostRequest{}, func(r *graphql.Response, err error) { ch <- ret{r, err} }); err != nil {
		t.Fatal(err)
	}
	r := <-ch
	if r.response != nil {
		t.Fatal(r.response)
	}
	if !errors.Is(r.err, context.DeadlineExceeded) {
		t.Fatalf("err: %v", r.err)
	}
}
