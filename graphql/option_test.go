package graphql

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

const testEndpoint = "dummy"

func TestHeaderOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []ClientOption
		want http.Header
	}{
		{name: "none", want: http.Header{}},
		{name: "api key", opts: []ClientOption{WithAPIKey("apiKey")}, want: http.Header{"X-Api-Key": {"apiKey"}}},
		{name: "credential", opts: []ClientOption{WithCredential("token")}, want: http.Header{"Authorization": {"token"}}},
		{
			name: "headers are appended",
			opts: []ClientOption{
				WithHTTPHeader(http.Header{"Custom": {"first", "second"}}),
				WithHTTPHeader(http.Header{"custom": {"third"}}),
			},
			want: http.Header{"Custom": {"first", "second", "third"}},
		},
		{
			name: "api key is replaced",
			opts: []ClientOption{WithAPIKey("old"), WithAPIKey("new")},
			want: http.Header{"X-Api-Key": {"new"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(testEndpoint, tt.opts...)
			if !reflect.DeepEqual(client.header, tt.want) {
				t.Fatalf("got %+v, want %+v", client.header, tt.want)
			}
		})
	}
}

func TestClientHeaderIsSent(t *testing.T) {
	got := make(chan http.Header, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Clone()
		writeJSON(w, Response{Data: "data"})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithAPIKey("apiKey"))
	if _, err := client.Post(http.Header{"X-Request": {"per-request"}}, PostRequest{}); err != nil {
		t.Fatal(err)
	}
	h := <-got
	if h.Get("X-Api-Key") != "apiKey" || h.Get("X-Request") != "per-request" {
		t.Fatalf("header: %+v", h)
	}
	if h.Get("Content-Type") != "application/json" {
		t.Fatalf("Content-Type: %q", h.Get("Content-Type"))
	}
}

func TestDurationOptions(t *testing.T) {
	client := NewClient(testEndpoint)
	if client.timeout != 30*time.Second || client.maxElapsedTime != 20*time.Second {
		t.Fatalf("defaults: %v %v", client.timeout, client.maxElapsedTime)
	}
	client = NewClient(testEndpoint, WithTimeout(time.Second), WithMaxElapsedTime(2*time.Second))
	if client.timeout != time.Second || client.maxElapsedTime != 2*time.Second {
		t.Fatalf("options: %v %v", client.timeout, client.maxElapsedTime)
	}
}

func TestWithHTTPProxy(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, "http://graphql.invalid/graphql", nil)
	if err != nil {
		t.Fatal(err)
	}
	proxyOf := func(c *Client) string {
		t.Helper()
		transport, ok := c.http.Transport.(*http.Transport)
		if !ok {
			t.Fatal("client.http.Transport is invalid")
		}
		if transport == http.DefaultTransport {
			t.Fatal("client shares http.DefaultTransport")
		}
		if transport.Proxy == nil {
			return ""
		}
		u, err := transport.Proxy(req)
		if err != nil {
			t.Fatal(err)
		}
		if u == nil {
			return ""
		}
		return u.String()
	}

	proxied := NewClient(testEndpoint, WithHTTPProxy("http://proxy.invalid:3128"))
	if got := proxyOf(proxied); got != "http://proxy.invalid:3128" {
		t.Fatalf("proxy: %q", got)
	}

	// other clients and the default transport keep their own settings
	plain := NewClient(testEndpoint)
	if got := proxyOf(plain); got == "http://proxy.invalid:3128" {
		t.Fatal("proxy leaked into another client")
	}
	if u, _ := http.DefaultTransport.(*http.Transport).Proxy(req); u != nil && u.Host == "proxy.invalid:3128" {
		t.Fatal("proxy leaked into http.DefaultTransport")
	}

	invalid := NewClient(testEndpoint, WithHTTPProxy("://bad"))
	if got := proxyOf(invalid); got != proxyOf(plain) {
		t.Fatalf("invalid proxy applied: %q", got)
	}
}

func TestRequestsGoThroughProxy(t *testing.T) {
	hosts := make(chan string, 1)
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hosts <- r.URL.Host
		writeJSON(w, Response{Data: "proxied"})
	}))
	defer proxy.Close()

	client := NewClient("http://graphql.invalid/graphql", WithHTTPProxy(proxy.URL))
	res, err := client.Post(http.Header{}, PostRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Data != "proxied" {
		t.Fatalf("data: %+v", res.Data)
	}
	if host := <-hosts; host != "graphql.invalid" {
		t.Fatalf("proxied host: %q", host)
	}
}
