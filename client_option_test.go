package appsync

import (
	"context"
	"testing"

	"github.com/sony/appsync-publisher-go/cache"
)

var (
	testSubscriberID = "subscriberID"
)

func TestSubscriberID(t *testing.T) {
	client := NewClient(&testGraphQLAPI{})
	if len(client.subscriberID) != 0 {
		t.Fatal(client.subscriberID)
	}

	opt := WithSubscriberID(testSubscriberID)
	opt(client)
	if client.subscriberID != testSubscriberID {
		t.Fatal(client.subscriberID)
	}
}

func TestWithCache(t *testing.T) {
	store := cache.NewMemoryStore()
	client := NewClient(&testGraphQLAPI{}, WithCache(store))
	if err := client.cache.Write(context.Background(), "k", []byte("v"), nil); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.Load(context.Background(), "k"); !ok {
		t.Fatal("WithCache store was not used")
	}
}

func TestWithRealtimeEndpoint(t *testing.T) {
	client := NewClient(&testGraphQLAPI{})
	if client.realtime != nil {
		t.Fatal(client.realtime)
	}
	WithRealtimeEndpoint(realtimeEndpoint, WithAPIKey("host", "key"))(client)
	if client.realtime == nil || client.realtime.endpoint != realtimeEndpoint || len(client.realtime.opts) != 1 {
		t.Fatalf("%+v", client.realtime)
	}
}
