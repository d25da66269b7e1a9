package appsync

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/appsync-publisher-go/graphql"
)

func TestPureWebSocketSubscriber_StartStop(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(pureWebSocketHandlerFunc))
	defer s.Close()

	realtimeEndpoint := strings.Replace(s.URL, "http", "ws", 1)

	tests := []struct {
		name    string
		wantErr bool
	}{
		{
			name:    "Success",
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPureWebSocketSubscriber(realtimeEndpoint, graphql.PostRequest{},
				func(response *graphql.Response) {}, func(err error) {})

			if err := p.Start(); (err != nil) != tt.wantErr {
				t.Errorf("PureWebSocketSubscriber.Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			p.Stop()
		})
	}
}

func TestPureWebSocketSubscriber_Data(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(pureWebSocketHandlerFunc))
	defer s.Close()

	ch := make(chan *graphql.Response, 2)
	p := NewPureWebSocketSubscriber(strings.Replace(s.URL, "http", "ws", 1), graphql.PostRequest{},
		func(response *graphql.Response) { ch <- response }, func(err error) {})
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	select {
	case r := <-ch:
		message := new(string)
		if err := r.DataAs(message); err != nil {
			t.Fatal(err)
		}
		if *message != "pushed" {
			t.Fatalf("message: %s", *message)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no data received")
	}
}

func TestPureWebSocketSubscriber_Error(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		go func() {
			defer ws.Close()
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"connection_ack","payload":{"connectionTimeoutMs":1000}}`)); err != nil {
				return
			}
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
			_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","id":"1","payload":{"errors":[{"errorType":"Unauthorized","message":"denied"}]}}`))
		}()
	}))
	defer s.Close()

	ch := make(chan *graphql.Response, 1)
	p := NewPureWebSocketSubscriber(strings.Replace(s.URL, "http", "ws", 1), graphql.PostRequest{},
		func(response *graphql.Response) { ch <- response }, func(err error) {})
	if err := p.Start(); err == nil {
		t.Fatal("Start succeeded without start_ack")
	}
	defer p.Abort()

	select {
	case r := <-ch:
		if !r.HasErrors() {
			t.Fatalf("response: %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("error was not reported")
	}
}

func pureWebSocketSession(ws *websocket.Conn) {
	defer func() {
		if err := ws.Close(); err != nil {
			slog.Debug("error closing websocket", "error", err)
		}
	}()

	handlers := map[string]func(in []byte) ([]interface{}, bool){
		"connection_init": func(in []byte) ([]interface{}, bool) {
			m := connectionAckMessage{message: message{Type: "connection_ack"}}
			m.Payload.ConnectionTimeoutMs = 1000
			return []interface{}{m}, false
		},
		"start": func(in []byte) ([]interface{}, bool) {
			start := new(startMessage)
			if err := json.Unmarshal(in, start); err != nil {
				return nil, true
			}
			data := processingDataMessage{
				message: message{Type: "data"},
				ID:      start.ID,
				Payload: processingDataPayload{Data: map[string]interface{}{"subscribeToEcho": "pushed"}},
			}
			return []interface{}{startAckMessage{message: message{Type: "start_ack"}, ID: start.ID}, data}, false
		},
		"stop": func(in []byte) ([]interface{}, bool) {
			stop := new(stopMessage)
			if err := json.Unmarshal(in, stop); err != nil {
				return nil, true
			}
			return []interface{}{completeMessage{message: message{Type: "complete"}, ID: stop.ID}}, true
		},
	}

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}

		msg := new(message)
		if err := json.Unmarshal(payload, msg); err != nil {
			slog.Warn("error decoding message", "error", err)
			return
		}

		handler, ok := handlers[msg.Type]
		if !ok {
			slog.Warn("invalid message received", "type", msg.Type)
			continue
		}

		out, finish := handler(payload)
		for _, m := range out {
			if err := ws.WriteJSON(m); err != nil {
				slog.Warn("error writing message", "error", err)
				return
			}
		}
		if finish {
			return
		}
	}
}

func pureWebSocketHandlerFunc(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	go pureWebSocketSession(ws)
}
