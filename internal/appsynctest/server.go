// Package appsynctest provides an in-process AppSync echo server for tests
// and examples. It answers queries and mutations with graph-gophers/graphql-go,
// hands out MQTT subscription extensions, speaks graphql-ws on the realtime
// endpoint and accepts multipart uploads.
package appsynctest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	graphqlgo "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/sony/appsync-publisher-go/graphql"
)

const (
	mqttEchoTopic = "echo"
	schema        = `
schema {
	query: Query
	mutation: Mutation
	subscription: Subscription
}

type Query {
	message: String!
}

type Mutation {
	echo(message: String!): String!
}

type Subscription {
	subscribeToEcho: String!
}
`
	// InitialMessage is the message the server answers with before any echo mutation.
	InitialMessage = "Hello, AppSync!"

	gqlwsconnack = `
{
	"type": "connection_ack",
	"payload" : {
		"connectionTimeoutMs": 300000
	}
}
`
	gqlwsstartackfmt = `
{
	"type": "start_ack",
	"id" : "%s"
}
`
	gqlwsdatafmt = `
{
	"type": "data",
	"id" : "%s",
	"payload": %s
}
`
	gqlwscompletefmt = `
{
	"type": "complete",
	"id" : "%s"
}
`
)

// sessions is the set of websocket connections subscribed to echoes,
// keyed by connection. The value is the graphql-ws subscription id.
type sessions struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]string
}

func newSessions() *sessions {
	return &sessions{conns: map[*websocket.Conn]string{}}
}

func (s *sessions) add(ws *websocket.Conn, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[ws] = id
}

func (s *sessions) remove(ws *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, ws)
}

func (s *sessions) snapshot() map[*websocket.Conn]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[*websocket.Conn]string, len(s.conns))
	for ws, id := range s.conns {
		m[ws] = id
	}
	return m
}

// lockedConn serializes writes to a websocket connection.
type lockedConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

var (
	writersMu sync.Mutex
	writers   = map[*websocket.Conn]*lockedConn{}
)

func writerFor(ws *websocket.Conn) *lockedConn {
	writersMu.Lock()
	defer writersMu.Unlock()
	w, ok := writers[ws]
	if !ok {
		w = &lockedConn{ws: ws}
		writers[ws] = w
	}
	return w
}

func forgetWriter(ws *websocket.Conn) {
	writersMu.Lock()
	defer writersMu.Unlock()
	delete(writers, ws)
}

func (l *lockedConn) writePacket(mt int, p packets.ControlPacket) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	writer, err := l.ws.NextWriter(mt)
	if err != nil {
		return err
	}
	if err := p.Write(writer); err != nil {
		return err
	}
	return writer.Close()
}

func (l *lockedConn) writeJSON(v interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ws.WriteJSON(v)
}

// echoPublisher forwards mutation responses to every subscriber.
type echoPublisher struct {
	w         http.ResponseWriter
	mqtt      *sessions
	graphqlws *sessions
}

func (m *echoPublisher) Header() http.Header {
	return m.w.Header()
}

func (m *echoPublisher) Write(payload []byte) (int, error) {
	b := append([]byte(nil), payload...)
	for ws := range m.mqtt.snapshot() {
		go func(ws *websocket.Conn) {
			pub := packets.NewControlPacket(packets.Publish).(*packets.PublishPacket)
			pub.TopicName = mqttEchoTopic
			pub.Payload = b
			if err := writerFor(ws).writePacket(websocket.BinaryMessage, pub); err != nil {
				slog.Warn("mqtt publish failed", "error", err)
			}
		}(ws)
	}
	for ws, id := range m.graphqlws.snapshot() {
		go func(ws *websocket.Conn, id string) {
			data := json.RawMessage(fmt.Sprintf(gqlwsdatafmt, id, string(b)))
			if err := writerFor(ws).writeJSON(data); err != nil {
				slog.Warn("graphql-ws publish failed", "error", err)
			}
		}(ws, id)
	}
	return m.w.Write(payload)
}

func (m *echoPublisher) WriteHeader(statusCode int) {
	m.w.WriteHeader(statusCode)
}

type echoResolver struct {
	mu      sync.Mutex
	message string
}

func (e *echoResolver) Message() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.message
}

func (e *echoResolver) Echo(args struct{ Message string }) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.message = args.Message
	return e.message
}

func (e *echoResolver) SubscribeToEcho() string {
	return e.Message()
}

func mqttWsSession(ws *websocket.Conn, subscribers *sessions) {
	defer func() {
		subscribers.remove(ws)
		forgetWriter(ws)
		if err := ws.Close(); err != nil {
			slog.Debug("error closing mqtt session", "error", err)
		}
	}()

	w := writerFor(ws)
	for {
		mt, r, err := ws.NextReader()
		if err != nil {
			slog.Debug("mqtt session closed", "error", err)
			return
		}

		cp, err := packets.ReadPacket(r)
		if err != nil {
			slog.Warn("error reading mqtt packet", "error", err)
			return
		}

		var ack packets.ControlPacket
		switch p := cp.(type) {
		case *packets.ConnectPacket:
			ack = packets.NewControlPacket(packets.Connack)
		case *packets.SubscribePacket:
			suback := packets.NewControlPacket(packets.Suback).(*packets.SubackPacket)
			suback.MessageID = p.MessageID
			suback.ReturnCodes = make([]byte, len(p.Topics))
			ack = suback
			subscribers.add(ws, "")
		case *packets.UnsubscribePacket:
			unsuback := packets.NewControlPacket(packets.Unsuback).(*packets.UnsubackPacket)
			unsuback.MessageID = p.MessageID
			ack = unsuback
			subscribers.remove(ws)
		case *packets.PingreqPacket:
			ack = packets.NewControlPacket(packets.Pingresp)
		case *packets.DisconnectPacket:
			return
		}
		if ack == nil {
			continue
		}
		if err := w.writePacket(mt, ack); err != nil {
			slog.Warn("error writing mqtt ack", "error", err)
			return
		}
	}
}

func graphQLWsSession(ws *websocket.Conn, subscribers *sessions) {
	defer func() {
		subscribers.remove(ws)
		forgetWriter(ws)
		if err := ws.Close(); err != nil {
			slog.Debug("error closing graphql-ws session", "error", err)
		}
	}()

	w := writerFor(ws)
	for {
		msg := map[string]interface{}{}
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}

		typ, _ := msg["type"].(string)
		id, _ := msg["id"].(string)
		var ack json.RawMessage
		switch typ {
		case "connection_init":
			ack = json.RawMessage(gqlwsconnack)
		case "start":
			ack = json.RawMessage(fmt.Sprintf(gqlwsstartackfmt, id))
			subscribers.add(ws, id)
		case "stop":
			ack = json.RawMessage(fmt.Sprintf(gqlwscompletefmt, id))
			subscribers.remove(ws)
		default:
			slog.Warn("unknown graphql-ws message", "type", typ)
			continue
		}
		if err := w.writeJSON(ack); err != nil {
			slog.Warn("error writing graphql-ws ack", "error", err)
			return
		}
	}
}

func newSubscriptionHandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ext interface{} = map[string]interface{}{
			"subscription": map[string]interface{}{
				"version": "1.0.0",
				"mqttConnections": []map[string]interface{}{
					{
						"url": fmt.Sprintf("ws://%s", r.Host),
						"topics": []string{
							mqttEchoTopic,
						},
						"client": uuid.New().String(),
					},
				},
				"newSubscriptions": map[string]interface{}{
					"subscribeToEcho": map[string]interface{}{
						"topic":      mqttEchoTopic,
						"expireTime": nil,
					},
				},
			},
		}
		writeResponse(w, graphql.Response{Extensions: &ext})
	}
}

// uploadHandler answers a multipart request with the names of the uploaded
// files in part order: {"data":{"upload":["a.txt", ...]}}.
func uploadHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := new(graphql.PostRequest)
	if err := json.Unmarshal([]byte(r.FormValue("operations")), req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fileMap := map[string][]string{}
	if err := json.Unmarshal([]byte(r.FormValue("map")), &fileMap); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	names := []string{}
	for i := 0; i < len(fileMap); i++ {
		files := r.MultipartForm.File[fmt.Sprint(i)]
		if len(files) == 0 {
			http.Error(w, fmt.Sprintf("missing part %d", i), http.StatusBadRequest)
			return
		}
		names = append(names, files[0].Filename)
	}
	writeResponse(w, graphql.Response{Data: map[string]interface{}{"upload": names}})
}

func writeResponse(w http.ResponseWriter, resp graphql.Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		slog.Error("error encoding response", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(b); err != nil {
		slog.Error("error writing response", "error", err)
	}
}

func isWebSocket(r *http.Request, protocol string) bool {
	return r.Method == http.MethodGet && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		r.Header.Get("Sec-Websocket-Protocol") == protocol
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func newWsHandlerFunc(protocol string, session func(*websocket.Conn, *sessions), subscribers *sessions) http.HandlerFunc {
	upgrader := websocket.Upgrader{Subprotocols: []string{protocol}}
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}
		go session(ws, subscribers)
	}
}

func newAppSyncEchoHandlerFunc(initialMessage string) http.HandlerFunc {
	s := graphqlgo.MustParseSchema(schema, &echoResolver{message: initialMessage})
	handler := &relay.Handler{Schema: s}
	mqttSubscribers := newSessions()
	graphqlwsSubscribers := newSessions()
	subscription := newSubscriptionHandlerFunc()
	mqttws := newWsHandlerFunc("mqtt", mqttWsSession, mqttSubscribers)
	graphqlws := newWsHandlerFunc("graphql-ws", graphQLWsSession, graphqlwsSubscribers)

	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case isWebSocket(r, "mqtt"):
			mqttws.ServeHTTP(w, r)
			return
		case isWebSocket(r, "graphql-ws"):
			graphqlws.ServeHTTP(w, r)
			return
		case isMultipart(r):
			uploadHandler(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		req := new(graphql.PostRequest)
		if err := json.Unmarshal(body, req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		switch {
		case req.IsQuery():
			handler.ServeHTTP(w, r)
		case req.IsMutation():
			handler.ServeHTTP(&echoPublisher{w, mqttSubscribers, graphqlwsSubscribers}, r)
		case req.IsSubscription():
			subscription.ServeHTTP(w, r)
		default:
			http.Error(w, "unsupported operation", http.StatusBadRequest)
		}
	}
}

// NewAppSyncEchoServer starts and returns an appsync echo server instance.
func NewAppSyncEchoServer() *httptest.Server {
	return httptest.NewServer(newAppSyncEchoHandlerFunc(InitialMessage))
}
