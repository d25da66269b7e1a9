package appsync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sony/appsync-publisher-go/graphql"
)

type message struct {
	Type string `json:"type"`
}

type connectionAckMessage struct {
	message
	Payload struct {
		ConnectionTimeoutMs int64 `json:"connectionTimeoutMs"`
	} `json:"payload"`
}

type startMessage struct {
	message
	ID      string                          `json:"id"`
	Payload subscriptionRegistrationPayload `json:"payload"`
}

type subscriptionRegistrationPayload struct {
	Data       string                                    `json:"data"`
	Extensions subscriptionRegistrationPayloadExtensions `json:"extensions"`
}

type subscriptionRegistrationPayloadExtensions struct {
	Authorization map[string]string `json:"authorization"`
}

type startAckMessage struct {
	message
	ID string `json:"id"`
}

type processingDataMessage struct {
	message
	ID      string                `json:"id"`
	Payload processingDataPayload `json:"payload"`
}

type processingDataPayload struct {
	Data   interface{}    `json:"data"`
	Errors *[]interface{} `json:"errors,omitempty"`
}

type stopMessage struct {
	message
	ID string `json:"id"`
}

type completeMessage struct {
	message
	ID string `json:"id"`
}

type errorMessage struct {
	message
	ID      string       `json:"id"`
	Payload errorPayload `json:"payload"`
}

type errorPayload struct {
	Errors []struct {
		ErrorType string `json:"errorType"`
		Message   string `json:"message"`
	} `json:"errors"`
}

var (
	connectionInitMsg = message{Type: "connection_init"}
)

// PureWebSocketSubscriber has pure WebSocket connections and subscription information.
type PureWebSocketSubscriber struct {
	realtimeEndpoint string
	request          graphql.PostRequest
	header           http.Header
	sigv4            sigv4
	cancel           context.CancelFunc
	op               *realtimeWebSocketOperation
}

// NewPureWebSocketSubscriber returns a PureWebSocketSubscriber instance.
func NewPureWebSocketSubscriber(realtimeEndpoint string, request graphql.PostRequest,
	onReceive func(response *graphql.Response),
	onConnectionLost func(err error),
	opts ...PureWebSocketSubscriberOption) *PureWebSocketSubscriber {
	return newPureWebSocketSubscriber(context.Background(), realtimeEndpoint, request, onReceive, onConnectionLost, opts...)
}

func newPureWebSocketSubscriber(ctx context.Context, realtimeEndpoint string, request graphql.PostRequest,
	onReceive func(response *graphql.Response),
	onConnectionLost func(err error),
	opts ...PureWebSocketSubscriberOption) *PureWebSocketSubscriber {
	ctx, cancel := context.WithCancel(ctx)
	p := PureWebSocketSubscriber{
		realtimeEndpoint: realtimeEndpoint,
		request:          request,
		header:           http.Header{},
		cancel:           cancel,
		op:               newRealtimeWebSocketOperation(ctx, onReceive, onConnectionLost),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return &p
}

func (p *PureWebSocketSubscriber) setupHeaders(payload []byte) (map[string]string, error) {
	if p.sigv4 == nil {
		headers := map[string]string{}
		for k := range p.header {
			headers[k] = p.header.Get(k)
		}
		return headers, nil
	}
	return p.sigv4.signWS(payload)
}

// Start starts a new subscription.
func (p *PureWebSocketSubscriber) Start() error {
	bpayload := []byte("{}")
	header, err := p.setupHeaders(bpayload)
	if err != nil {
		slog.Error("error setting up connection headers", "error", err)
		return err
	}
	bheader, err := json.Marshal(header)
	if err != nil {
		return err
	}
	if err := p.op.connect(p.realtimeEndpoint, bheader, bpayload); err != nil {
		return err
	}
	if err := p.op.connectionInit(); err != nil {
		return err
	}

	brequest, err := json.Marshal(p.request)
	if err != nil {
		return err
	}
	authz, err := p.setupHeaders(brequest)
	if err != nil {
		slog.Error("error setting up subscription authorization", "error", err)
		return err
	}
	return p.op.start(brequest, authz)
}

// Stop ends the subscription.
func (p *PureWebSocketSubscriber) Stop() {
	p.op.stop()
	p.op.disconnect()
	p.cancel()
}

// Abort ends the subscription forcibly.
func (p *PureWebSocketSubscriber) Abort() {
	p.cancel()
	p.op.mu.Lock()
	p.op.subscriptionID = ""
	p.op.mu.Unlock()
	p.op.disconnect()
}

const defaultTimeout = time.Duration(300000) * time.Millisecond

type realtimeWebSocketOperation struct {
	ctx              context.Context
	onReceive        func(response *graphql.Response)
	onConnectionLost func(err error)

	mu                sync.Mutex
	ws                *websocket.Conn
	connectionTimeout time.Duration
	subscriptionID    string
	connackCh         chan connectionAckMessage
	startackCh        chan startAckMessage
	completeCh        chan completeMessage
}

func newRealtimeWebSocketOperation(ctx context.Context, onReceive func(response *graphql.Response),
	onConnectionLost func(err error)) *realtimeWebSocketOperation {
	return &realtimeWebSocketOperation{ctx: ctx, onReceive: onReceive, onConnectionLost: onConnectionLost}
}

func (r *realtimeWebSocketOperation) readLoop(ws *websocket.Conn) {
	defer close(r.connackCh)
	defer close(r.startackCh)
	defer close(r.completeCh)

	if err := ws.SetReadDeadline(time.Now().Add(defaultTimeout)); err != nil {
		slog.Error("error setting read deadline", "error", err)
		return
	}

	handlers := map[string]func(b []byte) (finish bool){
		"connection_ack": r.onConnected,
		"ka":             r.onKeepAlive,
		"start_ack":      r.onStarted,
		"data":           r.onData,
		"complete":       r.onStopped,
		"error":          r.onError,
	}
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			slog.Debug("websocket read failed", "error", err)
			if strings.Contains(err.Error(), "i/o timeout") {
				r.onConnectionLost(err)
			}
			return
		}

		msg := new(message)
		if err := json.Unmarshal(payload, msg); err != nil {
			slog.Error("error decoding websocket message", "error", err)
			return
		}

		handler, ok := handlers[msg.Type]
		if !ok {
			slog.Warn("invalid message received", "type", msg.Type)
			continue
		}
		if handler(payload) {
			return
		}
	}
}

func (r *realtimeWebSocketOperation) conn() *websocket.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ws
}

func (r *realtimeWebSocketOperation) connect(realtimeEndpoint string, header, payload []byte) error {
	if r.conn() != nil {
		return errors.New("already connected")
	}

	b64h := base64.StdEncoding.EncodeToString(header)
	b64p := base64.StdEncoding.EncodeToString(payload)
	endpoint := fmt.Sprintf("%s?header=%s&payload=%s", realtimeEndpoint, b64h, b64p)

	ws, err := backoff.Retry(r.ctx, func() (*websocket.Conn, error) {
		ws, _, err := websocket.DefaultDialer.DialContext(r.ctx, endpoint, http.Header{"sec-websocket-protocol": []string{"graphql-ws"}})
		if err != nil {
			slog.Debug("websocket dial failed", "error", err)
			return nil, err
		}
		return ws, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()))
	if err != nil {
		slog.Error("unable to connect realtime endpoint", "error", err)
		return err
	}

	r.mu.Lock()
	r.ws = ws
	r.connackCh = make(chan connectionAckMessage, 1)
	r.startackCh = make(chan startAckMessage, 1)
	r.completeCh = make(chan completeMessage, 1)
	r.mu.Unlock()
	go r.readLoop(ws)
	return nil
}

func (r *realtimeWebSocketOperation) write(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ws := r.conn()
	if ws == nil {
		return errors.New("not connected")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return ws.WriteMessage(websocket.TextMessage, b)
}

func (r *realtimeWebSocketOperation) onConnected(payload []byte) bool {
	connack := new(connectionAckMessage)
	if err := json.Unmarshal(payload, connack); err != nil {
		slog.Error("error decoding connection_ack", "error", err)
		return true
	}
	r.connackCh <- *connack
	return false
}

func (r *realtimeWebSocketOperation) connectionInit() error {
	r.mu.Lock()
	initialized := r.connectionTimeout != 0
	r.mu.Unlock()
	if initialized {
		return errors.New("already connection initialized")
	}
	if err := r.write(connectionInitMsg); err != nil {
		return err
	}
	connack, ok := <-r.connackCh
	if !ok {
		return errors.New("connection failed")
	}
	r.mu.Lock()
	r.connectionTimeout = time.Duration(connack.Payload.ConnectionTimeoutMs) * time.Millisecond
	r.mu.Unlock()
	return nil
}

func (r *realtimeWebSocketOperation) onKeepAlive([]byte) bool {
	r.mu.Lock()
	timeout := defaultTimeout
	if r.connectionTimeout != 0 {
		timeout = r.connectionTimeout
	}
	ws := r.ws
	r.mu.Unlock()
	if ws == nil {
		return true
	}
	if err := ws.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		slog.Error("error extending read deadline", "error", err)
		return true
	}
	return false
}

func (r *realtimeWebSocketOperation) start(request []byte, authorization map[string]string) error {
	r.mu.Lock()
	started := len(r.subscriptionID) != 0
	r.mu.Unlock()
	if started {
		return errors.New("already started")
	}

	start := startMessage{
		message: message{"start"},
		ID:      uuid.New().String(),
		Payload: subscriptionRegistrationPayload{
			Data: string(request),
			Extensions: subscriptionRegistrationPayloadExtensions{
				Authorization: authorization,
			},
		},
	}
	if err := r.write(start); err != nil {
		return err
	}

	startack, ok := <-r.startackCh
	if !ok {
		return errors.New("subscription registration failed")
	}
	r.mu.Lock()
	r.subscriptionID = startack.ID
	r.mu.Unlock()
	return nil
}

func (r *realtimeWebSocketOperation) onStarted(payload []byte) bool {
	startack := new(startAckMessage)
	if err := json.Unmarshal(payload, startack); err != nil {
		slog.Error("error decoding start_ack", "error", err)
		return true
	}
	r.startackCh <- *startack
	return false
}

func (r *realtimeWebSocketOperation) onData(payload []byte) bool {
	data := new(processingDataMessage)
	if err := json.Unmarshal(payload, data); err != nil {
		slog.Error("error decoding data", "error", err)
		return true
	}
	r.onReceive(&graphql.Response{
		Data:   data.Payload.Data,
		Errors: data.Payload.Errors,
	})
	return false
}

func (r *realtimeWebSocketOperation) stop() {
	r.mu.Lock()
	id := r.subscriptionID
	r.mu.Unlock()
	if len(id) == 0 {
		return
	}
	if err := r.write(stopMessage{message{"stop"}, id}); err != nil {
		slog.Warn("unable to send stop", "error", err)
		return
	}
	if _, ok := <-r.completeCh; !ok {
		slog.Warn("unsubscribe failed")
	}
	r.mu.Lock()
	r.subscriptionID = ""
	r.mu.Unlock()
}

func (r *realtimeWebSocketOperation) onStopped(payload []byte) bool {
	complete := new(completeMessage)
	if err := json.Unmarshal(payload, complete); err != nil {
		slog.Error("error decoding complete", "error", err)
		return true
	}
	r.completeCh <- *complete
	return true
}

func (r *realtimeWebSocketOperation) disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ws == nil {
		return
	}
	if err := r.ws.Close(); err != nil {
		slog.Debug("error closing websocket", "error", err)
	}
	r.connectionTimeout = 0
	r.ws = nil
}

func (r *realtimeWebSocketOperation) onError(payload []byte) bool {
	em := new(errorMessage)
	if err := json.Unmarshal(payload, em); err != nil {
		slog.Error("error decoding error message", "error", err)
		return true
	}
	errs := make([]interface{}, len(em.Payload.Errors))
	for i, e := range em.Payload.Errors {
		errs[i] = e
	}
	r.onReceive(&graphql.Response{
		Errors: &errs,
	})
	return true
}
