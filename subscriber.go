package appsync

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/appsync-publisher-go/graphql"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttSubscribeMaxElapsedTime = 60 * time.Second
	mqttConnectMaxElapsedTime   = 5 * time.Minute
	mqttDisconnectQuiesce       = 100
)

// Subscriber has MQTT connections and subscription information.
type Subscriber struct {
	clientID         string
	topics           []string
	url              string
	callback         func(response *graphql.Response)
	onConnectionLost func(err error)

	mqtt MQTT.Client
}

// NewSubscriber returns a new Subscriber instance, or nil when the
// extensions do not describe exactly one MQTT connection.
func NewSubscriber(extensions Extensions, callback func(response *graphql.Response), onConnectionLost func(err error)) *Subscriber {
	connections := len(extensions.Subscription.MqttConnections)
	switch {
	case connections == 0:
		slog.Warn("there is no mqtt connection")
		return nil
	case connections > 1:
		slog.Warn("multiple mqtt connections are currently not supported", "connections", connections)
		return nil
	}

	mqttConnection := extensions.Subscription.MqttConnections[0]
	return &Subscriber{
		topics:           mqttConnection.Topics,
		url:              mqttConnection.URL,
		clientID:         mqttConnection.Client,
		callback:         callback,
		onConnectionLost: onConnectionLost,
	}
}

func (s *Subscriber) onMessage(_ MQTT.Client, msg MQTT.Message) {
	r := new(graphql.Response)
	if err := json.Unmarshal(msg.Payload(), r); err != nil {
		slog.Error("error decoding mqtt message", "topic", msg.Topic(), "error", err)
		return
	}
	s.callback(r)
}

// Start starts a new subscription.
func (s *Subscriber) Start() error {
	opts := MQTT.NewClientOptions().AddBroker(s.url).SetClientID(s.clientID).SetAutoReconnect(false)

	ch := make(chan error, 1)

	opts.OnConnect = func(c MQTT.Client) {
		filters := map[string]byte{}
		for _, topic := range s.topics {
			filters[topic] = 0
		}
		_, err := backoff.Retry(context.Background(), func() (struct{}, error) {
			if token := c.SubscribeMultiple(filters, s.onMessage); token.Wait() && token.Error() != nil {
				slog.Debug("mqtt subscribe failed", "error", token.Error())
				return struct{}{}, token.Error()
			}
			return struct{}{}, nil
		}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(mqttSubscribeMaxElapsedTime))
		select {
		case ch <- err:
		default:
		}
	}

	opts.OnConnectionLost = func(c MQTT.Client, err error) {
		slog.Warn("mqtt connection lost", "error", err)
		s.onConnectionLost(err)
	}

	mqtt := MQTT.NewClient(opts)
	_, err := backoff.Retry(context.Background(), func() (struct{}, error) {
		if token := mqtt.Connect(); token.Wait() && token.Error() != nil {
			slog.Debug("mqtt connect failed", "url", s.url, "error", token.Error())
			return struct{}{}, token.Error()
		}
		s.mqtt = mqtt
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(mqttConnectMaxElapsedTime))
	if err != nil {
		return err
	}

	return <-ch
}

// Stop ends the subscription.
func (s *Subscriber) Stop() {
	if s.mqtt == nil {
		return
	}
	for _, topic := range s.topics {
		if token := s.mqtt.Unsubscribe(topic); token.Wait() && token.Error() != nil {
			slog.Warn("mqtt unsubscribe failed", "topic", topic, "error", token.Error())
		}
	}
	s.mqtt.Disconnect(mqttDisconnectQuiesce)
}
