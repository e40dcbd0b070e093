package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const (
	publishQoS     = 1
	publishTimeout = 5 * time.Second
)

var (
	ErrNotConnected = errors.New("mqtt client not connected")
	ErrStopped      = errors.New("mqtt client stopped")
)

// SearchEvent summarises one search. It carries no observation values.
type SearchEvent struct {
	RequestID  string    `json:"requestId"`
	Site       string    `json:"site"`
	Parameter  string    `json:"parameter"`
	Period     string    `json:"period"`
	Station    string    `json:"station,omitempty"`
	DistanceKm float64   `json:"distanceKm"`
	Attempted  []string  `json:"attempted"`
	Found      bool      `json:"found"`
	Points     int       `json:"points"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher announces completed searches.
type Publisher interface {
	PublishSearch(ctx context.Context, event SearchEvent) error
	Close()
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishSearch(context.Context, SearchEvent) error { return nil }
func (NopPublisher) Close()                                           {}

// mqttClient is the part of mqtt.Client the publisher uses.
type mqttClient interface {
	Connect() mqtt.Token
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

var _ Publisher = (*MQTTPublisher)(nil)

type MQTTPublisher struct {
	client mqttClient
	topic  string

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMQTTPublisher configures a client for broker (e.g. tcp://localhost:1883).
// Call Connect before publishing.
func NewMQTTPublisher(broker, clientID, topic string) *MQTTPublisher {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)

	// Session settings
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.Info().Str("broker", broker).Msg("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", broker).Msg("MQTT connection lost")
	})

	return newMQTTPublisher(mqtt.NewClient(opts), topic)
}

func newMQTTPublisher(client mqttClient, topic string) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		topic:  topic,
		stopCh: make(chan struct{}),
	}
}

// Connect waits for the first connection to the broker. It gives up when ctx
// is done; the client keeps retrying in the background after that.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return ErrStopped
	default:
	}

	if p.client.IsConnected() {
		return nil
	}

	token := p.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopCh:
		return ErrStopped
	}
}

func (p *MQTTPublisher) PublishSearch(ctx context.Context, event SearchEvent) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal search event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	token := p.client.Publish(p.topic, publishQoS, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", p.topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	log.Debug().
		Str("topic", p.topic).
		Str("request_id", event.RequestID).
		Msg("Published search event")
	return nil
}

// Close disconnects from the broker. Safe to call more than once.
func (p *MQTTPublisher) Close() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.client.Disconnect(250)
		log.Info().Msg("MQTT disconnected")
	})
}
