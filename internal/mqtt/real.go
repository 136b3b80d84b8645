package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const bufferCapacity = 64

// DefaultConnectWait bounds how long NewRealPublisher waits for the first
// connection before leaving paho to retry in the background.
const DefaultConnectWait = 2 * time.Second

// RealOptions configures a RealPublisher.
type RealOptions struct {
	Broker   string
	ClientID string
	Topic    string

	// ConnectWait defaults to DefaultConnectWait.
	ConnectWait time.Duration
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the broker is unreachable are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	topic  string
	logger zerolog.Logger

	mu     sync.Mutex
	buffer *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. The connection
// is retried in the background, so an unreachable broker does not fail
// startup.
func NewRealPublisher(opts RealOptions, logger zerolog.Logger) (*RealPublisher, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("broker must not be empty")
	}
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	if opts.ConnectWait <= 0 {
		opts.ConnectWait = DefaultConnectWait
	}

	p := &RealPublisher{
		topic:  opts.Topic,
		logger: logger.With().Str("component", "mqtt").Str("broker", opts.Broker).Logger(),
		buffer: newRingBuffer(bufferCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.logger.Warn().Err(err).Msg("MQTT connection lost")
		})

	p.client = paho.NewClient(clientOpts)
	// With connect retry on, the token only completes once a connection succeeds.
	token := p.client.Connect()
	if token.WaitTimeout(opts.ConnectWait) && token.Error() != nil {
		return nil, fmt.Errorf("connect to broker: %w", token.Error())
	}
	if !p.client.IsConnectionOpen() {
		p.logger.Warn().Msg("MQTT broker not reachable yet, retrying in background")
	}
	return p, nil
}

// Publish sends a light event to the MQTT broker.
func (p *RealPublisher) Publish(event LightEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: p.topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the client currently holds a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		dropped := p.buffer.push(msg)
		p.mu.Unlock()
		if dropped {
			p.logger.Warn().Int("capacity", bufferCapacity).Msg("MQTT buffer full, dropping oldest messages")
		}
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	pending := p.buffer.drainAll()
	p.mu.Unlock()

	p.logger.Info().Int("buffered", len(pending)).Msg("MQTT connected")

	reconnected, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
	if err == nil {
		// Overwrites the retained will left by a previous disconnect.
		c.Publish(TopicSystem, 1, true, reconnected)
	}

	for _, msg := range pending {
		// Handlers run on paho's goroutine; don't block it on acks.
		c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	}
}
