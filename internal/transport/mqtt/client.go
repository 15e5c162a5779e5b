package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/logger"
	"github.com/oshokin/air-alarm/internal/transport"
)

// Defaults used when options are not provided.
const (
	DefaultQueueSize  = 100
	DefaultKeepAlive  = 60 * time.Second
	disconnectQuiesce = 250 // milliseconds
)

var (
	// errNotConnected is returned when the session is not established.
	errNotConnected = errors.New("mqtt session not established")
	// errConnectionLost is returned by PollInbound after the broker dropped the session.
	errConnectionLost = errors.New("mqtt connection lost")
)

// Options configure a Client.
type Options struct {
	// Broker is the broker URL.
	Broker string
	// ClientID identifies the session.
	ClientID string
	// Username and Password authenticate against the broker.
	Username string
	Password string
	// KeepAlive is the MQTT keep-alive period.
	KeepAlive time.Duration
	// QoS is used for publish and subscribe.
	QoS byte
	// Retain marks publications as retained.
	Retain bool
	// Subscriptions are (re)subscribed on every connect.
	Subscriptions []string
	// QueueSize bounds the inbound buffer.
	QueueSize int
}

// Factory creates the underlying Paho client.
type Factory func(opts *paho.ClientOptions) paho.Client

// Client implements transport.Messenger.
type Client struct {
	// ctx carries the named logger for callbacks.
	ctx context.Context //nolint:containedctx // Used for logging from Paho callbacks.
	// opts holds the connection settings.
	opts Options
	// factory builds Paho clients.
	factory Factory
	// inbound buffers received messages.
	inbound chan transport.Message
	// lost is set by the connection lost handler.
	lost atomic.Bool
	// dropped counts messages discarded because the queue was full.
	dropped atomic.Uint64

	// mu guards conn.
	mu sync.Mutex
	// conn is the current Paho client.
	conn paho.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithFactory replaces the Paho client constructor.
func WithFactory(f Factory) Option {
	return func(c *Client) {
		c.factory = f
	}
}

// New creates a disconnected client.
func New(ctx context.Context, opts Options, options ...Option) *Client {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}

	c := &Client{
		ctx:     logger.WithName(ctx, "mqtt"),
		opts:    opts,
		factory: paho.NewClient,
		inbound: make(chan transport.Message, opts.QueueSize),
	}

	for _, option := range options {
		option(c)
	}

	return c
}

// Connect opens a new session and subscribes to the inbound topics. A failed
// subscription closes the session and fails the attempt.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Disconnect(disconnectQuiesce)
		c.conn = nil
	}

	conn := c.factory(c.clientOptions())

	if err := wait(ctx, conn.Connect()); err != nil {
		conn.Disconnect(disconnectQuiesce)

		return fmt.Errorf("%w: connect to %s: %w", air.ErrTransportFailure, c.opts.Broker, err)
	}

	if len(c.opts.Subscriptions) > 0 {
		filters := make(map[string]byte, len(c.opts.Subscriptions))
		for _, topic := range c.opts.Subscriptions {
			filters[topic] = c.opts.QoS
		}

		if err := wait(ctx, conn.SubscribeMultiple(filters, c.onMessage)); err != nil {
			conn.Disconnect(disconnectQuiesce)

			return fmt.Errorf("%w: subscribe: %w", air.ErrTransportFailure, err)
		}
	}

	c.lost.Store(false)
	c.conn = conn

	logger.InfoKV(c.ctx, "Connected to broker",
		"broker", c.opts.Broker,
		"client_id", c.opts.ClientID,
		"subscriptions", c.opts.Subscriptions)

	return nil
}

// Publish sends payload to topic.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil || c.lost.Load() || !conn.IsConnectionOpen() {
		return fmt.Errorf("%w: publish %s: %w", air.ErrTransportFailure, topic, errNotConnected)
	}

	if err := wait(ctx, conn.Publish(topic, c.opts.QoS, c.opts.Retain, payload)); err != nil {
		return fmt.Errorf("%w: publish %s: %w", air.ErrTransportFailure, topic, err)
	}

	return nil
}

// PollInbound drains the inbound queue. After the broker dropped the session it
// returns the buffered messages together with an error.
func (c *Client) PollInbound() ([]transport.Message, error) {
	var messages []transport.Message

	for {
		select {
		case msg := <-c.inbound:
			messages = append(messages, msg)
		default:
			if c.lost.Load() {
				return messages, fmt.Errorf("%w: %w", air.ErrTransportFailure, errConnectionLost)
			}

			return messages, nil
		}
	}
}

// IsConnected reports whether the session is usable.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil && !c.lost.Load() && c.conn.IsConnectionOpen()
}

// Disconnect closes the session.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return
	}

	c.conn.Disconnect(disconnectQuiesce)
	c.conn = nil

	logger.Info(c.ctx, "Disconnected from broker")
}

// Dropped returns the number of inbound messages discarded on a full queue.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *Client) clientOptions() *paho.ClientOptions {
	opts := paho.NewClientOptions().
		AddBroker(c.opts.Broker).
		SetClientID(c.opts.ClientID).
		SetKeepAlive(c.opts.KeepAlive).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOrderMatters(false).
		SetConnectionLostHandler(c.onConnectionLost)

	if c.opts.Username != "" {
		opts = opts.SetUsername(c.opts.Username).SetPassword(c.opts.Password)
	}

	return opts
}

// onMessage queues an inbound message without blocking the Paho router.
func (c *Client) onMessage(_ paho.Client, msg paho.Message) {
	payload := append([]byte(nil), msg.Payload()...)

	select {
	case c.inbound <- transport.Message{Topic: msg.Topic(), Payload: payload}:
	default:
		c.dropped.Add(1)
		logger.WarnKV(c.ctx, "Inbound queue full, message dropped", "topic", msg.Topic())
	}
}

// onConnectionLost marks the session lost. Callbacks of replaced clients are ignored.
func (c *Client) onConnectionLost(client paho.Client, err error) {
	c.mu.Lock()
	current := c.conn != nil && c.conn == client
	c.mu.Unlock()

	if !current {
		logger.DebugKV(c.ctx, "Ignored connection loss of a stale session", "error", err)

		return
	}

	c.lost.Store(true)
	logger.WarnKV(c.ctx, "Broker connection lost", "error", err)
}

// wait blocks until the token completes or ctx is done.
func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
