package transport

import "context"

// Message is one inbound publication.
type Message struct {
	// Topic the message was published on.
	Topic string
	// Payload is the raw message body.
	Payload []byte
}

// Messenger is the publish/subscribe link to the broker.
type Messenger interface {
	// Connect opens a session and subscribes to the inbound topics.
	Connect(ctx context.Context) error
	// Publish sends payload to topic.
	Publish(ctx context.Context, topic string, payload []byte) error
	// PollInbound drains buffered inbound messages without blocking.
	// An error reports a lost session.
	PollInbound() ([]Message, error)
	// IsConnected reports whether the session is usable.
	IsConnected() bool
	// Disconnect closes the session.
	Disconnect()
}

// NetworkLink is the network transport below the messenger.
type NetworkLink interface {
	// Connect waits until the link is usable.
	Connect(ctx context.Context) error
	// IsConnected reports whether the link is usable right now.
	IsConnected() bool
}
