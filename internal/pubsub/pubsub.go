// Package pubsub is the message bus between session actors, the websocket
// layer and any other module. The interfaces are transport-neutral; the
// default implementation bridges to watermill's in-memory GoChannel.
package pubsub

import (
	"context"
)

// Message is the unit passed between components on the bus.
type Message struct {
	// Topic is the channel the message belongs to, e.g. "game.action.request".
	Topic string
	// SessionID scopes the message to one table session, empty for
	// process-wide messages.
	SessionID string
	// UserID identifies the user the message originates from or targets.
	UserID string
	// Payload is the raw message data, usually JSON.
	Payload []byte
	// Metadata carries arbitrary key-value context.
	Metadata map[string]string
}

// Handler processes one received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher sends messages to the bus.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber receives messages from the bus.
type Subscriber interface {
	// Subscribe starts consuming the topic in the background, processing
	// each message with the handler. It returns once the subscription is
	// established.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
