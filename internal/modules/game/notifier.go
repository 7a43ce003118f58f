package game

import (
	"context"
	"fmt"

	"github.com/questdeck/questdeck/internal/pubsub"
	"github.com/questdeck/questdeck/internal/websocket"
)

// busNotifier delivers session events by publishing envelopes to the
// websocket framework topics. The bridge's subscriber side fans them out
// to the right connections.
type busNotifier struct {
	publisher pubsub.Publisher
}

// NewNotifier creates the bus-backed notifier used by session actors.
func NewNotifier(pub pubsub.Publisher) *busNotifier {
	return &busNotifier{publisher: pub}
}

func (n *busNotifier) publish(ctx context.Context, topic, sessionID, userID, event string, payload any) error {
	encoded, err := websocket.EncodeServerEnvelope(event, payload)
	if err != nil {
		return fmt.Errorf("encoding %s envelope: %w", event, err)
	}
	return n.publisher.Publish(ctx, pubsub.Message{
		Topic:     topic,
		SessionID: sessionID,
		UserID:    userID,
		Payload:   encoded,
	})
}

// Broadcast delivers to every participant of the session.
func (n *busNotifier) Broadcast(ctx context.Context, sessionID, event string, payload any) error {
	return n.publish(ctx, websocket.TopicSessionBroadcast.Name(), sessionID, "", event, payload)
}

// ToUser delivers to a single participant.
func (n *busNotifier) ToUser(ctx context.Context, sessionID, userID, event string, payload any) error {
	return n.publish(ctx, websocket.TopicSessionDirect.Name(), sessionID, userID, event, payload)
}

// ToGM delivers to the session's GM connections.
func (n *busNotifier) ToGM(ctx context.Context, sessionID, event string, payload any) error {
	return n.publish(ctx, websocket.TopicSessionGM.Name(), sessionID, "", event, payload)
}
