package websocket

import (
	"context"
	"fmt"

	"github.com/questdeck/questdeck/internal/pubsub"
)

// AttachOutbound subscribes the bridge to the ws.session.* framework topics
// so session events published on the bus reach the right connections.
func AttachOutbound(ctx context.Context, sub pubsub.Subscriber, b *Bridge) error {
	err := sub.Subscribe(ctx, TopicSessionBroadcast.Name(), func(_ context.Context, msg pubsub.Message) error {
		if msg.SessionID == "" {
			return fmt.Errorf("session broadcast without session id")
		}
		b.BroadcastToSession(msg.SessionID, msg.Payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing session broadcast: %w", err)
	}

	err = sub.Subscribe(ctx, TopicSessionDirect.Name(), func(_ context.Context, msg pubsub.Message) error {
		if msg.SessionID == "" || msg.UserID == "" {
			return fmt.Errorf("session direct without session or user id")
		}
		b.SendToUser(msg.SessionID, msg.UserID, msg.Payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing session direct: %w", err)
	}

	err = sub.Subscribe(ctx, TopicSessionGM.Name(), func(_ context.Context, msg pubsub.Message) error {
		if msg.SessionID == "" {
			return fmt.Errorf("session gm message without session id")
		}
		b.SendToGM(msg.SessionID, msg.Payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing session gm: %w", err)
	}
	return nil
}
