package game

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/questdeck/questdeck/internal/domain"
	"github.com/questdeck/questdeck/internal/modules/game/topics"
	"github.com/questdeck/questdeck/internal/pubsub"
	"github.com/questdeck/questdeck/internal/session"
)

// Subscriber consumes the client.game.* topics and feeds the session
// actors. Role enforcement for GM-only channels happens here using the
// role metadata the bridge stamps on every client message.
type Subscriber struct {
	subscriber pubsub.Subscriber
	sessions   *session.Manager
}

// NewSubscriber creates the game module's bus consumer.
func NewSubscriber(sub pubsub.Subscriber, sessions *session.Manager) *Subscriber {
	return &Subscriber{subscriber: sub, sessions: sessions}
}

// Start subscribes to the module's client topics. Subscriptions run in the
// background until the context ends.
func (s *Subscriber) Start(ctx context.Context) error {
	slog.Info("starting game module subscriber")

	if err := s.subscriber.Subscribe(ctx, topics.TopicActionSubmit.Name(), s.handleActionSubmit); err != nil {
		return err
	}
	if err := s.subscriber.Subscribe(ctx, topics.TopicGMResponse.Name(), s.handleGMResponse); err != nil {
		return err
	}
	return s.subscriber.Subscribe(ctx, topics.TopicHeartbeatPong.Name(), s.handleHeartbeatPong)
}

func (s *Subscriber) handleActionSubmit(_ context.Context, msg pubsub.Message) error {
	var body struct {
		ID         string            `json:"id"`
		Action     domain.ActionType `json:"action"`
		Parameters json.RawMessage   `json:"parameters"`
	}
	if err := json.Unmarshal(msg.Payload, &body); err != nil {
		slog.Warn("malformed action submission dropped",
			"session_id", msg.SessionID, "user_id", msg.UserID, "error", err)
		return nil
	}

	req := domain.GameActionRequest{
		ID:        body.ID,
		PlayerID:  msg.UserID,
		SessionID: msg.SessionID,
		Action:    body.Action,
		Params:    body.Parameters,
	}
	if err := s.sessions.Submit(msg.SessionID, req); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionClosed) {
			slog.Warn("action for unavailable session dropped",
				"session_id", msg.SessionID, "request_id", body.ID, "error", err)
			return nil
		}
		return err
	}
	return nil
}

func (s *Subscriber) handleGMResponse(_ context.Context, msg pubsub.Message) error {
	if msg.Metadata["role"] != string(domain.RoleGM) {
		slog.Warn("gm response from non-gm connection dropped",
			"session_id", msg.SessionID, "user_id", msg.UserID)
		return nil
	}

	var resp domain.ActionRequestResponse
	if err := json.Unmarshal(msg.Payload, &resp); err != nil {
		slog.Warn("malformed gm response dropped",
			"session_id", msg.SessionID, "error", err)
		return nil
	}
	if err := s.sessions.GMRespond(msg.SessionID, resp); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionClosed) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Subscriber) handleHeartbeatPong(_ context.Context, msg pubsub.Message) error {
	if msg.Metadata["role"] != string(domain.RoleGM) {
		slog.Warn("heartbeat pong from non-gm connection dropped",
			"session_id", msg.SessionID, "user_id", msg.UserID)
		return nil
	}

	var pong session.PongMessage
	if err := json.Unmarshal(msg.Payload, &pong); err != nil {
		slog.Warn("malformed heartbeat pong dropped",
			"session_id", msg.SessionID, "error", err)
		return nil
	}
	if err := s.sessions.Pong(msg.SessionID, pong); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionClosed) {
			return nil
		}
		return err
	}
	return nil
}
