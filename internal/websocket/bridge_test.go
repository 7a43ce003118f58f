package websocket

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/questdeck/questdeck/internal/domain"
	"github.com/questdeck/questdeck/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	messages []pubsub.Message
}

func (m *mockPublisher) Publish(_ context.Context, msg pubsub.Message) error {
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func newTestClient(b *Bridge, sessionID, userID string, role domain.Role) *Client {
	return &Client{
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		send:      make(chan []byte, 8),
		bridge:    b,
	}
}

func TestWhitelist(t *testing.T) {
	w := NewClientWhitelist("game.action.submit", "")

	assert.True(t, w.IsAllowed("game.action.submit"))
	assert.False(t, w.IsAllowed("game.gm.response"))
	assert.False(t, w.IsAllowed(""))

	require.NoError(t, w.AddAction("game.gm.response"))
	assert.True(t, w.IsAllowed("game.gm.response"))

	assert.ErrorIs(t, w.AddAction("game.gm.response"), ErrActionAlreadyExists)
	assert.ErrorIs(t, w.AddAction(""), ErrInvalidAction)
}

func TestPublishIncoming_WhitelistedActionReachesBus(t *testing.T) {
	pub := &mockPublisher{}
	b := NewBridge(pub)
	client := newTestClient(b, "sess-1", "p1", domain.RolePlayer)

	envelope, _ := json.Marshal(ClientEnvelope{
		Action:  "game.action.submit",
		Payload: json.RawMessage(`{"action":"move-token"}`),
	})
	b.publishIncoming(context.Background(), &incomingMessage{client: client, payload: envelope})

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, "client.game.action.submit", msg.Topic)
	assert.Equal(t, "sess-1", msg.SessionID)
	assert.Equal(t, "p1", msg.UserID)
	assert.Equal(t, "player", msg.Metadata["role"])
	assert.JSONEq(t, `{"action":"move-token"}`, string(msg.Payload))
}

func TestPublishIncoming_UnlistedActionDropped(t *testing.T) {
	pub := &mockPublisher{}
	b := NewBridge(pub)
	client := newTestClient(b, "sess-1", "p1", domain.RolePlayer)

	envelope, _ := json.Marshal(ClientEnvelope{Action: "admin.shutdown"})
	b.publishIncoming(context.Background(), &incomingMessage{client: client, payload: envelope})

	assert.Empty(t, pub.messages)
}

func TestPublishIncoming_MalformedEnvelopeDropped(t *testing.T) {
	pub := &mockPublisher{}
	b := NewBridge(pub)
	client := newTestClient(b, "sess-1", "p1", domain.RolePlayer)

	b.publishIncoming(context.Background(), &incomingMessage{client: client, payload: []byte("not json")})

	assert.Empty(t, pub.messages)
}

func TestDeliver_RoutesBySessionUserAndRole(t *testing.T) {
	b := NewBridge(&mockPublisher{})

	gm := newTestClient(b, "sess-1", "gm-1", domain.RoleGM)
	p1 := newTestClient(b, "sess-1", "p1", domain.RolePlayer)
	p2 := newTestClient(b, "sess-1", "p2", domain.RolePlayer)
	other := newTestClient(b, "sess-2", "p9", domain.RolePlayer)
	for _, c := range []*Client{gm, p1, p2, other} {
		b.addClient(c)
	}

	recv := func(c *Client) []string {
		var out []string
		for {
			select {
			case payload := <-c.send:
				out = append(out, string(payload))
			default:
				return out
			}
		}
	}

	b.deliver(&outboundMessage{sessionID: "sess-1", payload: []byte("all")})
	assert.Equal(t, []string{"all"}, recv(gm))
	assert.Equal(t, []string{"all"}, recv(p1))
	assert.Equal(t, []string{"all"}, recv(p2))
	assert.Empty(t, recv(other), "other sessions are not touched")

	b.deliver(&outboundMessage{sessionID: "sess-1", userID: "p1", payload: []byte("direct")})
	assert.Equal(t, []string{"direct"}, recv(p1))
	assert.Empty(t, recv(gm))
	assert.Empty(t, recv(p2))

	b.deliver(&outboundMessage{sessionID: "sess-1", gmOnly: true, payload: []byte("gm")})
	assert.Equal(t, []string{"gm"}, recv(gm))
	assert.Empty(t, recv(p1))
}

func TestRemoveClient_LastConnectionDropsSession(t *testing.T) {
	b := NewBridge(&mockPublisher{})
	c1 := newTestClient(b, "sess-1", "p1", domain.RolePlayer)
	c2 := newTestClient(b, "sess-1", "p1", domain.RolePlayer)
	b.addClient(c1)
	b.addClient(c2)

	assert.True(t, b.removeClient(c1))
	b.mu.RLock()
	assert.Len(t, b.sessions["sess-1"]["p1"], 1)
	b.mu.RUnlock()

	assert.True(t, b.removeClient(c2))
	b.mu.RLock()
	assert.NotContains(t, b.sessions, "sess-1")
	b.mu.RUnlock()

	assert.False(t, b.removeClient(c2), "double unregister is a no-op")
}
