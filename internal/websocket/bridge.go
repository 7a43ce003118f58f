// Package websocket bridges table connections to the message bus. Each
// connection belongs to one session and one user; inbound envelopes are
// republished on whitelisted "client.*" topics and outbound session events
// arrive through the ws.session.* framework topics.
package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/questdeck/questdeck/internal/domain"
	"github.com/questdeck/questdeck/internal/pubsub"
)

const (
	clientSendBuffer = 256
	writeTimeout     = 10 * time.Second
)

// Client is one websocket connection scoped to a session.
type Client struct {
	SessionID string
	UserID    string
	Role      domain.Role

	conn   *websocket.Conn
	send   chan []byte
	bridge *Bridge
}

// outboundMessage routes a payload to connections of one session.
type outboundMessage struct {
	sessionID string
	// userID targets one user's connections; empty delivers per gmOnly.
	userID string
	// gmOnly restricts delivery to GM connections.
	gmOnly  bool
	payload []byte
}

// incomingMessage is a raw client frame awaiting bus publication.
type incomingMessage struct {
	client  *Client
	payload []byte
}

// Bridge owns the connection registry and routes messages between clients
// and the pub/sub bus.
type Bridge struct {
	publisher pubsub.Publisher
	whitelist *clientWhitelist

	// sessions maps sessionID -> userID -> that user's open connections.
	sessions map[string]map[string][]*Client

	register   chan *Client
	unregister chan *Client
	outbound   chan *outboundMessage
	incoming   chan *incomingMessage

	mu sync.RWMutex
}

// NewBridge creates a bridge publishing client input to the given bus.
func NewBridge(pub pubsub.Publisher) *Bridge {
	return &Bridge{
		publisher:  pub,
		whitelist:  DefaultClientWhitelist(),
		sessions:   make(map[string]map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan *outboundMessage),
		incoming:   make(chan *incomingMessage, 256),
	}
}

// Run drives registration and message routing until the context ends.
func (b *Bridge) Run(ctx context.Context) {
	slog.Info("websocket bridge started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("websocket bridge stopping")
			return

		case client := <-b.register:
			b.addClient(client)
			b.publishLifecycle(ctx, TopicClientReady.Name(), client)

		case client := <-b.unregister:
			if b.removeClient(client) {
				b.publishLifecycle(ctx, TopicClientDisconnected.Name(), client)
			}

		case msg := <-b.outbound:
			b.deliver(msg)

		case msg := <-b.incoming:
			b.publishIncoming(ctx, msg)
		}
	}
}

func (b *Bridge) addClient(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	users, ok := b.sessions[client.SessionID]
	if !ok {
		users = make(map[string][]*Client)
		b.sessions[client.SessionID] = users
	}
	users[client.UserID] = append(users[client.UserID], client)
	slog.Info("websocket client joined",
		"session_id", client.SessionID, "user_id", client.UserID, "role", client.Role)
}

func (b *Bridge) removeClient(client *Client) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	users, ok := b.sessions[client.SessionID]
	if !ok {
		return false
	}
	conns := users[client.UserID]
	for i, c := range conns {
		if c == client {
			users[client.UserID] = append(conns[:i], conns[i+1:]...)
			if len(users[client.UserID]) == 0 {
				delete(users, client.UserID)
			}
			if len(users) == 0 {
				delete(b.sessions, client.SessionID)
			}
			close(client.send)
			slog.Info("websocket client left",
				"session_id", client.SessionID, "user_id", client.UserID)
			return true
		}
	}
	return false
}

func (b *Bridge) deliver(msg *outboundMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	users, ok := b.sessions[msg.sessionID]
	if !ok {
		return
	}
	for userID, conns := range users {
		if msg.userID != "" && userID != msg.userID {
			continue
		}
		for _, client := range conns {
			if msg.gmOnly && client.Role != domain.RoleGM {
				continue
			}
			select {
			case client.send <- msg.payload:
			default:
				// Slow consumer: drop rather than stall the session.
				slog.Warn("client send buffer full, dropping message",
					"session_id", client.SessionID, "user_id", client.UserID)
			}
		}
	}
}

// publishIncoming validates a client frame against the whitelist and
// republishes it on the bus under the client topic prefix.
func (b *Bridge) publishIncoming(ctx context.Context, msg *incomingMessage) {
	var envelope ClientEnvelope
	if err := json.Unmarshal(msg.payload, &envelope); err != nil {
		slog.Warn("malformed client envelope dropped",
			"session_id", msg.client.SessionID, "user_id", msg.client.UserID, "error", err)
		return
	}
	if !b.whitelist.IsAllowed(envelope.Action) {
		slog.Warn("client action not whitelisted, dropped",
			"action", envelope.Action, "user_id", msg.client.UserID)
		return
	}

	busMsg := pubsub.Message{
		Topic:     clientTopicPrefix + envelope.Action,
		SessionID: msg.client.SessionID,
		UserID:    msg.client.UserID,
		Payload:   envelope.Payload,
		Metadata: map[string]string{
			"role":      string(msg.client.Role),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := b.publisher.Publish(ctx, busMsg); err != nil {
		slog.Error("failed to publish client message",
			"topic", busMsg.Topic, "user_id", msg.client.UserID, "error", err)
	}
}

func (b *Bridge) publishLifecycle(ctx context.Context, topic string, client *Client) {
	payload, _ := json.Marshal(map[string]any{
		"sessionId": client.SessionID,
		"userId":    client.UserID,
		"role":      client.Role,
	})
	err := b.publisher.Publish(ctx, pubsub.Message{
		Topic:     topic,
		SessionID: client.SessionID,
		UserID:    client.UserID,
		Payload:   payload,
	})
	if err != nil {
		slog.Error("failed to publish lifecycle event", "topic", topic, "error", err)
	}
}

// Serve upgrades the request and attaches the connection to a session. The
// caller resolves and verifies identity and role before handing over.
func (b *Bridge) Serve(c echo.Context, sessionID, userID string, role domain.Role) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Origin checking is the proxy's job in this deployment.
	})
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return err
	}

	client := &Client{
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		conn:      conn,
		send:      make(chan []byte, clientSendBuffer),
		bridge:    b,
	}
	b.register <- client

	go client.writePump()
	go client.readPump()
	return nil
}

// BroadcastToSession queues a payload for every connection in a session.
func (b *Bridge) BroadcastToSession(sessionID string, payload []byte) {
	b.outbound <- &outboundMessage{sessionID: sessionID, payload: payload}
}

// SendToUser queues a payload for one user's connections in a session.
func (b *Bridge) SendToUser(sessionID, userID string, payload []byte) {
	b.outbound <- &outboundMessage{sessionID: sessionID, userID: userID, payload: payload}
}

// SendToGM queues a payload for the session's GM connections.
func (b *Bridge) SendToGM(sessionID string, payload []byte) {
	b.outbound <- &outboundMessage{sessionID: sessionID, gmOnly: true, payload: payload}
}

func (c *Client) readPump() {
	defer func() {
		c.bridge.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "client disconnected")
	}()

	for {
		_, payload, err := c.conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				slog.Info("websocket closed by client", "user_id", c.UserID)
			} else if err != io.EOF {
				slog.Error("websocket read error", "user_id", c.UserID, "error", err)
			}
			return
		}
		c.bridge.incoming <- &incomingMessage{client: c, payload: payload}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close(websocket.StatusNormalClosure, "server-side cleanup")

	for payload := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			slog.Error("websocket write error", "user_id", c.UserID, "error", err)
			return
		}
	}
}
