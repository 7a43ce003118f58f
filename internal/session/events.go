package session

import (
	"context"
	"time"

	"github.com/questdeck/questdeck/internal/domain"
)

// Event names carried in outbound envelopes. The connection layer maps
// these onto per-session websocket topics.
const (
	EventActionRequest  = "action.request"  // to the GM: a request awaiting decision
	EventActionPending  = "action.pending"  // to the requester: accepted, not yet decided
	EventActionResponse = "action.response" // to the requester: terminal approve/reject
	EventActionApplied  = "action.applied"  // to the session: state changed
	EventHeartbeatPing  = "heartbeat.ping"  // to the GM
	EventGMTimeout      = "gm.timeout"      // to the session: GM connection declared late
	EventGMReconnected  = "gm.reconnected"  // to the session: GM back, queue draining
)

// Notifier delivers session events to the connection layer. The pubsub
// implementation lives in the game module; tests substitute a recorder.
type Notifier interface {
	// Broadcast delivers to every participant of the session.
	Broadcast(ctx context.Context, sessionID, event string, payload any) error
	// ToUser delivers to a single participant.
	ToUser(ctx context.Context, sessionID, userID, event string, payload any) error
	// ToGM delivers to the session's GM connection.
	ToGM(ctx context.Context, sessionID, event string, payload any) error
}

// ActionPendingEvent tells the requester their action was accepted but not
// yet decided. Queued reports whether it is buffered awaiting GM return
// rather than already forwarded.
type ActionPendingEvent struct {
	RequestID string `json:"requestId"`
	Queued    bool   `json:"queued"`
}

// ActionAppliedEvent is broadcast after an approved action commits.
type ActionAppliedEvent struct {
	RequestID string                 `json:"requestId"`
	Action    domain.ActionType      `json:"action"`
	PlayerID  string                 `json:"playerId"`
	Version   int64                  `json:"version"`
	State     *domain.EncounterState `json:"state"`
}

// GMTimeoutEvent records the transition into queuing mode.
type GMTimeoutEvent struct {
	SessionID     string    `json:"sessionId"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	QueuedActions int       `json:"queuedActions"`
}

// GMReconnectedEvent records the transition back to live mode.
type GMReconnectedEvent struct {
	SessionID     string        `json:"sessionId"`
	QueuedActions int           `json:"queuedActions"`
	RoundTrip     time.Duration `json:"roundTripMs"`
}
