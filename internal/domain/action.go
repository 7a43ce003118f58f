package domain

import (
	"encoding/json"
	"time"
)

// ActionType identifies the kind of game action a participant is requesting.
// Builtin types cover encounter lifecycle and movement; game systems register
// additional types (spells, abilities) through their handler registry.
type ActionType string

const (
	ActionMoveToken      ActionType = "move-token"
	ActionCastSpell      ActionType = "cast-spell"
	ActionAttack         ActionType = "attack"
	ActionEndTurn        ActionType = "end-turn"
	ActionRollInitiative ActionType = "roll-initiative"
	ActionStartEncounter ActionType = "start-encounter"
	ActionStopEncounter  ActionType = "stop-encounter"
)

// ActionKind is the action-economy slot an action spends.
type ActionKind string

const (
	KindAction      ActionKind = "action"
	KindBonusAction ActionKind = "bonus-action"
	KindReaction    ActionKind = "reaction"
	KindFree        ActionKind = "free"
)

// GameActionRequest is a player's proposal to change shared game state.
// It is immutable once created and consumed exactly once by the pipeline,
// either directly or after a pass through the action queue.
type GameActionRequest struct {
	ID        string          `json:"id"`
	PlayerID  string          `json:"playerId"`
	SessionID string          `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Action    ActionType      `json:"action" validate:"required"`
	Params    json.RawMessage `json:"parameters,omitempty"`
}

// ActionRequestResponse closes a request. Once emitted for a request ID the
// request is terminal; later responses for the same ID are ignored.
type ActionRequestResponse struct {
	RequestID string       `json:"requestId"`
	Approved  bool         `json:"approved"`
	Error     *ActionError `json:"error,omitempty"`
}

// QueuedAction is a request buffered while the session is in queuing mode.
type QueuedAction struct {
	Request    GameActionRequest `json:"request"`
	EnqueuedAt time.Time         `json:"enqueuedAt"`
}

// RequestState tracks a request through the pipeline.
type RequestState string

const (
	RequestSubmitted        RequestState = "submitted"
	RequestValidating       RequestState = "validating"
	RequestAwaitingApproval RequestState = "awaiting-approval"
	RequestQueued           RequestState = "queued"
	RequestApplied          RequestState = "applied"
	RequestRejected         RequestState = "rejected"
)

// SessionMode is the liveness mode of a session's GM connection.
type SessionMode string

const (
	ModeLive    SessionMode = "live"
	ModeQueuing SessionMode = "queuing"
)
