package game

import "github.com/questdeck/questdeck/internal/pubsub"

// SessionCreatedPayload announces a new live session on the bus.
type SessionCreatedPayload struct {
	SessionID   string `json:"sessionId"`
	EncounterID string `json:"encounterId"`
	GMUserID    string `json:"gmUserId"`
	System      string `json:"system"`
}

// SessionClosedPayload announces a session leaving the registry.
type SessionClosedPayload struct {
	SessionID string `json:"sessionId"`
}

// Bus events other modules can subscribe to.
var (
	SessionCreated = pubsub.NewEvent[SessionCreatedPayload]("game.session.created",
		"A session actor was started for an encounter")
	SessionClosed = pubsub.NewEvent[SessionClosedPayload]("game.session.closed",
		"A session actor was stopped")
)
