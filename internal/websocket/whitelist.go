package websocket

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
)

var (
	// ErrActionAlreadyExists is returned for duplicate whitelist entries.
	ErrActionAlreadyExists = errors.New("action already exists in whitelist")
	// ErrInvalidAction is returned for empty action names.
	ErrInvalidAction = errors.New("action cannot be empty")
)

// clientWhitelist is the set of actions clients may publish onto the bus.
// Anything else read from a connection is dropped.
type clientWhitelist struct {
	mu             sync.RWMutex
	allowedActions []string
}

// NewClientWhitelist creates a whitelist from the given actions, skipping
// empty entries.
func NewClientWhitelist(allowedActions ...string) *clientWhitelist {
	valid := make([]string, 0, len(allowedActions))
	for _, action := range allowedActions {
		if action != "" {
			valid = append(valid, action)
		}
	}
	return &clientWhitelist{allowedActions: valid}
}

// IsAllowed reports whether clients may publish the action.
func (w *clientWhitelist) IsAllowed(action string) bool {
	if action == "" {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Contains(w.allowedActions, action)
}

// AddAction extends the whitelist at runtime.
func (w *clientWhitelist) AddAction(action string) error {
	if action == "" {
		slog.Warn("attempted to add empty action to whitelist")
		return ErrInvalidAction
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if slices.Contains(w.allowedActions, action) {
		return ErrActionAlreadyExists
	}
	w.allowedActions = append(w.allowedActions, action)
	return nil
}

// DefaultClientWhitelist permits the game module's client actions.
func DefaultClientWhitelist() *clientWhitelist {
	return NewClientWhitelist(
		"game.action.submit",
		"game.gm.response",
		"game.heartbeat.pong",
	)
}
