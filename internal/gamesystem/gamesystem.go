// Package gamesystem defines the extension points a rules implementation
// plugs into the coordination core: initiative modifiers, per-action
// validate/execute handlers, turn lifecycle callbacks, and the set of
// conditions that block the action economy. Implementations are registered
// once at startup and invoked synchronously.
package gamesystem

import (
	"context"

	"github.com/questdeck/questdeck/internal/domain"
)

// TurnEvent is passed to lifecycle hooks. State is the working copy inside
// the store's write path; hooks mutate it freely and the write persists it.
type TurnEvent struct {
	Round       int
	TurnIndex   int
	Participant *domain.TurnParticipant
	State       *domain.EncounterState
}

// Hooks receives turn and round lifecycle callbacks. The turn manager calls
// them sequentially and ignores return values other than errors, which it
// propagates to the caller after the pointer has already advanced.
type Hooks interface {
	OnTurnStart(ctx context.Context, ev *TurnEvent) error
	OnTurnEnd(ctx context.Context, ev *TurnEvent) error
	OnRoundStart(ctx context.Context, ev *TurnEvent) error
	OnRoundEnd(ctx context.Context, ev *TurnEvent) error
	OnTurnOrderStart(ctx context.Context, ev *TurnEvent) error
	OnTurnOrderEnd(ctx context.Context, ev *TurnEvent) error
}

// BaseHooks provides no-op implementations so systems only override what
// they need.
type BaseHooks struct{}

func (BaseHooks) OnTurnStart(context.Context, *TurnEvent) error      { return nil }
func (BaseHooks) OnTurnEnd(context.Context, *TurnEvent) error        { return nil }
func (BaseHooks) OnRoundStart(context.Context, *TurnEvent) error     { return nil }
func (BaseHooks) OnRoundEnd(context.Context, *TurnEvent) error       { return nil }
func (BaseHooks) OnTurnOrderStart(context.Context, *TurnEvent) error { return nil }
func (BaseHooks) OnTurnOrderEnd(context.Context, *TurnEvent) error   { return nil }

// ActionHandler validates and executes one action type. Validate runs
// against a read-only snapshot before GM approval; Execute runs inside the
// encounter store's versioned write after approval.
type ActionHandler interface {
	// Kind maps the action to an economy slot, or KindFree when the action
	// does not spend one (lifecycle actions, GM tools).
	Kind() domain.ActionKind

	Validate(ctx context.Context, req domain.GameActionRequest, state *domain.EncounterState) *domain.ActionError

	Execute(ctx context.Context, req domain.GameActionRequest, state *domain.EncounterState) error
}

// TurnPolicy carries the per-system order policy flags the turn manager
// consults but does not decide. The zero value is the default policy:
// fixed order, no automatic recompute.
type TurnPolicy struct {
	RecomputeEachRound   bool
	AllowMidSceneReorder bool
}

// GameSystem is the contract a rules implementation satisfies.
type GameSystem interface {
	// Name is the registry key, e.g. "srd5".
	Name() string

	// InitiativeModifier computes the bonus added to a participant's roll.
	InitiativeModifier(p *domain.TurnParticipant) int

	// TieBreakModifier names the entry modifier used as the deterministic
	// secondary sort key for equal initiative scores.
	TieBreakModifier() string

	// IncapacitatingConditions lists conditions that block all non-free
	// actions.
	IncapacitatingConditions() []string

	// ActionHandler resolves the handler for an action type. Unknown types
	// are a request-shape error, handled by the pipeline.
	ActionHandler(t domain.ActionType) (ActionHandler, bool)

	// Hooks returns the lifecycle callbacks.
	Hooks() Hooks

	// Policy returns the turn-order policy flags.
	Policy() TurnPolicy
}
