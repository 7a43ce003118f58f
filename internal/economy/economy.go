// Package economy decides whether a character may spend a given action-economy
// slot this turn. It is a set of pure functions over the character's per-turn
// record and status conditions; all I/O and persistence live elsewhere.
package economy

import (
	"github.com/questdeck/questdeck/internal/domain"
)

// Result is the outcome of a validation check.
type Result struct {
	Valid bool
	Err   *domain.ActionError
}

func ok() Result {
	return Result{Valid: true}
}

func invalid(err *domain.ActionError) Result {
	return Result{Valid: false, Err: err}
}

// Validate checks whether the character may spend the given kind this turn.
// Free actions are always valid. Non-free kinds are rejected when the slot is
// already consumed, naming the conflicting prior action, or when the
// character has one of the supplied incapacitating conditions. A nil
// TurnState means nothing has been spent yet.
func Validate(kind domain.ActionKind, ch *domain.Character, incapacitating []string, label string) Result {
	if kind == domain.KindFree {
		return ok()
	}

	for _, cond := range incapacitating {
		if ch.HasCondition(cond) {
			return invalid(domain.NewActionError(domain.CodeActionRestricted,
				"cannot take %s actions while %s", kind, cond))
		}
	}

	ts := ch.TurnState
	if ts == nil {
		return ok()
	}

	switch kind {
	case domain.KindAction:
		if len(ts.UsedActions) > 0 {
			return invalid(domain.NewActionError(domain.CodeActionAlreadyUsed,
				"action already used this turn: %s", ts.UsedActions[len(ts.UsedActions)-1]))
		}
	case domain.KindBonusAction:
		if ts.BonusActionLabel != "" {
			return invalid(domain.NewActionError(domain.CodeBonusActionUsed,
				"bonus action already used this turn: %s", ts.BonusActionLabel))
		}
	case domain.KindReaction:
		if ts.ReactionLabel != "" {
			return invalid(domain.NewActionError(domain.CodeReactionUsed,
				"reaction already used this turn: %s", ts.ReactionLabel))
		}
	default:
		return invalid(domain.NewActionError(domain.CodeInvalidParameters,
			"unknown action kind: %s", kind))
	}

	return ok()
}

// Consume records the spend on the character's turn state. It must be called
// at most once per successful Validate. Free actions are a no-op; consuming
// a standard action appends its label so repeated attempts can name it.
func Consume(kind domain.ActionKind, ch *domain.Character, label string) {
	if kind == domain.KindFree {
		return
	}
	if ch.TurnState == nil {
		ch.TurnState = &domain.TurnState{}
	}
	switch kind {
	case domain.KindAction:
		ch.TurnState.UsedActions = append(ch.TurnState.UsedActions, label)
	case domain.KindBonusAction:
		ch.TurnState.BonusActionLabel = label
	case domain.KindReaction:
		ch.TurnState.ReactionLabel = label
	}
}

// AvailableActions derives the currently-permitted kinds by re-running
// validation for each kind with a no-op label.
func AvailableActions(ch *domain.Character, incapacitating []string) []domain.ActionKind {
	kinds := []domain.ActionKind{
		domain.KindAction,
		domain.KindBonusAction,
		domain.KindReaction,
		domain.KindFree,
	}
	available := make([]domain.ActionKind, 0, len(kinds))
	for _, k := range kinds {
		if Validate(k, ch, incapacitating, "").Valid {
			available = append(available, k)
		}
	}
	return available
}
