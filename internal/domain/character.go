package domain

// TurnState is a character's per-turn action-economy record. A missing
// TurnState means nothing has been spent yet this turn.
type TurnState struct {
	// UsedActions lists the labels of standard actions taken this turn.
	UsedActions []string `json:"usedActions,omitempty"`
	// BonusActionLabel names the bonus action taken, empty if unspent.
	BonusActionLabel string `json:"bonusActionLabel,omitempty"`
	// ReactionLabel names the reaction taken, empty if unspent.
	ReactionLabel string `json:"reactionLabel,omitempty"`
}

// Clone copies the record.
func (t *TurnState) Clone() *TurnState {
	if t == nil {
		return nil
	}
	out := *t
	out.UsedActions = append([]string(nil), t.UsedActions...)
	return &out
}

// Reset clears the record at the start of the character's turn.
func (t *TurnState) Reset() {
	t.UsedActions = nil
	t.BonusActionLabel = ""
	t.ReactionLabel = ""
}

// Character is the slice of an actor the coordination core needs: identity,
// current status conditions, and the per-turn economy record. Full character
// sheets live with the external CRUD collaborator.
type Character struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Conditions []string   `json:"conditions,omitempty"`
	TurnState  *TurnState `json:"turnState,omitempty"`
}

// HasCondition reports whether the character currently has the named
// status condition.
func (c *Character) HasCondition(name string) bool {
	for _, cond := range c.Conditions {
		if cond == name {
			return true
		}
	}
	return false
}

// TurnParticipant is the turn manager's runtime record for one combatant.
// Created at combat start, mutated each turn and round, discarded when
// combat ends. ParticipantData is an opaque bag for game-system annotations.
type TurnParticipant struct {
	ParticipantID   string         `json:"participantId"`
	ActorID         string         `json:"actorId"`
	TokenID         string         `json:"tokenId"`
	TurnOrder       int            `json:"turnOrder"`
	HasActed        bool           `json:"hasActed"`
	ParticipantData map[string]any `json:"participantData,omitempty"`
}
