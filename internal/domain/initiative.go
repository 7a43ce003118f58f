package domain

// InitiativeEntry is one slot in the turn order.
type InitiativeEntry struct {
	ParticipantID string         `json:"participantId"`
	TokenID       string         `json:"tokenId"`
	Initiative    int            `json:"initiative"`
	HasActed      bool           `json:"hasActed"`
	IsDelayed     bool           `json:"isDelayed"`
	IsHolding     bool           `json:"isHolding"`
	Modifiers     map[string]int `json:"modifiers,omitempty"`
}

// Modifier returns a named modifier, or zero when absent. The "initiative"
// modifier doubles as the tie-break key.
func (e InitiativeEntry) Modifier(name string) int {
	if e.Modifiers == nil {
		return 0
	}
	return e.Modifiers[name]
}

// InitiativeTracker holds the ordered entries and the round/turn pointer.
// Entries are sorted descending by initiative; ties break on the configured
// secondary modifier, then on stable input order. While IsActive is true,
// CurrentTurn always indexes a valid entry.
type InitiativeTracker struct {
	Entries      []InitiativeEntry `json:"entries"`
	CurrentTurn  int               `json:"currentTurn"`
	CurrentRound int               `json:"currentRound"`
	IsActive     bool              `json:"isActive"`
}

// Current returns the entry the turn pointer indexes, or nil when inactive
// or empty.
func (t *InitiativeTracker) Current() *InitiativeEntry {
	if !t.IsActive || t.CurrentTurn < 0 || t.CurrentTurn >= len(t.Entries) {
		return nil
	}
	return &t.Entries[t.CurrentTurn]
}

// Clone deep-copies the tracker.
func (t InitiativeTracker) Clone() InitiativeTracker {
	out := t
	out.Entries = make([]InitiativeEntry, len(t.Entries))
	copy(out.Entries, t.Entries)
	for i := range out.Entries {
		if t.Entries[i].Modifiers != nil {
			mods := make(map[string]int, len(t.Entries[i].Modifiers))
			for k, v := range t.Entries[i].Modifiers {
				mods[k] = v
			}
			out.Entries[i].Modifiers = mods
		}
	}
	return out
}
