package domain

// EffectType categorizes an active effect on a target.
type EffectType string

const (
	EffectDamage       EffectType = "damage"
	EffectHealing      EffectType = "healing"
	EffectCondition    EffectType = "condition"
	EffectStatModifier EffectType = "stat-modifier"
)

// PermanentDuration marks an effect that never expires on its own.
const PermanentDuration = -1

// Effect is created by action execution and decremented by the turn
// manager's round-end hook. It is removed when Duration reaches zero or the
// owning condition is cleared.
type Effect struct {
	ID        string     `json:"id"`
	Type      EffectType `json:"type"`
	Name      string     `json:"name"`
	Duration  int        `json:"duration"` // rounds remaining; -1 = permanent
	Source    string     `json:"source"`
	TargetID  string     `json:"targetId"`
	Stackable bool       `json:"stackable"`
	IsActive  bool       `json:"isActive"`
	Value     int        `json:"value,omitempty"`
}

// Expired reports whether the effect has run out.
func (e Effect) Expired() bool {
	return e.Duration == 0
}
