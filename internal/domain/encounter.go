package domain

import "time"

// EncounterStatus is the lifecycle state of an encounter. Encounters are
// archived (StatusCompleted) rather than deleted during play.
type EncounterStatus string

const (
	StatusDraft      EncounterStatus = "draft"
	StatusReady      EncounterStatus = "ready"
	StatusInProgress EncounterStatus = "in_progress"
	StatusPaused     EncounterStatus = "paused"
	StatusCompleted  EncounterStatus = "completed"
)

// Token is a placeable game piece on the encounter map.
type Token struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	CharacterID string         `json:"characterId,omitempty"`
	X           float64        `json:"x"`
	Y           float64        `json:"y"`
	HP          int            `json:"hp"`
	MaxHP       int            `json:"maxHp"`
	Conditions  []string       `json:"conditions,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// Participant links a user to an encounter with a role.
type Participant struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// Role distinguishes the session authority from regular players.
type Role string

const (
	RoleGM     Role = "gm"
	RolePlayer Role = "player"
)

// EncounterSettings carries per-encounter policy knobs.
type EncounterSettings struct {
	// GridSize is the map grid cell size in map units.
	GridSize int `json:"gridSize,omitempty"`
	// RecomputeInitiativeEachRound re-rolls the order at the top of every
	// round when the game system allows it. Default is a fixed order.
	RecomputeInitiativeEachRound bool `json:"recomputeInitiativeEachRound,omitempty"`
	// AllowMidSceneReorder permits the GM to reorder entries mid-scene.
	AllowMidSceneReorder bool `json:"allowMidSceneReorder,omitempty"`
}

// EncounterState is the versioned aggregate mutated by the action pipeline
// and the turn manager. Version increments on every successful write; writes
// against a stale version are rejected by the store.
type EncounterState struct {
	ID           string                `json:"id"`
	CampaignID   string                `json:"campaignId,omitempty"`
	MapID        string                `json:"mapId,omitempty"`
	Status       EncounterStatus       `json:"status"`
	Tokens       []Token               `json:"tokens"`
	Initiative   InitiativeTracker     `json:"initiative"`
	Effects      []Effect              `json:"effects"`
	Settings     EncounterSettings     `json:"settings"`
	Participants []Participant         `json:"participants"`
	TurnStates   map[string]*TurnState `json:"turnStates,omitempty"`
	Version      int64                 `json:"version"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// TokenByID returns a pointer into the Tokens slice, or nil.
func (s *EncounterState) TokenByID(id string) *Token {
	for i := range s.Tokens {
		if s.Tokens[i].ID == id {
			return &s.Tokens[i]
		}
	}
	return nil
}

// ParticipantRole returns the role of a user in this encounter, defaulting
// to RolePlayer for unknown users.
func (s *EncounterState) ParticipantRole(userID string) Role {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return p.Role
		}
	}
	return RolePlayer
}

// Clone returns a deep copy. The store hands out clones so callers can never
// mutate shared state outside the versioned write path.
func (s *EncounterState) Clone() *EncounterState {
	out := *s
	out.Tokens = make([]Token, len(s.Tokens))
	copy(out.Tokens, s.Tokens)
	for i := range out.Tokens {
		out.Tokens[i].Conditions = append([]string(nil), s.Tokens[i].Conditions...)
		if s.Tokens[i].Attributes != nil {
			attrs := make(map[string]any, len(s.Tokens[i].Attributes))
			for k, v := range s.Tokens[i].Attributes {
				attrs[k] = v
			}
			out.Tokens[i].Attributes = attrs
		}
	}
	out.Effects = append([]Effect(nil), s.Effects...)
	out.Participants = append([]Participant(nil), s.Participants...)
	out.Initiative = s.Initiative.Clone()
	if s.TurnStates != nil {
		out.TurnStates = make(map[string]*TurnState, len(s.TurnStates))
		for k, v := range s.TurnStates {
			out.TurnStates[k] = v.Clone()
		}
	}
	return &out
}
