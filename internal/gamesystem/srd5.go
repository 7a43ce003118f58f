package gamesystem

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/questdeck/questdeck/internal/domain"
)

// SRD5 is the builtin d20-style system: dexterity-based initiative, the
// usual incapacitating conditions, and handlers for movement, attacks and
// spells. It doubles as the reference implementation for system authors.
type SRD5 struct {
	BaseHooks
	handlers map[domain.ActionType]ActionHandler
}

// NewSRD5 builds the system with its handler registry resolved up front.
func NewSRD5() *SRD5 {
	s := &SRD5{}
	s.handlers = map[domain.ActionType]ActionHandler{
		domain.ActionMoveToken: moveTokenHandler{},
		domain.ActionAttack:    attackHandler{},
		domain.ActionCastSpell: castSpellHandler{},
	}
	return s
}

func (s *SRD5) Name() string { return "srd5" }

// InitiativeModifier reads the dexterity modifier from the participant's
// data bag; absent data means a +0 modifier.
func (s *SRD5) InitiativeModifier(p *domain.TurnParticipant) int {
	if p.ParticipantData == nil {
		return 0
	}
	switch v := p.ParticipantData["dexModifier"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (s *SRD5) TieBreakModifier() string { return "dexModifier" }

func (s *SRD5) IncapacitatingConditions() []string {
	return []string{"paralyzed", "stunned", "unconscious", "petrified"}
}

func (s *SRD5) ActionHandler(t domain.ActionType) (ActionHandler, bool) {
	h, ok := s.handlers[t]
	return h, ok
}

func (s *SRD5) Hooks() Hooks { return s }

func (s *SRD5) Policy() TurnPolicy { return TurnPolicy{} }

// moveTokenHandler repositions a token. Movement is a free action here;
// distance budgeting is left to GM judgment.
type moveTokenHandler struct{}

type moveTokenParams struct {
	TokenID string  `json:"tokenId" validate:"required"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

func (moveTokenHandler) Kind() domain.ActionKind { return domain.KindFree }

func (moveTokenHandler) Validate(_ context.Context, req domain.GameActionRequest, state *domain.EncounterState) *domain.ActionError {
	var p moveTokenParams
	if err := json.Unmarshal(req.Params, &p); err != nil || p.TokenID == "" {
		return domain.NewActionError(domain.CodeInvalidParameters, "move-token requires tokenId, x, y")
	}
	if state.TokenByID(p.TokenID) == nil {
		return domain.NewActionError(domain.CodeInvalidParameters, "unknown token: %s", p.TokenID)
	}
	return nil
}

func (moveTokenHandler) Execute(_ context.Context, req domain.GameActionRequest, state *domain.EncounterState) error {
	var p moveTokenParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return domain.NewActionError(domain.CodeInvalidParameters, "malformed move-token parameters")
	}
	tok := state.TokenByID(p.TokenID)
	if tok == nil {
		return domain.NewActionError(domain.CodeInvalidParameters, "unknown token: %s", p.TokenID)
	}
	tok.X = p.X
	tok.Y = p.Y
	return nil
}

// attackHandler applies weapon damage to a target token.
type attackHandler struct{}

type attackParams struct {
	AttackerID string `json:"attackerId" validate:"required"`
	TargetID   string `json:"targetId" validate:"required"`
	Damage     int    `json:"damage" validate:"gte=0"`
}

func (attackHandler) Kind() domain.ActionKind { return domain.KindAction }

func (attackHandler) Validate(_ context.Context, req domain.GameActionRequest, state *domain.EncounterState) *domain.ActionError {
	var p attackParams
	if err := json.Unmarshal(req.Params, &p); err != nil || p.AttackerID == "" || p.TargetID == "" {
		return domain.NewActionError(domain.CodeInvalidParameters, "attack requires attackerId and targetId")
	}
	if state.TokenByID(p.TargetID) == nil {
		return domain.NewActionError(domain.CodeInvalidParameters, "unknown target: %s", p.TargetID)
	}
	if p.Damage < 0 {
		return domain.NewActionError(domain.CodeInvalidParameters, "damage must be non-negative")
	}
	return nil
}

func (attackHandler) Execute(_ context.Context, req domain.GameActionRequest, state *domain.EncounterState) error {
	var p attackParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return domain.NewActionError(domain.CodeInvalidParameters, "malformed attack parameters")
	}
	target := state.TokenByID(p.TargetID)
	if target == nil {
		return domain.NewActionError(domain.CodeInvalidParameters, "unknown target: %s", p.TargetID)
	}
	target.HP -= p.Damage
	if target.HP < 0 {
		target.HP = 0
	}
	state.Effects = append(state.Effects, domain.Effect{
		ID:       uuid.New().String(),
		Type:     domain.EffectDamage,
		Name:     "attack",
		Duration: 0,
		Source:   p.AttackerID,
		TargetID: p.TargetID,
		IsActive: false,
		Value:    p.Damage,
	})
	return nil
}

// castSpellHandler applies a spell effect with an optional duration.
type castSpellHandler struct{}

type castSpellParams struct {
	CasterID  string `json:"casterId" validate:"required"`
	TargetID  string `json:"targetId" validate:"required"`
	Spell     string `json:"spell" validate:"required"`
	Damage    int    `json:"damage"`
	Healing   int    `json:"healing"`
	Condition string `json:"condition"`
	Duration  int    `json:"duration"` // rounds, -1 for permanent
}

func (castSpellHandler) Kind() domain.ActionKind { return domain.KindAction }

func (castSpellHandler) Validate(_ context.Context, req domain.GameActionRequest, state *domain.EncounterState) *domain.ActionError {
	var p castSpellParams
	if err := json.Unmarshal(req.Params, &p); err != nil || p.Spell == "" || p.TargetID == "" {
		return domain.NewActionError(domain.CodeInvalidParameters, "cast-spell requires casterId, targetId and spell")
	}
	if state.TokenByID(p.TargetID) == nil {
		return domain.NewActionError(domain.CodeInvalidParameters, "unknown target: %s", p.TargetID)
	}
	return nil
}

func (castSpellHandler) Execute(_ context.Context, req domain.GameActionRequest, state *domain.EncounterState) error {
	var p castSpellParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return domain.NewActionError(domain.CodeInvalidParameters, "malformed cast-spell parameters")
	}
	target := state.TokenByID(p.TargetID)
	if target == nil {
		return domain.NewActionError(domain.CodeInvalidParameters, "unknown target: %s", p.TargetID)
	}

	if p.Damage > 0 {
		target.HP -= p.Damage
		if target.HP < 0 {
			target.HP = 0
		}
	}
	if p.Healing > 0 {
		target.HP += p.Healing
		if target.MaxHP > 0 && target.HP > target.MaxHP {
			target.HP = target.MaxHP
		}
	}
	if p.Condition != "" {
		target.Conditions = append(target.Conditions, p.Condition)
		state.Effects = append(state.Effects, domain.Effect{
			ID:       uuid.New().String(),
			Type:     domain.EffectCondition,
			Name:     p.Condition,
			Duration: p.Duration,
			Source:   p.CasterID,
			TargetID: p.TargetID,
			IsActive: true,
		})
	}
	return nil
}
