package gamesystem

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questdeck/questdeck/internal/domain"
)

func srd5State() *domain.EncounterState {
	return &domain.EncounterState{
		ID:     "enc-1",
		Status: domain.StatusInProgress,
		Tokens: []domain.Token{
			{ID: "tok-hero", Name: "Hero", X: 1, Y: 1, HP: 20, MaxHP: 20},
			{ID: "tok-orc", Name: "Orc", X: 3, Y: 3, HP: 8, MaxHP: 8},
		},
	}
}

func actionRequest(t *testing.T, action domain.ActionType, params map[string]any) domain.GameActionRequest {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return domain.GameActionRequest{
		ID:       "req-1",
		PlayerID: "p1",
		Action:   action,
		Params:   raw,
	}
}

func TestSRD5InitiativeModifier(t *testing.T) {
	sys := NewSRD5()

	assert.Equal(t, 3, sys.InitiativeModifier(&domain.TurnParticipant{
		ParticipantData: map[string]any{"dexModifier": 3},
	}))
	// JSON round-trips numbers as float64.
	assert.Equal(t, 2, sys.InitiativeModifier(&domain.TurnParticipant{
		ParticipantData: map[string]any{"dexModifier": float64(2)},
	}))
	assert.Equal(t, 0, sys.InitiativeModifier(&domain.TurnParticipant{}))
}

func TestSRD5HandlerKinds(t *testing.T) {
	sys := NewSRD5()

	move, ok := sys.ActionHandler(domain.ActionMoveToken)
	require.True(t, ok)
	assert.Equal(t, domain.KindFree, move.Kind())

	attack, ok := sys.ActionHandler(domain.ActionAttack)
	require.True(t, ok)
	assert.Equal(t, domain.KindAction, attack.Kind())

	_, ok = sys.ActionHandler(domain.ActionType("polymorph"))
	assert.False(t, ok)
}

func TestMoveTokenExecute(t *testing.T) {
	sys := NewSRD5()
	state := srd5State()
	h, _ := sys.ActionHandler(domain.ActionMoveToken)

	req := actionRequest(t, domain.ActionMoveToken, map[string]any{
		"tokenId": "tok-hero", "x": 4.5, "y": 6.0,
	})
	require.Nil(t, h.Validate(context.Background(), req, state))
	require.NoError(t, h.Execute(context.Background(), req, state))

	tok := state.TokenByID("tok-hero")
	assert.Equal(t, 4.5, tok.X)
	assert.Equal(t, 6.0, tok.Y)
}

func TestMoveTokenRejectsUnknownToken(t *testing.T) {
	sys := NewSRD5()
	h, _ := sys.ActionHandler(domain.ActionMoveToken)

	req := actionRequest(t, domain.ActionMoveToken, map[string]any{"tokenId": "tok-ghost"})
	actionErr := h.Validate(context.Background(), req, srd5State())
	require.NotNil(t, actionErr)
	assert.Equal(t, domain.CodeInvalidParameters, actionErr.Code)
}

func TestAttackAppliesDamageAndClampsAtZero(t *testing.T) {
	sys := NewSRD5()
	state := srd5State()
	h, _ := sys.ActionHandler(domain.ActionAttack)

	req := actionRequest(t, domain.ActionAttack, map[string]any{
		"attackerId": "tok-hero", "targetId": "tok-orc", "damage": 5,
	})
	require.Nil(t, h.Validate(context.Background(), req, state))
	require.NoError(t, h.Execute(context.Background(), req, state))
	assert.Equal(t, 3, state.TokenByID("tok-orc").HP)
	require.Len(t, state.Effects, 1)
	assert.Equal(t, domain.EffectDamage, state.Effects[0].Type)

	overkill := actionRequest(t, domain.ActionAttack, map[string]any{
		"attackerId": "tok-hero", "targetId": "tok-orc", "damage": 50,
	})
	require.NoError(t, h.Execute(context.Background(), overkill, state))
	assert.Equal(t, 0, state.TokenByID("tok-orc").HP)
}

func TestCastSpellHealingCapsAtMaxHP(t *testing.T) {
	sys := NewSRD5()
	state := srd5State()
	state.TokenByID("tok-hero").HP = 12
	h, _ := sys.ActionHandler(domain.ActionCastSpell)

	req := actionRequest(t, domain.ActionCastSpell, map[string]any{
		"casterId": "tok-orc", "targetId": "tok-hero", "spell": "cure-wounds", "healing": 100,
	})
	require.Nil(t, h.Validate(context.Background(), req, state))
	require.NoError(t, h.Execute(context.Background(), req, state))
	assert.Equal(t, 20, state.TokenByID("tok-hero").HP)
}

func TestCastSpellAppliesCondition(t *testing.T) {
	sys := NewSRD5()
	state := srd5State()
	h, _ := sys.ActionHandler(domain.ActionCastSpell)

	req := actionRequest(t, domain.ActionCastSpell, map[string]any{
		"casterId": "tok-hero", "targetId": "tok-orc",
		"spell": "hold-person", "condition": "paralyzed", "duration": 3,
	})
	require.NoError(t, h.Execute(context.Background(), req, state))

	assert.Contains(t, state.TokenByID("tok-orc").Conditions, "paralyzed")
	require.Len(t, state.Effects, 1)
	assert.Equal(t, domain.EffectCondition, state.Effects[0].Type)
	assert.Equal(t, 3, state.Effects[0].Duration)
	assert.True(t, state.Effects[0].IsActive)
}
