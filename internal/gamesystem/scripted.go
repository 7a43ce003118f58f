package gamesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/questdeck/questdeck/internal/domain"
	"github.com/questdeck/questdeck/internal/script"
)

// manifestScript is the script every scripted system must provide. It is
// run once at construction with phase "describe" and must set
//
//	result = {
//	  tie_break:      "dexModifier",
//	  incapacitating: ["stunned", ...],
//	  actions:        {"fireball": "action", "dodge": "bonus-action", ...},
//	}
//
// Each key of actions names a script file (<action>.tengo) implementing the
// validate and execute phases for that action type.
const manifestScript = "system"

// ScriptedSystem adapts tengo rule scripts to the GameSystem contract, so a
// table can run house rules without recompiling the server. Initiative
// modifiers come from the manifest script's "initiative" phase; action
// handlers are one script per action type.
type ScriptedSystem struct {
	BaseHooks
	name   string
	engine *script.Engine
	loader *script.Loader
	logger *slog.Logger

	tieBreak       string
	incapacitating []string
	kinds          map[domain.ActionType]domain.ActionKind
}

// NewScriptedSystem loads the manifest and builds the system. The loader
// must already have run Load.
func NewScriptedSystem(name string, engine *script.Engine, loader *script.Loader, logger *slog.Logger) (*ScriptedSystem, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ScriptedSystem{
		name:   name,
		engine: engine,
		loader: loader,
		logger: logger.With("system", name),
		kinds:  make(map[domain.ActionType]domain.ActionKind),
	}

	manifest, ok := loader.Get(manifestScript)
	if !ok {
		return nil, fmt.Errorf("scripted system %s: no system.tengo manifest", name)
	}
	raw, err := engine.Run(context.Background(), manifest, map[string]any{"phase": "describe"})
	if err != nil {
		return nil, fmt.Errorf("scripted system %s: describe failed: %w", name, err)
	}
	desc, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("scripted system %s: describe must set a result map", name)
	}

	s.tieBreak, _ = desc["tie_break"].(string)
	if list, ok := desc["incapacitating"].([]any); ok {
		for _, v := range list {
			if cond, ok := v.(string); ok {
				s.incapacitating = append(s.incapacitating, cond)
			}
		}
	}
	if actions, ok := desc["actions"].(map[string]any); ok {
		for actionType, kind := range actions {
			kindName, _ := kind.(string)
			if _, exists := loader.Get(actionType); !exists {
				return nil, fmt.Errorf("scripted system %s: action %s has no script", name, actionType)
			}
			s.kinds[domain.ActionType(actionType)] = domain.ActionKind(kindName)
		}
	}

	s.logger.Info("scripted system loaded",
		"actions", len(s.kinds), "tie_break", s.tieBreak)
	return s, nil
}

func (s *ScriptedSystem) Name() string { return s.name }

// InitiativeModifier delegates to the manifest's "initiative" phase, which
// receives the participant data bag and sets result to an int. Script
// failures degrade to a +0 modifier rather than blocking the roll.
func (s *ScriptedSystem) InitiativeModifier(p *domain.TurnParticipant) int {
	manifest, ok := s.loader.Get(manifestScript)
	if !ok {
		return 0
	}
	data := p.ParticipantData
	if data == nil {
		data = map[string]any{}
	}
	raw, err := s.engine.Run(context.Background(), manifest, map[string]any{
		"phase":       "initiative",
		"participant": data,
	})
	if err != nil {
		s.logger.Warn("initiative script failed", "participant", p.ParticipantID, "error", err)
		return 0
	}
	switch v := raw.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (s *ScriptedSystem) TieBreakModifier() string { return s.tieBreak }

func (s *ScriptedSystem) IncapacitatingConditions() []string { return s.incapacitating }

func (s *ScriptedSystem) ActionHandler(t domain.ActionType) (ActionHandler, bool) {
	kind, ok := s.kinds[t]
	if !ok {
		return nil, false
	}
	return &scriptedHandler{system: s, action: t, kind: kind}, true
}

func (s *ScriptedSystem) Hooks() Hooks { return s }

func (s *ScriptedSystem) Policy() TurnPolicy { return TurnPolicy{} }

// scriptedHandler runs one action script in its validate and execute
// phases. The script receives the request parameters and a JSON copy of
// the encounter state and reports back through its result map:
//
//	validate: result = {ok: true} or {ok: false, code: "...", message: "..."}
//	execute:  result = {ok: true, state: <mutated state>} or the failure shape
type scriptedHandler struct {
	system *ScriptedSystem
	action domain.ActionType
	kind   domain.ActionKind
}

func (h *scriptedHandler) Kind() domain.ActionKind { return h.kind }

func (h *scriptedHandler) Validate(ctx context.Context, req domain.GameActionRequest, state *domain.EncounterState) *domain.ActionError {
	if _, actionErr := h.run(ctx, "validate", req, state); actionErr != nil {
		return actionErr
	}
	return nil
}

func (h *scriptedHandler) Execute(ctx context.Context, req domain.GameActionRequest, state *domain.EncounterState) error {
	result, actionErr := h.run(ctx, "execute", req, state)
	if actionErr != nil {
		return actionErr
	}
	if result == nil {
		return nil
	}
	mutated, ok := result["state"]
	if !ok {
		return nil
	}
	encoded, err := json.Marshal(mutated)
	if err != nil {
		return domain.NewActionError(domain.CodeInternalError, "script returned unencodable state")
	}
	// Version and timestamps stay under store control regardless of what
	// the script handed back.
	version, updatedAt := state.Version, state.UpdatedAt
	if err := json.Unmarshal(encoded, state); err != nil {
		return domain.NewActionError(domain.CodeInternalError, "script returned malformed state")
	}
	state.Version, state.UpdatedAt = version, updatedAt
	return nil
}

// run executes one phase and interprets the common result shape.
func (h *scriptedHandler) run(ctx context.Context, phase string, req domain.GameActionRequest, state *domain.EncounterState) (map[string]any, *domain.ActionError) {
	scriptFile, ok := h.system.loader.Get(string(h.action))
	if !ok {
		return nil, domain.NewActionError(domain.CodeInvalidParameters, "no script for action %s", h.action)
	}

	params := map[string]any{}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, domain.NewActionError(domain.CodeInvalidParameters, "malformed %s parameters", h.action)
		}
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, domain.NewActionError(domain.CodeInternalError, "encoding state for script")
	}
	var stateMap map[string]any
	if err := json.Unmarshal(stateJSON, &stateMap); err != nil {
		return nil, domain.NewActionError(domain.CodeInternalError, "encoding state for script")
	}

	raw, err := h.system.engine.Run(ctx, scriptFile, map[string]any{
		"phase":     phase,
		"action":    string(h.action),
		"player_id": req.PlayerID,
		"params":    params,
		"state":     stateMap,
	})
	if err != nil {
		h.system.logger.Error("action script failed",
			"action", h.action, "phase", phase, "error", err)
		return nil, domain.NewActionError(domain.CodeValidationFailed, "rule script for %s failed", h.action)
	}

	result, ok := raw.(map[string]any)
	if !ok {
		return nil, domain.NewActionError(domain.CodeValidationFailed, "rule script for %s returned no result", h.action)
	}
	if okFlag, _ := result["ok"].(bool); !okFlag {
		code, _ := result["code"].(string)
		if code == "" {
			code = domain.CodeValidationFailed
		}
		message, _ := result["message"].(string)
		if message == "" {
			message = "rejected by rule script"
		}
		return nil, &domain.ActionError{Code: code, Message: message}
	}
	return result, nil
}
