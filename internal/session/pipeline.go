package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/questdeck/questdeck/internal/domain"
	"github.com/questdeck/questdeck/internal/economy"
	"github.com/questdeck/questdeck/internal/encounter"
	"github.com/questdeck/questdeck/internal/gamesystem"
	"github.com/questdeck/questdeck/internal/turn"
)

// writeAttempts bounds how often an approved action retries after losing a
// version race. Approval is not re-asked on retry; after the last attempt
// the requester gets a state-conflict rejection instead.
const writeAttempts = 2

// pendingRequest is the pipeline's record of a request between submission
// and its terminal response.
type pendingRequest struct {
	req     domain.GameActionRequest
	state   domain.RequestState
	kind    domain.ActionKind
	handler gamesystem.ActionHandler
	role    domain.Role
}

func isLifecycleAction(t domain.ActionType) bool {
	switch t {
	case domain.ActionStartEncounter, domain.ActionStopEncounter,
		domain.ActionRollInitiative, domain.ActionEndTurn:
		return true
	}
	return false
}

// handleSubmit runs the submitted request through shape, economy and
// game-system validation, then routes it: GM requests execute immediately,
// player requests go to the GM or into the queue depending on session mode.
func (s *Session) handleSubmit(ctx context.Context, req domain.GameActionRequest) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}
	req.SessionID = s.id

	if _, dup := s.pending[req.ID]; dup {
		s.logger.Warn("duplicate request id ignored", "request_id", req.ID)
		return
	}

	p := &pendingRequest{req: req, state: domain.RequestValidating}
	s.logger.Debug("request submitted",
		"request_id", req.ID, "player_id", req.PlayerID, "action", req.Action)

	snapshot, _, err := s.store.Read(ctx, s.encounterID)
	if err != nil {
		if errors.Is(err, encounter.ErrNotFound) {
			s.reject(ctx, p, domain.NewActionError(domain.CodeEncounterNotFound,
				"encounter %s not found", s.encounterID))
			return
		}
		s.logger.Error("encounter read failed", "request_id", req.ID, "error", err)
		s.reject(ctx, p, domain.NewActionError(domain.CodeInternalError,
			"could not load encounter state"))
		return
	}
	p.role = snapshot.ParticipantRole(req.PlayerID)
	if req.PlayerID == s.gmUserID {
		p.role = domain.RoleGM
	}

	if actErr := s.validate(ctx, p, snapshot); actErr != nil {
		s.reject(ctx, p, actErr)
		return
	}

	s.pending[req.ID] = p

	// The GM's own actions need no approval loop.
	if p.role == domain.RoleGM {
		s.executeApproved(ctx, p)
		return
	}

	if s.monitor.Mode() == domain.ModeQueuing {
		s.queue.Enqueue(req)
		p.state = domain.RequestQueued
		s.logger.Info("request queued, gm away",
			"request_id", req.ID, "queue_len", s.queue.Len())
		s.notifyUser(ctx, req.PlayerID, EventActionPending,
			ActionPendingEvent{RequestID: req.ID, Queued: true})
		return
	}

	p.state = domain.RequestAwaitingApproval
	if err := s.notifier.ToGM(ctx, s.id, EventActionRequest, req); err != nil {
		s.logger.Error("request forward failed", "request_id", req.ID, "error", err)
	}
	s.notifyUser(ctx, req.PlayerID, EventActionPending,
		ActionPendingEvent{RequestID: req.ID, Queued: false})
}

// validate fills in the request's kind and handler and checks it against
// the snapshot. Lifecycle actions carry their own role and order rules;
// everything else goes through the economy and the system handler.
func (s *Session) validate(ctx context.Context, p *pendingRequest, snapshot *domain.EncounterState) *domain.ActionError {
	req := p.req

	if isLifecycleAction(req.Action) {
		p.kind = domain.KindFree
		return s.validateLifecycle(p, snapshot)
	}

	handler, ok := s.system.ActionHandler(req.Action)
	if !ok {
		return domain.NewActionError(domain.CodeInvalidParameters,
			"unknown action type: %s", req.Action)
	}
	p.handler = handler
	p.kind = handler.Kind()

	if p.kind != domain.KindFree && snapshot.Status != domain.StatusInProgress {
		return domain.NewActionError(domain.CodeEncounterNotActive,
			"encounter is %s, combat actions need an active turn order", snapshot.Status)
	}

	if ch := resolveCharacter(snapshot, req.PlayerID); ch != nil {
		res := economy.Validate(p.kind, ch, s.system.IncapacitatingConditions(), string(req.Action))
		if !res.Valid {
			return res.Err
		}
	}

	return handler.Validate(ctx, req, snapshot)
}

func (s *Session) validateLifecycle(p *pendingRequest, snapshot *domain.EncounterState) *domain.ActionError {
	switch p.req.Action {
	case domain.ActionStartEncounter, domain.ActionStopEncounter, domain.ActionRollInitiative:
		if p.role != domain.RoleGM {
			return domain.NewActionError(domain.CodeValidationFailed,
				"%s requires the gm role", p.req.Action)
		}
	case domain.ActionEndTurn:
		if p.role == domain.RoleGM {
			return nil
		}
		cur := snapshot.Initiative.Current()
		if cur == nil || cur.ParticipantID != p.req.PlayerID {
			return domain.NewActionError(domain.CodeValidationFailed,
				"end-turn is only valid on your own turn")
		}
	}
	return nil
}

// handleGMResponse resolves an awaiting request. Responses for unknown or
// already-decided request ids are dropped; the first decision wins.
func (s *Session) handleGMResponse(ctx context.Context, resp domain.ActionRequestResponse) {
	p, ok := s.pending[resp.RequestID]
	if !ok {
		s.logger.Warn("gm response for unknown or settled request ignored",
			"request_id", resp.RequestID)
		return
	}
	if p.state != domain.RequestAwaitingApproval {
		s.logger.Warn("gm response out of order ignored",
			"request_id", resp.RequestID, "state", p.state)
		return
	}

	if !resp.Approved {
		actErr := resp.Error
		if actErr == nil {
			actErr = domain.NewActionError(domain.CodeGMRejected, "rejected by the gm")
		}
		s.reject(ctx, p, actErr)
		return
	}
	s.executeApproved(ctx, p)
}

// executeApproved commits the action through the store's versioned write
// path, retrying once on a version conflict with a fresh read.
func (s *Session) executeApproved(ctx context.Context, p *pendingRequest) {
	var (
		newState *domain.EncounterState
		version  int64
	)
	for attempt := 0; ; attempt++ {
		_, current, err := s.store.Read(ctx, s.encounterID)
		if err != nil {
			s.logger.Error("encounter read failed before write",
				"request_id", p.req.ID, "error", err)
			s.reject(ctx, p, domain.NewActionError(domain.CodeInternalError,
				"could not load encounter state"))
			return
		}

		newState, version, err = s.store.Write(ctx, s.encounterID, current, s.mutator(ctx, p))
		if err == nil {
			break
		}
		if errors.Is(err, encounter.ErrVersionConflict) && attempt+1 < writeAttempts {
			s.logger.Info("version conflict, retrying approved action",
				"request_id", p.req.ID, "expected_version", current)
			continue
		}
		if errors.Is(err, encounter.ErrVersionConflict) {
			s.reject(ctx, p, domain.NewActionError(domain.CodeStateConflict,
				"encounter state changed while applying the action"))
			return
		}
		var actErr *domain.ActionError
		if errors.As(err, &actErr) {
			s.reject(ctx, p, actErr)
			return
		}
		if errors.Is(err, turn.ErrNotActive) || errors.Is(err, turn.ErrNoParticipants) {
			s.reject(ctx, p, domain.NewActionError(domain.CodeEncounterNotActive, "%s", err))
			return
		}
		s.logger.Error("action execution failed", "request_id", p.req.ID, "error", err)
		s.reject(ctx, p, domain.NewActionError(domain.CodeInternalError,
			"action execution failed"))
		return
	}

	p.state = domain.RequestApplied
	delete(s.pending, p.req.ID)
	s.logger.Info("action applied",
		"request_id", p.req.ID, "action", p.req.Action, "version", version)

	s.notifyUser(ctx, p.req.PlayerID, EventActionResponse,
		domain.ActionRequestResponse{RequestID: p.req.ID, Approved: true})
	applied := ActionAppliedEvent{
		RequestID: p.req.ID,
		Action:    p.req.Action,
		PlayerID:  p.req.PlayerID,
		Version:   version,
		State:     newState,
	}
	if err := s.notifier.Broadcast(ctx, s.id, EventActionApplied, applied); err != nil {
		s.logger.Error("applied broadcast failed", "request_id", p.req.ID, "error", err)
	}
}

// mutator builds the store mutation for an approved request: lifecycle
// actions drive the turn manager, system actions run their handler and
// then consume the economy slot in the same write.
func (s *Session) mutator(ctx context.Context, p *pendingRequest) encounter.Mutator {
	return func(state *domain.EncounterState) error {
		if isLifecycleAction(p.req.Action) {
			return s.applyLifecycle(ctx, p, state)
		}
		if err := p.handler.Execute(ctx, p.req, state); err != nil {
			return err
		}
		if p.kind != domain.KindFree {
			if ch := resolveCharacter(state, p.req.PlayerID); ch != nil {
				economy.Consume(p.kind, ch, string(p.req.Action))
				if state.TurnStates == nil {
					state.TurnStates = make(map[string]*domain.TurnState)
				}
				state.TurnStates[ch.ID] = ch.TurnState
			}
		}
		return nil
	}
}

func (s *Session) applyLifecycle(ctx context.Context, p *pendingRequest, state *domain.EncounterState) error {
	switch p.req.Action {
	case domain.ActionStartEncounter:
		if state.Initiative.IsActive {
			return domain.NewActionError(domain.CodeValidationFailed,
				"turn order is already active")
		}
		return s.turns.Start(ctx, state, buildParticipants(state))
	case domain.ActionStopEncounter:
		return s.turns.End(ctx, state)
	case domain.ActionRollInitiative:
		parts := buildParticipants(state)
		if len(parts) == 0 {
			return domain.NewActionError(domain.CodeValidationFailed,
				"no tokens are bound to characters")
		}
		state.Initiative = domain.InitiativeTracker{Entries: s.turns.CalculateInitiative(parts)}
		return nil
	case domain.ActionEndTurn:
		return s.turns.AdvanceTurn(ctx, state)
	}
	return domain.NewActionError(domain.CodeInvalidParameters,
		"unknown lifecycle action: %s", p.req.Action)
}

// buildParticipants derives combatants from the tokens bound to characters.
// Token attributes travel along as the participant data bag so the game
// system can read its modifiers from them.
func buildParticipants(state *domain.EncounterState) []*domain.TurnParticipant {
	parts := make([]*domain.TurnParticipant, 0, len(state.Tokens))
	for _, tok := range state.Tokens {
		if tok.CharacterID == "" {
			continue
		}
		parts = append(parts, &domain.TurnParticipant{
			ParticipantID:   tok.CharacterID,
			ActorID:         tok.CharacterID,
			TokenID:         tok.ID,
			ParticipantData: tok.Attributes,
		})
	}
	return parts
}

// resolveCharacter projects the economy's view of an actor out of the
// encounter state: the conditions on their token plus their per-turn
// record. Nil when the player controls no token here.
func resolveCharacter(state *domain.EncounterState, playerID string) *domain.Character {
	for i := range state.Tokens {
		if state.Tokens[i].CharacterID == playerID {
			return &domain.Character{
				ID:         playerID,
				Name:       state.Tokens[i].Name,
				Conditions: state.Tokens[i].Conditions,
				TurnState:  state.TurnStates[playerID],
			}
		}
	}
	return nil
}

// reject settles a request with a terminal error response to its requester.
func (s *Session) reject(ctx context.Context, p *pendingRequest, actErr *domain.ActionError) {
	p.state = domain.RequestRejected
	delete(s.pending, p.req.ID)
	s.logger.Info("request rejected",
		"request_id", p.req.ID, "action", p.req.Action, "code", actErr.Code)
	s.notifyUser(ctx, p.req.PlayerID, EventActionResponse,
		domain.ActionRequestResponse{RequestID: p.req.ID, Approved: false, Error: actErr})
}

func (s *Session) notifyUser(ctx context.Context, userID, event string, payload any) {
	if err := s.notifier.ToUser(ctx, s.id, userID, event, payload); err != nil {
		s.logger.Error("user notification failed",
			"user_id", userID, "event", event, "error", err)
	}
}
