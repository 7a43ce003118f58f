// Package turn owns the initiative list and the round/turn pointer for one
// encounter. All state it touches travels through the encounter store's
// versioned write path; the manager itself holds only runtime bookkeeping.
package turn

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/questdeck/questdeck/internal/domain"
	"github.com/questdeck/questdeck/internal/gamesystem"
)

// ErrNotActive is returned when advancing a turn outside an active order.
var ErrNotActive = errors.New("turn order is not active")

// ErrNoParticipants is returned when starting combat with nobody in it.
var ErrNoParticipants = errors.New("no participants in turn order")

// Manager drives turn and round progression for a single encounter.
type Manager struct {
	system       gamesystem.GameSystem
	participants []*domain.TurnParticipant
	rng          *rand.Rand
	active       bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithRand injects a deterministic random source for tests.
func WithRand(rng *rand.Rand) Option {
	return func(m *Manager) {
		m.rng = rng
	}
}

// NewManager creates a manager bound to a game system.
func NewManager(system gamesystem.GameSystem, opts ...Option) *Manager {
	m := &Manager{
		system: system,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Active reports whether a turn order is running.
func (m *Manager) Active() bool { return m.active }

// Participants returns the current runtime participants in turn order.
func (m *Manager) Participants() []*domain.TurnParticipant { return m.participants }

// CalculateInitiative rolls a d20 for each participant, adds the system's
// modifier, and orders the result descending. Equal scores break on the
// system's tie-break modifier; remaining ties keep stable input order.
// TurnOrder is assigned after sorting.
func (m *Manager) CalculateInitiative(participants []*domain.TurnParticipant) []domain.InitiativeEntry {
	tieBreak := m.system.TieBreakModifier()

	entries := make([]domain.InitiativeEntry, len(participants))
	for i, p := range participants {
		mod := m.system.InitiativeModifier(p)
		roll := m.rng.Intn(20) + 1
		entries[i] = domain.InitiativeEntry{
			ParticipantID: p.ParticipantID,
			TokenID:       p.TokenID,
			Initiative:    roll + mod,
			Modifiers:     map[string]int{tieBreak: mod},
		}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].Initiative != entries[b].Initiative {
			return entries[a].Initiative > entries[b].Initiative
		}
		return entries[a].Modifier(tieBreak) > entries[b].Modifier(tieBreak)
	})

	byID := make(map[string]*domain.TurnParticipant, len(participants))
	for _, p := range participants {
		byID[p.ParticipantID] = p
	}
	ordered := make([]*domain.TurnParticipant, 0, len(entries))
	for i := range entries {
		if p, ok := byID[entries[i].ParticipantID]; ok {
			p.TurnOrder = i
			ordered = append(ordered, p)
		}
	}
	m.participants = ordered

	return entries
}

// Start activates the turn order on the encounter state: rolls initiative,
// installs the tracker at round 1 turn 0, and fires the order-start, first
// round-start and first turn-start hooks in that order.
func (m *Manager) Start(ctx context.Context, state *domain.EncounterState, participants []*domain.TurnParticipant) error {
	if len(participants) == 0 {
		return ErrNoParticipants
	}

	entries := m.CalculateInitiative(participants)
	state.Initiative = domain.InitiativeTracker{
		Entries:      entries,
		CurrentTurn:  0,
		CurrentRound: 1,
		IsActive:     true,
	}
	state.Status = domain.StatusInProgress
	m.active = true

	hooks := m.system.Hooks()
	first := m.participantAt(0)
	ev := &gamesystem.TurnEvent{Round: 1, TurnIndex: 0, Participant: first, State: state}
	if err := hooks.OnTurnOrderStart(ctx, ev); err != nil {
		return err
	}
	if err := hooks.OnRoundStart(ctx, ev); err != nil {
		return err
	}
	resetTurnState(state, first)
	return hooks.OnTurnStart(ctx, ev)
}

// Resume rebuilds the runtime participant list and active flag from a
// persisted tracker, so a manager attached to an in-flight encounter can
// advance or end it. A no-op when the tracker is not active.
func (m *Manager) Resume(state *domain.EncounterState, participants []*domain.TurnParticipant) {
	tracker := state.Initiative
	if !tracker.IsActive || len(tracker.Entries) == 0 {
		return
	}

	byID := make(map[string]*domain.TurnParticipant, len(participants))
	for _, p := range participants {
		byID[p.ParticipantID] = p
	}
	ordered := make([]*domain.TurnParticipant, 0, len(tracker.Entries))
	for i := range tracker.Entries {
		p, ok := byID[tracker.Entries[i].ParticipantID]
		if !ok {
			continue
		}
		p.TurnOrder = i
		p.HasActed = tracker.Entries[i].HasActed
		ordered = append(ordered, p)
	}
	m.participants = ordered
	m.active = true
}

// AdvanceTurn moves the pointer to the next entry, wrapping into a new round
// when the list is exhausted. The pointer advances before any hook runs and
// is not rolled back by a hook failure. Hook order per call: turn-end for
// the outgoing participant, then on a wrap round-end (completed round) and
// round-start (new round), then turn-start for the incoming participant.
func (m *Manager) AdvanceTurn(ctx context.Context, state *domain.EncounterState) error {
	tracker := &state.Initiative
	if !m.active || !tracker.IsActive || len(tracker.Entries) == 0 {
		return ErrNotActive
	}

	oldIdx := tracker.CurrentTurn
	oldRound := tracker.CurrentRound
	outgoing := m.participantAt(oldIdx)
	if outgoing != nil {
		outgoing.HasActed = true
	}
	if oldIdx >= 0 && oldIdx < len(tracker.Entries) {
		tracker.Entries[oldIdx].HasActed = true
	}

	newIdx := (oldIdx + 1) % len(tracker.Entries)
	wrapped := newIdx == 0
	tracker.CurrentTurn = newIdx
	if wrapped {
		tracker.CurrentRound++
		for i := range tracker.Entries {
			tracker.Entries[i].HasActed = false
		}
		for _, p := range m.participants {
			p.HasActed = false
		}
	}
	incoming := m.participantAt(newIdx)

	hooks := m.system.Hooks()
	outEv := &gamesystem.TurnEvent{Round: oldRound, TurnIndex: oldIdx, Participant: outgoing, State: state}
	if err := hooks.OnTurnEnd(ctx, outEv); err != nil {
		return err
	}
	if wrapped {
		if err := hooks.OnRoundEnd(ctx, outEv); err != nil {
			return err
		}
		expireEffects(state)
		inEv := &gamesystem.TurnEvent{Round: tracker.CurrentRound, TurnIndex: newIdx, Participant: incoming, State: state}
		if err := hooks.OnRoundStart(ctx, inEv); err != nil {
			return err
		}
	}
	resetTurnState(state, incoming)
	inEv := &gamesystem.TurnEvent{Round: tracker.CurrentRound, TurnIndex: newIdx, Participant: incoming, State: state}
	return hooks.OnTurnStart(ctx, inEv)
}

// resetTurnState clears the incoming participant's per-turn economy record
// before the turn-start hook fires. The manager owns this invariant so every
// game system starts a turn with a full budget, whether or not it installs
// lifecycle hooks.
func resetTurnState(state *domain.EncounterState, p *domain.TurnParticipant) {
	if p == nil || state.TurnStates == nil {
		return
	}
	if ts, ok := state.TurnStates[p.ActorID]; ok && ts != nil {
		ts.Reset()
	}
}

// End deactivates the order, fires the order-end hook and discards the
// runtime participants.
func (m *Manager) End(ctx context.Context, state *domain.EncounterState) error {
	if !m.active {
		return ErrNotActive
	}
	tracker := &state.Initiative
	tracker.IsActive = false
	state.Status = domain.StatusCompleted
	m.active = false

	ev := &gamesystem.TurnEvent{
		Round:     tracker.CurrentRound,
		TurnIndex: tracker.CurrentTurn,
		State:     state,
	}
	err := m.system.Hooks().OnTurnOrderEnd(ctx, ev)
	m.participants = nil
	return err
}

func (m *Manager) participantAt(idx int) *domain.TurnParticipant {
	if idx < 0 || idx >= len(m.participants) {
		return nil
	}
	return m.participants[idx]
}

// expireEffects decrements timed effect durations at the end of a round and
// drops the ones that run out, clearing any condition they were holding on
// their target token.
func expireEffects(state *domain.EncounterState) {
	kept := state.Effects[:0]
	for _, eff := range state.Effects {
		if eff.IsActive && eff.Duration > 0 {
			eff.Duration--
		}
		if eff.IsActive && eff.Expired() {
			if eff.Type == domain.EffectCondition {
				clearCondition(state, eff.TargetID, eff.Name)
			}
			continue
		}
		kept = append(kept, eff)
	}
	state.Effects = kept
}

func clearCondition(state *domain.EncounterState, tokenID, condition string) {
	tok := state.TokenByID(tokenID)
	if tok == nil {
		return
	}
	conds := tok.Conditions[:0]
	for _, c := range tok.Conditions {
		if c != condition {
			conds = append(conds, c)
		}
	}
	tok.Conditions = conds
}
