package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/questdeck/questdeck/internal/domain"
	"github.com/questdeck/questdeck/internal/encounter"
	"github.com/questdeck/questdeck/internal/gamesystem"
	"github.com/questdeck/questdeck/internal/turn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifierCall struct {
	method  string
	userID  string
	event   string
	payload any
}

// recordingNotifier captures deliveries in call order. Handlers under test
// run on a single goroutine, so no locking is needed.
type recordingNotifier struct {
	calls []notifierCall
}

func (r *recordingNotifier) Broadcast(_ context.Context, _ string, event string, payload any) error {
	r.calls = append(r.calls, notifierCall{method: "broadcast", event: event, payload: payload})
	return nil
}

func (r *recordingNotifier) ToUser(_ context.Context, _ string, userID, event string, payload any) error {
	r.calls = append(r.calls, notifierCall{method: "user", userID: userID, event: event, payload: payload})
	return nil
}

func (r *recordingNotifier) ToGM(_ context.Context, _ string, event string, payload any) error {
	r.calls = append(r.calls, notifierCall{method: "gm", event: event, payload: payload})
	return nil
}

func (r *recordingNotifier) filter(method, event string) []notifierCall {
	var out []notifierCall
	for _, c := range r.calls {
		if c.method == method && c.event == event {
			out = append(out, c)
		}
	}
	return out
}

func (r *recordingNotifier) lastResponse(t *testing.T) domain.ActionRequestResponse {
	t.Helper()
	calls := r.filter("user", EventActionResponse)
	require.NotEmpty(t, calls, "expected a terminal response")
	return calls[len(calls)-1].payload.(domain.ActionRequestResponse)
}

func seedState(status domain.EncounterStatus) *domain.EncounterState {
	return &domain.EncounterState{
		Status: status,
		Participants: []domain.Participant{
			{UserID: "gm-1", Role: domain.RoleGM},
			{UserID: "p1", Role: domain.RolePlayer},
			{UserID: "p2", Role: domain.RolePlayer},
			{UserID: "p3", Role: domain.RolePlayer},
		},
		Tokens: []domain.Token{
			{ID: "tok-p1", Name: "Aria", CharacterID: "p1", HP: 20, MaxHP: 20,
				Attributes: map[string]any{"dexModifier": 3}},
			{ID: "tok-p2", Name: "Borin", CharacterID: "p2", HP: 18, MaxHP: 18,
				Attributes: map[string]any{"dexModifier": 1}},
			{ID: "tok-p3", Name: "Cael", CharacterID: "p3", HP: 16, MaxHP: 16},
		},
	}
}

func newTestSession(t *testing.T, store encounter.Store, seed *domain.EncounterState) (*Session, *recordingNotifier, string) {
	t.Helper()
	created, err := store.Create(context.Background(), seed)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	sess := New(Config{
		SessionID:   "sess-1",
		EncounterID: created.ID,
		GMUserID:    "gm-1",
		Store:       store,
		System:      gamesystem.NewSRD5(),
		Notifier:    notifier,
		Logger:      slog.New(slog.DiscardHandler),
		TurnOptions: []turn.Option{turn.WithRand(rand.New(rand.NewSource(1)))},
	})
	return sess, notifier, created.ID
}

func attackRequest(id, playerID string) domain.GameActionRequest {
	params, _ := json.Marshal(map[string]any{
		"attackerId": "tok-" + playerID, "targetId": "tok-p3", "damage": 4,
	})
	return domain.GameActionRequest{
		ID: id, PlayerID: playerID, Action: domain.ActionAttack, Params: params,
	}
}

func moveRequest(id, playerID string, x, y float64) domain.GameActionRequest {
	params, _ := json.Marshal(map[string]any{"tokenId": "tok-" + playerID, "x": x, "y": y})
	return domain.GameActionRequest{
		ID: id, PlayerID: playerID, Action: domain.ActionMoveToken, Params: params,
	}
}

func TestSubmit_ForwardsToGMAndNotifiesRequester(t *testing.T) {
	sess, notifier, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusInProgress))
	ctx := context.Background()

	sess.handleSubmit(ctx, attackRequest("req-1", "p1"))

	forwarded := notifier.filter("gm", EventActionRequest)
	require.Len(t, forwarded, 1)
	assert.Equal(t, "req-1", forwarded[0].payload.(domain.GameActionRequest).ID)

	pending := notifier.filter("user", EventActionPending)
	require.Len(t, pending, 1)
	assert.Equal(t, "p1", pending[0].userID)
	assert.False(t, pending[0].payload.(ActionPendingEvent).Queued)

	require.Contains(t, sess.pending, "req-1")
	assert.Equal(t, domain.RequestAwaitingApproval, sess.pending["req-1"].state)
}

func TestSubmit_UnknownActionRejected(t *testing.T) {
	sess, notifier, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusInProgress))

	sess.handleSubmit(context.Background(), domain.GameActionRequest{
		ID: "req-1", PlayerID: "p1", Action: "summon-kraken",
	})

	resp := notifier.lastResponse(t)
	assert.False(t, resp.Approved)
	assert.Equal(t, domain.CodeInvalidParameters, resp.Error.Code)
	assert.Empty(t, notifier.filter("gm", EventActionRequest), "invalid requests never reach the gm")
}

func TestSubmit_IncapacitatedRejectedBeforeGM(t *testing.T) {
	seed := seedState(domain.StatusInProgress)
	seed.Tokens[0].Conditions = []string{"paralyzed"}
	sess, notifier, _ := newTestSession(t, encounter.NewMemoryStore(), seed)

	params, _ := json.Marshal(map[string]any{
		"casterId": "tok-p1", "targetId": "tok-p3", "spell": "fire bolt", "damage": 6,
	})
	sess.handleSubmit(context.Background(), domain.GameActionRequest{
		ID: "req-1", PlayerID: "p1", Action: domain.ActionCastSpell, Params: params,
	})

	resp := notifier.lastResponse(t)
	assert.Equal(t, domain.CodeActionRestricted, resp.Error.Code)
	assert.Empty(t, notifier.filter("gm", EventActionRequest))
}

func TestSubmit_ActionSlotAlreadySpent(t *testing.T) {
	seed := seedState(domain.StatusInProgress)
	seed.TurnStates = map[string]*domain.TurnState{
		"p1": {UsedActions: []string{"attack"}},
	}
	sess, notifier, _ := newTestSession(t, encounter.NewMemoryStore(), seed)

	sess.handleSubmit(context.Background(), attackRequest("req-1", "p1"))

	resp := notifier.lastResponse(t)
	assert.Equal(t, domain.CodeActionAlreadyUsed, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "attack")
}

func TestSubmit_CombatActionNeedsActiveEncounter(t *testing.T) {
	sess, notifier, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusReady))

	sess.handleSubmit(context.Background(), attackRequest("req-1", "p1"))

	resp := notifier.lastResponse(t)
	assert.Equal(t, domain.CodeEncounterNotActive, resp.Error.Code)
}

func TestGMApprove_AppliesAndBroadcasts(t *testing.T) {
	store := encounter.NewMemoryStore()
	sess, notifier, encID := newTestSession(t, store, seedState(domain.StatusInProgress))
	ctx := context.Background()

	sess.handleSubmit(ctx, attackRequest("req-1", "p1"))
	sess.handleGMResponse(ctx, domain.ActionRequestResponse{RequestID: "req-1", Approved: true})

	resp := notifier.lastResponse(t)
	assert.True(t, resp.Approved)

	applied := notifier.filter("broadcast", EventActionApplied)
	require.Len(t, applied, 1)
	ev := applied[0].payload.(ActionAppliedEvent)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, int64(2), ev.Version)
	assert.Equal(t, 12, ev.State.TokenByID("tok-p3").HP)

	// The action slot is consumed in the same write.
	state, version, err := store.Read(ctx, encID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	require.NotNil(t, state.TurnStates["p1"])
	assert.Equal(t, []string{"attack"}, state.TurnStates["p1"].UsedActions)

	assert.NotContains(t, sess.pending, "req-1")
}

func TestGMReject_SettlesWithGMRejected(t *testing.T) {
	sess, notifier, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusInProgress))
	ctx := context.Background()

	sess.handleSubmit(ctx, attackRequest("req-1", "p1"))
	sess.handleGMResponse(ctx, domain.ActionRequestResponse{RequestID: "req-1", Approved: false})

	resp := notifier.lastResponse(t)
	assert.False(t, resp.Approved)
	assert.Equal(t, domain.CodeGMRejected, resp.Error.Code)
	assert.Empty(t, notifier.filter("broadcast", EventActionApplied))
}

func TestGMResponse_DuplicateIgnored(t *testing.T) {
	sess, notifier, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusInProgress))
	ctx := context.Background()

	sess.handleSubmit(ctx, attackRequest("req-1", "p1"))
	sess.handleGMResponse(ctx, domain.ActionRequestResponse{RequestID: "req-1", Approved: true})
	sess.handleGMResponse(ctx, domain.ActionRequestResponse{RequestID: "req-1", Approved: false})
	sess.handleGMResponse(ctx, domain.ActionRequestResponse{RequestID: "req-1", Approved: true})

	// Exactly one terminal response and one applied broadcast.
	assert.Len(t, notifier.filter("user", EventActionResponse), 1)
	assert.Len(t, notifier.filter("broadcast", EventActionApplied), 1)
}

func TestGMOwnActions_BypassApproval(t *testing.T) {
	sess, notifier, encID := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusReady))
	ctx := context.Background()

	sess.handleSubmit(ctx, domain.GameActionRequest{
		ID: "req-1", PlayerID: "gm-1", Action: domain.ActionStartEncounter,
	})

	assert.Empty(t, notifier.filter("gm", EventActionRequest))
	applied := notifier.filter("broadcast", EventActionApplied)
	require.Len(t, applied, 1)

	state, _, err := sess.store.Read(ctx, encID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, state.Status)
	assert.True(t, state.Initiative.IsActive)
	assert.Equal(t, 1, state.Initiative.CurrentRound)
	assert.Len(t, state.Initiative.Entries, 3)
}

func TestLifecycle_PlayerCannotStartEncounter(t *testing.T) {
	sess, notifier, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusReady))

	sess.handleSubmit(context.Background(), domain.GameActionRequest{
		ID: "req-1", PlayerID: "p1", Action: domain.ActionStartEncounter,
	})

	resp := notifier.lastResponse(t)
	assert.Equal(t, domain.CodeValidationFailed, resp.Error.Code)
}

func TestLifecycle_EndTurnOnlyOnOwnTurn(t *testing.T) {
	sess, notifier, encID := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusReady))
	ctx := context.Background()

	sess.handleSubmit(ctx, domain.GameActionRequest{
		ID: "req-start", PlayerID: "gm-1", Action: domain.ActionStartEncounter,
	})
	state, _, err := sess.store.Read(ctx, encID)
	require.NoError(t, err)
	current := state.Initiative.Current()
	require.NotNil(t, current)

	var offTurn string
	for _, id := range []string{"p1", "p2", "p3"} {
		if id != current.ParticipantID {
			offTurn = id
			break
		}
	}

	sess.handleSubmit(ctx, domain.GameActionRequest{
		ID: "req-bad", PlayerID: offTurn, Action: domain.ActionEndTurn,
	})
	resp := notifier.lastResponse(t)
	assert.Equal(t, domain.CodeValidationFailed, resp.Error.Code)

	// The acting participant's end-turn goes to the GM and advances on approval.
	sess.handleSubmit(ctx, domain.GameActionRequest{
		ID: "req-end", PlayerID: current.ParticipantID, Action: domain.ActionEndTurn,
	})
	sess.handleGMResponse(ctx, domain.ActionRequestResponse{RequestID: "req-end", Approved: true})

	state, _, err = sess.store.Read(ctx, encID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Initiative.CurrentTurn)
	assert.True(t, state.Initiative.Entries[0].HasActed)
}

func TestResume_LifecycleActionsWorkOnAlreadyActiveEncounter(t *testing.T) {
	seed := seedState(domain.StatusInProgress)
	seed.Initiative = domain.InitiativeTracker{
		Entries: []domain.InitiativeEntry{
			{ParticipantID: "p1", TokenID: "tok-p1", Initiative: 18},
			{ParticipantID: "p2", TokenID: "tok-p2", Initiative: 12, HasActed: false},
			{ParticipantID: "p3", TokenID: "tok-p3", Initiative: 7},
		},
		CurrentTurn:  1,
		CurrentRound: 2,
		IsActive:     true,
	}
	store := encounter.NewMemoryStore()
	sess, notifier, encID := newTestSession(t, store, seed)
	ctx := context.Background()

	sess.resumeTurnOrder(ctx)

	// end-turn advances the persisted pointer instead of bouncing off an
	// inactive manager.
	sess.handleSubmit(ctx, domain.GameActionRequest{
		ID: "req-end", PlayerID: "gm-1", Action: domain.ActionEndTurn,
	})
	resp := notifier.lastResponse(t)
	require.True(t, resp.Approved, "end-turn on a resumed order must apply")

	state, _, err := store.Read(ctx, encID)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Initiative.CurrentTurn)
	assert.Equal(t, 2, state.Initiative.CurrentRound)

	// stop-encounter also works against the resumed order.
	sess.handleSubmit(ctx, domain.GameActionRequest{
		ID: "req-stop", PlayerID: "gm-1", Action: domain.ActionStopEncounter,
	})
	state, _, err = store.Read(ctx, encID)
	require.NoError(t, err)
	assert.False(t, state.Initiative.IsActive)
	assert.Equal(t, domain.StatusCompleted, state.Status)
}

func TestResume_InactiveEncounterLeavesManagerIdle(t *testing.T) {
	sess, notifier, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusReady))
	ctx := context.Background()

	sess.resumeTurnOrder(ctx)

	sess.handleSubmit(ctx, domain.GameActionRequest{
		ID: "req-end", PlayerID: "gm-1", Action: domain.ActionEndTurn,
	})
	resp := notifier.lastResponse(t)
	assert.False(t, resp.Approved)
	assert.Equal(t, domain.CodeEncounterNotActive, resp.Error.Code)
}

func TestHeartbeat_ThresholdFlipsToQueuing(t *testing.T) {
	sess, notifier, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusInProgress))
	ctx := context.Background()

	for i := 0; i < DefaultMissedPingThreshold; i++ {
		ping := sess.monitor.NextPing(sess.id, time.Now().UTC())
		sess.handlePingTimeout(ctx, ping.PingID)
	}

	assert.Equal(t, domain.ModeQueuing, sess.monitor.Mode())
	timeouts := notifier.filter("broadcast", EventGMTimeout)
	require.Len(t, timeouts, 1, "timeout announced exactly once at the threshold")
	assert.Equal(t, "sess-1", timeouts[0].payload.(GMTimeoutEvent).SessionID)
}

func TestHeartbeat_SingleMissDoesNotFlip(t *testing.T) {
	sess, notifier, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusInProgress))
	ctx := context.Background()

	ping := sess.monitor.NextPing(sess.id, time.Now().UTC())
	sess.handlePingTimeout(ctx, ping.PingID)

	assert.Equal(t, domain.ModeLive, sess.monitor.Mode())
	assert.Empty(t, notifier.filter("broadcast", EventGMTimeout))
}

func TestHeartbeat_PongResetsMissCounter(t *testing.T) {
	sess, _, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusInProgress))
	ctx := context.Background()

	p1 := sess.monitor.NextPing(sess.id, time.Now().UTC())
	sess.handlePingTimeout(ctx, p1.PingID)
	p2 := sess.monitor.NextPing(sess.id, time.Now().UTC())
	sess.handlePingTimeout(ctx, p2.PingID)
	require.Equal(t, 2, sess.monitor.Misses())

	p3 := sess.monitor.NextPing(sess.id, time.Now().UTC())
	sess.handlePong(ctx, PongMessage{PingID: p3.PingID})

	assert.Equal(t, 0, sess.monitor.Misses())
	assert.Equal(t, domain.ModeLive, sess.monitor.Mode())
}

func flipToQueuing(ctx context.Context, sess *Session) {
	for i := 0; i < DefaultMissedPingThreshold; i++ {
		ping := sess.monitor.NextPing(sess.id, time.Now().UTC())
		sess.handlePingTimeout(ctx, ping.PingID)
	}
}

func TestQueue_SubmissionsBufferWhileGMAway(t *testing.T) {
	sess, notifier, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusInProgress))
	ctx := context.Background()

	flipToQueuing(ctx, sess)
	notifier.calls = nil

	sess.handleSubmit(ctx, moveRequest("req-1", "p1", 1, 1))
	sess.handleSubmit(ctx, moveRequest("req-2", "p2", 2, 2))

	assert.Empty(t, notifier.filter("gm", EventActionRequest), "nothing forwarded while queuing")
	assert.Equal(t, 2, sess.queue.Len())

	pending := notifier.filter("user", EventActionPending)
	require.Len(t, pending, 2)
	for _, call := range pending {
		assert.True(t, call.payload.(ActionPendingEvent).Queued)
	}
	assert.Equal(t, domain.RequestQueued, sess.pending["req-1"].state)
}

func TestQueue_DrainsFIFOOnReconnect(t *testing.T) {
	sess, notifier, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusInProgress))
	ctx := context.Background()

	flipToQueuing(ctx, sess)
	sess.handleSubmit(ctx, moveRequest("req-1", "p1", 1, 1))
	sess.handleSubmit(ctx, moveRequest("req-2", "p2", 2, 2))
	sess.handleSubmit(ctx, moveRequest("req-3", "p3", 3, 3))
	notifier.calls = nil

	ping := sess.monitor.NextPing(sess.id, time.Now().UTC())
	sess.handlePong(ctx, PongMessage{PingID: ping.PingID})

	reconnects := notifier.filter("broadcast", EventGMReconnected)
	require.Len(t, reconnects, 1)
	assert.Equal(t, 3, reconnects[0].payload.(GMReconnectedEvent).QueuedActions)

	forwarded := notifier.filter("gm", EventActionRequest)
	require.Len(t, forwarded, 3)
	for i, want := range []string{"req-1", "req-2", "req-3"} {
		assert.Equal(t, want, forwarded[i].payload.(domain.GameActionRequest).ID, "queue drains in enqueue order")
	}

	assert.Zero(t, sess.queue.Len())
	assert.Equal(t, domain.RequestAwaitingApproval, sess.pending["req-1"].state)
	assert.Equal(t, domain.ModeLive, sess.monitor.Mode())
}

func TestQueue_NewSubmissionAfterDrainForwardsBehindBacklog(t *testing.T) {
	sess, notifier, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusInProgress))
	ctx := context.Background()

	flipToQueuing(ctx, sess)
	sess.handleSubmit(ctx, moveRequest("req-1", "p1", 1, 1))
	sess.handleSubmit(ctx, moveRequest("req-2", "p2", 2, 2))
	notifier.calls = nil

	ping := sess.monitor.NextPing(sess.id, time.Now().UTC())
	sess.handlePong(ctx, PongMessage{PingID: ping.PingID})
	sess.handleSubmit(ctx, moveRequest("req-4", "p1", 4, 4))

	forwarded := notifier.filter("gm", EventActionRequest)
	require.Len(t, forwarded, 3)
	assert.Equal(t, "req-1", forwarded[0].payload.(domain.GameActionRequest).ID)
	assert.Equal(t, "req-2", forwarded[1].payload.(domain.GameActionRequest).ID)
	assert.Equal(t, "req-4", forwarded[2].payload.(domain.GameActionRequest).ID)
}

// conflictingStore forces version conflicts on the first n writes, then
// delegates to the wrapped store.
type conflictingStore struct {
	encounter.Store
	conflicts int
}

func (c *conflictingStore) Write(ctx context.Context, id string, expected int64, mutate encounter.Mutator) (*domain.EncounterState, int64, error) {
	if c.conflicts > 0 {
		c.conflicts--
		return nil, 0, &encounter.ConflictError{EncounterID: id, Expected: expected, Actual: expected + 1}
	}
	return c.Store.Write(ctx, id, expected, mutate)
}

func TestExecute_RetriesOnceOnVersionConflict(t *testing.T) {
	store := &conflictingStore{Store: encounter.NewMemoryStore(), conflicts: 1}
	sess, notifier, _ := newTestSession(t, store, seedState(domain.StatusInProgress))
	ctx := context.Background()

	sess.handleSubmit(ctx, attackRequest("req-1", "p1"))
	sess.handleGMResponse(ctx, domain.ActionRequestResponse{RequestID: "req-1", Approved: true})

	resp := notifier.lastResponse(t)
	assert.True(t, resp.Approved, "single conflict is retried and succeeds")
	assert.Len(t, notifier.filter("broadcast", EventActionApplied), 1)
}

func TestExecute_PersistentConflictRejectsWithStateConflict(t *testing.T) {
	store := &conflictingStore{Store: encounter.NewMemoryStore(), conflicts: 10}
	sess, notifier, _ := newTestSession(t, store, seedState(domain.StatusInProgress))
	ctx := context.Background()

	sess.handleSubmit(ctx, attackRequest("req-1", "p1"))
	sess.handleGMResponse(ctx, domain.ActionRequestResponse{RequestID: "req-1", Approved: true})

	resp := notifier.lastResponse(t)
	assert.False(t, resp.Approved)
	assert.Equal(t, domain.CodeStateConflict, resp.Error.Code)
	assert.Empty(t, notifier.filter("broadcast", EventActionApplied))
}

func TestRun_ActorProcessesMailbox(t *testing.T) {
	sess, _, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusInProgress))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sess.Run(ctx)
	defer sess.Stop()

	require.NoError(t, sess.Submit(moveRequest("req-1", "p1", 2, 3)))

	stCtx, stCancel := context.WithTimeout(ctx, 2*time.Second)
	defer stCancel()
	stats, err := sess.Stats(stCtx)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", stats.SessionID)
	assert.Equal(t, domain.ModeLive, stats.Mode)
	assert.Equal(t, 1, stats.PendingRequests, "free move awaits gm approval")
}

func TestStop_SubmitAfterStopFails(t *testing.T) {
	sess, _, _ := newTestSession(t, encounter.NewMemoryStore(), seedState(domain.StatusInProgress))
	sess.Stop()
	assert.ErrorIs(t, sess.Submit(moveRequest("req-1", "p1", 0, 0)), ErrSessionClosed)
}
