// Package session hosts the per-table coordination actor: one goroutine per
// live session owning the action pipeline, the GM heartbeat monitor, the
// action queue and the turn manager. All mutable session state is confined
// to that goroutine; callers interact through posted commands.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/questdeck/questdeck/internal/domain"
	"github.com/questdeck/questdeck/internal/encounter"
	"github.com/questdeck/questdeck/internal/gamesystem"
	"github.com/questdeck/questdeck/internal/turn"
)

// ErrSessionClosed is returned when interacting with a stopped session.
var ErrSessionClosed = errors.New("session is closed")

// Config assembles a session's collaborators.
type Config struct {
	SessionID   string
	EncounterID string
	GMUserID    string

	Store    encounter.Store
	System   gamesystem.GameSystem
	Notifier Notifier
	Logger   *slog.Logger

	HeartbeatInterval   time.Duration
	PingTimeout         time.Duration
	MissedPingThreshold int

	// TurnOptions is passed through to the turn manager, used by tests to
	// inject a deterministic random source.
	TurnOptions []turn.Option
}

type command func(ctx context.Context)

// Session is the actor coordinating one table. Handlers run only on the
// Run goroutine; the exported methods post commands into the mailbox.
type Session struct {
	id          string
	encounterID string
	gmUserID    string

	store    encounter.Store
	system   gamesystem.GameSystem
	notifier Notifier
	logger   *slog.Logger

	turns   *turn.Manager
	monitor *heartbeatMonitor
	queue   *actionQueue
	pending map[string]*pendingRequest

	mailbox  chan command
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a session actor. Call Run to start its event loop.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:          cfg.SessionID,
		encounterID: cfg.EncounterID,
		gmUserID:    cfg.GMUserID,
		store:       cfg.Store,
		system:      cfg.System,
		notifier:    cfg.Notifier,
		logger:      logger.With("session_id", cfg.SessionID, "encounter_id", cfg.EncounterID),
		turns:       turn.NewManager(cfg.System, cfg.TurnOptions...),
		monitor:     newHeartbeatMonitor(cfg.HeartbeatInterval, cfg.PingTimeout, cfg.MissedPingThreshold),
		queue:       newActionQueue(),
		pending:     make(map[string]*pendingRequest),
		mailbox:     make(chan command, 64),
		stop:        make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// EncounterID returns the encounter this session coordinates.
func (s *Session) EncounterID() string { return s.encounterID }

// GMUserID returns the user acting as this session's GM.
func (s *Session) GMUserID() string { return s.gmUserID }

// Run drives the actor until the context is cancelled or Stop is called.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.monitor.interval)
	defer ticker.Stop()

	s.logger.Info("session started", "gm_user_id", s.gmUserID)
	s.resumeTurnOrder(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session stopping", "reason", "context cancelled")
			return
		case <-s.stop:
			s.logger.Info("session stopping", "reason", "stop requested")
			return
		case cmd := <-s.mailbox:
			cmd(ctx)
		case <-ticker.C:
			s.handleTick(ctx)
		}
	}
}

// Stop shuts the actor down. Safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// post hands a command to the actor goroutine, dropping it if the session
// has stopped.
func (s *Session) post(cmd command) error {
	select {
	case s.mailbox <- cmd:
		return nil
	case <-s.stop:
		return ErrSessionClosed
	}
}

// Submit enqueues a player's action request for processing.
func (s *Session) Submit(req domain.GameActionRequest) error {
	return s.post(func(ctx context.Context) { s.handleSubmit(ctx, req) })
}

// GMRespond delivers the GM's decision for a forwarded request.
func (s *Session) GMRespond(resp domain.ActionRequestResponse) error {
	return s.post(func(ctx context.Context) { s.handleGMResponse(ctx, resp) })
}

// Pong delivers a heartbeat reply from the GM client.
func (s *Session) Pong(pong PongMessage) error {
	return s.post(func(ctx context.Context) { s.handlePong(ctx, pong) })
}

// Stats is a point-in-time snapshot of session health.
type Stats struct {
	SessionID       string             `json:"sessionId"`
	EncounterID     string             `json:"encounterId"`
	Mode            domain.SessionMode `json:"mode"`
	QueuedActions   int                `json:"queuedActions"`
	PendingRequests int                `json:"pendingRequests"`
	LastHeartbeat   time.Time          `json:"lastHeartbeat"`
	MissedPings     int                `json:"missedPings"`
}

// Stats asks the actor for its current health snapshot.
func (s *Session) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	err := s.post(func(context.Context) { reply <- s.stats() })
	if err != nil {
		return Stats{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case <-s.stop:
		return Stats{}, ErrSessionClosed
	}
}

func (s *Session) stats() Stats {
	return Stats{
		SessionID:       s.id,
		EncounterID:     s.encounterID,
		Mode:            s.monitor.Mode(),
		QueuedActions:   s.queue.Len(),
		PendingRequests: len(s.pending),
		LastHeartbeat:   s.monitor.LastPong(),
		MissedPings:     s.monitor.Misses(),
	}
}

// resumeTurnOrder attaches the turn manager to a turn order that is already
// active in the persisted state, as after a restart or when a second session
// opens on the same encounter. Without it every end-turn and stop-encounter
// would bounce off an inactive manager.
func (s *Session) resumeTurnOrder(ctx context.Context) {
	state, _, err := s.store.Read(ctx, s.encounterID)
	if err != nil {
		s.logger.Warn("turn order resume skipped, encounter read failed", "error", err)
		return
	}
	if !state.Initiative.IsActive {
		return
	}
	s.turns.Resume(state, buildParticipants(state))
	s.logger.Info("resumed active turn order",
		"round", state.Initiative.CurrentRound, "turn", state.Initiative.CurrentTurn)
}

// handleTick sends the next heartbeat ping to the GM connection and arms
// its timeout. The timeout fires back through the mailbox so the miss is
// recorded on the actor goroutine.
func (s *Session) handleTick(ctx context.Context) {
	ping := s.monitor.NextPing(s.id, time.Now().UTC())
	if err := s.notifier.ToGM(ctx, s.id, EventHeartbeatPing, ping); err != nil {
		s.logger.Warn("heartbeat ping delivery failed", "ping_id", ping.PingID, "error", err)
	}
	time.AfterFunc(s.monitor.timeout, func() {
		_ = s.post(func(ctx context.Context) { s.handlePingTimeout(ctx, ping.PingID) })
	})
}

func (s *Session) handlePingTimeout(ctx context.Context, pingID int64) {
	if !s.monitor.RecordTimeout(pingID) {
		return
	}
	s.logger.Warn("gm connection declared late, queuing actions",
		"missed_pings", s.monitor.Misses(),
		"last_pong", s.monitor.LastPong())
	ev := GMTimeoutEvent{
		SessionID:     s.id,
		LastHeartbeat: s.monitor.LastPong(),
		QueuedActions: s.queue.Len(),
	}
	if err := s.notifier.Broadcast(ctx, s.id, EventGMTimeout, ev); err != nil {
		s.logger.Error("gm timeout broadcast failed", "error", err)
	}
}

func (s *Session) handlePong(ctx context.Context, pong PongMessage) {
	reconnected := s.monitor.RecordPong(pong.PingID, time.Now().UTC())
	if !reconnected {
		return
	}

	queued := s.queue.Len()
	s.logger.Info("gm reconnected, draining queue", "queued_actions", queued)
	ev := GMReconnectedEvent{
		SessionID:     s.id,
		QueuedActions: queued,
		RoundTrip:     s.monitor.RTT(),
	}
	if err := s.notifier.Broadcast(ctx, s.id, EventGMReconnected, ev); err != nil {
		s.logger.Error("gm reconnected broadcast failed", "error", err)
	}
	s.drainQueue(ctx)
}

// drainQueue forwards every buffered request to the GM in enqueue order.
// It runs to completion inside one actor command, so requests submitted
// after the reconnect cannot interleave with the backlog.
func (s *Session) drainQueue(ctx context.Context) {
	for _, qa := range s.queue.DrainAll() {
		p, ok := s.pending[qa.Request.ID]
		if !ok {
			continue
		}
		p.state = domain.RequestAwaitingApproval
		if err := s.notifier.ToGM(ctx, s.id, EventActionRequest, qa.Request); err != nil {
			s.logger.Error("queued request forward failed",
				"request_id", qa.Request.ID, "error", err)
		}
	}
}
