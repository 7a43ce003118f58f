package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/questdeck/questdeck/internal/domain"
	"github.com/questdeck/questdeck/internal/encounter"
	"github.com/questdeck/questdeck/internal/gamesystem"
)

// ErrSessionNotFound is returned for lookups of unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// Manager owns the live session actors. Creation spawns the actor's Run
// goroutine; shutdown stops them all and waits.
type Manager struct {
	store    encounter.Store
	systems  *gamesystem.Registry
	notifier Notifier
	logger   *slog.Logger

	heartbeatInterval   time.Duration
	pingTimeout         time.Duration
	missedPingThreshold int

	mu       sync.RWMutex
	sessions map[string]*Session
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// ManagerConfig assembles the manager's collaborators and heartbeat tuning.
type ManagerConfig struct {
	Store    encounter.Store
	Systems  *gamesystem.Registry
	Notifier Notifier
	Logger   *slog.Logger

	HeartbeatInterval   time.Duration
	PingTimeout         time.Duration
	MissedPingThreshold int
}

// NewManager creates the session registry.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:               cfg.Store,
		systems:             cfg.Systems,
		notifier:            cfg.Notifier,
		logger:              logger,
		heartbeatInterval:   cfg.HeartbeatInterval,
		pingTimeout:         cfg.PingTimeout,
		missedPingThreshold: cfg.MissedPingThreshold,
		sessions:            make(map[string]*Session),
		ctx:                 ctx,
		cancel:              cancel,
	}
}

// Create starts a session actor for an encounter under the named game
// system and returns it running.
func (m *Manager) Create(ctx context.Context, encounterID, gmUserID, systemName string) (*Session, error) {
	system, ok := m.systems.Get(systemName)
	if !ok {
		return nil, fmt.Errorf("unknown game system: %s", systemName)
	}
	if _, _, err := m.store.Read(ctx, encounterID); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	sess := New(Config{
		SessionID:           uuid.New().String(),
		EncounterID:         encounterID,
		GMUserID:            gmUserID,
		Store:               m.store,
		System:              system,
		Notifier:            m.notifier,
		Logger:              m.logger,
		HeartbeatInterval:   m.heartbeatInterval,
		PingTimeout:         m.pingTimeout,
		MissedPingThreshold: m.missedPingThreshold,
	})

	m.mu.Lock()
	m.sessions[sess.ID()] = sess
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		sess.Run(m.ctx)
		m.mu.Lock()
		delete(m.sessions, sess.ID())
		m.mu.Unlock()
	}()

	m.logger.Info("session created",
		"session_id", sess.ID(), "encounter_id", encounterID, "system", systemName)
	return sess, nil
}

// Get returns a live session by id.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close stops a single session and removes it from the registry.
func (m *Manager) Close(sessionID string) error {
	sess, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	sess.Stop()
	return nil
}

// List snapshots the live session ids.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown stops every session and waits for their goroutines, bounded by
// the context.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit routes a request to its session.
func (m *Manager) Submit(sessionID string, req domain.GameActionRequest) error {
	sess, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	return sess.Submit(req)
}

// GMRespond routes a GM decision to its session.
func (m *Manager) GMRespond(sessionID string, resp domain.ActionRequestResponse) error {
	sess, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	return sess.GMRespond(resp)
}

// Pong routes a heartbeat reply to its session.
func (m *Manager) Pong(sessionID string, pong PongMessage) error {
	sess, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	return sess.Pong(pong)
}
