package encounter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/questdeck/questdeck/internal/domain"
)

// MemoryStore is an in-process Store used in tests and single-node play.
// The mutex makes the compare-and-swap atomic; clones on the way in and out
// keep callers from mutating shared state outside Write.
type MemoryStore struct {
	mu         sync.Mutex
	encounters map[string]*domain.EncounterState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{encounters: make(map[string]*domain.EncounterState)}
}

// Create persists a new encounter at version 1, assigning an ID if absent.
func (s *MemoryStore) Create(ctx context.Context, state *domain.EncounterState) (*domain.EncounterState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := state.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.Version = 1
	stored.UpdatedAt = time.Now().UTC()
	s.encounters[stored.ID] = stored
	return stored.Clone(), nil
}

// Read returns a copy of the current state and its version.
func (s *MemoryStore) Read(ctx context.Context, encounterID string) (*domain.EncounterState, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.encounters[encounterID]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return stored.Clone(), stored.Version, nil
}

// Write applies the mutator under the version check. A stale expectedVersion
// never changes stored state.
func (s *MemoryStore) Write(ctx context.Context, encounterID string, expectedVersion int64, mutate Mutator) (*domain.EncounterState, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.encounters[encounterID]
	if !ok {
		return nil, 0, ErrNotFound
	}
	if stored.Version != expectedVersion {
		return nil, 0, &ConflictError{EncounterID: encounterID, Expected: expectedVersion, Actual: stored.Version}
	}

	working := stored.Clone()
	if err := mutate(working); err != nil {
		return nil, 0, err
	}

	working.Version = expectedVersion + 1
	working.UpdatedAt = time.Now().UTC()
	s.encounters[encounterID] = working
	return working.Clone(), working.Version, nil
}
