package encounter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/questdeck/questdeck/internal/database"
	"github.com/questdeck/questdeck/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

const encounterTable = "encounter"

// SurrealStore persists encounters in SurrealDB. The version check rides on
// a conditional UPDATE so the compare-and-swap happens inside the engine,
// making it safe across processes.
type SurrealStore struct {
	db *surrealdb.DB
}

// NewSurrealStore wraps an established connection.
func NewSurrealStore(db *surrealdb.DB) *SurrealStore {
	return &SurrealStore{db: db}
}

// Create persists a new encounter at version 1.
func (s *SurrealStore) Create(ctx context.Context, state *domain.EncounterState) (*domain.EncounterState, error) {
	stored := state.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.Version = 1
	stored.UpdatedAt = time.Now().UTC()

	created, err := database.QueryOne[domain.EncounterState](ctx, s.db,
		"CREATE type::thing($tb, $id) CONTENT $data RETURN AFTER",
		map[string]any{"tb": encounterTable, "id": stored.ID, "data": stored})
	if err != nil {
		return nil, err
	}
	if created == nil {
		return stored, nil
	}
	return created, nil
}

// Read returns the current state and its version.
func (s *SurrealStore) Read(ctx context.Context, encounterID string) (*domain.EncounterState, int64, error) {
	state, err := database.QueryOne[domain.EncounterState](ctx, s.db,
		"SELECT * FROM type::thing($tb, $id)",
		map[string]any{"tb": encounterTable, "id": encounterID})
	if err != nil {
		return nil, 0, err
	}
	if state == nil {
		return nil, 0, ErrNotFound
	}
	return state, state.Version, nil
}

// Write re-reads the row, applies the mutator to a working copy, and issues
// a conditional UPDATE guarded by the version field. An empty update result
// means another writer got there first.
func (s *SurrealStore) Write(ctx context.Context, encounterID string, expectedVersion int64, mutate Mutator) (*domain.EncounterState, int64, error) {
	current, version, err := s.Read(ctx, encounterID)
	if err != nil {
		return nil, 0, err
	}
	if version != expectedVersion {
		return nil, 0, &ConflictError{EncounterID: encounterID, Expected: expectedVersion, Actual: version}
	}

	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, 0, err
	}
	working.Version = expectedVersion + 1
	working.UpdatedAt = time.Now().UTC()

	updated, err := database.QueryOne[domain.EncounterState](ctx, s.db,
		"UPDATE type::thing($tb, $id) CONTENT $data WHERE version = $expected RETURN AFTER",
		map[string]any{
			"tb":       encounterTable,
			"id":       encounterID,
			"data":     working,
			"expected": expectedVersion,
		})
	if err != nil {
		return nil, 0, err
	}
	if updated == nil {
		// The guarded update matched no row: a concurrent writer advanced
		// the version between our read and the update.
		return nil, 0, &ConflictError{EncounterID: encounterID, Expected: expectedVersion, Actual: -1}
	}
	return updated, updated.Version, nil
}
