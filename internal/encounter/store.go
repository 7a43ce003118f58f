// Package encounter provides the versioned store for encounter aggregates.
// All mutation goes through Write, which enforces optimistic concurrency:
// a write whose expected version no longer matches loses and must re-read.
package encounter

import (
	"context"
	"errors"
	"fmt"

	"github.com/questdeck/questdeck/internal/domain"
)

// ErrNotFound is returned when the encounter does not exist.
var ErrNotFound = errors.New("encounter not found")

// ErrVersionConflict is returned when a write raced a concurrent writer and
// lost. The caller must re-read and retry; persisted state is unchanged.
var ErrVersionConflict = errors.New("encounter version conflict")

// Mutator applies a change to a working copy of the state. Returning an
// error aborts the write without changing persisted state.
type Mutator func(state *domain.EncounterState) error

// Store is the single serialization point for encounter mutation.
type Store interface {
	// Create persists a new encounter at version 1.
	Create(ctx context.Context, state *domain.EncounterState) (*domain.EncounterState, error)

	// Read returns the current state and its version.
	Read(ctx context.Context, encounterID string) (*domain.EncounterState, int64, error)

	// Write applies the mutator to the state at expectedVersion and persists
	// the result at expectedVersion+1. It returns ErrVersionConflict when the
	// stored version has moved on.
	Write(ctx context.Context, encounterID string, expectedVersion int64, mutate Mutator) (*domain.EncounterState, int64, error)
}

// ConflictError decorates ErrVersionConflict with the versions involved for
// logging; errors.Is(err, ErrVersionConflict) still matches.
type ConflictError struct {
	EncounterID string
	Expected    int64
	Actual      int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("encounter %s version conflict: expected %d, have %d", e.EncounterID, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error { return ErrVersionConflict }
