// Package registry is a type-safe service locator shared between modules.
// Modules publish services during Register and resolve their collaborators
// during Boot.
package registry

import (
	"fmt"
	"sync"

	"github.com/questdeck/questdeck/internal/config"
)

// Key is a typed key for registering and retrieving services. The string
// value should be unique per service, e.g. "game.sessions".
type Key[T any] string

// Registry holds shared services plus the application configuration.
type Registry struct {
	services sync.Map
	cfg      config.Provider
}

// New creates a registry carrying the configuration provider.
func New(cfg config.Provider) *Registry {
	return &Registry{cfg: cfg}
}

// Config returns the configuration provider.
func (r *Registry) Config() config.Provider {
	return r.cfg
}

// Set registers a service instance under a typed key.
func Set[T any](r *Registry, key Key[T], value T) {
	r.services.Store(string(key), value)
}

// Get retrieves a service by its typed key.
func Get[T any](r *Registry, key Key[T]) (T, bool) {
	val, ok := r.services.Load(string(key))
	if !ok {
		var zero T
		return zero, false
	}
	result, ok := val.(T)
	if !ok {
		var zero T
		return zero, false
	}
	return result, true
}

// MustGet retrieves a service or panics. Used for essential wiring at
// startup where a missing service is a programming error.
func MustGet[T any](r *Registry, key Key[T]) T {
	val, ok := Get(r, key)
	if !ok {
		panic(fmt.Sprintf("service not found for key: %v", key))
	}
	return val
}
