package gamesystem

import (
	"fmt"
	"sync"
)

// Registry holds the game systems available to sessions. It is constructed
// explicitly at process start and injected where needed; there is no
// package-level default.
type Registry struct {
	mu      sync.RWMutex
	systems map[string]GameSystem
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{systems: make(map[string]GameSystem)}
}

// Register adds a system. Registering the same name twice is a startup
// configuration error.
func (r *Registry) Register(sys GameSystem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.systems[sys.Name()]; exists {
		return fmt.Errorf("game system already registered: %s", sys.Name())
	}
	r.systems[sys.Name()] = sys
	return nil
}

// MustRegister panics on a duplicate registration.
func (r *Registry) MustRegister(sys GameSystem) {
	if err := r.Register(sys); err != nil {
		panic(err)
	}
}

// Get resolves a system by name.
func (r *Registry) Get(name string) (GameSystem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sys, ok := r.systems[name]
	return sys, ok
}

// Names lists registered system names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.systems))
	for name := range r.systems {
		names = append(names, name)
	}
	return names
}
