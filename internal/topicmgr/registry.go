package topicmgr

import (
	"fmt"
	"sync"
	"time"
)

// Registry holds the registered topics. Duplicate names are rejected so a
// module cannot silently shadow another's channel.
type Registry struct {
	entries map[string]*RegistryEntry
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*RegistryEntry)}
}

// Register adds a topic.
func (r *Registry) Register(topic Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if topic == nil {
		return &TopicError{Type: ErrorValidationFailed, Message: "cannot register nil topic"}
	}
	name := topic.Name()
	if name == "" {
		return &TopicError{Type: ErrorValidationFailed, Message: "topic name cannot be empty"}
	}
	if _, exists := r.entries[name]; exists {
		return &TopicError{
			Type:    ErrorDuplicateRegistration,
			Topic:   name,
			Module:  topic.Module(),
			Message: fmt.Sprintf("topic already registered: %s", name),
		}
	}

	r.entries[name] = &RegistryEntry{
		Topic:        topic,
		RegisteredAt: time.Now(),
		Module:       topic.Module(),
	}
	return nil
}

// Get retrieves a topic by name.
func (r *Registry) Get(name string) (Topic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, exists := r.entries[name]
	if !exists {
		return nil, false
	}
	return entry.Topic, true
}

// List returns all registered topics.
func (r *Registry) List() []Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	topics := make([]Topic, 0, len(r.entries))
	for _, entry := range r.entries {
		topics = append(topics, entry.Topic)
	}
	return topics
}

// ListByModule returns topics owned by one module.
func (r *Registry) ListByModule(module string) []Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var topics []Topic
	for _, entry := range r.entries {
		if entry.Topic.Module() == module {
			topics = append(topics, entry.Topic)
		}
	}
	return topics
}

// ListByScope returns topics with the given scope.
func (r *Registry) ListByScope(scope TopicScope) []Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var topics []Topic
	for _, entry := range r.entries {
		if entry.Topic.Scope() == scope {
			topics = append(topics, entry.Topic)
		}
	}
	return topics
}

// Count returns the number of registered topics.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Reset removes all topics.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*RegistryEntry)
}
