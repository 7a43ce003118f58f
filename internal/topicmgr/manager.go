package topicmgr

import (
	"fmt"
	"sync"
)

// Manager is the central topic registry plus its validator. Modules
// register their topics at definition time; the CLI and the websocket
// layer consult the registry at runtime.
type Manager struct {
	registry  *Registry
	validator *Validator
	mu        sync.RWMutex
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		registry:  NewRegistry(),
		validator: NewValidator(),
	}
}

// DefineFramework declares a core plumbing topic. Framework topics carry
// no module.
func DefineFramework(config TopicConfig) Topic {
	config.Scope = ScopeFramework
	config.Module = ""
	return defineTopic(config)
}

// DefineModule declares a module-owned topic.
func DefineModule(config TopicConfig) Topic {
	config.Scope = ScopeModule
	return defineTopic(config)
}

func defineTopic(config TopicConfig) Topic {
	pattern := config.Pattern
	if pattern == "" {
		pattern = config.Name
	}
	return &TypedTopic{
		name:        config.Name,
		module:      config.Module,
		description: config.Description,
		pattern:     pattern,
		metadata:    config.Metadata,
		scope:       config.Scope,
	}
}

// Register validates and adds a topic.
func (m *Manager) Register(topic Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validator.ValidateDefinition(topic); err != nil {
		return &TopicError{
			Type:    ErrorValidationFailed,
			Topic:   topic.Name(),
			Module:  topic.Module(),
			Message: "topic validation failed",
			Cause:   err,
		}
	}
	return m.registry.Register(topic)
}

// MustRegister panics on a registration error. Topics are declared at
// package init time, where a failure is a configuration bug that should
// stop startup.
func (m *Manager) MustRegister(topic Topic) {
	if err := m.Register(topic); err != nil {
		panic(fmt.Sprintf("failed to register topic %s: %v", topic.Name(), err))
	}
}

// Get retrieves a topic by name.
func (m *Manager) Get(name string) (Topic, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry.Get(name)
}

// List returns all registered topics.
func (m *Manager) List() []Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry.List()
}

// ListByModule returns topics owned by one module.
func (m *Manager) ListByModule(module string) []Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry.ListByModule(module)
}

// ListByScope returns topics with the given scope.
func (m *Manager) ListByScope(scope TopicScope) []Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry.ListByScope(scope)
}

// ListModules returns the unique module names with registered topics.
func (m *Manager) ListModules() []string {
	seen := make(map[string]bool)
	var modules []string
	for _, topic := range m.List() {
		if topic.Scope() == ScopeModule && topic.Module() != "" && !seen[topic.Module()] {
			seen[topic.Module()] = true
			modules = append(modules, topic.Module())
		}
	}
	return modules
}

// Count returns the number of registered topics.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry.Count()
}

// Reset removes all topics, primarily for tests.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry.Reset()
}

var (
	defaultManager     *Manager
	defaultManagerOnce sync.Once
)

// Default returns the process-wide manager used by package-level topic
// declarations.
func Default() *Manager {
	defaultManagerOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}

// Register registers a topic with the default manager.
func Register(topic Topic) error { return Default().Register(topic) }

// MustRegister registers with the default manager, panicking on error.
func MustRegister(topic Topic) { Default().MustRegister(topic) }

// Get retrieves a topic from the default manager.
func Get(name string) (Topic, bool) { return Default().Get(name) }

// List returns all topics from the default manager.
func List() []Topic { return Default().List() }

// ListByModule lists a module's topics from the default manager.
func ListByModule(module string) []Topic { return Default().ListByModule(module) }

// ListModules lists module names from the default manager.
func ListModules() []string { return Default().ListModules() }
