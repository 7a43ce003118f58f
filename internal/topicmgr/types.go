package topicmgr

import "time"

// Topic is a registered message channel identifier. Components publish and
// subscribe by Topic rather than raw strings so the registry can document
// and validate the full routing surface.
type Topic interface {
	// Name is the unique string identifier, e.g. "game.action.request".
	Name() string

	// Module names the owning module, empty for framework topics.
	Module() string

	// Description is human-readable documentation for the CLI.
	Description() string

	// Pattern is the routing pattern; session-scoped topics carry a
	// "{sessionId}" placeholder resolved at publish time.
	Pattern() string

	// Metadata returns additional topic information.
	Metadata() map[string]any

	// Scope reports whether this is a framework or module topic.
	Scope() TopicScope
}

// TopicScope separates core plumbing topics from module-owned ones.
type TopicScope string

const (
	ScopeFramework TopicScope = "framework"
	ScopeModule    TopicScope = "module"
)

// TopicConfig is the declaration used by Define* helpers.
type TopicConfig struct {
	Name        string         `json:"name"`
	Module      string         `json:"module"`
	Scope       TopicScope     `json:"scope"`
	Description string         `json:"description"`
	Pattern     string         `json:"pattern"`
	Metadata    map[string]any `json:"metadata"`
}

// TypedTopic is the concrete Topic produced by the Define helpers.
type TypedTopic struct {
	name        string
	module      string
	description string
	pattern     string
	metadata    map[string]any
	scope       TopicScope
}

var _ Topic = (*TypedTopic)(nil)

func (t *TypedTopic) Name() string        { return t.name }
func (t *TypedTopic) Module() string      { return t.module }
func (t *TypedTopic) Description() string { return t.description }
func (t *TypedTopic) Pattern() string     { return t.pattern }
func (t *TypedTopic) Scope() TopicScope   { return t.scope }
func (t *TypedTopic) String() string      { return t.name }

func (t *TypedTopic) Metadata() map[string]any {
	out := make(map[string]any, len(t.metadata))
	for k, v := range t.metadata {
		out[k] = v
	}
	return out
}

// RegistryEntry records a topic with its registration time.
type RegistryEntry struct {
	Topic        Topic     `json:"topic"`
	RegisteredAt time.Time `json:"registered_at"`
	Module       string    `json:"module"`
}

// ErrorType classifies topic management errors.
type ErrorType string

const (
	ErrorTopicNotFound         ErrorType = "topic_not_found"
	ErrorDuplicateRegistration ErrorType = "duplicate_registration"
	ErrorValidationFailed      ErrorType = "validation_failed"
	ErrorInvalidScope          ErrorType = "invalid_scope"
)

// TopicError is a structured topic management error.
type TopicError struct {
	Type    ErrorType `json:"type"`
	Topic   string    `json:"topic"`
	Module  string    `json:"module"`
	Message string    `json:"message"`
	Cause   error     `json:"cause,omitempty"`
}

func (e *TopicError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *TopicError) Unwrap() error { return e.Cause }
