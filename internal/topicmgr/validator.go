package topicmgr

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator checks topic definitions against the naming convention before
// they reach the registry.
type Validator struct {
	namePattern *regexp.Regexp
}

// NewValidator creates a validator. Topic names are hierarchical dotted
// identifiers: module.subject.action.
func NewValidator() *Validator {
	return &Validator{
		namePattern: regexp.MustCompile(`^[a-z][a-z0-9]*([._-][a-z0-9]+)*(\.[a-z][a-z0-9]*([._-][a-z0-9]+)*)*$`),
	}
}

// ValidateDefinition validates a topic definition.
func (v *Validator) ValidateDefinition(topic Topic) error {
	if topic == nil {
		return fmt.Errorf("topic cannot be nil")
	}
	if err := v.ValidateName(topic.Name()); err != nil {
		return fmt.Errorf("invalid topic name: %w", err)
	}
	if strings.TrimSpace(topic.Description()) == "" {
		return fmt.Errorf("topic description cannot be empty")
	}

	switch topic.Scope() {
	case ScopeFramework:
		if topic.Module() != "" {
			return fmt.Errorf("framework topics must not name a module")
		}
	case ScopeModule:
		if strings.TrimSpace(topic.Module()) == "" {
			return fmt.Errorf("module topics must name their module")
		}
	default:
		return fmt.Errorf("invalid topic scope: %s", topic.Scope())
	}
	return nil
}

// ValidateName checks a topic name against the naming convention.
func (v *Validator) ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("name too long (max 100 characters)")
	}
	if !v.namePattern.MatchString(name) {
		return fmt.Errorf("name must be dotted lowercase identifiers, e.g. game.action.request")
	}
	for _, prefix := range []string{"system.", "internal.", "debug."} {
		if strings.HasPrefix(name, prefix) {
			return fmt.Errorf("name cannot start with reserved prefix: %s", prefix)
		}
	}
	return nil
}
