package pubsub

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/questdeck/questdeck/internal/topicmgr"
)

// Event couples a topic name to a payload type so publishing is checked at
// compile time. Declaring an Event also registers its topic with the
// default topic manager.
type Event[T any] struct {
	topicName string
	config    topicmgr.TopicConfig
}

// NewEvent declares a typed module event. The payload's json tags are
// reflected into the topic metadata for CLI documentation. Events are
// declared at package level, so registration failures panic at startup.
func NewEvent[T any](name string, description string) Event[T] {
	var zero T
	t := reflect.TypeOf(zero)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var fields []string
	typeName := ""
	if t != nil {
		typeName = t.Name()
		if t.Kind() == reflect.Struct {
			for i := 0; i < t.NumField(); i++ {
				tag := t.Field(i).Tag.Get("json")
				if tag == "" || tag == "-" {
					continue
				}
				if idx := strings.IndexByte(tag, ','); idx >= 0 {
					tag = tag[:idx]
				}
				fields = append(fields, tag)
			}
		}
	}

	// The leading segment of the topic name is the owning module,
	// e.g. "game.action.request" belongs to "game".
	module := name
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		module = name[:idx]
	}

	config := topicmgr.TopicConfig{
		Name:        name,
		Module:      module,
		Description: description,
		Pattern:     name,
		Metadata: map[string]any{
			"payload_fields": fields,
			"type_name":      typeName,
			"is_typed":       true,
		},
	}
	topicmgr.MustRegister(topicmgr.DefineModule(config))

	return Event[T]{topicName: name, config: config}
}

// Name returns the topic name.
func (e Event[T]) Name() string { return e.topicName }

// Publish sends a typed event. SessionID and userID scope delivery; either
// may be empty for process-wide events.
func Publish[T any](ctx context.Context, p Publisher, event Event[T], sessionID, userID string, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, Message{
		Topic:     event.Name(),
		SessionID: sessionID,
		UserID:    userID,
		Payload:   data,
	})
}
