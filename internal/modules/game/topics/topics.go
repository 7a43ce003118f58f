// Package topics declares the game module's bus topics: the client-sourced
// channels the websocket bridge republishes on, consumed by the game
// subscriber and routed into session actors.
package topics

import (
	"strings"

	"github.com/questdeck/questdeck/internal/topicmgr"
)

var (
	// TopicActionSubmit carries a player's action proposal from a client
	// connection into the session pipeline.
	TopicActionSubmit = topicmgr.DefineModule(topicmgr.TopicConfig{
		Name:        "client.game.action.submit",
		Module:      "game",
		Description: "A player's proposed action submitted from a client connection",
		Metadata: map[string]any{
			"source":         "client",
			"payload_fields": []string{"id", "action", "parameters"},
		},
	})

	// TopicGMResponse carries the GM's approve/reject decision.
	TopicGMResponse = topicmgr.DefineModule(topicmgr.TopicConfig{
		Name:        "client.game.gm.response",
		Module:      "game",
		Description: "The GM's decision on a forwarded action request",
		Metadata: map[string]any{
			"source":         "client",
			"requires_role":  "gm",
			"payload_fields": []string{"requestId", "approved", "error"},
		},
	})

	// TopicHeartbeatPong carries the GM client's heartbeat replies.
	TopicHeartbeatPong = topicmgr.DefineModule(topicmgr.TopicConfig{
		Name:        "client.game.heartbeat.pong",
		Module:      "game",
		Description: "The GM client's reply to a heartbeat ping",
		Metadata: map[string]any{
			"source":         "client",
			"requires_role":  "gm",
			"payload_fields": []string{"sessionId", "pingId", "timestamp"},
		},
	})
)

// RegisterTopics registers the game module topics, tolerating duplicates
// so tests can call it repeatedly.
func RegisterTopics() error {
	manager := topicmgr.Default()
	for _, topic := range []topicmgr.Topic{TopicActionSubmit, TopicGMResponse, TopicHeartbeatPong} {
		if err := manager.Register(topic); err != nil {
			if strings.Contains(err.Error(), "already registered") {
				continue
			}
			return err
		}
	}
	return nil
}

// MustRegisterTopics panics on registration failure.
func MustRegisterTopics() {
	if err := RegisterTopics(); err != nil {
		panic("failed to register game module topics: " + err.Error())
	}
}
