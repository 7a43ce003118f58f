package websocket

import (
	"strings"

	"github.com/questdeck/questdeck/internal/topicmgr"
)

// Framework topics the bridge routes on. Session modules publish outbound
// envelopes to these; the bridge delivers them to the right connections.
var (
	// TopicSessionBroadcast delivers a payload to every connection in the
	// session named by the message's SessionID.
	TopicSessionBroadcast = topicmgr.DefineFramework(topicmgr.TopicConfig{
		Name:        "ws.session.broadcast",
		Description: "Deliver a payload to every connection of one session",
		Metadata: map[string]any{
			"routing_type": "broadcast",
			"requires":     []string{"session_id"},
		},
	})

	// TopicSessionDirect delivers a payload to one user's connections in a
	// session. The message's UserID names the recipient.
	TopicSessionDirect = topicmgr.DefineFramework(topicmgr.TopicConfig{
		Name:        "ws.session.direct",
		Description: "Deliver a payload to a single user's connections in a session",
		Metadata: map[string]any{
			"routing_type": "direct",
			"requires":     []string{"session_id", "user_id"},
		},
	})

	// TopicSessionGM delivers a payload to the session's GM connections.
	TopicSessionGM = topicmgr.DefineFramework(topicmgr.TopicConfig{
		Name:        "ws.session.gm",
		Description: "Deliver a payload to the GM connections of a session",
		Metadata: map[string]any{
			"routing_type": "role",
			"requires":     []string{"session_id"},
		},
	})

	// TopicClientReady is published when a connection joins a session.
	TopicClientReady = topicmgr.DefineFramework(topicmgr.TopicConfig{
		Name:        "ws.client.ready",
		Description: "Published when a websocket connection joins a session",
		Metadata: map[string]any{
			"event_type":     "lifecycle",
			"payload_fields": []string{"sessionId", "userId", "role"},
		},
	})

	// TopicClientDisconnected is published when a connection leaves.
	TopicClientDisconnected = topicmgr.DefineFramework(topicmgr.TopicConfig{
		Name:        "ws.client.disconnected",
		Description: "Published when a websocket connection leaves a session",
		Metadata: map[string]any{
			"event_type":     "lifecycle",
			"payload_fields": []string{"sessionId", "userId", "role"},
		},
	})
)

// RegisterTopics registers the bridge's framework topics, tolerating
// re-registration so tests can call it freely.
func RegisterTopics() error {
	return RegisterTopicsWithManager(topicmgr.Default())
}

// RegisterTopicsWithManager registers against a specific manager.
func RegisterTopicsWithManager(manager *topicmgr.Manager) error {
	topics := []topicmgr.Topic{
		TopicSessionBroadcast,
		TopicSessionDirect,
		TopicSessionGM,
		TopicClientReady,
		TopicClientDisconnected,
	}
	for _, topic := range topics {
		if err := manager.Register(topic); err != nil {
			if strings.Contains(err.Error(), "already registered") {
				continue
			}
			return err
		}
	}
	return nil
}
