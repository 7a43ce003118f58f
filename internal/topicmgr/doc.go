// Package topicmgr is the central registry of message topics. Every channel
// the pubsub bus or the websocket layer routes on is declared here once,
// with documentation, instead of being scattered as magic strings.
//
// Framework topics belong to core plumbing:
//
//	var GMHeartbeat = topicmgr.DefineFramework(topicmgr.TopicConfig{
//		Name:        "ws.gm.heartbeat",
//		Description: "Heartbeat pings routed to the session's GM connection",
//	})
//
// Module topics are declared by application modules and carry their owner:
//
//	var ActionRequest = topicmgr.DefineModule(topicmgr.TopicConfig{
//		Name:        "game.action.request",
//		Module:      "game",
//		Description: "A player's proposed action awaiting GM review",
//	})
//
// Declarations register through MustRegister at package init; a duplicate
// or malformed name stops startup. The CLI lists the registry so operators
// can see the full routing surface of a build.
package topicmgr
