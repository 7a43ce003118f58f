package registry

import "github.com/questdeck/questdeck/internal/pubsub"

// Framework-level service keys. Module-owned services declare their keys
// next to the module that registers them.
var (
	// PublisherKey resolves the process-wide message bus publisher.
	PublisherKey = Key[pubsub.Publisher]("core.pubsub.publisher")

	// SubscriberKey resolves the process-wide message bus subscriber.
	SubscriberKey = Key[pubsub.Subscriber]("core.pubsub.subscriber")
)
