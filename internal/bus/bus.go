// Package bus defines the topic-based publish/subscribe contract used for
// domain events. Delivery is at-least-once; subscribers must tolerate
// duplicate messages.
package bus

import "context"

// HandlerFunc processes one published message. The payload is the
// JSON-serialized event envelope.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Bus is the message bus contract. Messages are JSON-serializable event
// envelopes carrying an explicit timestamp field.
type Bus interface {
	// Publish serializes message and delivers it to the topic's subscribers.
	Publish(ctx context.Context, topic string, message any) error

	// Subscribe registers handler for every message published to topic.
	// Multiple handlers per topic are allowed.
	Subscribe(topic string, handler HandlerFunc)
}
