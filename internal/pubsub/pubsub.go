// Package pubsub carries accepted chat messages out of the hub to in-process
// consumers such as the transcript logger.
package pubsub

import "context"

// Message is one item on the feed.
type Message struct {
	Topic    string
	Payload  []byte
	Metadata map[string]string
}

// Publisher delivers messages to a topic.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Handler processes one delivered message.
type Handler func(ctx context.Context, msg Message) error

// Subscriber registers a Handler for a topic.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler Handler) error
}
