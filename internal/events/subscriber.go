package events

import "context"

// Message is one event as received from the bus.
type Message struct {
	Topic string
	Data  []byte
}

// Subscriber receives events from the bus.
type Subscriber interface {
	// Subscribe delivers the events matching a NATS subject pattern until
	// ctx is done, then closes the channel.
	Subscribe(ctx context.Context, pattern string) (<-chan Message, error)
	Close() error
}
