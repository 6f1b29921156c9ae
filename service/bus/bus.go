package bus

import "context"

// Message is one inbound bus event, driver-agnostic.
type Message struct {
	Channel string
	Data    []byte
}

// Handler consumes one message. A non-nil error means the message was
// not processed; drivers log it and move on, they never stop consuming.
type Handler func(ctx context.Context, m Message) error

// Subscriber is the hub's one-way view of the message bus: this core
// only subscribes, it never publishes.
type Subscriber interface {
	Subscribe(channel string, h Handler) error
	Close() error
}
