package queues

import "context"

type Producer interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
	Close() error
}

// Consumer delivers inbound messages one at a time. A message is committed
// to the transport only after consumeFunc returns nil; a non-nil error stops
// the listener without committing, so the message is redelivered on restart.
type Consumer interface {
	Listen(ctx context.Context, consumeFunc func(m InboundMessage) error) error
	Close() error
}
