package kafka

import (
	"context"
)

// Client is the backend boundary: everything the runtime needs from a
// message bus. Implementations must allow Poll and Commit to be called from
// different goroutines.
type Client interface {
	Producer
	Consumer

	Ping(ctx context.Context) error
}

type Producer interface {
	Send(ctx context.Context, topic string, key, value []byte, headers []Header) error
	Flush(ctx context.Context) error
	Close()
}

type Consumer interface {
	// Subscribe binds the client to a set of topic names, or to a regex
	// pattern when pattern is non-empty. Names and pattern are mutually
	// exclusive; validation happens above this boundary.
	Subscribe(topics []string, pattern string) error
	Poll(ctx context.Context) ([]Message, error)
	// Commit durably records offset as the highest safely-resumable position
	// for this client's subscription.
	Commit(ctx context.Context, offset int64) error
	Close()
}
