package messaging

import (
	"context"
)

// Broker fans messages out across API instances.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	// Subscribe delivers raw payloads until ctx is cancelled, then closes
	// the returned channel.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
