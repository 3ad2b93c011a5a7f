package interfaces

import (
	"context"

	domaintypes "pairlink/internal/domain/types"
)

// Delivery is one inbound blob for a subscribed topic.
type Delivery struct {
	Topic   domaintypes.Topic
	Payload []byte
}

// RelayGateway is the thin adapter over the external pub/sub
// transport. Implementations deliver inbound blobs in transport order
// per topic and report connectivity flips on a separate stream. The
// gateway performs no resubscription on reconnect; that recovery
// belongs to the engine.
type RelayGateway interface {
	Subscribe(ctx context.Context, topic domaintypes.Topic) error
	Unsubscribe(ctx context.Context, topic domaintypes.Topic) error
	BatchSubscribe(ctx context.Context, topics []domaintypes.Topic) error
	Publish(ctx context.Context, topic domaintypes.Topic, payload []byte) error

	// Deliveries is the single inbound stream. Closed when the gateway
	// closes.
	Deliveries() <-chan Delivery

	// Connectivity emits true when the transport becomes usable and
	// false when it is lost.
	Connectivity() <-chan bool

	Close() error
}
