package infrastructure

import (
	"context"

	"github.com/nats-io/nats.go"
)

// MessagePublisher publishes raw payloads to a JetStream subject
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) (*nats.PubAck, error)
}
