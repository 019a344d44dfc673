package infrastructure

import (
	"raffler/domain/events"

	log "github.com/sirupsen/logrus"
)

// NoopEventPublisher drops events. Used when no NATS server is configured.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish logs the event type and drops it
func (n *NoopEventPublisher) Publish(event events.Event) error {
	log.WithField("eventType", event.Type()).Debug("Dropping event, no message bus configured")
	return nil
}
