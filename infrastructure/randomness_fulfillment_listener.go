package infrastructure

import (
	"context"
	"encoding/json"

	"raffler/application"
	"raffler/application/dto"
	"raffler/domain/entities"
	"raffler/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// RandomnessFulfilledMessage is delivered by the oracle. Random words are
// base-10 strings because they may exceed 64 bits.
type RandomnessFulfilledMessage struct {
	RequestID   uint64   `json:"request_id"`
	RandomWords []string `json:"random_words"`
}

// RandomnessFulfillmentListener converts oracle fulfillment messages into application DTOs
type RandomnessFulfillmentListener struct {
	handler application.FulfillmentHandler
	metrics *observability.MetricsProvider
}

// NewRandomnessFulfillmentListener creates a new fulfillment listener. metrics may be nil.
func NewRandomnessFulfillmentListener(handler application.FulfillmentHandler, metrics *observability.MetricsProvider) *RandomnessFulfillmentListener {
	return &RandomnessFulfillmentListener{
		handler: handler,
		metrics: metrics,
	}
}

// HandleRandomnessFulfilled processes one fulfillment message. Malformed messages
// are acknowledged since redelivery cannot fix them.
func (l *RandomnessFulfillmentListener) HandleRandomnessFulfilled(ctx context.Context, data []byte) error {
	l.metrics.RecordNATSMessageReceived(SubjectRandomnessFulfilled)

	var msg RandomnessFulfilledMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		l.metrics.RecordOracleAnomaly(observability.AnomalyMalformedMessage)
		log.WithError(err).Warn("Dropping malformed randomness fulfillment")
		return nil
	}

	words := make([]entities.RandomValue, 0, len(msg.RandomWords))
	for _, raw := range msg.RandomWords {
		word, err := entities.ParseRandomValue(raw)
		if err != nil {
			l.metrics.RecordOracleAnomaly(observability.AnomalyMalformedMessage)
			log.WithFields(log.Fields{
				"request_id": msg.RequestID,
				"word":       raw,
			}).WithError(err).Warn("Dropping randomness fulfillment with invalid word")
			return nil
		}
		words = append(words, word)
	}

	log.WithFields(log.Fields{
		"request_id": msg.RequestID,
		"word_count": len(words),
	}).Debug("Processing randomness fulfillment")

	return l.handler.HandleFulfillment(ctx, dto.FulfillmentDTO{
		RequestID:   msg.RequestID,
		RandomWords: words,
		Source:      "nats",
	})
}

// Subscribe registers the listener on the fulfillment subject
func (l *RandomnessFulfillmentListener) Subscribe(client *NATSClient) error {
	return client.Subscribe(SubjectRandomnessFulfilled, l.HandleRandomnessFulfilled)
}
