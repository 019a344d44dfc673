package infrastructure

import (
	"context"
	"errors"
	"sync"
	"time"

	"raffler/application/dto"
	"raffler/domain/events"

	"github.com/nats-io/nats.go"
)

type publishedMessage struct {
	Subject string
	Data    []byte
}

// recordingMessagePublisher acknowledges every message with an increasing sequence
type recordingMessagePublisher struct {
	mu       sync.Mutex
	sequence uint64
	Messages []publishedMessage
	Err      error
}

func (p *recordingMessagePublisher) Publish(ctx context.Context, subject string, data []byte) (*nats.PubAck, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	p.sequence++
	p.Messages = append(p.Messages, publishedMessage{Subject: subject, Data: data})
	return &nats.PubAck{Stream: "test", Sequence: p.sequence}, nil
}

type recordingEventPublisher struct {
	mu     sync.Mutex
	Events []events.Event
	FailOn events.EventType
}

func (p *recordingEventPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.Type() == p.FailOn {
		return errors.New("publish failed")
	}
	p.Events = append(p.Events, event)
	return nil
}

// recordingFulfillmentHandler records fulfillments. It fails the first FailFirst
// deliveries and then returns Err.
type recordingFulfillmentHandler struct {
	mu           sync.Mutex
	Fulfillments []dto.FulfillmentDTO
	ReceivedAt   []time.Time
	Err          error
	FailFirst    int
}

func (h *recordingFulfillmentHandler) HandleFulfillment(ctx context.Context, fulfillment dto.FulfillmentDTO) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Fulfillments = append(h.Fulfillments, fulfillment)
	h.ReceivedAt = append(h.ReceivedAt, time.Now())
	if len(h.Fulfillments) <= h.FailFirst {
		return errors.New("temporary failure")
	}
	return h.Err
}

func (h *recordingFulfillmentHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Fulfillments)
}

func (h *recordingFulfillmentHandler) Deliveries() []time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Time(nil), h.ReceivedAt...)
}

func (h *recordingFulfillmentHandler) SetErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Err = err
}

func upkeepEvent() events.Event {
	return events.UpkeepPerformedEvent{RequestID: 1, RoundNumber: 1}
}
