package infrastructure

import (
	"fmt"

	"raffler/domain/events"
)

const (
	// RaffleEventStream holds every raffle domain event
	RaffleEventStream = "raffle_events"

	SubjectEntryAccepted   = "raffle.entries.accepted"
	SubjectUpkeepPerformed = "raffle.upkeep.performed"
	SubjectWinnerPicked    = "raffle.winner.picked"
	SubjectPayoutFailed    = "raffle.payout.failed"
	SubjectRoundRecovered  = "raffle.round.recovered"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeEntryAccepted:
		return SubjectEntryAccepted
	case events.EventTypeUpkeepPerformed:
		return SubjectUpkeepPerformed
	case events.EventTypeWinnerPicked:
		return SubjectWinnerPicked
	case events.EventTypePayoutFailed:
		return SubjectPayoutFailed
	case events.EventTypeRoundRecovered:
		return SubjectRoundRecovered
	default:
		return fmt.Sprintf("raffle.unknown.%s", event.Type())
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case SubjectEntryAccepted:
		return events.EventTypeEntryAccepted
	case SubjectUpkeepPerformed:
		return events.EventTypeUpkeepPerformed
	case SubjectWinnerPicked:
		return events.EventTypeWinnerPicked
	case SubjectPayoutFailed:
		return events.EventTypePayoutFailed
	case SubjectRoundRecovered:
		return events.EventTypeRoundRecovered
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects the raffle publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		SubjectEntryAccepted,
		SubjectUpkeepPerformed,
		SubjectWinnerPicked,
		SubjectPayoutFailed,
		SubjectRoundRecovered,
	}
}
