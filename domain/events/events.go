package events

import "github.com/ethereum/go-ethereum/common"

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeEntryAccepted   EventType = "entry_accepted"
	EventTypeUpkeepPerformed EventType = "upkeep_performed"
	EventTypeWinnerPicked    EventType = "winner_picked"
	EventTypePayoutFailed    EventType = "payout_failed"
	EventTypeRoundRecovered  EventType = "round_recovered"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// EntryAcceptedEvent is emitted when a participant joins the round
type EntryAcceptedEvent struct {
	Participant common.Address `json:"participant"`
	Count       int            `json:"count"`
	RoundNumber int64          `json:"round_number"`
	PaidValue   int64          `json:"paid_value"`
}

func (e EntryAcceptedEvent) Type() EventType {
	return EventTypeEntryAccepted
}

// UpkeepPerformedEvent is emitted when the round closes and randomness is requested
type UpkeepPerformedEvent struct {
	RequestID   uint64 `json:"request_id"`
	RoundNumber int64  `json:"round_number"`
}

func (e UpkeepPerformedEvent) Type() EventType {
	return EventTypeUpkeepPerformed
}

// WinnerPickedEvent is emitted after the pool has been paid out
type WinnerPickedEvent struct {
	Winner      common.Address `json:"winner"`
	Amount      int64          `json:"amount"`
	RoundNumber int64          `json:"round_number"`
	RequestID   uint64         `json:"request_id"`
}

func (e WinnerPickedEvent) Type() EventType {
	return EventTypeWinnerPicked
}

// PayoutFailedEvent is emitted when the ledger rejects the winner transfer
type PayoutFailedEvent struct {
	Winner      common.Address `json:"winner"`
	Amount      int64          `json:"amount"`
	RoundNumber int64          `json:"round_number"`
	RequestID   uint64         `json:"request_id"`
	Reason      string         `json:"reason"`
}

func (e PayoutFailedEvent) Type() EventType {
	return EventTypePayoutFailed
}

// RoundRecoveredEvent is emitted when an operator abandons a stuck request
type RoundRecoveredEvent struct {
	AbandonedRequestID uint64 `json:"abandoned_request_id"`
	RoundNumber        int64  `json:"round_number"`
}

func (e RoundRecoveredEvent) Type() EventType {
	return EventTypeRoundRecovered
}
