package services

import (
	"errors"
	"fmt"

	"raffler/domain/entities"
)

// Admission errors
var (
	ErrInsufficientFee    = errors.New("paid value is below the entrance fee")
	ErrRaffleClosed       = errors.New("raffle is not accepting entries")
	ErrInvalidParticipant = errors.New("participant address is required")
	ErrPoolOverflow       = errors.New("paid value would overflow the pooled value")
)

// Correlation errors. These should never happen with a well-behaved oracle.
var (
	ErrUnknownRequest            = errors.New("unknown randomness request")
	ErrRequestAlreadyOutstanding = errors.New("a randomness request is already outstanding")
	ErrNotCalculating            = errors.New("raffle is not calculating")
	ErrInvalidRandomValue        = errors.New("invalid random value")
)

var (
	ErrUpkeepNotNeeded            = errors.New("upkeep not needed")
	ErrPayoutFailed               = errors.New("payout failed")
	ErrRecoveryNotAllowed         = errors.New("round recovery not allowed")
	ErrRaffleNotFound             = errors.New("raffle not found")
	ErrParticipantIndexOutOfRange = errors.New("participant index out of range")
	ErrNoRecentWinner             = errors.New("no winner has been picked yet")
)

// UpkeepNotNeededError carries the diagnostic explaining why upkeep was refused
type UpkeepNotNeededError struct {
	Diagnostic entities.UpkeepDiagnostic
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("upkeep not needed: %s", e.Diagnostic.Reason())
}

func (e *UpkeepNotNeededError) Unwrap() error {
	return ErrUpkeepNotNeeded
}

// PayoutFailedError is returned when the ledger rejects the winner transfer.
// The round stays calculating and the same fulfillment may be retried.
type PayoutFailedError struct {
	RequestID uint64
	Amount    int64
	Cause     error
}

func (e *PayoutFailedError) Error() string {
	return fmt.Sprintf("payout of %d for request %d failed: %v", e.Amount, e.RequestID, e.Cause)
}

func (e *PayoutFailedError) Unwrap() []error {
	return []error{ErrPayoutFailed, e.Cause}
}

// IsCorrelationError returns true for errors caused by stale, replayed or
// out-of-order oracle callbacks
func IsCorrelationError(err error) bool {
	return errors.Is(err, ErrUnknownRequest) ||
		errors.Is(err, ErrRequestAlreadyOutstanding) ||
		errors.Is(err, ErrNotCalculating) ||
		errors.Is(err, ErrInvalidRandomValue)
}
