package interfaces

import (
	"context"

	"raffler/domain/entities"
	"raffler/domain/events"

	"github.com/ethereum/go-ethereum/common"
)

// RandomnessRequest is sent to the oracle when a round closes
type RandomnessRequest struct {
	RaffleID    int64                 `json:"raffle_id"`
	RoundNumber int64                 `json:"round_number"`
	Params      entities.OracleParams `json:"params"`
}

// RandomnessOracle issues randomness requests. The fulfillment arrives later
// through a separate inbound call.
type RandomnessOracle interface {
	// RequestRandomness returns the id the oracle will use when fulfilling
	RequestRandomness(ctx context.Context, req RandomnessRequest) (uint64, error)
}

// Ledger moves pooled funds to winners
type Ledger interface {
	// Transfer credits amount to the account; an error means the transfer was rejected
	Transfer(ctx context.Context, to common.Address, amount int64) error
}

// LedgerAccountStore is a Ledger whose accounts can be inspected and frozen
type LedgerAccountStore interface {
	Ledger

	// GetAccount returns the account, or nil if it does not exist
	GetAccount(ctx context.Context, address common.Address) (*entities.LedgerAccount, error)

	// SetFrozen freezes or unfreezes an account
	SetFrozen(ctx context.Context, address common.Address, frozen bool) error
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding transaction ends
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes all buffered events; called after commit
	Flush(ctx context.Context) error

	// Discard drops all buffered events; called on rollback
	Discard()
}
