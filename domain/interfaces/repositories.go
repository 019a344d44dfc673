package interfaces

import (
	"context"
	"time"

	"raffler/domain/entities"
)

// RaffleRepository defines data access for the raffle aggregate.
// Implementations are scoped to a single raffle.
type RaffleRepository interface {
	// GetOrCreate returns the raffle, creating it from cfg if it does not exist yet
	GetOrCreate(ctx context.Context, cfg entities.RaffleConfig, now time.Time) (*entities.Raffle, error)

	// Get returns the raffle with the participants of the current round, or nil if missing
	Get(ctx context.Context) (*entities.Raffle, error)

	// GetForUpdate is Get with a row lock held until the transaction ends
	GetForUpdate(ctx context.Context) (*entities.Raffle, error)

	// Update persists state, round counters, outstanding request and recent winner
	Update(ctx context.Context, raffle *entities.Raffle) error

	// AppendEntry stores a new entry for the given round
	AppendEntry(ctx context.Context, entry *entities.Entry) error
}

// PayoutRepository defines data access for completed payouts
type PayoutRepository interface {
	// Create records a payout
	Create(ctx context.Context, payout *entities.Payout) error

	// GetLatest returns the most recent payout, or nil if there is none
	GetLatest(ctx context.Context) (*entities.Payout, error)

	// ListRecent returns up to limit payouts, newest first
	ListRecent(ctx context.Context, limit int) ([]*entities.Payout, error)
}
