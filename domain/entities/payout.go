package entities

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Payout records a completed round and the winner that received the pool
type Payout struct {
	ID          int64          `db:"id"`
	RaffleID    int64          `db:"raffle_id"`
	RoundNumber int64          `db:"round_number"`
	RequestID   uint64         `db:"request_id"`
	Winner      common.Address `db:"winner"`
	WinnerIndex int            `db:"winner_index"`
	Amount      int64          `db:"amount"`
	RandomValue string         `db:"random_value"` // Base-10, may exceed 64 bits
	PaidAt      time.Time      `db:"paid_at"`
}

// Entry is one paid participation slot
type Entry struct {
	ID          int64          `db:"id"`
	RaffleID    int64          `db:"raffle_id"`
	RoundNumber int64          `db:"round_number"`
	Position    int            `db:"position"`
	Participant common.Address `db:"participant"`
	PaidValue   int64          `db:"paid_value"`
	EnteredAt   time.Time      `db:"entered_at"`
}
