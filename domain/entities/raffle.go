package entities

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Raffle is the aggregate holding the current round and the request slot
type Raffle struct {
	ID           int64               `db:"id"`
	EntranceFee  int64               `db:"entrance_fee"` // Captured at creation
	Interval     time.Duration       `db:"interval_ms"`  // Captured at creation
	State        RaffleState         `db:"state"`
	Round        Round               `db:"-"`
	Outstanding  *OutstandingRequest `db:"-"` // Only set while calculating
	RecentWinner *common.Address     `db:"recent_winner"`
	CreatedAt    time.Time           `db:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at"`
}

// IsOpen returns true if entries are accepted
func (r *Raffle) IsOpen() bool {
	return r.State == RaffleStateOpen
}

// IsCalculating returns true while waiting for randomness
func (r *Raffle) IsCalculating() bool {
	return r.State == RaffleStateCalculating
}

// AcceptsFee returns true if the paid value covers the entrance fee
func (r *Raffle) AcceptsFee(paidValue int64) bool {
	return paidValue >= r.EntranceFee
}

// BeginCalculating closes the round and stores the outstanding request
func (r *Raffle) BeginCalculating(request *OutstandingRequest) {
	r.State = RaffleStateCalculating
	r.Outstanding = request
}

// CompletePayout records the winner and starts a new round
func (r *Raffle) CompletePayout(winner common.Address, at time.Time) {
	r.RecentWinner = &winner
	r.Round.Reset(at)
	r.Outstanding = nil
	r.State = RaffleStateOpen
}

// Reopen abandons the outstanding request and accepts entries again.
// Participants and pooled value carry over.
func (r *Raffle) Reopen() {
	r.Outstanding = nil
	r.State = RaffleStateOpen
}
