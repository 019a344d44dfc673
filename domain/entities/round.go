package entities

import (
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Round holds the entries of the current raffle cycle
type Round struct {
	Number       int64            `db:"round_number"`  // Incremented on every reset
	Participants []common.Address `db:"-"`             // Entry order, duplicates allowed
	PooledValue  int64            `db:"pooled_value"`  // Sum of entry payments since LastResetAt
	LastResetAt  time.Time        `db:"last_reset_at"` // When the round began
}

// ParticipantCount returns the number of entries in the round
func (r *Round) ParticipantCount() int {
	return len(r.Participants)
}

// CanAccept reports whether paidValue fits in the pool without overflowing
func (r *Round) CanAccept(paidValue int64) bool {
	return paidValue <= math.MaxInt64-r.PooledValue
}

// AddEntry appends a participant slot and adds the paid value to the pool
func (r *Round) AddEntry(participant common.Address, paidValue int64) {
	r.Participants = append(r.Participants, participant)
	r.PooledValue += paidValue
}

// WinnerIndex maps a random value onto a participant slot.
// The round must have at least one participant.
func (r *Round) WinnerIndex(randomValue RandomValue) int {
	return randomValue.Mod(len(r.Participants))
}

// Reset clears the round and starts the next one at the given time
func (r *Round) Reset(at time.Time) {
	r.Number++
	r.Participants = []common.Address{}
	r.PooledValue = 0
	r.LastResetAt = at
}

// Elapsed returns how long the round has been running
func (r *Round) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.LastResetAt)
}
