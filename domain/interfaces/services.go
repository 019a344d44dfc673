package interfaces

import (
	"context"
	"time"

	"raffler/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

// RaffleService drives the raffle state machine
type RaffleService interface {
	// Enter adds a paid entry to the open round
	Enter(ctx context.Context, participant common.Address, paidValue int64) (*EnterResult, error)

	// CheckUpkeep reports whether the round is ready to close. It never mutates state.
	CheckUpkeep(ctx context.Context) (*entities.UpkeepCheck, error)

	// PerformUpkeep closes the round and requests randomness
	PerformUpkeep(ctx context.Context) (*UpkeepResult, error)

	// Fulfill consumes the oracle response, pays the winner and resets the round
	Fulfill(ctx context.Context, requestID uint64, randomValue entities.RandomValue) (*FulfillResult, error)

	// RecoverStuckRound abandons an outstanding request once the grace period has passed
	RecoverStuckRound(ctx context.Context) (*RecoveryResult, error)

	// GetRaffleInfo returns a snapshot of the raffle for display
	GetRaffleInfo(ctx context.Context) (*RaffleInfo, error)

	// GetParticipant returns the participant in the given slot of the current round
	GetParticipant(ctx context.Context, index int) (common.Address, error)

	// GetRecentWinner returns the winner of the last completed round
	GetRecentWinner(ctx context.Context) (*entities.Payout, error)
}

// EnterResult is returned from a successful entry
type EnterResult struct {
	Participant common.Address
	Count       int
	PooledValue int64
	RoundNumber int64
}

// UpkeepResult is returned when a round was closed
type UpkeepResult struct {
	RequestID   uint64
	RoundNumber int64
}

// FulfillResult describes a completed payout
type FulfillResult struct {
	Winner          common.Address
	WinnerIndex     int
	Amount          int64
	RoundNumber     int64
	RequestID       uint64
	NextRoundNumber int64
	RequestLatency  time.Duration
}

// RecoveryResult describes an abandoned request
type RecoveryResult struct {
	AbandonedRequestID uint64
	RoundNumber        int64
	PendingFor         time.Duration
}

// RaffleInfo is a read-only snapshot of the raffle
type RaffleInfo struct {
	RaffleID         int64
	State            entities.RaffleState
	EntranceFee      int64
	Interval         time.Duration
	RoundNumber      int64
	ParticipantCount int
	PooledValue      int64
	LastResetAt      time.Time
	RecentWinner     *common.Address
	Outstanding      *entities.OutstandingRequest
}
