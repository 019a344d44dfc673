package testutil

import (
	"time"

	"raffler/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

// TestEntranceFee is 0.01 in 18-decimal base units
const TestEntranceFee = int64(10_000_000_000_000_000)

// CreateTestRaffleConfig returns a raffle config with a 30 second interval
func CreateTestRaffleConfig() entities.RaffleConfig {
	return entities.RaffleConfig{
		EntranceFee: TestEntranceFee,
		Interval:    30 * time.Second,
		OracleParams: entities.OracleParams{
			KeyHash:              "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c",
			SubscriptionID:       1,
			RequestConfirmations: 3,
			CallbackGasLimit:     500000,
			NumWords:             1,
		},
	}
}

// CreateTestEntry creates an entry paying the test fee
func CreateTestEntry(roundNumber int64, position int, participant common.Address, at time.Time) *entities.Entry {
	return &entities.Entry{
		RoundNumber: roundNumber,
		Position:    position,
		Participant: participant,
		PaidValue:   TestEntranceFee,
		EnteredAt:   at,
	}
}

// TestAddress returns a deterministic non-zero address
func TestAddress(n byte) common.Address {
	var addr common.Address
	addr[0] = 0xAA
	addr[common.AddressLength-1] = n
	return addr
}
