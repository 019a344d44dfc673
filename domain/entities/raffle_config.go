package entities

import (
	"errors"
	"time"
)

// OracleParams are passed through to the randomness oracle untouched
type OracleParams struct {
	KeyHash              string `json:"key_hash"`
	SubscriptionID       uint64 `json:"subscription_id"`
	RequestConfirmations uint16 `json:"request_confirmations"`
	CallbackGasLimit     uint32 `json:"callback_gas_limit"`
	NumWords             uint32 `json:"num_words"`
}

// RaffleConfig is fixed when the raffle is created
type RaffleConfig struct {
	EntranceFee  int64
	Interval     time.Duration
	OracleParams OracleParams
}

// Validate checks the configuration for obviously invalid values
func (c RaffleConfig) Validate() error {
	if c.EntranceFee <= 0 {
		return errors.New("entrance fee must be positive")
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.OracleParams.NumWords == 0 {
		return errors.New("oracle must be asked for at least one word")
	}
	return nil
}
