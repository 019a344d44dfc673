package entities

import "github.com/ethereum/go-ethereum/common"

// LedgerAccount is a balance credited to a participant by payouts
type LedgerAccount struct {
	Address common.Address `json:"address"`
	Balance int64          `json:"balance"`
	Frozen  bool           `json:"frozen"` // Frozen accounts reject credits
}
