package dto

import (
	"raffler/domain/entities"
)

// FulfillmentDTO is a randomness fulfillment delivered by an oracle adapter
type FulfillmentDTO struct {
	RequestID   uint64
	RandomWords []entities.RandomValue
	Source      string // Adapter that delivered the fulfillment, for logging
}
