package application

import (
	"context"

	"raffler/application/dto"
)

// FulfillmentHandler processes randomness fulfillments.
// It is implemented by the application layer and called by the oracle adapters.
type FulfillmentHandler interface {
	// HandleFulfillment returns an error only when the fulfillment should be redelivered
	HandleFulfillment(ctx context.Context, fulfillment dto.FulfillmentDTO) error
}
