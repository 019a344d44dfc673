package entities

import "time"

// OutstandingRequest correlates a pending randomness request to the round that issued it
type OutstandingRequest struct {
	RequestID   uint64    `db:"request_id"`
	RoundEpoch  int64     `db:"request_round"`
	RequestedAt time.Time `db:"requested_at"`
}

// Matches returns true if the request id belongs to this record
func (o *OutstandingRequest) Matches(requestID uint64) bool {
	return o != nil && o.RequestID == requestID
}

// PendingFor returns how long the request has been waiting for fulfillment
func (o *OutstandingRequest) PendingFor(now time.Time) time.Duration {
	return now.Sub(o.RequestedAt)
}
