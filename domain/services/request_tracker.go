package services

import (
	"time"

	"raffler/domain/entities"
)

// RequestTracker validates randomness request correlation. It never mutates
// the slot it is given; callers persist the returned value.
type RequestTracker struct{}

// NewRequestTracker creates a new request tracker
func NewRequestTracker() *RequestTracker {
	return &RequestTracker{}
}

// Register returns the record to store for a freshly issued request
func (t *RequestTracker) Register(current *entities.OutstandingRequest, requestID uint64, roundEpoch int64, at time.Time) (*entities.OutstandingRequest, error) {
	if current != nil {
		return nil, ErrRequestAlreadyOutstanding
	}

	return &entities.OutstandingRequest{
		RequestID:   requestID,
		RoundEpoch:  roundEpoch,
		RequestedAt: at,
	}, nil
}

// ValidateAndConsume checks that requestID matches the outstanding record.
// It returns the matched record and the slot value after consumption (always nil).
func (t *RequestTracker) ValidateAndConsume(current *entities.OutstandingRequest, requestID uint64) (matched *entities.OutstandingRequest, remaining *entities.OutstandingRequest, err error) {
	if current == nil || !current.Matches(requestID) {
		return nil, current, ErrUnknownRequest
	}

	record := *current
	return &record, nil, nil
}
