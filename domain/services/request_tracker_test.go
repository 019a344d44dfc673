package services

import (
	"testing"
	"time"

	"raffler/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestTracker_Register(t *testing.T) {
	t.Parallel()

	tracker := NewRequestTracker()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	record, err := tracker.Register(nil, 11, 3, at)
	require.NoError(t, err)
	assert.Equal(t, &entities.OutstandingRequest{RequestID: 11, RoundEpoch: 3, RequestedAt: at}, record)

	_, err = tracker.Register(record, 12, 3, at)
	assert.ErrorIs(t, err, ErrRequestAlreadyOutstanding)
}

func TestRequestTracker_ValidateAndConsume(t *testing.T) {
	t.Parallel()

	tracker := NewRequestTracker()
	current := &entities.OutstandingRequest{RequestID: 7, RoundEpoch: 2}

	tests := []struct {
		name          string
		current       *entities.OutstandingRequest
		requestID     uint64
		wantErr       error
		wantRemaining *entities.OutstandingRequest
	}{
		{name: "matching id", current: current, requestID: 7},
		{name: "mismatched id", current: current, requestID: 8, wantErr: ErrUnknownRequest, wantRemaining: current},
		{name: "nothing outstanding", current: nil, requestID: 7, wantErr: ErrUnknownRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			matched, remaining, err := tracker.ValidateAndConsume(tt.current, tt.requestID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, matched)
				assert.Equal(t, tt.wantRemaining, remaining)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, *tt.current, *matched)
			assert.Nil(t, remaining)
		})
	}
}

func TestRequestTracker_ConsumeIsExactlyOnce(t *testing.T) {
	t.Parallel()

	tracker := NewRequestTracker()
	slot, err := tracker.Register(nil, 1, 1, time.Now())
	require.NoError(t, err)

	_, slot, err = tracker.ValidateAndConsume(slot, 1)
	require.NoError(t, err)

	_, _, err = tracker.ValidateAndConsume(slot, 1)
	assert.ErrorIs(t, err, ErrUnknownRequest)
}

func TestRequestTracker_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	tracker := NewRequestTracker()
	current := &entities.OutstandingRequest{RequestID: 4, RoundEpoch: 1}

	matched, _, err := tracker.ValidateAndConsume(current, 4)
	require.NoError(t, err)

	matched.RequestID = 99
	assert.Equal(t, uint64(4), current.RequestID)
}
