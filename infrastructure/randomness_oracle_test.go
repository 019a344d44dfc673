package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"raffler/domain/entities"
	"raffler/domain/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRandomnessRequest = interfaces.RandomnessRequest{
	RaffleID:    1,
	RoundNumber: 3,
	Params: entities.OracleParams{
		KeyHash:              "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c",
		SubscriptionID:       42,
		RequestConfirmations: 3,
		CallbackGasLimit:     500000,
		NumWords:             1,
	},
}

func TestNATSRandomnessOracle_RequestRandomness(t *testing.T) {
	t.Parallel()

	transport := &recordingMessagePublisher{}
	oracle := NewNATSRandomnessOracle(transport)
	oracle.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	first, err := oracle.RequestRandomness(context.Background(), testRandomnessRequest)
	require.NoError(t, err)
	second, err := oracle.RequestRandomness(context.Background(), testRandomnessRequest)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)

	require.Len(t, transport.Messages, 2)
	assert.Equal(t, SubjectRandomnessRequested, transport.Messages[0].Subject)

	var msg RandomnessRequestMessage
	require.NoError(t, json.Unmarshal(transport.Messages[0].Data, &msg))
	assert.Equal(t, RandomnessRequestMessage{
		RaffleID:             1,
		RoundNumber:          3,
		KeyHash:              testRandomnessRequest.Params.KeyHash,
		SubscriptionID:       42,
		RequestConfirmations: 3,
		CallbackGasLimit:     500000,
		NumWords:             1,
		RequestedAt:          time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}, msg)
}

func TestNATSRandomnessOracle_PublishError(t *testing.T) {
	t.Parallel()

	oracle := NewNATSRandomnessOracle(&recordingMessagePublisher{Err: errors.New("stream not found")})

	_, err := oracle.RequestRandomness(context.Background(), testRandomnessRequest)
	assert.ErrorContains(t, err, "failed to request randomness")
}

func TestRandomnessFulfillmentListener(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		data          string
		handlerErr    error
		wantErr       bool
		wantDelivered bool
		wantWords     []string
	}{
		{
			name:          "valid fulfillment",
			data:          `{"request_id": 5, "random_words": ["7"]}`,
			wantDelivered: true,
			wantWords:     []string{"7"},
		},
		{
			name:          "words beyond 64 bits",
			data:          `{"request_id": 5, "random_words": ["115792089237316195423570985008687907853269984665640564039457584007913129639935"]}`,
			wantDelivered: true,
			wantWords:     []string{"115792089237316195423570985008687907853269984665640564039457584007913129639935"},
		},
		{
			name: "malformed json is acknowledged",
			data: `{"request_id": `,
		},
		{
			name: "negative word is acknowledged",
			data: `{"request_id": 5, "random_words": ["-1"]}`,
		},
		{
			name: "non numeric word is acknowledged",
			data: `{"request_id": 5, "random_words": ["0xff"]}`,
		},
		{
			name:          "handler error requests redelivery",
			data:          `{"request_id": 5, "random_words": ["7"]}`,
			handlerErr:    errors.New("payout failed"),
			wantErr:       true,
			wantDelivered: true,
			wantWords:     []string{"7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := &recordingFulfillmentHandler{Err: tt.handlerErr}
			listener := NewRandomnessFulfillmentListener(handler, nil)

			err := listener.HandleRandomnessFulfilled(context.Background(), []byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			if !tt.wantDelivered {
				assert.Zero(t, handler.Count())
				return
			}
			require.Equal(t, 1, handler.Count())
			delivered := handler.Fulfillments[0]
			assert.Equal(t, uint64(5), delivered.RequestID)
			assert.Equal(t, "nats", delivered.Source)

			var words []string
			for _, w := range delivered.RandomWords {
				words = append(words, w.String())
			}
			assert.Equal(t, tt.wantWords, words)
		})
	}
}

func TestLocalRandomnessOracle_ManualFulfillment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	handler := &recordingFulfillmentHandler{}
	oracle := NewLocalRandomnessOracle(0)
	oracle.SetHandler(handler)
	defer oracle.Stop()

	first, err := oracle.RequestRandomness(ctx, testRandomnessRequest)
	require.NoError(t, err)
	second, err := oracle.RequestRandomness(ctx, testRandomnessRequest)
	require.NoError(t, err)
	assert.Equal(t, []uint64{first, second}, oracle.Pending())
	assert.Greater(t, second, first)

	require.NoError(t, oracle.FulfillWith(ctx, first, []entities.RandomValue{entities.RandomValueFromUint64(7)}))
	assert.Equal(t, []uint64{second}, oracle.Pending())

	require.NoError(t, oracle.Fulfill(ctx, second))
	assert.Empty(t, oracle.Pending())

	require.Equal(t, 2, handler.Count())
	assert.Equal(t, "7", handler.Fulfillments[0].RandomWords[0].String())
	require.Len(t, handler.Fulfillments[1].RandomWords, 1)
	assert.Less(t, handler.Fulfillments[1].RandomWords[0].BigInt().BitLen(), 257)

	// Delivered requests cannot be fulfilled again
	assert.ErrorIs(t, oracle.Fulfill(ctx, first), ErrUnknownLocalRequest)
}

func TestLocalRandomnessOracle_KeepsPendingOnHandlerError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	handler := &recordingFulfillmentHandler{Err: errors.New("payout failed")}
	oracle := NewLocalRandomnessOracle(0)
	oracle.SetHandler(handler)
	defer oracle.Stop()

	id, err := oracle.RequestRandomness(ctx, testRandomnessRequest)
	require.NoError(t, err)

	assert.Error(t, oracle.Fulfill(ctx, id))
	assert.Equal(t, []uint64{id}, oracle.Pending())

	handler.SetErr(nil)
	require.NoError(t, oracle.Fulfill(ctx, id))
	assert.Empty(t, oracle.Pending())
}

func TestLocalRandomnessOracle_AutomaticFulfillment(t *testing.T) {
	t.Parallel()

	handler := &recordingFulfillmentHandler{}
	oracle := NewLocalRandomnessOracle(10 * time.Millisecond)
	oracle.SetHandler(handler)
	defer oracle.Stop()

	params := testRandomnessRequest
	params.Params.NumWords = 3
	_, err := oracle.RequestRandomness(context.Background(), params)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return handler.Count() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(oracle.Pending()) == 0 }, 2*time.Second, 5*time.Millisecond)

	handler.mu.Lock()
	assert.Len(t, handler.Fulfillments[0].RandomWords, 3)
	handler.mu.Unlock()
}

func TestLocalRandomnessOracle_RejectsAfterStop(t *testing.T) {
	t.Parallel()

	oracle := NewLocalRandomnessOracle(time.Second)
	oracle.Stop()

	_, err := oracle.RequestRandomness(context.Background(), testRandomnessRequest)
	assert.Error(t, err)
}
