package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"raffler/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const (
	// OracleStream holds randomness requests and fulfillments
	OracleStream = "oracle_randomness"

	SubjectRandomnessRequested = "oracle.randomness.requested"
	SubjectRandomnessFulfilled = "oracle.randomness.fulfilled"
)

// RandomnessRequestMessage is published when a round closes. The oracle
// fulfills it with the stream sequence of this message as the request id.
type RandomnessRequestMessage struct {
	RaffleID             int64     `json:"raffle_id"`
	RoundNumber          int64     `json:"round_number"`
	KeyHash              string    `json:"key_hash"`
	SubscriptionID       uint64    `json:"subscription_id"`
	RequestConfirmations uint16    `json:"request_confirmations"`
	CallbackGasLimit     uint32    `json:"callback_gas_limit"`
	NumWords             uint32    `json:"num_words"`
	RequestedAt          time.Time `json:"requested_at"`
}

// NATSRandomnessOracle requests randomness from an external coordinator over JetStream
type NATSRandomnessOracle struct {
	publisher MessagePublisher
	now       func() time.Time
}

// NewNATSRandomnessOracle creates a new NATS randomness oracle
func NewNATSRandomnessOracle(publisher MessagePublisher) *NATSRandomnessOracle {
	return &NATSRandomnessOracle{
		publisher: publisher,
		now:       time.Now,
	}
}

// RequestRandomness publishes the request and returns its stream sequence as the request id
func (o *NATSRandomnessOracle) RequestRandomness(ctx context.Context, req interfaces.RandomnessRequest) (uint64, error) {
	msg := RandomnessRequestMessage{
		RaffleID:             req.RaffleID,
		RoundNumber:          req.RoundNumber,
		KeyHash:              req.Params.KeyHash,
		SubscriptionID:       req.Params.SubscriptionID,
		RequestConfirmations: req.Params.RequestConfirmations,
		CallbackGasLimit:     req.Params.CallbackGasLimit,
		NumWords:             req.Params.NumWords,
		RequestedAt:          o.now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal randomness request: %w", err)
	}

	ack, err := o.publisher.Publish(ctx, SubjectRandomnessRequested, data)
	if err != nil {
		return 0, fmt.Errorf("failed to request randomness: %w", err)
	}
	if ack.Sequence == 0 {
		return 0, fmt.Errorf("oracle stream %s returned sequence 0", ack.Stream)
	}

	log.WithFields(log.Fields{
		"request_id":   ack.Sequence,
		"raffle_id":    req.RaffleID,
		"round_number": req.RoundNumber,
		"num_words":    req.Params.NumWords,
	}).Info("Requested randomness from oracle")

	return ack.Sequence, nil
}

// EnsureOracleStream ensures the oracle stream exists
func EnsureOracleStream(client *NATSClient) error {
	return client.EnsureStream(OracleStream,
		[]string{SubjectRandomnessRequested, SubjectRandomnessFulfilled},
		"Randomness oracle requests and fulfillments")
}
