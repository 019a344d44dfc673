package infrastructure

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"time"

	"raffler/application"
	"raffler/application/dto"
	"raffler/domain/entities"
	"raffler/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// ErrUnknownLocalRequest is returned when fulfilling an id the local oracle never issued or already delivered
var ErrUnknownLocalRequest = errors.New("unknown local randomness request")

var maxRandomWord = new(big.Int).Lsh(big.NewInt(1), 256)

type localRequest struct {
	numWords uint32
	timer    *time.Timer
}

// LocalRandomnessOracle is an in-process oracle for development and tests.
// With a positive delay each request is fulfilled automatically after that delay;
// a zero delay leaves fulfillment to Fulfill and FulfillWith.
type LocalRandomnessOracle struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*localRequest
	handler application.FulfillmentHandler
	delay   time.Duration
	stopped bool
}

// NewLocalRandomnessOracle creates a new local randomness oracle
func NewLocalRandomnessOracle(delay time.Duration) *LocalRandomnessOracle {
	return &LocalRandomnessOracle{
		pending: make(map[uint64]*localRequest),
		delay:   delay,
	}
}

// SetHandler registers the receiver of fulfillments
func (o *LocalRandomnessOracle) SetHandler(handler application.FulfillmentHandler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handler = handler
}

// RequestRandomness records the request and schedules its fulfillment
func (o *LocalRandomnessOracle) RequestRandomness(ctx context.Context, req interfaces.RandomnessRequest) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped {
		return 0, errors.New("local oracle is stopped")
	}

	o.nextID++
	id := o.nextID
	request := &localRequest{numWords: max(req.Params.NumWords, 1)}
	o.pending[id] = request
	o.schedule(id, request)

	log.WithFields(log.Fields{
		"request_id":   id,
		"round_number": req.RoundNumber,
		"delay":        o.delay.String(),
	}).Info("Local oracle accepted randomness request")

	return id, nil
}

// schedule must be called with mu held
func (o *LocalRandomnessOracle) schedule(id uint64, request *localRequest) {
	if o.delay <= 0 || o.stopped {
		return
	}
	request.timer = time.AfterFunc(o.delay, func() {
		if err := o.Fulfill(context.Background(), id); err != nil && !errors.Is(err, ErrUnknownLocalRequest) {
			log.WithField("request_id", id).WithError(err).Warn("Local oracle fulfillment failed, retrying")
			o.mu.Lock()
			if current, ok := o.pending[id]; ok {
				o.schedule(id, current)
			}
			o.mu.Unlock()
		}
	})
}

// Fulfill delivers freshly generated random words for a pending request
func (o *LocalRandomnessOracle) Fulfill(ctx context.Context, requestID uint64) error {
	o.mu.Lock()
	request, ok := o.pending[requestID]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownLocalRequest, requestID)
	}

	words := make([]entities.RandomValue, 0, request.numWords)
	for range request.numWords {
		word, err := randomWord()
		if err != nil {
			return err
		}
		words = append(words, word)
	}

	return o.FulfillWith(ctx, requestID, words)
}

// FulfillWith delivers the given words for a pending request. The request stays
// pending when the handler asks for redelivery.
func (o *LocalRandomnessOracle) FulfillWith(ctx context.Context, requestID uint64, words []entities.RandomValue) error {
	o.mu.Lock()
	request, ok := o.pending[requestID]
	handler := o.handler
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownLocalRequest, requestID)
	}
	if handler == nil {
		return errors.New("local oracle has no fulfillment handler")
	}

	if err := handler.HandleFulfillment(ctx, dto.FulfillmentDTO{
		RequestID:   requestID,
		RandomWords: words,
		Source:      "local",
	}); err != nil {
		return fmt.Errorf("failed to deliver fulfillment for request %d: %w", requestID, err)
	}

	o.mu.Lock()
	if request.timer != nil {
		request.timer.Stop()
	}
	delete(o.pending, requestID)
	o.mu.Unlock()

	return nil
}

// Pending returns the undelivered request ids in ascending order
func (o *LocalRandomnessOracle) Pending() []uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]uint64, 0, len(o.pending))
	for id := range o.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Stop cancels all scheduled fulfillments
func (o *LocalRandomnessOracle) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopped = true
	for _, request := range o.pending {
		if request.timer != nil {
			request.timer.Stop()
		}
	}
}

func randomWord() (entities.RandomValue, error) {
	v, err := rand.Int(rand.Reader, maxRandomWord)
	if err != nil {
		return entities.RandomValue{}, fmt.Errorf("failed to generate random word: %w", err)
	}
	return entities.NewRandomValue(v)
}
