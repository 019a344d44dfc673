package services

import (
	"context"
	"fmt"
	"time"

	"raffler/domain/entities"
	"raffler/domain/events"
	"raffler/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// RaffleSettings holds the service settings that do not live on the raffle row
type RaffleSettings struct {
	RaffleID     int64
	OracleParams entities.OracleParams
	GracePeriod  time.Duration    // Minimum wait before an outstanding request may be abandoned
	Now          func() time.Time // Defaults to time.Now in UTC
}

// raffleService implements the raffle state machine. It is the only writer of
// the raffle aggregate; callers provide serialization through the repository lock.
type raffleService struct {
	raffleRepo     interfaces.RaffleRepository
	payoutRepo     interfaces.PayoutRepository
	oracle         interfaces.RandomnessOracle
	ledger         interfaces.Ledger
	eventPublisher interfaces.EventPublisher
	tracker        *RequestTracker
	settings       RaffleSettings
}

// NewRaffleService creates a new raffle service
func NewRaffleService(
	raffleRepo interfaces.RaffleRepository,
	payoutRepo interfaces.PayoutRepository,
	oracle interfaces.RandomnessOracle,
	ledger interfaces.Ledger,
	eventPublisher interfaces.EventPublisher,
	settings RaffleSettings,
) interfaces.RaffleService {
	if settings.Now == nil {
		settings.Now = func() time.Time { return time.Now().UTC() }
	}
	return &raffleService{
		raffleRepo:     raffleRepo,
		payoutRepo:     payoutRepo,
		oracle:         oracle,
		ledger:         ledger,
		eventPublisher: eventPublisher,
		tracker:        NewRequestTracker(),
		settings:       settings,
	}
}

// Enter adds a paid entry to the open round
func (s *raffleService) Enter(ctx context.Context, participant common.Address, paidValue int64) (*interfaces.EnterResult, error) {
	if participant == (common.Address{}) {
		return nil, ErrInvalidParticipant
	}

	raffle, err := s.loadForUpdate(ctx)
	if err != nil {
		return nil, err
	}

	if !raffle.AcceptsFee(paidValue) {
		return nil, fmt.Errorf("%w: paid %d, need %d", ErrInsufficientFee, paidValue, raffle.EntranceFee)
	}
	if !raffle.IsOpen() {
		return nil, ErrRaffleClosed
	}
	if !raffle.Round.CanAccept(paidValue) {
		return nil, fmt.Errorf("%w: pooled %d, paid %d", ErrPoolOverflow, raffle.Round.PooledValue, paidValue)
	}

	entry := &entities.Entry{
		RaffleID:    raffle.ID,
		RoundNumber: raffle.Round.Number,
		Position:    raffle.Round.ParticipantCount(),
		Participant: participant,
		PaidValue:   paidValue,
		EnteredAt:   s.settings.Now(),
	}
	if err := s.raffleRepo.AppendEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append entry: %w", err)
	}

	raffle.Round.AddEntry(participant, paidValue)
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	count := raffle.Round.ParticipantCount()
	s.publish(events.EntryAcceptedEvent{
		Participant: participant,
		Count:       count,
		RoundNumber: raffle.Round.Number,
		PaidValue:   paidValue,
	})

	return &interfaces.EnterResult{
		Participant: participant,
		Count:       count,
		PooledValue: raffle.Round.PooledValue,
		RoundNumber: raffle.Round.Number,
	}, nil
}

// CheckUpkeep reports whether the round is ready to close
func (s *raffleService) CheckUpkeep(ctx context.Context) (*entities.UpkeepCheck, error) {
	raffle, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	check := EvaluateUpkeep(s.settings.Now(), raffle.Round, raffle.State, raffle.Interval)
	return &check, nil
}

// PerformUpkeep closes the round and requests randomness
func (s *raffleService) PerformUpkeep(ctx context.Context) (*interfaces.UpkeepResult, error) {
	raffle, err := s.loadForUpdate(ctx)
	if err != nil {
		return nil, err
	}

	now := s.settings.Now()
	check := EvaluateUpkeep(now, raffle.Round, raffle.State, raffle.Interval)
	if !check.Needed {
		return nil, &UpkeepNotNeededError{Diagnostic: check.Diagnostic}
	}

	// Checked before asking the oracle so a refused registration leaves no orphan request
	if raffle.Outstanding != nil {
		return nil, ErrRequestAlreadyOutstanding
	}

	requestID, err := s.oracle.RequestRandomness(ctx, interfaces.RandomnessRequest{
		RaffleID:    raffle.ID,
		RoundNumber: raffle.Round.Number,
		Params:      s.settings.OracleParams,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request randomness: %w", err)
	}

	record, err := s.tracker.Register(raffle.Outstanding, requestID, raffle.Round.Number, now)
	if err != nil {
		return nil, err
	}

	raffle.BeginCalculating(record)
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	log.WithFields(log.Fields{
		"raffle_id":    raffle.ID,
		"round_number": raffle.Round.Number,
		"request_id":   requestID,
		"participants": raffle.Round.ParticipantCount(),
		"pooled_value": raffle.Round.PooledValue,
	}).Info("Raffle round closed, randomness requested")

	s.publish(events.UpkeepPerformedEvent{
		RequestID:   requestID,
		RoundNumber: raffle.Round.Number,
	})

	return &interfaces.UpkeepResult{
		RequestID:   requestID,
		RoundNumber: raffle.Round.Number,
	}, nil
}

// Fulfill consumes the oracle response, pays the winner and resets the round
func (s *raffleService) Fulfill(ctx context.Context, requestID uint64, randomValue entities.RandomValue) (*interfaces.FulfillResult, error) {
	if !randomValue.IsSet() {
		return nil, fmt.Errorf("%w: request %d", ErrInvalidRandomValue, requestID)
	}

	raffle, err := s.loadForUpdate(ctx)
	if err != nil {
		return nil, err
	}

	matched, remaining, err := s.tracker.ValidateAndConsume(raffle.Outstanding, requestID)
	if err != nil {
		return nil, fmt.Errorf("%w: request %d", err, requestID)
	}
	if !raffle.IsCalculating() {
		return nil, ErrNotCalculating
	}
	if matched.RoundEpoch != raffle.Round.Number {
		return nil, fmt.Errorf("%w: request %d belongs to round %d, current round is %d",
			ErrUnknownRequest, requestID, matched.RoundEpoch, raffle.Round.Number)
	}
	if raffle.Round.ParticipantCount() == 0 {
		return nil, fmt.Errorf("round %d has no participants", raffle.Round.Number)
	}

	winnerIndex := raffle.Round.WinnerIndex(randomValue)
	winner := raffle.Round.Participants[winnerIndex]
	amount := raffle.Round.PooledValue
	roundNumber := raffle.Round.Number

	if err := s.ledger.Transfer(ctx, winner, amount); err != nil {
		s.publish(events.PayoutFailedEvent{
			Winner:      winner,
			Amount:      amount,
			RoundNumber: roundNumber,
			RequestID:   requestID,
			Reason:      err.Error(),
		})
		return nil, &PayoutFailedError{RequestID: requestID, Amount: amount, Cause: err}
	}

	now := s.settings.Now()
	payout := &entities.Payout{
		RaffleID:    raffle.ID,
		RoundNumber: roundNumber,
		RequestID:   requestID,
		Winner:      winner,
		WinnerIndex: winnerIndex,
		Amount:      amount,
		RandomValue: randomValue.String(),
		PaidAt:      now,
	}
	if err := s.payoutRepo.Create(ctx, payout); err != nil {
		return nil, fmt.Errorf("failed to record payout: %w", err)
	}

	raffle.CompletePayout(winner, now)
	raffle.Outstanding = remaining
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	s.publish(events.WinnerPickedEvent{
		Winner:      winner,
		Amount:      amount,
		RoundNumber: roundNumber,
		RequestID:   requestID,
	})

	return &interfaces.FulfillResult{
		Winner:          winner,
		WinnerIndex:     winnerIndex,
		Amount:          amount,
		RoundNumber:     roundNumber,
		RequestID:       requestID,
		NextRoundNumber: raffle.Round.Number,
		RequestLatency:  matched.PendingFor(now),
	}, nil
}

// RecoverStuckRound abandons an outstanding request once the grace period has passed
func (s *raffleService) RecoverStuckRound(ctx context.Context) (*interfaces.RecoveryResult, error) {
	raffle, err := s.loadForUpdate(ctx)
	if err != nil {
		return nil, err
	}

	if !raffle.IsCalculating() || raffle.Outstanding == nil {
		return nil, fmt.Errorf("%w: no outstanding request", ErrRecoveryNotAllowed)
	}

	pendingFor := raffle.Outstanding.PendingFor(s.settings.Now())
	if pendingFor < s.settings.GracePeriod {
		return nil, fmt.Errorf("%w: request pending for %s, grace period is %s",
			ErrRecoveryNotAllowed, pendingFor.Round(time.Second), s.settings.GracePeriod)
	}

	abandoned := raffle.Outstanding.RequestID
	raffle.Reopen()
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	log.WithFields(log.Fields{
		"raffle_id":            raffle.ID,
		"round_number":         raffle.Round.Number,
		"abandoned_request_id": abandoned,
		"pending_for":          pendingFor.String(),
	}).Warn("Abandoned outstanding randomness request, raffle reopened")

	s.publish(events.RoundRecoveredEvent{
		AbandonedRequestID: abandoned,
		RoundNumber:        raffle.Round.Number,
	})

	return &interfaces.RecoveryResult{
		AbandonedRequestID: abandoned,
		RoundNumber:        raffle.Round.Number,
		PendingFor:         pendingFor,
	}, nil
}

// GetRaffleInfo returns a snapshot of the raffle for display
func (s *raffleService) GetRaffleInfo(ctx context.Context) (*interfaces.RaffleInfo, error) {
	raffle, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	return &interfaces.RaffleInfo{
		RaffleID:         raffle.ID,
		State:            raffle.State,
		EntranceFee:      raffle.EntranceFee,
		Interval:         raffle.Interval,
		RoundNumber:      raffle.Round.Number,
		ParticipantCount: raffle.Round.ParticipantCount(),
		PooledValue:      raffle.Round.PooledValue,
		LastResetAt:      raffle.Round.LastResetAt,
		RecentWinner:     raffle.RecentWinner,
		Outstanding:      raffle.Outstanding,
	}, nil
}

// GetParticipant returns the participant in the given slot of the current round
func (s *raffleService) GetParticipant(ctx context.Context, index int) (common.Address, error) {
	raffle, err := s.load(ctx)
	if err != nil {
		return common.Address{}, err
	}

	if index < 0 || index >= raffle.Round.ParticipantCount() {
		return common.Address{}, fmt.Errorf("%w: %d", ErrParticipantIndexOutOfRange, index)
	}
	return raffle.Round.Participants[index], nil
}

// GetRecentWinner returns the payout of the last completed round
func (s *raffleService) GetRecentWinner(ctx context.Context) (*entities.Payout, error) {
	payout, err := s.payoutRepo.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest payout: %w", err)
	}
	if payout == nil {
		return nil, ErrNoRecentWinner
	}
	return payout, nil
}

func (s *raffleService) load(ctx context.Context) (*entities.Raffle, error) {
	raffle, err := s.raffleRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, ErrRaffleNotFound
	}
	return raffle, nil
}

func (s *raffleService) loadForUpdate(ctx context.Context) (*entities.Raffle, error) {
	raffle, err := s.raffleRepo.GetForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to lock raffle: %w", err)
	}
	if raffle == nil {
		return nil, ErrRaffleNotFound
	}
	return raffle, nil
}

// publish emits an observation. Events never roll back a decision that was already applied.
func (s *raffleService) publish(event events.Event) {
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).WithField("event_type", event.Type()).Error("Failed to publish raffle event")
	}
}
