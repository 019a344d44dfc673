package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffler/application/dto"
	"raffler/domain/entities"
	"raffler/domain/interfaces"
	"raffler/domain/services"
	"raffler/infrastructure/observability"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// RaffleCoordinator runs every raffle operation in its own unit of work.
// The raffle row lock taken by the service serializes concurrent callers.
type RaffleCoordinator struct {
	uowFactory UnitOfWorkFactory
	oracle     interfaces.RandomnessOracle
	settings   services.RaffleSettings
	metrics    *observability.MetricsProvider
}

// NewRaffleCoordinator creates a new raffle coordinator. metrics may be nil.
func NewRaffleCoordinator(
	uowFactory UnitOfWorkFactory,
	oracle interfaces.RandomnessOracle,
	settings services.RaffleSettings,
	metrics *observability.MetricsProvider,
) *RaffleCoordinator {
	if settings.Now == nil {
		settings.Now = func() time.Time { return time.Now().UTC() }
	}
	return &RaffleCoordinator{
		uowFactory: uowFactory,
		oracle:     oracle,
		settings:   settings,
		metrics:    metrics,
	}
}

// Bootstrap creates the raffle on first start and returns it
func (c *RaffleCoordinator) Bootstrap(ctx context.Context, cfg entities.RaffleConfig) (*entities.Raffle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid raffle configuration: %w", err)
	}

	var raffle *entities.Raffle
	err := c.inUnitOfWork(ctx, func(uow UnitOfWork, _ interfaces.RaffleService) error {
		var err error
		raffle, err = uow.RaffleRepository().GetOrCreate(ctx, cfg, c.settings.Now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap raffle: %w", err)
	}

	log.WithFields(log.Fields{
		"raffle_id":    raffle.ID,
		"state":        raffle.State,
		"round_number": raffle.Round.Number,
		"entrance_fee": raffle.EntranceFee,
		"interval":     raffle.Interval.String(),
		"participants": raffle.Round.ParticipantCount(),
	}).Info("Raffle ready")

	return raffle, nil
}

// Enter adds a paid entry to the open round
func (c *RaffleCoordinator) Enter(ctx context.Context, participant common.Address, paidValue int64) (*interfaces.EnterResult, error) {
	var result *interfaces.EnterResult
	err := c.inUnitOfWork(ctx, func(_ UnitOfWork, svc interfaces.RaffleService) error {
		var err error
		result, err = svc.Enter(ctx, participant, paidValue)
		return err
	})

	switch {
	case err == nil:
		c.metrics.RecordEntryAccepted()
	case errors.Is(err, services.ErrInsufficientFee):
		c.metrics.RecordEntryRejected(observability.RejectionInsufficientFee)
	case errors.Is(err, services.ErrRaffleClosed):
		c.metrics.RecordEntryRejected(observability.RejectionRaffleClosed)
	case errors.Is(err, services.ErrInvalidParticipant):
		c.metrics.RecordEntryRejected(observability.RejectionInvalid)
	case errors.Is(err, services.ErrPoolOverflow):
		c.metrics.RecordEntryRejected(observability.RejectionPoolOverflow)
	}

	return result, err
}

// CheckUpkeep reports whether the round is ready to close
func (c *RaffleCoordinator) CheckUpkeep(ctx context.Context) (*entities.UpkeepCheck, error) {
	var check *entities.UpkeepCheck
	err := c.inUnitOfWork(ctx, func(_ UnitOfWork, svc interfaces.RaffleService) error {
		var err error
		check, err = svc.CheckUpkeep(ctx)
		return err
	})
	return check, err
}

// PerformUpkeep closes the round and requests randomness
func (c *RaffleCoordinator) PerformUpkeep(ctx context.Context) (*interfaces.UpkeepResult, error) {
	var result *interfaces.UpkeepResult
	err := c.inUnitOfWork(ctx, func(_ UnitOfWork, svc interfaces.RaffleService) error {
		var err error
		result, err = svc.PerformUpkeep(ctx)
		return err
	})
	if err != nil {
		var notNeeded *services.UpkeepNotNeededError
		if errors.As(err, &notNeeded) {
			c.metrics.RecordUpkeepSkipped(notNeeded.Diagnostic.Reason())
		}
		return nil, err
	}

	c.metrics.RecordUpkeepPerformed()
	return result, nil
}

// RunUpkeep is the trigger entry point: it performs upkeep only when the check says so.
// A nil result means nothing was due.
func (c *RaffleCoordinator) RunUpkeep(ctx context.Context) (*interfaces.UpkeepResult, error) {
	check, err := c.CheckUpkeep(ctx)
	if err != nil {
		return nil, err
	}
	if !check.Needed {
		c.metrics.RecordUpkeepSkipped(check.Diagnostic.Reason())
		log.WithFields(log.Fields{
			"reason":  check.Diagnostic.Reason(),
			"elapsed": check.Diagnostic.Elapsed.String(),
		}).Debug("Upkeep not needed")
		return nil, nil
	}

	result, err := c.PerformUpkeep(ctx)
	if errors.Is(err, services.ErrUpkeepNotNeeded) {
		// Another caller closed the round between check and perform
		return nil, nil
	}
	return result, err
}

// Fulfill applies a fulfillment and returns the payout
func (c *RaffleCoordinator) Fulfill(ctx context.Context, requestID uint64, randomValue entities.RandomValue) (*interfaces.FulfillResult, error) {
	var result *interfaces.FulfillResult
	err := c.inUnitOfWork(ctx, func(_ UnitOfWork, svc interfaces.RaffleService) error {
		var err error
		result, err = svc.Fulfill(ctx, requestID, randomValue)
		return err
	})
	if err != nil {
		if errors.Is(err, services.ErrPayoutFailed) {
			c.metrics.RecordPayoutFailed()
		}
		return nil, err
	}

	c.metrics.RecordWinnerPicked(result.Amount, result.RequestLatency)
	log.WithFields(log.Fields{
		"request_id":   result.RequestID,
		"round_number": result.RoundNumber,
		"winner":       result.Winner.Hex(),
		"winner_index": result.WinnerIndex,
		"amount":       result.Amount,
		"latency":      result.RequestLatency.String(),
	}).Info("Raffle winner paid")

	return result, nil
}

// HandleFulfillment implements FulfillmentHandler. Correlation anomalies are
// logged and acknowledged; a failed payout is returned so the transport redelivers it.
func (c *RaffleCoordinator) HandleFulfillment(ctx context.Context, fulfillment dto.FulfillmentDTO) error {
	fields := log.Fields{
		"request_id": fulfillment.RequestID,
		"source":     fulfillment.Source,
	}

	var err error
	if len(fulfillment.RandomWords) == 0 {
		err = fmt.Errorf("%w: fulfillment carried no random words", services.ErrInvalidRandomValue)
	} else {
		_, err = c.Fulfill(ctx, fulfillment.RequestID, fulfillment.RandomWords[0])
	}

	switch {
	case err == nil:
		return nil
	case services.IsCorrelationError(err):
		c.metrics.RecordOracleAnomaly(anomalyKind(err))
		log.WithFields(fields).WithError(err).Warn("Rejected oracle fulfillment")
		return nil
	case errors.Is(err, services.ErrPayoutFailed):
		log.WithFields(fields).WithError(err).Error("Winner payout failed, round stays calculating")
		return err
	default:
		log.WithFields(fields).WithError(err).Error("Failed to process oracle fulfillment")
		return err
	}
}

// RecoverStuckRound abandons an outstanding request once the grace period has passed
func (c *RaffleCoordinator) RecoverStuckRound(ctx context.Context) (*interfaces.RecoveryResult, error) {
	var result *interfaces.RecoveryResult
	err := c.inUnitOfWork(ctx, func(_ UnitOfWork, svc interfaces.RaffleService) error {
		var err error
		result, err = svc.RecoverStuckRound(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.metrics.RecordRoundRecovered()
	return result, nil
}

// GetRaffleInfo returns a snapshot of the raffle
func (c *RaffleCoordinator) GetRaffleInfo(ctx context.Context) (*interfaces.RaffleInfo, error) {
	var info *interfaces.RaffleInfo
	err := c.inUnitOfWork(ctx, func(_ UnitOfWork, svc interfaces.RaffleService) error {
		var err error
		info, err = svc.GetRaffleInfo(ctx)
		return err
	})
	return info, err
}

// GetParticipant returns the participant in the given slot of the current round
func (c *RaffleCoordinator) GetParticipant(ctx context.Context, index int) (common.Address, error) {
	var participant common.Address
	err := c.inUnitOfWork(ctx, func(_ UnitOfWork, svc interfaces.RaffleService) error {
		var err error
		participant, err = svc.GetParticipant(ctx, index)
		return err
	})
	return participant, err
}

// GetRecentWinner returns the payout of the last completed round
func (c *RaffleCoordinator) GetRecentWinner(ctx context.Context) (*entities.Payout, error) {
	var payout *entities.Payout
	err := c.inUnitOfWork(ctx, func(_ UnitOfWork, svc interfaces.RaffleService) error {
		var err error
		payout, err = svc.GetRecentWinner(ctx)
		return err
	})
	return payout, err
}

// ListRecentPayouts returns up to limit payouts, newest first
func (c *RaffleCoordinator) ListRecentPayouts(ctx context.Context, limit int) ([]*entities.Payout, error) {
	var payouts []*entities.Payout
	err := c.inUnitOfWork(ctx, func(uow UnitOfWork, _ interfaces.RaffleService) error {
		var err error
		payouts, err = uow.PayoutRepository().ListRecent(ctx, limit)
		return err
	})
	return payouts, err
}

// GetLedgerAccount returns the ledger account of an address, or nil if it has none
func (c *RaffleCoordinator) GetLedgerAccount(ctx context.Context, address common.Address) (*entities.LedgerAccount, error) {
	var account *entities.LedgerAccount
	err := c.inUnitOfWork(ctx, func(uow UnitOfWork, _ interfaces.RaffleService) error {
		var err error
		account, err = uow.Ledger().GetAccount(ctx, address)
		return err
	})
	return account, err
}

// SetAccountFrozen freezes or unfreezes a ledger account
func (c *RaffleCoordinator) SetAccountFrozen(ctx context.Context, address common.Address, frozen bool) error {
	err := c.inUnitOfWork(ctx, func(uow UnitOfWork, _ interfaces.RaffleService) error {
		return uow.Ledger().SetFrozen(ctx, address, frozen)
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"address": address.Hex(),
		"frozen":  frozen,
	}).Info("Ledger account frozen state changed")
	return nil
}

// inUnitOfWork runs fn with a raffle service bound to a fresh transaction.
// The transaction commits when fn succeeds or fails with a payout failure,
// so the PayoutFailed event is still published.
func (c *RaffleCoordinator) inUnitOfWork(ctx context.Context, fn func(uow UnitOfWork, svc interfaces.RaffleService) error) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	svc := services.NewRaffleService(
		uow.RaffleRepository(),
		uow.PayoutRepository(),
		c.oracle,
		uow.Ledger(),
		uow.EventBus(),
		c.settings,
	)

	err := fn(uow, svc)
	if err != nil && !errors.Is(err, services.ErrPayoutFailed) {
		return err
	}

	if commitErr := uow.Commit(); commitErr != nil {
		if err != nil {
			return errors.Join(err, commitErr)
		}
		return commitErr
	}

	return err
}

func anomalyKind(err error) string {
	switch {
	case errors.Is(err, services.ErrUnknownRequest):
		return observability.AnomalyUnknownRequest
	case errors.Is(err, services.ErrNotCalculating):
		return observability.AnomalyNotCalculating
	case errors.Is(err, services.ErrRequestAlreadyOutstanding):
		return observability.AnomalyAlreadyOutstanding
	default:
		return observability.AnomalyInvalidRandomValue
	}
}
