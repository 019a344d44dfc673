package application

import (
	"context"
	"fmt"
	"time"

	"raffler/domain/interfaces"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
)

// UpkeepRunner checks the raffle and closes the round when it is due
type UpkeepRunner interface {
	RunUpkeep(ctx context.Context) (*interfaces.UpkeepResult, error)
}

// UpkeepWorker is the automated trigger polling the raffle for upkeep
type UpkeepWorker struct {
	runner    UpkeepRunner
	interval  time.Duration
	scheduler *gocron.Scheduler
}

// NewUpkeepWorker creates a new upkeep worker polling at the given interval
func NewUpkeepWorker(runner UpkeepRunner, interval time.Duration) *UpkeepWorker {
	return &UpkeepWorker{
		runner:    runner,
		interval:  interval,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start schedules the upkeep job and returns a function that stops it
func (w *UpkeepWorker) Start(ctx context.Context) (func(), error) {
	if w.interval <= 0 {
		return nil, fmt.Errorf("upkeep poll interval must be positive, got %s", w.interval)
	}

	// Singleton mode skips a tick while the previous run still holds the raffle lock
	_, err := w.scheduler.Every(w.interval).SingletonMode().Do(func() {
		w.tick(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule upkeep job: %w", err)
	}

	w.scheduler.StartAsync()
	log.WithField("interval", w.interval.String()).Info("Upkeep worker started")

	return func() {
		w.scheduler.Stop()
		log.Info("Upkeep worker stopped")
	}, nil
}

func (w *UpkeepWorker) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	result, err := w.runner.RunUpkeep(ctx)
	if err != nil {
		log.WithError(err).Error("Upkeep run failed")
		return
	}
	if result == nil {
		return
	}

	log.WithFields(log.Fields{
		"request_id":   result.RequestID,
		"round_number": result.RoundNumber,
	}).Info("Upkeep performed")
}
