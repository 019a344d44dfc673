package application

import (
	"context"
	"sync"
	"time"

	"raffler/domain/entities"
	"raffler/domain/events"
	"raffler/domain/interfaces"
	"raffler/domain/services"
	"raffler/domain/testhelpers"
)

// bufferedBus holds events until the fake unit of work commits
type bufferedBus struct {
	pending []events.Event
}

func (b *bufferedBus) Publish(event events.Event) error {
	b.pending = append(b.pending, event)
	return nil
}

// fakeUnitOfWork shares one in-memory store across transactions. Writes are
// not undone on rollback; only event delivery follows the transaction outcome.
type fakeUnitOfWork struct {
	factory *fakeUnitOfWorkFactory
	bus     *bufferedBus
	begun   bool
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error {
	u.begun = true
	u.bus = &bufferedBus{}
	return nil
}

func (u *fakeUnitOfWork) Commit() error {
	u.factory.mu.Lock()
	u.factory.commits++
	u.factory.mu.Unlock()

	for _, event := range u.bus.pending {
		_ = u.factory.Published.Publish(event)
	}
	u.bus.pending = nil
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	if u.bus != nil {
		u.bus.pending = nil
	}
	return nil
}

func (u *fakeUnitOfWork) RaffleRepository() interfaces.RaffleRepository {
	return u.factory.Store
}

func (u *fakeUnitOfWork) PayoutRepository() interfaces.PayoutRepository {
	return u.factory.Store
}

func (u *fakeUnitOfWork) Ledger() interfaces.LedgerAccountStore {
	return u.factory.Ledger
}

func (u *fakeUnitOfWork) EventBus() interfaces.EventPublisher {
	return u.bus
}

type fakeUnitOfWorkFactory struct {
	mu        sync.Mutex
	commits   int
	Store     *testhelpers.InMemoryRaffleStore
	Ledger    *testhelpers.FakeLedger
	Published *testhelpers.RecordingEventPublisher
}

func (f *fakeUnitOfWorkFactory) Create() UnitOfWork {
	return &fakeUnitOfWork{factory: f}
}

func (f *fakeUnitOfWorkFactory) Commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits
}

const testEntranceFee = int64(10_000_000_000_000_000)

type coordinatorTestContext struct {
	factory     *fakeUnitOfWorkFactory
	oracle      *testhelpers.SequentialOracle
	clock       *testhelpers.FixedClock
	coordinator *RaffleCoordinator
}

func setupCoordinator(ctx context.Context) (*coordinatorTestContext, error) {
	tc := &coordinatorTestContext{
		factory: &fakeUnitOfWorkFactory{
			Store:     testhelpers.NewInMemoryRaffleStore(),
			Ledger:    testhelpers.NewFakeLedger(),
			Published: &testhelpers.RecordingEventPublisher{},
		},
		oracle: &testhelpers.SequentialOracle{},
		clock:  testhelpers.NewFixedClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)),
	}

	cfg := entities.RaffleConfig{
		EntranceFee:  testEntranceFee,
		Interval:     30 * time.Second,
		OracleParams: entities.OracleParams{NumWords: 1},
	}
	tc.coordinator = NewRaffleCoordinator(tc.factory, tc.oracle, services.RaffleSettings{
		RaffleID:     1,
		OracleParams: cfg.OracleParams,
		GracePeriod:  time.Hour,
		Now:          tc.clock.Now,
	}, nil)

	if _, err := tc.coordinator.Bootstrap(ctx, cfg); err != nil {
		return nil, err
	}
	return tc, nil
}
