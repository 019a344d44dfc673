package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"raffler/domain/entities"
	"raffler/domain/events"
	"raffler/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
)

// InMemoryRaffleStore keeps a single raffle and its history in memory. It
// implements both RaffleRepository and PayoutRepository and mirrors the
// Postgres layout: entries are stored per round and participants are rebuilt
// from them on every read.
type InMemoryRaffleStore struct {
	mu      sync.Mutex
	raffle  *entities.Raffle
	entries map[int64][]*entities.Entry
	payouts []*entities.Payout
	nextID  int64
}

// NewInMemoryRaffleStore creates an empty store
func NewInMemoryRaffleStore() *InMemoryRaffleStore {
	return &InMemoryRaffleStore{
		entries: make(map[int64][]*entities.Entry),
	}
}

// GetOrCreate returns the raffle, creating it from cfg if needed
func (s *InMemoryRaffleStore) GetOrCreate(ctx context.Context, cfg entities.RaffleConfig, now time.Time) (*entities.Raffle, error) {
	s.mu.Lock()
	if s.raffle == nil {
		s.raffle = &entities.Raffle{
			ID:          1,
			EntranceFee: cfg.EntranceFee,
			Interval:    cfg.Interval,
			State:       entities.RaffleStateOpen,
			Round: entities.Round{
				Number:      1,
				LastResetAt: now,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	s.mu.Unlock()
	return s.Get(ctx)
}

// Get returns a copy of the raffle with current round participants
func (s *InMemoryRaffleStore) Get(ctx context.Context) (*entities.Raffle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.raffle == nil {
		return nil, nil
	}
	return s.snapshot(), nil
}

// GetForUpdate behaves like Get; callers of the fake are single threaded
func (s *InMemoryRaffleStore) GetForUpdate(ctx context.Context) (*entities.Raffle, error) {
	return s.Get(ctx)
}

// Update stores the raffle scalars. Participants are ignored, as in Postgres.
func (s *InMemoryRaffleStore) Update(ctx context.Context, raffle *entities.Raffle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *raffle
	stored.Round.Participants = nil
	if raffle.Outstanding != nil {
		outstanding := *raffle.Outstanding
		stored.Outstanding = &outstanding
	}
	if raffle.RecentWinner != nil {
		winner := *raffle.RecentWinner
		stored.RecentWinner = &winner
	}
	s.raffle = &stored
	return nil
}

// AppendEntry stores an entry for its round
func (s *InMemoryRaffleStore) AppendEntry(ctx context.Context, entry *entities.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entry.ID = s.nextID
	stored := *entry
	s.entries[entry.RoundNumber] = append(s.entries[entry.RoundNumber], &stored)
	return nil
}

// Create records a payout
func (s *InMemoryRaffleStore) Create(ctx context.Context, payout *entities.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	payout.ID = s.nextID
	stored := *payout
	s.payouts = append(s.payouts, &stored)
	return nil
}

// GetLatest returns the most recent payout
func (s *InMemoryRaffleStore) GetLatest(ctx context.Context) (*entities.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.payouts) == 0 {
		return nil, nil
	}
	latest := *s.payouts[len(s.payouts)-1]
	return &latest, nil
}

// ListRecent returns payouts newest first
func (s *InMemoryRaffleStore) ListRecent(ctx context.Context, limit int) ([]*entities.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*entities.Payout, 0, len(s.payouts))
	for _, p := range s.payouts {
		payout := *p
		result = append(result, &payout)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// EntriesForRound returns the stored entries of a round
func (s *InMemoryRaffleStore) EntriesForRound(round int64) []*entities.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*entities.Entry(nil), s.entries[round]...)
}

func (s *InMemoryRaffleStore) snapshot() *entities.Raffle {
	raffle := *s.raffle
	participants := make([]common.Address, 0, len(s.entries[raffle.Round.Number]))
	for _, e := range s.entries[raffle.Round.Number] {
		participants = append(participants, e.Participant)
	}
	raffle.Round.Participants = participants
	if s.raffle.Outstanding != nil {
		outstanding := *s.raffle.Outstanding
		raffle.Outstanding = &outstanding
	}
	if s.raffle.RecentWinner != nil {
		winner := *s.raffle.RecentWinner
		raffle.RecentWinner = &winner
	}
	return &raffle
}

// RecordingEventPublisher collects published events in order
type RecordingEventPublisher struct {
	mu     sync.Mutex
	Events []events.Event
}

// Publish records the event
func (p *RecordingEventPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}

// OfType returns the recorded events with the given type
func (p *RecordingEventPublisher) OfType(eventType events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result []events.Event
	for _, e := range p.Events {
		if e.Type() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// SequentialOracle hands out increasing request ids and remembers each request
type SequentialOracle struct {
	mu       sync.Mutex
	lastID   uint64
	Requests []interfaces.RandomnessRequest
	Err      error
}

// RequestRandomness returns the next request id, starting at 1
func (o *SequentialOracle) RequestRandomness(ctx context.Context, req interfaces.RandomnessRequest) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.Err != nil {
		return 0, o.Err
	}
	o.lastID++
	o.Requests = append(o.Requests, req)
	return o.lastID, nil
}

// LastID returns the most recently issued request id
func (o *SequentialOracle) LastID() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastID
}

// FakeLedger credits balances in memory and rejects frozen accounts
type FakeLedger struct {
	mu       sync.Mutex
	balances map[common.Address]int64
	frozen   map[common.Address]bool
}

// NewFakeLedger creates an empty ledger
func NewFakeLedger() *FakeLedger {
	return &FakeLedger{
		balances: make(map[common.Address]int64),
		frozen:   make(map[common.Address]bool),
	}
}

// Transfer credits the account unless it is frozen
func (l *FakeLedger) Transfer(ctx context.Context, to common.Address, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frozen[to] {
		return fmt.Errorf("account %s is frozen", to.Hex())
	}
	l.balances[to] += amount
	return nil
}

// Freeze freezes or unfreezes an account
func (l *FakeLedger) Freeze(account common.Address, frozen bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frozen[account] = frozen
}

// SetFrozen implements LedgerAccountStore
func (l *FakeLedger) SetFrozen(ctx context.Context, account common.Address, frozen bool) error {
	l.Freeze(account, frozen)
	return nil
}

// GetAccount returns the account, or nil if it was never credited or frozen
func (l *FakeLedger) GetAccount(ctx context.Context, account common.Address) (*entities.LedgerAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, credited := l.balances[account]
	frozen, known := l.frozen[account]
	if !credited && !known {
		return nil, nil
	}
	return &entities.LedgerAccount{Address: account, Balance: balance, Frozen: frozen}, nil
}

// Balance returns the credited balance of an account
func (l *FakeLedger) Balance(account common.Address) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// FixedClock is a settable clock for deterministic tests
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock stopped at t
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

// Now returns the current fake time
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
