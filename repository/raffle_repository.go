package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffler/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

const raffleColumns = `
	id, entrance_fee, interval_ms, state, round_number, pooled_value, last_reset_at,
	request_id, request_round, requested_at, recent_winner, created_at, updated_at
`

// RaffleRepository implements raffle data access scoped to one raffle
type RaffleRepository struct {
	q        Queryable
	raffleID int64
}

// NewRaffleRepositoryScoped creates a new raffle repository for the given raffle
func NewRaffleRepositoryScoped(q Queryable, raffleID int64) *RaffleRepository {
	return &RaffleRepository{
		q:        q,
		raffleID: raffleID,
	}
}

// GetOrCreate returns the raffle, inserting it from cfg if it does not exist yet.
// Fee and interval are fixed at creation; differing values in cfg are only logged.
func (r *RaffleRepository) GetOrCreate(ctx context.Context, cfg entities.RaffleConfig, now time.Time) (*entities.Raffle, error) {
	query := `
		INSERT INTO raffles (id, entrance_fee, interval_ms, state, round_number, pooled_value,
		                     last_reset_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, 0, $5, $5, $5)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.q.Exec(ctx, query, r.raffleID, cfg.EntranceFee, cfg.Interval.Milliseconds(),
		string(entities.RaffleStateOpen), now)
	if err != nil {
		return nil, fmt.Errorf("failed to create raffle %d: %w", r.raffleID, err)
	}

	raffle, err := r.Get(ctx)
	if err != nil {
		return nil, err
	}
	if raffle == nil {
		return nil, fmt.Errorf("raffle %d missing after insert", r.raffleID)
	}

	if raffle.EntranceFee != cfg.EntranceFee || raffle.Interval != cfg.Interval {
		log.WithFields(log.Fields{
			"raffle_id":           raffle.ID,
			"stored_entrance_fee": raffle.EntranceFee,
			"config_entrance_fee": cfg.EntranceFee,
			"stored_interval":     raffle.Interval.String(),
			"config_interval":     cfg.Interval.String(),
		}).Warn("Raffle configuration differs from stored raffle, keeping stored values")
	}

	return raffle, nil
}

// Get returns the raffle with the participants of its current round
func (r *RaffleRepository) Get(ctx context.Context) (*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1`
	return r.get(ctx, query)
}

// GetForUpdate returns the raffle and locks its row until the transaction ends
func (r *RaffleRepository) GetForUpdate(ctx context.Context) (*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1 FOR UPDATE`
	return r.get(ctx, query)
}

func (r *RaffleRepository) get(ctx context.Context, query string) (*entities.Raffle, error) {
	raffle, err := scanRaffle(r.q.QueryRow(ctx, query, r.raffleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle %d: %w", r.raffleID, err)
	}

	participants, err := r.loadParticipants(ctx, raffle.Round.Number)
	if err != nil {
		return nil, err
	}
	raffle.Round.Participants = participants

	return raffle, nil
}

// Update persists the raffle scalars. Participants are stored through AppendEntry.
func (r *RaffleRepository) Update(ctx context.Context, raffle *entities.Raffle) error {
	var requestID, requestRound *int64
	var requestedAt *time.Time
	if raffle.Outstanding != nil {
		id := int64(raffle.Outstanding.RequestID)
		requestID = &id
		requestRound = &raffle.Outstanding.RoundEpoch
		requestedAt = &raffle.Outstanding.RequestedAt
	}

	var recentWinner *string
	if raffle.RecentWinner != nil {
		hex := raffle.RecentWinner.Hex()
		recentWinner = &hex
	}

	query := `
		UPDATE raffles
		SET state = $2,
		    round_number = $3,
		    pooled_value = $4,
		    last_reset_at = $5,
		    request_id = $6,
		    request_round = $7,
		    requested_at = $8,
		    recent_winner = $9,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.Exec(ctx, query,
		r.raffleID,
		string(raffle.State),
		raffle.Round.Number,
		raffle.Round.PooledValue,
		raffle.Round.LastResetAt,
		requestID,
		requestRound,
		requestedAt,
		recentWinner,
	)
	if err != nil {
		return fmt.Errorf("failed to update raffle %d: %w", r.raffleID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("raffle %d not found", r.raffleID)
	}

	return nil
}

// AppendEntry stores a new entry. Its position must be the next free slot of the round.
func (r *RaffleRepository) AppendEntry(ctx context.Context, entry *entities.Entry) error {
	query := `
		INSERT INTO raffle_entries (raffle_id, round_number, position, participant, paid_value, entered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, entered_at
	`
	err := r.q.QueryRow(ctx, query,
		r.raffleID,
		entry.RoundNumber,
		entry.Position,
		entry.Participant.Hex(),
		entry.PaidValue,
		entry.EnteredAt,
	).Scan(&entry.ID, &entry.EnteredAt)
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}

	entry.RaffleID = r.raffleID
	return nil
}

// ListEntries returns the entries of a round in entry order
func (r *RaffleRepository) ListEntries(ctx context.Context, roundNumber int64) ([]*entities.Entry, error) {
	query := `
		SELECT id, raffle_id, round_number, position, participant, paid_value, entered_at
		FROM raffle_entries
		WHERE raffle_id = $1 AND round_number = $2
		ORDER BY position
	`
	rows, err := r.q.Query(ctx, query, r.raffleID, roundNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*entities.Entry
	for rows.Next() {
		var entry entities.Entry
		var participant string
		if err := rows.Scan(
			&entry.ID,
			&entry.RaffleID,
			&entry.RoundNumber,
			&entry.Position,
			&participant,
			&entry.PaidValue,
			&entry.EnteredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entry.Participant = common.HexToAddress(participant)
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}

func (r *RaffleRepository) loadParticipants(ctx context.Context, roundNumber int64) ([]common.Address, error) {
	entries, err := r.ListEntries(ctx, roundNumber)
	if err != nil {
		return nil, err
	}

	participants := make([]common.Address, 0, len(entries))
	for _, entry := range entries {
		participants = append(participants, entry.Participant)
	}
	return participants, nil
}

func scanRaffle(row pgx.Row) (*entities.Raffle, error) {
	var raffle entities.Raffle
	var state string
	var intervalMs int64
	var requestID, requestRound *int64
	var requestedAt *time.Time
	var recentWinner *string

	err := row.Scan(
		&raffle.ID,
		&raffle.EntranceFee,
		&intervalMs,
		&state,
		&raffle.Round.Number,
		&raffle.Round.PooledValue,
		&raffle.Round.LastResetAt,
		&requestID,
		&requestRound,
		&requestedAt,
		&recentWinner,
		&raffle.CreatedAt,
		&raffle.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	raffle.State = entities.RaffleState(state)
	if !raffle.State.IsValid() {
		return nil, fmt.Errorf("raffle %d has unknown state %q", raffle.ID, state)
	}
	raffle.Interval = time.Duration(intervalMs) * time.Millisecond

	if requestID != nil {
		raffle.Outstanding = &entities.OutstandingRequest{RequestID: uint64(*requestID)}
		if requestRound != nil {
			raffle.Outstanding.RoundEpoch = *requestRound
		}
		if requestedAt != nil {
			raffle.Outstanding.RequestedAt = *requestedAt
		}
	}

	if recentWinner != nil {
		winner := common.HexToAddress(*recentWinner)
		raffle.RecentWinner = &winner
	}

	return &raffle, nil
}
