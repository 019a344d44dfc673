package repository

import (
	"context"
	"errors"
	"fmt"

	"raffler/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// PayoutRepository implements payout data access scoped to one raffle
type PayoutRepository struct {
	q        Queryable
	raffleID int64
}

// NewPayoutRepositoryScoped creates a new payout repository for the given raffle
func NewPayoutRepositoryScoped(q Queryable, raffleID int64) *PayoutRepository {
	return &PayoutRepository{
		q:        q,
		raffleID: raffleID,
	}
}

// Create records a payout
func (r *PayoutRepository) Create(ctx context.Context, payout *entities.Payout) error {
	query := `
		INSERT INTO raffle_payouts (raffle_id, round_number, request_id, winner, winner_index,
		                            amount, random_value, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		r.raffleID,
		payout.RoundNumber,
		int64(payout.RequestID),
		payout.Winner.Hex(),
		payout.WinnerIndex,
		payout.Amount,
		payout.RandomValue,
		payout.PaidAt,
	).Scan(&payout.ID)
	if err != nil {
		return fmt.Errorf("failed to create payout for round %d: %w", payout.RoundNumber, err)
	}

	payout.RaffleID = r.raffleID
	return nil
}

// GetLatest returns the most recent payout, or nil if no round has paid out yet
func (r *PayoutRepository) GetLatest(ctx context.Context) (*entities.Payout, error) {
	payouts, err := r.ListRecent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(payouts) == 0 {
		return nil, nil
	}
	return payouts[0], nil
}

// GetByRound returns the payout of a round, or nil if it has not paid out
func (r *PayoutRepository) GetByRound(ctx context.Context, roundNumber int64) (*entities.Payout, error) {
	query := `
		SELECT id, raffle_id, round_number, request_id, winner, winner_index, amount,
		       random_value::text, paid_at
		FROM raffle_payouts
		WHERE raffle_id = $1 AND round_number = $2
	`
	payout, err := scanPayout(r.q.QueryRow(ctx, query, r.raffleID, roundNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payout for round %d: %w", roundNumber, err)
	}
	return payout, nil
}

// ListRecent returns up to limit payouts, newest first
func (r *PayoutRepository) ListRecent(ctx context.Context, limit int) ([]*entities.Payout, error) {
	query := `
		SELECT id, raffle_id, round_number, request_id, winner, winner_index, amount,
		       random_value::text, paid_at
		FROM raffle_payouts
		WHERE raffle_id = $1
		ORDER BY round_number DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, r.raffleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []*entities.Payout
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		payouts = append(payouts, payout)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payouts: %w", err)
	}

	return payouts, nil
}

func scanPayout(row pgx.Row) (*entities.Payout, error) {
	var payout entities.Payout
	var requestID int64
	var winner string

	err := row.Scan(
		&payout.ID,
		&payout.RaffleID,
		&payout.RoundNumber,
		&requestID,
		&winner,
		&payout.WinnerIndex,
		&payout.Amount,
		&payout.RandomValue,
		&payout.PaidAt,
	)
	if err != nil {
		return nil, err
	}

	payout.RequestID = uint64(requestID)
	payout.Winner = common.HexToAddress(winner)
	return &payout, nil
}
