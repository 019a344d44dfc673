package repository

import (
	"context"
	"errors"
	"fmt"

	"raffler/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// ErrAccountFrozen is returned when crediting a frozen ledger account
var ErrAccountFrozen = errors.New("ledger account is frozen")

// LedgerRepository credits payouts to ledger accounts. Accounts are created on first credit.
type LedgerRepository struct {
	q Queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(q Queryable) *LedgerRepository {
	return &LedgerRepository{q: q}
}

// Transfer credits amount to the account unless the account is frozen
func (r *LedgerRepository) Transfer(ctx context.Context, to common.Address, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}

	query := `
		INSERT INTO ledger_accounts (address, balance)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE
		SET balance = ledger_accounts.balance + EXCLUDED.balance,
		    updated_at = NOW()
		WHERE NOT ledger_accounts.frozen
	`
	result, err := r.q.Exec(ctx, query, to.Hex(), amount)
	if err != nil {
		return fmt.Errorf("failed to credit %s: %w", to.Hex(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrAccountFrozen, to.Hex())
	}

	return nil
}

// GetAccount returns the ledger account, or nil if it was never credited or frozen
func (r *LedgerRepository) GetAccount(ctx context.Context, address common.Address) (*entities.LedgerAccount, error) {
	query := `SELECT balance, frozen FROM ledger_accounts WHERE address = $1`

	account := entities.LedgerAccount{Address: address}
	err := r.q.QueryRow(ctx, query, address.Hex()).Scan(&account.Balance, &account.Frozen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger account %s: %w", address.Hex(), err)
	}

	return &account, nil
}

// SetFrozen freezes or unfreezes an account, creating it if needed
func (r *LedgerRepository) SetFrozen(ctx context.Context, address common.Address, frozen bool) error {
	query := `
		INSERT INTO ledger_accounts (address, frozen)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE
		SET frozen = EXCLUDED.frozen,
		    updated_at = NOW()
	`
	if _, err := r.q.Exec(ctx, query, address.Hex(), frozen); err != nil {
		return fmt.Errorf("failed to set frozen on %s: %w", address.Hex(), err)
	}
	return nil
}
