package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goalvault/goalvault-backend/internal/domain"
)

// accountDirectory implements domain.AccountDirectory over the
// surrounding app's accounts table. Reads are snapshots: the balance
// returned here may already be stale by the time the transfer core
// acts on it, which is why the core treats it as advisory only.
type accountDirectory struct {
	db *DB
}

// NewAccountDirectory creates a new postgres-backed account directory
func NewAccountDirectory(db *DB) domain.AccountDirectory {
	return &accountDirectory{db: db}
}

// GetAccountSnapshot retrieves a point-in-time copy of an account
func (d *accountDirectory) GetAccountSnapshot(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT id, account_type, balance, currency
		FROM accounts
		WHERE id = $1
	`

	var account domain.Account
	var balanceStr string

	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.Type,
		&balanceStr,
		&account.Currency,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get account snapshot: %w", err)
	}

	// Parse balance (DECIMAL)
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	account.Balance = balance

	return &account, nil
}
