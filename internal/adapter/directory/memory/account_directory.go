package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/goalvault/goalvault-backend/internal/domain"
)

// AccountDirectory is an in-memory implementation of
// domain.AccountDirectory. It is thread-safe and intended for tests
// and local runs without a database.
type AccountDirectory struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]domain.Account
}

// NewAccountDirectory creates an empty in-memory account directory
func NewAccountDirectory() *AccountDirectory {
	return &AccountDirectory{
		accounts: make(map[uuid.UUID]domain.Account),
	}
}

// Put stores or replaces an account. Replacing an account is how a
// test simulates the snapshot changing between a submission and its
// retry.
func (d *AccountDirectory) Put(account domain.Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[account.ID] = account
}

// GetAccountSnapshot retrieves a point-in-time copy of an account
func (d *AccountDirectory) GetAccountSnapshot(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	account, ok := d.accounts[id]
	if !ok {
		return nil, errors.New("account not found")
	}

	// Return a copy so callers cannot mutate directory state.
	snapshot := account
	return &snapshot, nil
}

// Compile-time check: ensure AccountDirectory implements domain.AccountDirectory
var _ domain.AccountDirectory = (*AccountDirectory)(nil)
