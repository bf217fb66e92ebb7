package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType represents the type of funding account in the system
type AccountType string

const (
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeSavings  AccountType = "SAVINGS"
	AccountTypeOther    AccountType = "OTHER"
)

// Account represents a funding account as seen by the transfer core.
type Account struct {
	ID       uuid.UUID
	Type     AccountType
	Balance  decimal.Decimal // SNAPSHOT value - the partner's live check is authoritative
	Currency string          // ISO 4217 code, e.g. "USD"
}
