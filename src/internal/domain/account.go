package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusFrozen AccountStatus = "FROZEN"
	AccountStatusClosed AccountStatus = "CLOSED"
)

type AccountType string

const (
	AccountTypeTrading    AccountType = "TRADING"
	AccountTypeSettlement AccountType = "SETTLEMENT"
	AccountTypeCustody    AccountType = "CUSTODY"
)

// VaultAccount holds a total balance and a reserved portion of it.
// Invariant: 0 <= ReservedBalance <= TotalBalance. The available
// balance is derived, never stored.
type VaultAccount struct {
	ID              string
	VaultID         string
	Name            string
	AccountType     AccountType
	Currency        string
	TotalBalance    decimal.Decimal
	ReservedBalance decimal.Decimal
	Status          AccountStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a VaultAccount) AvailableBalance() decimal.Decimal {
	return a.TotalBalance.Sub(a.ReservedBalance)
}
