package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeFee        TransactionType = "FEE"
	TransactionTypeInterest   TransactionType = "INTEREST"
)

// IsDebit reports whether the type takes funds out of the primary
// account and therefore requires a reservation while pending.
func (t TransactionType) IsDebit() bool {
	switch t {
	case TransactionTypeWithdrawal, TransactionTypeTransfer, TransactionTypeFee:
		return true
	default:
		return false
	}
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// IsTerminal reports whether no further status transition is permitted.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed || s == TransactionStatusCancelled
}

type ApprovalStatus string

const (
	ApprovalStatusNotRequired ApprovalStatus = "NOT_REQUIRED"
	ApprovalStatusPending     ApprovalStatus = "PENDING"
	ApprovalStatusApproved    ApprovalStatus = "APPROVED"
	ApprovalStatusRejected    ApprovalStatus = "REJECTED"
)

type VaultTransaction struct {
	ID                   string
	Type                 TransactionType
	AccountID            string
	SourceAccountID      *string
	DestinationAccountID *string
	ExternalSource       *string
	ExternalDestination  *string
	Amount               decimal.Decimal
	Fee                  decimal.Decimal
	Currency             string
	Narration            *string
	Status               TransactionStatus
	ApprovalStatus       ApprovalStatus
	RequestedBy          string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	CompletedAt          *time.Time
}

// HoldAmount is the amount locked by a debit-type reservation: the
// transaction amount plus any fee leaving the account with it.
func (tx VaultTransaction) HoldAmount() decimal.Decimal {
	return tx.Amount.Add(tx.Fee)
}

type TransactionStatusChange struct {
	TransactionID string
	Status        TransactionStatus
	ChangedAt     time.Time
}

type TransactionFilter struct {
	AccountID      string
	Type           TransactionType
	Status         TransactionStatus
	ApprovalStatus ApprovalStatus
	Currency       string
	MinAmount      *decimal.Decimal
}
