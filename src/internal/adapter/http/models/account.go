package models

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
)

func isSupportedCurrency(currency string) bool {
	switch currency {
	case "USD", "EUR", "GBP", "USDT":
		return true
	default:
		return false
	}
}

type CreateAccountRequest struct {
	VaultID        string `json:"vaultId"`
	Name           string `json:"name"`
	Currency       string `json:"currency"`
	AccountType    string `json:"accountType"`
	InitialBalance string `json:"initialBalance,omitempty"`
}

func (r CreateAccountRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.VaultID) == "" {
		errs = append(errs, "vaultId is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}

	ccy := strings.ToUpper(strings.TrimSpace(r.Currency))
	if ccy == "" {
		errs = append(errs, "currency is required")
	} else if !isSupportedCurrency(ccy) {
		errs = append(errs, "currency must be one of USD, EUR, GBP, USDT")
	}

	accountType := strings.ToUpper(strings.TrimSpace(r.AccountType))
	switch accountType {
	case "TRADING", "SETTLEMENT", "CUSTODY":
	default:
		errs = append(errs, "accountType must be one of TRADING, SETTLEMENT, CUSTODY")
	}

	if strings.TrimSpace(r.InitialBalance) != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(r.InitialBalance))
		if err != nil {
			errs = append(errs, "initialBalance must be numeric")
		} else if parsed.IsNegative() {
			errs = append(errs, "initialBalance cannot be negative")
		}
	}

	if len(errs) > 0 {
		return commons.ValidationError(strings.Join(errs, "; "))
	}
	return nil
}

type AccountResponse struct {
	ID               string `json:"id"`
	VaultID          string `json:"vaultId"`
	Name             string `json:"name"`
	AccountType      string `json:"accountType"`
	Currency         string `json:"currency"`
	TotalBalance     string `json:"totalBalance"`
	ReservedBalance  string `json:"reservedBalance"`
	AvailableBalance string `json:"availableBalance"`
	Status           string `json:"status"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}

type UpdateAccountStatusRequest struct {
	AccountID string `json:"accountId"`
	Status    string `json:"status"`
}

func (r UpdateAccountStatusRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.AccountID) == "" {
		errs = append(errs, "accountId is required")
	}

	switch strings.ToUpper(strings.TrimSpace(r.Status)) {
	case "ACTIVE", "FROZEN", "CLOSED":
	default:
		errs = append(errs, "status must be one of ACTIVE, FROZEN, CLOSED")
	}

	if len(errs) > 0 {
		return commons.ValidationError(strings.Join(errs, "; "))
	}
	return nil
}
