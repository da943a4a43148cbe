package models

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
)

type SubmitTransactionRequest struct {
	Type                 string `json:"type"`
	AccountID            string `json:"accountId"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	SourceAccountID      string `json:"sourceAccountId,omitempty"`
	DestinationAccountID string `json:"destinationAccountId,omitempty"`
	ExternalSource       string `json:"externalSource,omitempty"`
	ExternalDestination  string `json:"externalDestination,omitempty"`
	Fee                  string `json:"fee,omitempty"`
	Narration            string `json:"narration,omitempty"`
	RequestedBy          string `json:"requestedBy"`
}

func (r SubmitTransactionRequest) Validate() error {
	var errs []string

	txType := strings.ToUpper(strings.TrimSpace(r.Type))
	switch txType {
	case "DEPOSIT", "WITHDRAWAL", "TRANSFER", "FEE", "INTEREST":
	default:
		errs = append(errs, "type must be one of DEPOSIT, WITHDRAWAL, TRANSFER, FEE, INTEREST")
	}

	amount := strings.TrimSpace(r.Amount)
	if amount == "" {
		errs = append(errs, "amount is required")
	} else {
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			errs = append(errs, "amount must be numeric")
		} else if parsed.LessThanOrEqual(decimal.Zero) {
			errs = append(errs, "amount must be greater than zero")
		}
	}

	ccy := strings.ToUpper(strings.TrimSpace(r.Currency))
	if ccy == "" {
		errs = append(errs, "currency is required")
	} else if !isSupportedCurrency(ccy) {
		errs = append(errs, "currency must be one of USD, EUR, GBP, USDT")
	}

	if strings.TrimSpace(r.Fee) != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(r.Fee))
		if err != nil {
			errs = append(errs, "fee must be numeric")
		} else if parsed.IsNegative() {
			errs = append(errs, "fee cannot be negative")
		} else if txType != "WITHDRAWAL" && txType != "TRANSFER" && !parsed.IsZero() {
			errs = append(errs, "fee is only supported on WITHDRAWAL and TRANSFER")
		}
	}

	sourceAccountID := strings.TrimSpace(r.SourceAccountID)
	destinationAccountID := strings.TrimSpace(r.DestinationAccountID)
	externalSource := strings.TrimSpace(r.ExternalSource)
	externalDestination := strings.TrimSpace(r.ExternalDestination)

	switch txType {
	case "TRANSFER":
		if sourceAccountID == "" || destinationAccountID == "" {
			errs = append(errs, "sourceAccountId and destinationAccountId are required for transfers")
		}
		if sourceAccountID != "" && sourceAccountID == destinationAccountID {
			errs = append(errs, "sourceAccountId and destinationAccountId cannot be the same")
		}
		if externalSource != "" || externalDestination != "" {
			errs = append(errs, "transfers cannot carry external counterparties")
		}
		accountID := strings.TrimSpace(r.AccountID)
		if accountID != "" && accountID != sourceAccountID {
			errs = append(errs, "accountId must match sourceAccountId for transfers")
		}
	case "DEPOSIT", "INTEREST":
		if strings.TrimSpace(r.AccountID) == "" {
			errs = append(errs, "accountId is required")
		}
		if sourceAccountID != "" || destinationAccountID != "" {
			errs = append(errs, "sourceAccountId and destinationAccountId are only supported on transfers")
		}
		if externalDestination != "" {
			errs = append(errs, "externalDestination is not supported on credits")
		}
	case "WITHDRAWAL", "FEE":
		if strings.TrimSpace(r.AccountID) == "" {
			errs = append(errs, "accountId is required")
		}
		if sourceAccountID != "" || destinationAccountID != "" {
			errs = append(errs, "sourceAccountId and destinationAccountId are only supported on transfers")
		}
		if externalSource != "" {
			errs = append(errs, "externalSource is not supported on debits")
		}
	}

	if strings.TrimSpace(r.RequestedBy) == "" {
		errs = append(errs, "requestedBy is required")
	}

	if len(errs) > 0 {
		return commons.ValidationError(strings.Join(errs, "; "))
	}
	return nil
}

type TransactionResponse struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	AccountID            string `json:"accountId"`
	SourceAccountID      string `json:"sourceAccountId,omitempty"`
	DestinationAccountID string `json:"destinationAccountId,omitempty"`
	ExternalSource       string `json:"externalSource,omitempty"`
	ExternalDestination  string `json:"externalDestination,omitempty"`
	Amount               string `json:"amount"`
	Fee                  string `json:"fee"`
	Currency             string `json:"currency"`
	Narration            string `json:"narration,omitempty"`
	Status               string `json:"status"`
	ApprovalStatus       string `json:"approvalStatus"`
	RequestedBy          string `json:"requestedBy"`
	CreatedAt            string `json:"createdAt"`
	UpdatedAt            string `json:"updatedAt"`
	CompletedAt          string `json:"completedAt,omitempty"`
}

type ListTransactionsQuery struct {
	AccountID      string
	Type           string
	Status         string
	ApprovalStatus string
	Currency       string
	MinAmount      string
	Page           int
	PageSize       int
}

func (q ListTransactionsQuery) Validate() error {
	var errs []string

	if q.Type != "" {
		switch strings.ToUpper(strings.TrimSpace(q.Type)) {
		case "DEPOSIT", "WITHDRAWAL", "TRANSFER", "FEE", "INTEREST":
		default:
			errs = append(errs, "type filter is not a supported transaction type")
		}
	}
	if q.Status != "" {
		switch strings.ToUpper(strings.TrimSpace(q.Status)) {
		case "PENDING", "COMPLETED", "FAILED", "CANCELLED":
		default:
			errs = append(errs, "status filter is not a supported transaction status")
		}
	}
	if q.ApprovalStatus != "" {
		switch strings.ToUpper(strings.TrimSpace(q.ApprovalStatus)) {
		case "NOT_REQUIRED", "PENDING", "APPROVED", "REJECTED":
		default:
			errs = append(errs, "approvalStatus filter is not a supported approval status")
		}
	}
	if strings.TrimSpace(q.MinAmount) != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(q.MinAmount))
		if err != nil {
			errs = append(errs, "minAmount must be numeric")
		} else if parsed.IsNegative() {
			errs = append(errs, "minAmount cannot be negative")
		}
	}
	if q.Page < 0 {
		errs = append(errs, "page cannot be negative")
	}
	if q.PageSize < 0 || q.PageSize > 100 {
		errs = append(errs, "pageSize must be between 1 and 100")
	}

	if len(errs) > 0 {
		return commons.ValidationError(strings.Join(errs, "; "))
	}
	return nil
}

type CancelTransactionRequest struct {
	TransactionID string `json:"transactionId"`
	RequestedBy   string `json:"requestedBy"`
}

func (r CancelTransactionRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.TransactionID) == "" {
		errs = append(errs, "transactionId is required")
	}
	if strings.TrimSpace(r.RequestedBy) == "" {
		errs = append(errs, "requestedBy is required")
	}

	if len(errs) > 0 {
		return commons.ValidationError(strings.Join(errs, "; "))
	}
	return nil
}

type ExpireTransactionRequest struct {
	TransactionID string `json:"transactionId"`
}

func (r ExpireTransactionRequest) Validate() error {
	if strings.TrimSpace(r.TransactionID) == "" {
		return commons.ValidationError("transactionId is required")
	}
	return nil
}
