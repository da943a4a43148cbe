package service_interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
)

type TransactionService interface {
	SubmitTransaction(ctx context.Context, req models.SubmitTransactionRequest) (commons.Response[models.TransactionResponse], error)
	ListTransactions(ctx context.Context, query models.ListTransactionsQuery) (commons.Response[commons.Page[models.TransactionResponse]], error)
	CancelTransaction(ctx context.Context, req models.CancelTransactionRequest) (commons.Response[models.TransactionResponse], error)
	ExpireTransaction(ctx context.Context, req models.ExpireTransactionRequest) (commons.Response[models.TransactionResponse], error)

	// RecordOpeningDeposit and the finalization hooks are engine-internal
	// entry points used by the account and approval services.
	RecordOpeningDeposit(ctx context.Context, accountID string, amount decimal.Decimal) (domain.VaultTransaction, error)
	FinalizeApproved(ctx context.Context, transactionID string) (domain.VaultTransaction, error)
	FailRejected(ctx context.Context, transactionID string) (domain.VaultTransaction, error)
}
