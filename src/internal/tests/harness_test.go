package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/repository/memory"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
	"github.com/api-sage/vault-ledger-engine/src/internal/notifications"
	"github.com/api-sage/vault-ledger-engine/src/internal/usecase/services"
)

// engine wires the full service stack onto in-memory storage for tests.
type engine struct {
	vaultRepo       *memory.VaultRepository
	approverRepo    *memory.VaultApproverRepository
	accountRepo     *memory.AccountRepository
	transactionRepo *memory.TransactionRepository
	approvalRepo    *memory.ApprovalRepository

	vaults       *services.VaultService
	accounts     *services.AccountService
	transactions *services.TransactionService
	approvals    *services.ApprovalService
}

func newEngine() *engine {
	vaultRepo := memory.NewVaultRepository()
	approverRepo := memory.NewVaultApproverRepository()
	accountRepo := memory.NewAccountRepository()
	transactionRepo := memory.NewTransactionRepository(accountRepo)
	approvalRepo := memory.NewApprovalRepository()

	transactionService := services.NewTransactionService(transactionRepo, accountRepo, vaultRepo, notifications.NewLogNotifier())

	return &engine{
		vaultRepo:       vaultRepo,
		approverRepo:    approverRepo,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		approvalRepo:    approvalRepo,
		vaults:          services.NewVaultService(vaultRepo, approverRepo, accountRepo),
		accounts:        services.NewAccountService(accountRepo, vaultRepo, transactionService),
		transactions:    transactionService,
		approvals:       services.NewApprovalService(approvalRepo, approverRepo, transactionRepo, accountRepo, vaultRepo, transactionService),
	}
}

func (e *engine) createVault(t *testing.T, requiresApproval bool, threshold int, approverIDs ...string) string {
	t.Helper()

	req := models.CreateVaultRequest{
		OwnerID:           "owner-1",
		Name:              "Treasury",
		RequiresApproval:  requiresApproval,
		ApprovalThreshold: threshold,
	}
	for _, id := range approverIDs {
		req.Approvers = append(req.Approvers, models.VaultApproverInput{ApproverID: id, Pin: testPin})
	}

	resp, err := e.vaults.CreateVault(context.Background(), req)
	if err != nil {
		t.Fatalf("create vault: %v", err)
	}
	return resp.Data.ID
}

func (e *engine) createAccount(t *testing.T, vaultID string, initialBalance string) string {
	t.Helper()

	resp, err := e.accounts.CreateAccount(context.Background(), models.CreateAccountRequest{
		VaultID:        vaultID,
		Name:           "Main",
		Currency:       "USD",
		AccountType:    "TRADING",
		InitialBalance: initialBalance,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return resp.Data.ID
}

func (e *engine) account(t *testing.T, accountID string) domain.VaultAccount {
	t.Helper()

	account, err := e.accountRepo.GetByID(context.Background(), accountID)
	if err != nil {
		t.Fatalf("fetch account %s: %v", accountID, err)
	}
	return account
}

func (e *engine) transaction(t *testing.T, transactionID string) domain.VaultTransaction {
	t.Helper()

	txn, err := e.transactionRepo.GetByID(context.Background(), transactionID)
	if err != nil {
		t.Fatalf("fetch transaction %s: %v", transactionID, err)
	}
	return txn
}

func (e *engine) submitWithdrawal(t *testing.T, accountID string, amount string) (models.TransactionResponse, error) {
	t.Helper()

	resp, err := e.transactions.SubmitTransaction(context.Background(), models.SubmitTransactionRequest{
		Type:        "WITHDRAWAL",
		AccountID:   accountID,
		Amount:      amount,
		Currency:    "USD",
		RequestedBy: "user-1",
	})
	if err != nil {
		return models.TransactionResponse{}, err
	}
	return *resp.Data, nil
}

const testPin = "123456"

func mustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()

	parsed, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return parsed
}
