package services_test

import (
	"context"
	"testing"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
)

func TestCreateAccountValidationError(t *testing.T) {
	e := newEngine()

	_, err := e.accounts.CreateAccount(context.Background(), models.CreateAccountRequest{})
	if err == nil {
		t.Fatal("expected validation error for empty create account request")
	}
}

func TestCreateAccountVaultNotFound(t *testing.T) {
	e := newEngine()

	_, err := e.accounts.CreateAccount(context.Background(), models.CreateAccountRequest{
		VaultID:     "missing",
		Name:        "Main",
		Currency:    "USD",
		AccountType: "TRADING",
	})
	if err == nil {
		t.Fatal("expected error for unknown vault")
	}
}

func TestCreateAccountBooksOpeningDeposit(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, true, 1, "alice")
	accountID := e.createAccount(t, vaultID, "1000")

	account := e.account(t, accountID)
	if !account.TotalBalance.Equal(mustDecimal(t, "1000")) {
		t.Fatalf("expected opening balance 1000, got %s", account.TotalBalance)
	}
	if !account.ReservedBalance.IsZero() {
		t.Fatalf("expected reserved 0, got %s", account.ReservedBalance)
	}

	// Even under an approval gate the opening deposit completes; it is
	// system-originated and skips the quorum.
	items, total, err := e.transactionRepo.List(context.Background(), domain.TransactionFilter{
		AccountID: accountID,
		Type:      domain.TransactionTypeDeposit,
	}, 1, 10)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected one opening deposit, got %d", total)
	}
	if items[0].Status != domain.TransactionStatusCompleted {
		t.Fatalf("expected COMPLETED opening deposit, got %s", items[0].Status)
	}
	if items[0].RequestedBy != "SYSTEM" {
		t.Fatalf("expected SYSTEM requester, got %s", items[0].RequestedBy)
	}
}

func TestCreateAccountStartsEmptyWithoutInitialBalance(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "")

	account := e.account(t, accountID)
	if !account.TotalBalance.IsZero() {
		t.Fatalf("expected zero opening balance, got %s", account.TotalBalance)
	}
	if account.Status != domain.AccountStatusActive {
		t.Fatalf("expected ACTIVE, got %s", account.Status)
	}
}

func TestListAccountsByVault(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	e.createAccount(t, vaultID, "100")
	e.createAccount(t, vaultID, "200")

	resp, err := e.accounts.ListAccounts(context.Background(), vaultID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(*resp.Data) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(*resp.Data))
	}
}

func TestCloseAccountWithFundsRejected(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "1000")

	_, err := e.accounts.UpdateAccountStatus(context.Background(), models.UpdateAccountStatusRequest{
		AccountID: accountID,
		Status:    "CLOSED",
	})
	if err == nil {
		t.Fatal("expected error closing an account that still holds funds")
	}
	if account := e.account(t, accountID); account.Status != domain.AccountStatusActive {
		t.Fatalf("expected account still ACTIVE, got %s", account.Status)
	}
}

func TestCloseAccountWithReservationRejected(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, true, 1, "alice")
	accountID := e.createAccount(t, vaultID, "1000")

	if _, err := e.submitWithdrawal(t, accountID, "1000"); err != nil {
		t.Fatalf("submit withdrawal: %v", err)
	}

	_, err := e.accounts.UpdateAccountStatus(context.Background(), models.UpdateAccountStatusRequest{
		AccountID: accountID,
		Status:    "CLOSED",
	})
	if err == nil {
		t.Fatal("expected error closing an account with a pending reservation")
	}
}

func TestCloseEmptyAccountSucceeds(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "")

	resp, err := e.accounts.UpdateAccountStatus(context.Background(), models.UpdateAccountStatusRequest{
		AccountID: accountID,
		Status:    "CLOSED",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if resp.Data.Status != "CLOSED" {
		t.Fatalf("expected CLOSED, got %s", resp.Data.Status)
	}
}

func TestClosedAccountCannotReopen(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "")

	if _, err := e.accounts.UpdateAccountStatus(context.Background(), models.UpdateAccountStatusRequest{
		AccountID: accountID,
		Status:    "CLOSED",
	}); err != nil {
		t.Fatalf("close account: %v", err)
	}

	_, err := e.accounts.UpdateAccountStatus(context.Background(), models.UpdateAccountStatusRequest{
		AccountID: accountID,
		Status:    "ACTIVE",
	})
	if err == nil {
		t.Fatal("expected error reopening a closed account")
	}
}

func TestFreezeAndUnfreezeAccount(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "500")

	if _, err := e.accounts.UpdateAccountStatus(context.Background(), models.UpdateAccountStatusRequest{
		AccountID: accountID,
		Status:    "FROZEN",
	}); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if account := e.account(t, accountID); account.Status != domain.AccountStatusFrozen {
		t.Fatalf("expected FROZEN, got %s", account.Status)
	}

	if _, err := e.accounts.UpdateAccountStatus(context.Background(), models.UpdateAccountStatusRequest{
		AccountID: accountID,
		Status:    "ACTIVE",
	}); err != nil {
		t.Fatalf("unfreeze: %v", err)
	}
	if account := e.account(t, accountID); account.Status != domain.AccountStatusActive {
		t.Fatalf("expected ACTIVE, got %s", account.Status)
	}
}

func TestGetAccountIncludesAvailableBalance(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, true, 1, "alice")
	accountID := e.createAccount(t, vaultID, "1000")

	if _, err := e.submitWithdrawal(t, accountID, "400"); err != nil {
		t.Fatalf("submit withdrawal: %v", err)
	}

	resp, err := e.accounts.GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if resp.Data.TotalBalance != "1000.00" {
		t.Fatalf("expected total 1000.00, got %s", resp.Data.TotalBalance)
	}
	if resp.Data.ReservedBalance != "400.00" {
		t.Fatalf("expected reserved 400.00, got %s", resp.Data.ReservedBalance)
	}
	if resp.Data.AvailableBalance != "600.00" {
		t.Fatalf("expected available 600.00, got %s", resp.Data.AvailableBalance)
	}
}
