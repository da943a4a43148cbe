package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/repository/memory"
	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
)

func newFinalizeFixture(t *testing.T) (*memory.AccountRepository, *memory.TransactionRepository, domain.VaultAccount, domain.VaultTransaction) {
	t.Helper()

	accounts := memory.NewAccountRepository()
	transactions := memory.NewTransactionRepository(accounts)

	account, err := accounts.Create(context.Background(), domain.VaultAccount{
		VaultID:         "vault-1",
		Name:            "Main",
		AccountType:     domain.AccountTypeTrading,
		Currency:        "USD",
		TotalBalance:    decimal.NewFromInt(100),
		ReservedBalance: decimal.NewFromInt(30),
		Status:          domain.AccountStatusActive,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	txn, err := transactions.Create(context.Background(), domain.VaultTransaction{
		Type:           domain.TransactionTypeWithdrawal,
		AccountID:      account.ID,
		Amount:         decimal.NewFromInt(30),
		Fee:            decimal.Zero,
		Currency:       "USD",
		Status:         domain.TransactionStatusPending,
		ApprovalStatus: domain.ApprovalStatusPending,
		RequestedBy:    "user-1",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	return accounts, transactions, account, txn
}

func TestFinalizeWithMutationAppliesEffectWithStatus(t *testing.T) {
	accounts, transactions, account, txn := newFinalizeFixture(t)

	updated, err := transactions.FinalizeWithMutation(context.Background(), txn.ID, domain.TransactionStatusCompleted, account.ID, func(a *domain.VaultAccount) error {
		a.TotalBalance = a.TotalBalance.Sub(decimal.NewFromInt(30))
		a.ReservedBalance = a.ReservedBalance.Sub(decimal.NewFromInt(30))
		return nil
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if updated.Status != domain.TransactionStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", updated.Status)
	}
	if updated.CompletedAt == nil {
		t.Fatal("expected completedAt to be stamped")
	}

	got, err := accounts.GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("fetch account: %v", err)
	}
	if !got.TotalBalance.Equal(decimal.NewFromInt(70)) || !got.ReservedBalance.IsZero() {
		t.Fatalf("expected total 70 reserved 0, got %s/%s", got.TotalBalance, got.ReservedBalance)
	}

	history, err := transactions.ListStatusHistory(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 2 || history[1].Status != domain.TransactionStatusCompleted {
		t.Fatalf("expected completed entry appended, got %v", history)
	}
}

func TestFinalizeWithMutationSkipsEffectOnRepeat(t *testing.T) {
	accounts, transactions, account, txn := newFinalizeFixture(t)

	debit := func(a *domain.VaultAccount) error {
		a.TotalBalance = a.TotalBalance.Sub(decimal.NewFromInt(30))
		a.ReservedBalance = a.ReservedBalance.Sub(decimal.NewFromInt(30))
		return nil
	}

	if _, err := transactions.FinalizeWithMutation(context.Background(), txn.ID, domain.TransactionStatusCompleted, account.ID, debit); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	again, err := transactions.FinalizeWithMutation(context.Background(), txn.ID, domain.TransactionStatusCompleted, account.ID, func(a *domain.VaultAccount) error {
		t.Fatal("effect must not run when the status write is skipped")
		return nil
	})
	if err != nil {
		t.Fatalf("repeat finalize: %v", err)
	}
	if again.Status != domain.TransactionStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", again.Status)
	}

	got, err := accounts.GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("fetch account: %v", err)
	}
	if !got.TotalBalance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected debit applied exactly once, got %s", got.TotalBalance)
	}
}

func TestFinalizeWithMutationRefusesOverwritingTerminal(t *testing.T) {
	_, transactions, account, txn := newFinalizeFixture(t)

	if _, _, err := transactions.UpdateStatus(context.Background(), txn.ID, domain.TransactionStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := transactions.FinalizeWithMutation(context.Background(), txn.ID, domain.TransactionStatusCompleted, account.ID, func(a *domain.VaultAccount) error {
		t.Fatal("effect must not run against a terminal transaction")
		return nil
	})
	if !errors.Is(err, commons.ErrAlreadyFinalized) {
		t.Fatalf("expected already finalized, got %v", err)
	}
}

func TestFinalizeWithMutationErrorDiscardsBoth(t *testing.T) {
	accounts, transactions, account, txn := newFinalizeFixture(t)

	boom := errors.New("ineligible")
	_, err := transactions.FinalizeWithMutation(context.Background(), txn.ID, domain.TransactionStatusCompleted, account.ID, func(a *domain.VaultAccount) error {
		a.TotalBalance = decimal.Zero
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected effect error surfaced, got %v", err)
	}

	got, err := transactions.GetByID(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("fetch transaction: %v", err)
	}
	if got.Status != domain.TransactionStatusPending {
		t.Fatalf("expected status untouched, got %s", got.Status)
	}

	history, err := transactions.ListStatusHistory(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected no new history entry, got %d", len(history))
	}

	balance, err := accounts.GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("fetch account: %v", err)
	}
	if !balance.TotalBalance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance untouched, got %s", balance.TotalBalance)
	}
}

func TestFinalizeWithPairMutationMovesBothAccounts(t *testing.T) {
	accounts, transactions, source, txn := newFinalizeFixture(t)

	destination, err := accounts.Create(context.Background(), domain.VaultAccount{
		VaultID:      "vault-1",
		Name:         "Settlement",
		AccountType:  domain.AccountTypeSettlement,
		Currency:     "USD",
		TotalBalance: decimal.Zero,
		Status:       domain.AccountStatusActive,
	})
	if err != nil {
		t.Fatalf("create destination: %v", err)
	}

	if _, err := transactions.FinalizeWithPairMutation(context.Background(), txn.ID, domain.TransactionStatusCompleted, source.ID, destination.ID, func(first *domain.VaultAccount, second *domain.VaultAccount) error {
		first.TotalBalance = first.TotalBalance.Sub(decimal.NewFromInt(30))
		first.ReservedBalance = first.ReservedBalance.Sub(decimal.NewFromInt(30))
		second.TotalBalance = second.TotalBalance.Add(decimal.NewFromInt(30))
		return nil
	}); err != nil {
		t.Fatalf("finalize pair: %v", err)
	}

	gotSource, err := accounts.GetByID(context.Background(), source.ID)
	if err != nil {
		t.Fatalf("fetch source: %v", err)
	}
	gotDestination, err := accounts.GetByID(context.Background(), destination.ID)
	if err != nil {
		t.Fatalf("fetch destination: %v", err)
	}
	if !gotSource.TotalBalance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected source 70, got %s", gotSource.TotalBalance)
	}
	if !gotDestination.TotalBalance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected destination 30, got %s", gotDestination.TotalBalance)
	}
}
