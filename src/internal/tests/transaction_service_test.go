package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
)

func TestSubmitTransactionValidationError(t *testing.T) {
	e := newEngine()

	_, err := e.transactions.SubmitTransaction(context.Background(), models.SubmitTransactionRequest{})
	if err == nil {
		t.Fatal("expected validation error for empty submit request")
	}
	if !errors.Is(err, commons.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWithdrawalCompletesImmediatelyWithoutApprovalGate(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "1000")

	txn, err := e.submitWithdrawal(t, accountID, "300")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if txn.Status != "COMPLETED" {
		t.Fatalf("expected status COMPLETED, got %s", txn.Status)
	}
	if txn.ApprovalStatus != "NOT_REQUIRED" {
		t.Fatalf("expected approvalStatus NOT_REQUIRED, got %s", txn.ApprovalStatus)
	}

	account := e.account(t, accountID)
	if !account.TotalBalance.Equal(mustDecimal(t, "700")) {
		t.Fatalf("expected total 700, got %s", account.TotalBalance)
	}
	if !account.ReservedBalance.IsZero() {
		t.Fatalf("expected reserved 0, got %s", account.ReservedBalance)
	}
}

func TestWithdrawalStaysPendingUnderApprovalGate(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, true, 1, "alice")
	accountID := e.createAccount(t, vaultID, "1000")

	txn, err := e.submitWithdrawal(t, accountID, "300")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if txn.Status != "PENDING" || txn.ApprovalStatus != "PENDING" {
		t.Fatalf("expected PENDING/PENDING, got %s/%s", txn.Status, txn.ApprovalStatus)
	}

	account := e.account(t, accountID)
	if !account.TotalBalance.Equal(mustDecimal(t, "1000")) {
		t.Fatalf("expected total untouched at 1000, got %s", account.TotalBalance)
	}
	if !account.ReservedBalance.Equal(mustDecimal(t, "300")) {
		t.Fatalf("expected reserved 300, got %s", account.ReservedBalance)
	}
}

func TestWithdrawalInsufficientFundsLeavesNoTrace(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "1000")

	_, err := e.submitWithdrawal(t, accountID, "2000")
	if !errors.Is(err, commons.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	account := e.account(t, accountID)
	if !account.TotalBalance.Equal(mustDecimal(t, "1000")) || !account.ReservedBalance.IsZero() {
		t.Fatalf("expected account unchanged, got total %s reserved %s", account.TotalBalance, account.ReservedBalance)
	}

	_, total, err := e.transactionRepo.List(context.Background(), domain.TransactionFilter{Type: domain.TransactionTypeWithdrawal}, 1, 10)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected no withdrawal records, got %d", total)
	}
}

func TestConcurrentWithdrawalsExactlyOneWins(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, true, 1, "alice")
	accountID := e.createAccount(t, vaultID, "1000")

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.submitWithdrawal(t, accountID, "700")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var insufficient, succeeded int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, commons.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || insufficient != 1 {
		t.Fatalf("expected exactly one winner and one insufficient-funds, got %d/%d", succeeded, insufficient)
	}

	account := e.account(t, accountID)
	if !account.ReservedBalance.Equal(mustDecimal(t, "700")) {
		t.Fatalf("expected reserved 700, got %s", account.ReservedBalance)
	}
}

func TestTransferConservesTotalAcrossAccounts(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	sourceID := e.createAccount(t, vaultID, "1000")
	destinationID := e.createAccount(t, vaultID, "")

	resp, err := e.transactions.SubmitTransaction(context.Background(), models.SubmitTransactionRequest{
		Type:                 "TRANSFER",
		SourceAccountID:      sourceID,
		DestinationAccountID: destinationID,
		Amount:               "250",
		Currency:             "USD",
		RequestedBy:          "user-1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if resp.Data.Status != "COMPLETED" {
		t.Fatalf("expected COMPLETED, got %s", resp.Data.Status)
	}

	source := e.account(t, sourceID)
	destination := e.account(t, destinationID)
	if !source.TotalBalance.Equal(mustDecimal(t, "750")) {
		t.Fatalf("expected source 750, got %s", source.TotalBalance)
	}
	if !destination.TotalBalance.Equal(mustDecimal(t, "250")) {
		t.Fatalf("expected destination 250, got %s", destination.TotalBalance)
	}
	if !source.TotalBalance.Add(destination.TotalBalance).Equal(mustDecimal(t, "1000")) {
		t.Fatal("expected transfer to conserve the combined total")
	}
}

func TestTransferFeeLeavesLedger(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	sourceID := e.createAccount(t, vaultID, "1000")
	destinationID := e.createAccount(t, vaultID, "")

	_, err := e.transactions.SubmitTransaction(context.Background(), models.SubmitTransactionRequest{
		Type:                 "TRANSFER",
		SourceAccountID:      sourceID,
		DestinationAccountID: destinationID,
		Amount:               "200",
		Fee:                  "10",
		Currency:             "USD",
		RequestedBy:          "user-1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	source := e.account(t, sourceID)
	destination := e.account(t, destinationID)
	if !source.TotalBalance.Equal(mustDecimal(t, "790")) {
		t.Fatalf("expected source debited amount plus fee to 790, got %s", source.TotalBalance)
	}
	if !destination.TotalBalance.Equal(mustDecimal(t, "200")) {
		t.Fatalf("expected destination credited 200 only, got %s", destination.TotalBalance)
	}
}

func TestOppositeTransfersDoNotDeadlock(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	firstID := e.createAccount(t, vaultID, "1000")
	secondID := e.createAccount(t, vaultID, "1000")

	transfer := func(from, to string) {
		_, _ = e.transactions.SubmitTransaction(context.Background(), models.SubmitTransactionRequest{
			Type:                 "TRANSFER",
			SourceAccountID:      from,
			DestinationAccountID: to,
			Amount:               "10",
			Currency:             "USD",
			RequestedBy:          "user-1",
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			transfer(firstID, secondID)
		}()
		go func() {
			defer wg.Done()
			transfer(secondID, firstID)
		}()
	}
	wg.Wait()

	first := e.account(t, firstID)
	second := e.account(t, secondID)
	if !first.TotalBalance.Add(second.TotalBalance).Equal(mustDecimal(t, "2000")) {
		t.Fatalf("expected combined total 2000, got %s", first.TotalBalance.Add(second.TotalBalance))
	}
	if !first.ReservedBalance.IsZero() || !second.ReservedBalance.IsZero() {
		t.Fatal("expected no lingering reservations")
	}
}

func TestCancelPendingReleasesReservation(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, true, 1, "alice")
	accountID := e.createAccount(t, vaultID, "1000")

	txn, err := e.submitWithdrawal(t, accountID, "300")
	if err != nil {
		t.Fatalf("submit withdrawal: %v", err)
	}

	resp, err := e.transactions.CancelTransaction(context.Background(), models.CancelTransactionRequest{
		TransactionID: txn.ID,
		RequestedBy:   "user-1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if resp.Data.Status != "CANCELLED" {
		t.Fatalf("expected CANCELLED, got %s", resp.Data.Status)
	}

	account := e.account(t, accountID)
	if !account.TotalBalance.Equal(mustDecimal(t, "1000")) || !account.ReservedBalance.IsZero() {
		t.Fatalf("expected reservation released, got total %s reserved %s", account.TotalBalance, account.ReservedBalance)
	}
}

func TestCancelByOtherRequesterRejected(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, true, 1, "alice")
	accountID := e.createAccount(t, vaultID, "1000")

	txn, err := e.submitWithdrawal(t, accountID, "300")
	if err != nil {
		t.Fatalf("submit withdrawal: %v", err)
	}

	_, err = e.transactions.CancelTransaction(context.Background(), models.CancelTransactionRequest{
		TransactionID: txn.ID,
		RequestedBy:   "somebody-else",
	})
	if err == nil {
		t.Fatal("expected error cancelling another requester's transaction")
	}
	if got := e.transaction(t, txn.ID); got.Status != domain.TransactionStatusPending {
		t.Fatalf("expected transaction still pending, got %s", got.Status)
	}
}

func TestCancelAfterRejectionDecisionConflicts(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, true, 1, "alice")
	accountID := e.createAccount(t, vaultID, "1000")

	txn, err := e.submitWithdrawal(t, accountID, "300")
	if err != nil {
		t.Fatalf("submit withdrawal: %v", err)
	}

	// A rejection decision has landed but the failure write has not run
	// yet. A cancel arriving in that window must not steal the outcome.
	if _, transitioned, err := e.transactionRepo.SetApprovalStatus(context.Background(), txn.ID, domain.ApprovalStatusPending, domain.ApprovalStatusRejected); err != nil || !transitioned {
		t.Fatalf("mark rejected: transitioned=%v err=%v", transitioned, err)
	}

	_, err = e.transactions.CancelTransaction(context.Background(), models.CancelTransactionRequest{
		TransactionID: txn.ID,
		RequestedBy:   "user-1",
	})
	if !errors.Is(err, commons.ErrAlreadyFinalized) {
		t.Fatalf("expected already finalized, got %v", err)
	}

	failed, err := e.transactions.FailRejected(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("fail rejected: %v", err)
	}
	if failed.Status != domain.TransactionStatusFailed {
		t.Fatalf("expected FAILED, got %s", failed.Status)
	}

	account := e.account(t, accountID)
	if !account.TotalBalance.Equal(mustDecimal(t, "1000")) || !account.ReservedBalance.IsZero() {
		t.Fatalf("expected reservation released, got total %s reserved %s", account.TotalBalance, account.ReservedBalance)
	}
}

func TestCancelSystemTransactionRejected(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "")

	created, err := e.transactionRepo.Create(context.Background(), domain.VaultTransaction{
		Type:           domain.TransactionTypeDeposit,
		AccountID:      accountID,
		Amount:         mustDecimal(t, "100"),
		Currency:       "USD",
		Status:         domain.TransactionStatusPending,
		ApprovalStatus: domain.ApprovalStatusNotRequired,
		RequestedBy:    "SYSTEM",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	_, err = e.transactions.CancelTransaction(context.Background(), models.CancelTransactionRequest{
		TransactionID: created.ID,
		RequestedBy:   "SYSTEM",
	})
	if !errors.Is(err, commons.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := e.transaction(t, created.ID); got.Status != domain.TransactionStatusPending {
		t.Fatalf("expected transaction still pending, got %s", got.Status)
	}
}

func TestCancelCompletedTransactionConflicts(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "1000")

	txn, err := e.submitWithdrawal(t, accountID, "300")
	if err != nil {
		t.Fatalf("submit withdrawal: %v", err)
	}

	_, err = e.transactions.CancelTransaction(context.Background(), models.CancelTransactionRequest{
		TransactionID: txn.ID,
		RequestedBy:   "user-1",
	})
	if !errors.Is(err, commons.ErrAlreadyFinalized) {
		t.Fatalf("expected already finalized, got %v", err)
	}

	account := e.account(t, accountID)
	if !account.TotalBalance.Equal(mustDecimal(t, "700")) {
		t.Fatalf("expected completed debit to stand at 700, got %s", account.TotalBalance)
	}
}

func TestExpirePendingTransaction(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, true, 1, "alice")
	accountID := e.createAccount(t, vaultID, "1000")

	txn, err := e.submitWithdrawal(t, accountID, "300")
	if err != nil {
		t.Fatalf("submit withdrawal: %v", err)
	}

	resp, err := e.transactions.ExpireTransaction(context.Background(), models.ExpireTransactionRequest{
		TransactionID: txn.ID,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if resp.Data.Status != "CANCELLED" {
		t.Fatalf("expected CANCELLED, got %s", resp.Data.Status)
	}

	account := e.account(t, accountID)
	if !account.ReservedBalance.IsZero() {
		t.Fatalf("expected reservation released, got %s", account.ReservedBalance)
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "1000")

	txn, err := e.submitWithdrawal(t, accountID, "300")
	if err != nil {
		t.Fatalf("submit withdrawal: %v", err)
	}

	again, err := e.transactions.FinalizeApproved(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("expected nil error on repeat finalize, got %v", err)
	}
	if again.Status != domain.TransactionStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", again.Status)
	}

	account := e.account(t, accountID)
	if !account.TotalBalance.Equal(mustDecimal(t, "700")) {
		t.Fatalf("expected debit applied exactly once, got %s", account.TotalBalance)
	}
}

func TestDepositCreditsAccount(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "")

	resp, err := e.transactions.SubmitTransaction(context.Background(), models.SubmitTransactionRequest{
		Type:        "DEPOSIT",
		AccountID:   accountID,
		Amount:      "500",
		Currency:    "USD",
		RequestedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if resp.Data.Status != "COMPLETED" {
		t.Fatalf("expected COMPLETED, got %s", resp.Data.Status)
	}

	account := e.account(t, accountID)
	if !account.TotalBalance.Equal(mustDecimal(t, "500")) {
		t.Fatalf("expected total 500, got %s", account.TotalBalance)
	}
}

func TestSubmitOnFrozenAccountRejected(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "1000")

	if _, err := e.accounts.UpdateAccountStatus(context.Background(), models.UpdateAccountStatusRequest{
		AccountID: accountID,
		Status:    "FROZEN",
	}); err != nil {
		t.Fatalf("freeze account: %v", err)
	}

	_, err := e.submitWithdrawal(t, accountID, "100")
	if !errors.Is(err, commons.ErrAccountNotActive) {
		t.Fatalf("expected account not active, got %v", err)
	}
}

func TestCurrencyMismatchRejected(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "1000")

	_, err := e.transactions.SubmitTransaction(context.Background(), models.SubmitTransactionRequest{
		Type:        "WITHDRAWAL",
		AccountID:   accountID,
		Amount:      "100",
		Currency:    "EUR",
		RequestedBy: "user-1",
	})
	if err == nil {
		t.Fatal("expected error for currency mismatch")
	}
}

func TestListTransactionsFiltersAndPaginates(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "1000")

	if _, err := e.submitWithdrawal(t, accountID, "100"); err != nil {
		t.Fatalf("submit withdrawal: %v", err)
	}
	if _, err := e.submitWithdrawal(t, accountID, "50"); err != nil {
		t.Fatalf("submit withdrawal: %v", err)
	}

	resp, err := e.transactions.ListTransactions(context.Background(), models.ListTransactionsQuery{
		AccountID: accountID,
		Type:      "WITHDRAWAL",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if resp.Data.TotalItems != 2 {
		t.Fatalf("expected 2 withdrawals, got %d", resp.Data.TotalItems)
	}
	if resp.Data.Page != 1 || resp.Data.PageSize != 20 {
		t.Fatalf("expected default paging 1/20, got %d/%d", resp.Data.Page, resp.Data.PageSize)
	}

	minAmount, err := e.transactions.ListTransactions(context.Background(), models.ListTransactionsQuery{
		AccountID: accountID,
		MinAmount: "80",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	// Opening deposit of 1000 plus the 100 withdrawal clear the bar.
	if minAmount.Data.TotalItems != 2 {
		t.Fatalf("expected 2 transactions at or above 80, got %d", minAmount.Data.TotalItems)
	}
}

func TestStatusHistoryRecordsTransitions(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, false, 1)
	accountID := e.createAccount(t, vaultID, "1000")

	txn, err := e.submitWithdrawal(t, accountID, "300")
	if err != nil {
		t.Fatalf("submit withdrawal: %v", err)
	}

	history, err := e.transactionRepo.ListStatusHistory(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("list status history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected pending then completed entries, got %d", len(history))
	}
	if history[0].Status != domain.TransactionStatusPending || history[1].Status != domain.TransactionStatusCompleted {
		t.Fatalf("unexpected history order: %s then %s", history[0].Status, history[1].Status)
	}
}
