package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
	"github.com/api-sage/vault-ledger-engine/src/internal/ledger"
	"github.com/api-sage/vault-ledger-engine/src/internal/logger"
	"github.com/api-sage/vault-ledger-engine/src/internal/notifications"
)

// systemRequester marks engine-originated transactions such as the
// opening deposit recorded by account creation.
const systemRequester = "SYSTEM"

type TransactionService struct {
	transactionRepo domain.TransactionRepository
	accountRepo     domain.AccountRepository
	vaultRepo       domain.VaultRepository
	notifier        notifications.Notifier

	// txLocks serializes state-machine transitions per transaction so a
	// concurrent cancel and finalize cannot interleave balance effects.
	txLocks sync.Map
}

func NewTransactionService(
	transactionRepo domain.TransactionRepository,
	accountRepo domain.AccountRepository,
	vaultRepo domain.VaultRepository,
	notifier notifications.Notifier,
) *TransactionService {
	return &TransactionService{
		transactionRepo: transactionRepo,
		accountRepo:     accountRepo,
		vaultRepo:       vaultRepo,
		notifier:        notifier,
	}
}

func (s *TransactionService) SubmitTransaction(ctx context.Context, req models.SubmitTransactionRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("transaction service submit request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("transaction service submit validation failed", err, nil)
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	txType := domain.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type)))
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	amount, _ := decimal.NewFromString(strings.TrimSpace(req.Amount))
	fee := decimal.Zero
	if trimmed := strings.TrimSpace(req.Fee); trimmed != "" {
		fee, _ = decimal.NewFromString(trimmed)
	}

	accountID := strings.TrimSpace(req.AccountID)
	sourceAccountID := strings.TrimSpace(req.SourceAccountID)
	destinationAccountID := strings.TrimSpace(req.DestinationAccountID)
	if txType == domain.TransactionTypeTransfer {
		accountID = sourceAccountID
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[models.TransactionResponse]("Account not found"), err
		}
		return commons.ErrorResponse[models.TransactionResponse]("failed to submit transaction", "Unable to submit transaction right now"), err
	}

	if account.Status != domain.AccountStatusActive {
		err := commons.ErrAccountNotActive
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}
	if !strings.EqualFold(account.Currency, currency) {
		err := commons.ValidationError(fmt.Sprintf("currency does not match account currency %s", account.Currency))
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	if txType == domain.TransactionTypeTransfer {
		destination, err := s.accountRepo.GetByID(ctx, destinationAccountID)
		if err != nil {
			if errors.Is(err, commons.ErrRecordNotFound) {
				return commons.ErrorResponse[models.TransactionResponse]("Destination account not found"), err
			}
			return commons.ErrorResponse[models.TransactionResponse]("failed to submit transaction", "Unable to submit transaction right now"), err
		}
		if destination.Status != domain.AccountStatusActive {
			err := commons.ValidationError("destination account is not active")
			return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
		}
		if !strings.EqualFold(destination.Currency, currency) {
			err := commons.ValidationError(fmt.Sprintf("destination currency does not match %s", currency))
			return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
		}
	}

	vault, err := s.vaultRepo.GetByID(ctx, account.VaultID)
	if err != nil {
		logger.Error("transaction service submit vault lookup failed", err, logger.Fields{
			"vaultId": account.VaultID,
		})
		return commons.ErrorResponse[models.TransactionResponse]("failed to submit transaction", "Unable to submit transaction right now"), err
	}

	record := domain.VaultTransaction{
		Type:           txType,
		AccountID:      accountID,
		Amount:         amount,
		Fee:            fee,
		Currency:       account.Currency,
		Status:         domain.TransactionStatusPending,
		ApprovalStatus: domain.ApprovalStatusNotRequired,
		RequestedBy:    strings.TrimSpace(req.RequestedBy),
	}
	if vault.RequiresApproval {
		record.ApprovalStatus = domain.ApprovalStatusPending
	}
	if txType == domain.TransactionTypeTransfer {
		record.SourceAccountID = optionalString(sourceAccountID)
		record.DestinationAccountID = optionalString(destinationAccountID)
	}
	record.ExternalSource = optionalString(strings.TrimSpace(req.ExternalSource))
	record.ExternalDestination = optionalString(strings.TrimSpace(req.ExternalDestination))
	record.Narration = optionalString(strings.TrimSpace(req.Narration))

	// Debit types lock funds up front so concurrently pending
	// transactions cannot spend the same balance twice.
	if txType.IsDebit() {
		hold := record.HoldAmount()
		if _, err := s.accountRepo.Mutate(ctx, accountID, func(a *domain.VaultAccount) error {
			if a.Status != domain.AccountStatusActive {
				return commons.ErrAccountNotActive
			}
			return ledger.Reserve(a, hold)
		}); err != nil {
			if errors.Is(err, commons.ErrInsufficientFunds) {
				return commons.ErrorResponse[models.TransactionResponse]("Insufficient funds", err.Error()), err
			}
			if errors.Is(err, commons.ErrAccountNotActive) {
				return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
			}
			logger.Error("transaction service reserve failed", err, logger.Fields{
				"accountId": accountID,
			})
			return commons.ErrorResponse[models.TransactionResponse]("failed to submit transaction", "Unable to submit transaction right now"), err
		}
	}

	created, err := s.transactionRepo.Create(ctx, record)
	if err != nil {
		if txType.IsDebit() {
			s.releaseHold(ctx, record.AccountID, record.HoldAmount())
		}
		logger.Error("transaction service create record failed", err, logger.Fields{
			"accountId": accountID,
			"type":      txType,
		})
		return commons.ErrorResponse[models.TransactionResponse]("failed to submit transaction", "Unable to submit transaction right now"), err
	}

	s.emit(ctx, created)

	if created.ApprovalStatus == domain.ApprovalStatusNotRequired {
		finalized, err := s.FinalizeApproved(ctx, created.ID)
		if err != nil {
			logger.Error("transaction service immediate finalize failed", err, logger.Fields{
				"transactionId": created.ID,
			})
			return commons.ErrorResponse[models.TransactionResponse]("failed to submit transaction", "Unable to finalize transaction right now"), err
		}
		created = finalized
	}

	logger.Info("transaction service submit success", logger.Fields{
		"transactionId":  created.ID,
		"status":         created.Status,
		"approvalStatus": created.ApprovalStatus,
	})

	return commons.SuccessResponse("transaction submitted", mapTransactionToResponse(created)), nil
}

// RecordOpeningDeposit books the initial balance of a freshly created
// account as a completed deposit transaction. It is system-originated
// and bypasses the vault approval gate; a new vault could otherwise
// never be funded.
func (s *TransactionService) RecordOpeningDeposit(ctx context.Context, accountID string, amount decimal.Decimal) (domain.VaultTransaction, error) {
	narration := "Opening balance"
	record := domain.VaultTransaction{
		Type:           domain.TransactionTypeDeposit,
		AccountID:      accountID,
		Amount:         amount,
		Fee:            decimal.Zero,
		Status:         domain.TransactionStatusPending,
		ApprovalStatus: domain.ApprovalStatusNotRequired,
		RequestedBy:    systemRequester,
		Narration:      &narration,
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return domain.VaultTransaction{}, err
	}
	record.Currency = account.Currency

	created, err := s.transactionRepo.Create(ctx, record)
	if err != nil {
		return domain.VaultTransaction{}, fmt.Errorf("record opening deposit: %w", err)
	}

	return s.FinalizeApproved(ctx, created.ID)
}

// FinalizeApproved applies the balance effect of a transaction whose
// approval gate is satisfied and moves it to a terminal state. The
// effect and the terminal status are written in one atomic repository
// scope so a retry can never re-apply the effect. Finalizing an
// already-terminal transaction returns it unchanged.
func (s *TransactionService) FinalizeApproved(ctx context.Context, transactionID string) (domain.VaultTransaction, error) {
	unlock := s.lockTransaction(transactionID)
	defer unlock()

	txn, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return domain.VaultTransaction{}, err
	}
	if txn.Status.IsTerminal() {
		return txn, nil
	}

	var updated domain.VaultTransaction
	switch txn.Type {
	case domain.TransactionTypeDeposit, domain.TransactionTypeInterest:
		updated, err = s.transactionRepo.FinalizeWithMutation(ctx, txn.ID, domain.TransactionStatusCompleted, txn.AccountID, func(a *domain.VaultAccount) error {
			if a.Status != domain.AccountStatusActive {
				return commons.ErrAccountNotActive
			}
			return ledger.Credit(a, txn.Amount)
		})
		if err != nil {
			if !errors.Is(err, commons.ErrAccountNotActive) && !errors.Is(err, commons.ErrRecordNotFound) {
				return domain.VaultTransaction{}, err
			}
			// No reservation to unwind on credits.
			updated, _, err = s.transactionRepo.UpdateStatus(ctx, txn.ID, domain.TransactionStatusFailed)
			if err != nil {
				return domain.VaultTransaction{}, err
			}
		}

	case domain.TransactionTypeWithdrawal, domain.TransactionTypeFee:
		hold := txn.HoldAmount()
		updated, err = s.transactionRepo.FinalizeWithMutation(ctx, txn.ID, domain.TransactionStatusCompleted, txn.AccountID, func(a *domain.VaultAccount) error {
			if a.Status != domain.AccountStatusActive {
				return commons.ErrAccountNotActive
			}
			return ledger.CommitReservation(a, hold)
		})
		if err != nil {
			if !errors.Is(err, commons.ErrAccountNotActive) {
				return domain.VaultTransaction{}, err
			}
			updated, err = s.transactionRepo.FinalizeWithMutation(ctx, txn.ID, domain.TransactionStatusFailed, txn.AccountID, func(a *domain.VaultAccount) error {
				return ledger.ReleaseReservation(a, hold)
			})
			if err != nil {
				return domain.VaultTransaction{}, err
			}
		}

	case domain.TransactionTypeTransfer:
		updated, err = s.finalizeTransfer(ctx, txn)
		if err != nil {
			return domain.VaultTransaction{}, err
		}

	default:
		return domain.VaultTransaction{}, fmt.Errorf("unsupported transaction type %q", txn.Type)
	}

	s.emit(ctx, updated)
	return updated, nil
}

// finalizeTransfer commits the source reservation and credits the
// destination in the same scope as the terminal status. If either side
// is no longer eligible the reservation is released instead, never
// leaving the transfer half-applied.
func (s *TransactionService) finalizeTransfer(ctx context.Context, txn domain.VaultTransaction) (domain.VaultTransaction, error) {
	if txn.SourceAccountID == nil || txn.DestinationAccountID == nil {
		return domain.VaultTransaction{}, fmt.Errorf("transfer %s is missing source or destination", txn.ID)
	}

	hold := txn.HoldAmount()
	updated, err := s.transactionRepo.FinalizeWithPairMutation(ctx, txn.ID, domain.TransactionStatusCompleted, *txn.SourceAccountID, *txn.DestinationAccountID, func(source *domain.VaultAccount, destination *domain.VaultAccount) error {
		if source.Status != domain.AccountStatusActive || destination.Status != domain.AccountStatusActive {
			return commons.ErrAccountNotActive
		}
		if err := ledger.CommitReservation(source, hold); err != nil {
			return err
		}
		return ledger.Credit(destination, txn.Amount)
	})
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, commons.ErrAccountNotActive) && !errors.Is(err, commons.ErrRecordNotFound) {
		return domain.VaultTransaction{}, err
	}

	return s.transactionRepo.FinalizeWithMutation(ctx, txn.ID, domain.TransactionStatusFailed, *txn.SourceAccountID, func(a *domain.VaultAccount) error {
		return ledger.ReleaseReservation(a, hold)
	})
}

// FailRejected releases any reservation and marks the transaction
// failed after an approval rejection.
func (s *TransactionService) FailRejected(ctx context.Context, transactionID string) (domain.VaultTransaction, error) {
	return s.terminateWithRelease(ctx, transactionID, domain.TransactionStatusFailed)
}

func (s *TransactionService) CancelTransaction(ctx context.Context, req models.CancelTransactionRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("transaction service cancel request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	transactionID := strings.TrimSpace(req.TransactionID)
	txn, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[models.TransactionResponse]("Transaction not found"), err
		}
		return commons.ErrorResponse[models.TransactionResponse]("failed to cancel transaction", "Unable to cancel transaction right now"), err
	}

	if txn.RequestedBy == systemRequester {
		err := commons.ValidationError("system transactions cannot be cancelled")
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}
	if txn.RequestedBy != strings.TrimSpace(req.RequestedBy) {
		err := commons.ValidationError("only the requester can cancel a pending transaction")
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	cancelled, err := s.terminateWithRelease(ctx, transactionID, domain.TransactionStatusCancelled)
	if err != nil {
		if errors.Is(err, commons.ErrAlreadyFinalized) {
			return commons.ErrorResponse[models.TransactionResponse]("Transaction already finalized", err.Error()), err
		}
		return commons.ErrorResponse[models.TransactionResponse]("failed to cancel transaction", "Unable to cancel transaction right now"), err
	}

	return commons.SuccessResponse("transaction cancelled", mapTransactionToResponse(cancelled)), nil
}

// ExpireTransaction is the hook an external scheduler calls to force a
// pending transaction past its deadline. The engine runs no clock of
// its own.
func (s *TransactionService) ExpireTransaction(ctx context.Context, req models.ExpireTransactionRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("transaction service expire request", logger.Fields{
		"transactionId": req.TransactionID,
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	expired, err := s.terminateWithRelease(ctx, strings.TrimSpace(req.TransactionID), domain.TransactionStatusCancelled)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[models.TransactionResponse]("Transaction not found"), err
		}
		if errors.Is(err, commons.ErrAlreadyFinalized) {
			return commons.ErrorResponse[models.TransactionResponse]("Transaction already finalized", err.Error()), err
		}
		return commons.ErrorResponse[models.TransactionResponse]("failed to expire transaction", "Unable to expire transaction right now"), err
	}

	return commons.SuccessResponse("transaction expired", mapTransactionToResponse(expired)), nil
}

func (s *TransactionService) ListTransactions(ctx context.Context, query models.ListTransactionsQuery) (commons.Response[commons.Page[models.TransactionResponse]], error) {
	if err := query.Validate(); err != nil {
		return commons.ErrorResponse[commons.Page[models.TransactionResponse]]("validation failed", err.Error()), err
	}

	filter := domain.TransactionFilter{
		AccountID:      strings.TrimSpace(query.AccountID),
		Type:           domain.TransactionType(strings.ToUpper(strings.TrimSpace(query.Type))),
		Status:         domain.TransactionStatus(strings.ToUpper(strings.TrimSpace(query.Status))),
		ApprovalStatus: domain.ApprovalStatus(strings.ToUpper(strings.TrimSpace(query.ApprovalStatus))),
		Currency:       strings.ToUpper(strings.TrimSpace(query.Currency)),
	}
	if trimmed := strings.TrimSpace(query.MinAmount); trimmed != "" {
		minAmount, _ := decimal.NewFromString(trimmed)
		filter.MinAmount = &minAmount
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	items, total, err := s.transactionRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		logger.Error("transaction service list failed", err, nil)
		return commons.ErrorResponse[commons.Page[models.TransactionResponse]]("failed to list transactions", "Unable to list transactions right now"), err
	}

	responses := make([]models.TransactionResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, mapTransactionToResponse(item))
	}

	result := commons.Page[models.TransactionResponse]{
		Items:      responses,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
	}
	return commons.SuccessResponse("transactions listed", result), nil
}

// terminateWithRelease moves a pending transaction to the given
// terminal status, releasing any debit reservation in the same atomic
// scope. Cancellation is refused once an approval decision has been
// reached: an approved transaction is finalizing and a rejected one
// must end failed, not cancelled. Re-applying a terminal status the
// transaction already holds is a no-op.
func (s *TransactionService) terminateWithRelease(ctx context.Context, transactionID string, status domain.TransactionStatus) (domain.VaultTransaction, error) {
	unlock := s.lockTransaction(transactionID)
	defer unlock()

	txn, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return domain.VaultTransaction{}, err
	}
	if txn.Status == status {
		return txn, nil
	}
	if txn.Status.IsTerminal() {
		return txn, commons.ErrAlreadyFinalized
	}
	if status == domain.TransactionStatusCancelled &&
		txn.ApprovalStatus != domain.ApprovalStatusPending &&
		txn.ApprovalStatus != domain.ApprovalStatusNotRequired {
		return txn, commons.ErrAlreadyFinalized
	}

	var updated domain.VaultTransaction
	if txn.Type.IsDebit() {
		hold := txn.HoldAmount()
		updated, err = s.transactionRepo.FinalizeWithMutation(ctx, txn.ID, status, txn.AccountID, func(a *domain.VaultAccount) error {
			return ledger.ReleaseReservation(a, hold)
		})
	} else {
		updated, _, err = s.transactionRepo.UpdateStatus(ctx, txn.ID, status)
	}
	if err != nil {
		return domain.VaultTransaction{}, err
	}

	s.emit(ctx, updated)
	return updated, nil
}

func (s *TransactionService) releaseHold(ctx context.Context, accountID string, hold decimal.Decimal) {
	if _, err := s.accountRepo.Mutate(ctx, accountID, func(a *domain.VaultAccount) error {
		return ledger.ReleaseReservation(a, hold)
	}); err != nil {
		logger.Error("transaction service release reservation failed", err, logger.Fields{
			"accountId": accountID,
			"amount":    hold,
		})
	}
}

func (s *TransactionService) lockTransaction(id string) func() {
	value, _ := s.txLocks.LoadOrStore(id, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *TransactionService) emit(ctx context.Context, txn domain.VaultTransaction) {
	if s.notifier == nil {
		return
	}
	s.notifier.TransactionStateChanged(ctx, notifications.Event{
		TransactionID:  txn.ID,
		Type:           string(txn.Type),
		Status:         string(txn.Status),
		ApprovalStatus: string(txn.ApprovalStatus),
		AccountID:      txn.AccountID,
		Amount:         txn.Amount.StringFixed(2),
		Currency:       txn.Currency,
		OccurredAt:     time.Now().UTC(),
	})
}

func mapTransactionToResponse(txn domain.VaultTransaction) models.TransactionResponse {
	response := models.TransactionResponse{
		ID:             txn.ID,
		Type:           string(txn.Type),
		AccountID:      txn.AccountID,
		Amount:         txn.Amount.StringFixed(2),
		Fee:            txn.Fee.StringFixed(2),
		Currency:       txn.Currency,
		Status:         string(txn.Status),
		ApprovalStatus: string(txn.ApprovalStatus),
		RequestedBy:    txn.RequestedBy,
		CreatedAt:      txn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      txn.UpdatedAt.Format(time.RFC3339),
	}
	response.SourceAccountID = valueOrEmpty(txn.SourceAccountID)
	response.DestinationAccountID = valueOrEmpty(txn.DestinationAccountID)
	response.ExternalSource = valueOrEmpty(txn.ExternalSource)
	response.ExternalDestination = valueOrEmpty(txn.ExternalDestination)
	response.Narration = valueOrEmpty(txn.Narration)
	if txn.CompletedAt != nil {
		response.CompletedAt = txn.CompletedAt.Format(time.RFC3339)
	}
	return response
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func valueOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
