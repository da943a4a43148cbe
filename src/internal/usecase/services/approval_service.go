package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
	"github.com/api-sage/vault-ledger-engine/src/internal/logger"
	"github.com/api-sage/vault-ledger-engine/src/internal/usecase/service_interfaces"
)

type ApprovalService struct {
	approvalRepo       domain.ApprovalRepository
	approverRepo       domain.VaultApproverRepository
	transactionRepo    domain.TransactionRepository
	accountRepo        domain.AccountRepository
	vaultRepo          domain.VaultRepository
	transactionService service_interfaces.TransactionService
}

func NewApprovalService(
	approvalRepo domain.ApprovalRepository,
	approverRepo domain.VaultApproverRepository,
	transactionRepo domain.TransactionRepository,
	accountRepo domain.AccountRepository,
	vaultRepo domain.VaultRepository,
	transactionService service_interfaces.TransactionService,
) *ApprovalService {
	return &ApprovalService{
		approvalRepo:       approvalRepo,
		approverRepo:       approverRepo,
		transactionRepo:    transactionRepo,
		accountRepo:        accountRepo,
		vaultRepo:          vaultRepo,
		transactionService: transactionService,
	}
}

// SubmitApproval records one approver's decision on a gated
// transaction. A single rejection fails the transaction immediately; an
// approval finalizes it once the vault's threshold of distinct
// approvals is reached. The pending-to-decided flip is a compare-and-set
// on the transaction, so concurrent quorum-reaching approvals produce
// exactly one finalization.
func (s *ApprovalService) SubmitApproval(ctx context.Context, req models.SubmitApprovalRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("approval service submit request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("approval service submit validation failed", err, nil)
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	transactionID := strings.TrimSpace(req.TransactionID)
	approverID := strings.TrimSpace(req.ApproverID)
	decision := domain.ApprovalDecision(strings.ToUpper(strings.TrimSpace(req.Decision)))

	txn, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[models.TransactionResponse]("Transaction not found"), err
		}
		return commons.ErrorResponse[models.TransactionResponse]("failed to submit approval", "Unable to submit approval right now"), err
	}

	if txn.ApprovalStatus == domain.ApprovalStatusNotRequired {
		err := commons.ValidationError("transaction does not require approval")
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}
	if txn.Status.IsTerminal() || txn.ApprovalStatus != domain.ApprovalStatusPending {
		return s.respondAfterDecision(ctx, txn, approverID, decision)
	}

	vault, err := s.vaultForTransaction(ctx, txn)
	if err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("failed to submit approval", "Unable to submit approval right now"), err
	}

	approver, err := s.approverRepo.Get(ctx, vault.ID, approverID)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			err := commons.ValidationError("approver is not registered for this vault")
			return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
		}
		return commons.ErrorResponse[models.TransactionResponse]("failed to submit approval", "Unable to submit approval right now"), err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(approver.PinHash), []byte(strings.TrimSpace(req.Pin))); err != nil {
		err := commons.ValidationError("approval pin is incorrect")
		logger.Error("approval service pin mismatch", err, logger.Fields{
			"transactionId": transactionID,
			"approverId":    approverID,
		})
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	approval := domain.Approval{
		TransactionID: transactionID,
		ApproverID:    approverID,
		Decision:      decision,
	}
	if comment := strings.TrimSpace(req.Comment); comment != "" {
		approval.Comment = &comment
	}

	if _, err := s.approvalRepo.Create(ctx, approval); err != nil {
		if errors.Is(err, commons.ErrDuplicateApproval) {
			existing, getErr := s.approvalRepo.Get(ctx, transactionID, approverID)
			if getErr == nil && existing.Decision == decision {
				// Same approver re-sending the same decision is a no-op.
				return s.currentStateResponse(ctx, transactionID, "approval already recorded")
			}
			return commons.ErrorResponse[models.TransactionResponse]("Approval conflict", commons.ErrDuplicateApproval.Error()), err
		}
		logger.Error("approval service record failed", err, logger.Fields{
			"transactionId": transactionID,
			"approverId":    approverID,
		})
		return commons.ErrorResponse[models.TransactionResponse]("failed to submit approval", "Unable to submit approval right now"), err
	}

	switch decision {
	case domain.ApprovalDecisionRejected:
		_, transitioned, err := s.transactionRepo.SetApprovalStatus(ctx, transactionID, domain.ApprovalStatusPending, domain.ApprovalStatusRejected)
		if err != nil {
			return commons.ErrorResponse[models.TransactionResponse]("failed to submit approval", "Unable to submit approval right now"), err
		}
		if transitioned {
			if _, err := s.transactionService.FailRejected(ctx, transactionID); err != nil {
				logger.Error("approval service reject finalization failed", err, logger.Fields{
					"transactionId": transactionID,
				})
				return commons.ErrorResponse[models.TransactionResponse]("failed to submit approval", "Unable to submit approval right now"), err
			}
		}
		return s.currentStateResponse(ctx, transactionID, "transaction rejected")

	case domain.ApprovalDecisionApproved:
		count, err := s.approvalRepo.CountApproved(ctx, transactionID)
		if err != nil {
			return commons.ErrorResponse[models.TransactionResponse]("failed to submit approval", "Unable to submit approval right now"), err
		}
		if count < vault.ApprovalThreshold {
			logger.Info("approval service quorum pending", logger.Fields{
				"transactionId": transactionID,
				"approvals":     count,
				"threshold":     vault.ApprovalThreshold,
			})
			return s.currentStateResponse(ctx, transactionID, "approval recorded")
		}

		_, transitioned, err := s.transactionRepo.SetApprovalStatus(ctx, transactionID, domain.ApprovalStatusPending, domain.ApprovalStatusApproved)
		if err != nil {
			return commons.ErrorResponse[models.TransactionResponse]("failed to submit approval", "Unable to submit approval right now"), err
		}
		if transitioned {
			if _, err := s.transactionService.FinalizeApproved(ctx, transactionID); err != nil {
				logger.Error("approval service finalization failed", err, logger.Fields{
					"transactionId": transactionID,
				})
				return commons.ErrorResponse[models.TransactionResponse]("failed to submit approval", "Unable to submit approval right now"), err
			}
		}
		return s.currentStateResponse(ctx, transactionID, "transaction approved")
	}

	err = commons.ValidationError(fmt.Sprintf("unsupported decision %q", decision))
	return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
}

// respondAfterDecision handles approvals arriving after the transaction
// is already decided or terminal: re-sending the decision already made
// by the same approver succeeds as a no-op, anything else conflicts.
func (s *ApprovalService) respondAfterDecision(ctx context.Context, txn domain.VaultTransaction, approverID string, decision domain.ApprovalDecision) (commons.Response[models.TransactionResponse], error) {
	existing, err := s.approvalRepo.Get(ctx, txn.ID, approverID)
	if err == nil && existing.Decision == decision {
		return commons.SuccessResponse("approval already recorded", mapTransactionToResponse(txn)), nil
	}

	if txn.Status.IsTerminal() {
		return commons.ErrorResponse[models.TransactionResponse]("Transaction already finalized", commons.ErrAlreadyFinalized.Error()), commons.ErrAlreadyFinalized
	}
	return commons.ErrorResponse[models.TransactionResponse]("Approval conflict", commons.ErrAlreadyDecided.Error()), commons.ErrAlreadyDecided
}

func (s *ApprovalService) vaultForTransaction(ctx context.Context, txn domain.VaultTransaction) (domain.VaultMaster, error) {
	account, err := s.accountRepo.GetByID(ctx, txn.AccountID)
	if err != nil {
		return domain.VaultMaster{}, fmt.Errorf("load account %s: %w", txn.AccountID, err)
	}
	vault, err := s.vaultRepo.GetByID(ctx, account.VaultID)
	if err != nil {
		return domain.VaultMaster{}, fmt.Errorf("load vault %s: %w", account.VaultID, err)
	}
	return vault, nil
}

func (s *ApprovalService) currentStateResponse(ctx context.Context, transactionID string, message string) (commons.Response[models.TransactionResponse], error) {
	txn, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("failed to submit approval", "Unable to submit approval right now"), err
	}
	return commons.SuccessResponse(message, mapTransactionToResponse(txn)), nil
}
