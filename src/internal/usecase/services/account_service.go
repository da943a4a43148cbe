package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
	"github.com/api-sage/vault-ledger-engine/src/internal/logger"
	"github.com/api-sage/vault-ledger-engine/src/internal/usecase/service_interfaces"
)

type AccountService struct {
	accountRepo        domain.AccountRepository
	vaultRepo          domain.VaultRepository
	transactionService service_interfaces.TransactionService
}

func NewAccountService(
	accountRepo domain.AccountRepository,
	vaultRepo domain.VaultRepository,
	transactionService service_interfaces.TransactionService,
) *AccountService {
	return &AccountService{
		accountRepo:        accountRepo,
		vaultRepo:          vaultRepo,
		transactionService: transactionService,
	}
}

func (s *AccountService) CreateAccount(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.AccountResponse], error) {
	logger.Info("account service create request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("account service create validation failed", err, nil)
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), err
	}

	vaultID := strings.TrimSpace(req.VaultID)
	if _, err := s.vaultRepo.GetByID(ctx, vaultID); err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[models.AccountResponse]("Vault not found"), err
		}
		logger.Error("account service vault lookup failed", err, logger.Fields{
			"vaultId": vaultID,
		})
		return commons.ErrorResponse[models.AccountResponse]("failed to create account", "Unable to create account right now"), err
	}

	account := domain.VaultAccount{
		VaultID:         vaultID,
		Name:            strings.TrimSpace(req.Name),
		AccountType:     domain.AccountType(strings.ToUpper(strings.TrimSpace(req.AccountType))),
		Currency:        strings.ToUpper(strings.TrimSpace(req.Currency)),
		TotalBalance:    decimal.Zero,
		ReservedBalance: decimal.Zero,
		Status:          domain.AccountStatusActive,
	}

	created, err := s.accountRepo.Create(ctx, account)
	if err != nil {
		logger.Error("account service create failed", err, logger.Fields{
			"vaultId": vaultID,
		})
		return commons.ErrorResponse[models.AccountResponse]("failed to create account", "Unable to create account right now"), err
	}

	// Accounts open empty; any initial balance arrives as a completed
	// opening deposit so it shows in the transaction trail.
	if trimmed := strings.TrimSpace(req.InitialBalance); trimmed != "" {
		initial, _ := decimal.NewFromString(trimmed)
		if initial.IsPositive() {
			if _, err := s.transactionService.RecordOpeningDeposit(ctx, created.ID, initial); err != nil {
				logger.Error("account service opening deposit failed", err, logger.Fields{
					"accountId": created.ID,
				})
				return commons.ErrorResponse[models.AccountResponse]("failed to create account", "Unable to book opening deposit"), err
			}
			created, err = s.accountRepo.GetByID(ctx, created.ID)
			if err != nil {
				return commons.ErrorResponse[models.AccountResponse]("failed to create account", "Unable to create account right now"), err
			}
		}
	}

	logger.Info("account service create success", logger.Fields{
		"accountId": created.ID,
		"vaultId":   created.VaultID,
	})

	return commons.SuccessResponse("account created", mapAccountToResponse(created)), nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountID string) (commons.Response[models.AccountResponse], error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		err := commons.ValidationError("accountId is required")
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), err
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[models.AccountResponse]("Account not found"), err
		}
		logger.Error("account service get failed", err, logger.Fields{
			"accountId": accountID,
		})
		return commons.ErrorResponse[models.AccountResponse]("failed to fetch account", "Unable to fetch account right now"), err
	}

	return commons.SuccessResponse("account fetched", mapAccountToResponse(account)), nil
}

func (s *AccountService) ListAccounts(ctx context.Context, vaultID string) (commons.Response[[]models.AccountResponse], error) {
	vaultID = strings.TrimSpace(vaultID)
	if vaultID == "" {
		err := commons.ValidationError("vaultId is required")
		return commons.ErrorResponse[[]models.AccountResponse]("validation failed", err.Error()), err
	}

	accounts, err := s.accountRepo.ListByVault(ctx, vaultID)
	if err != nil {
		logger.Error("account service list failed", err, logger.Fields{
			"vaultId": vaultID,
		})
		return commons.ErrorResponse[[]models.AccountResponse]("failed to list accounts", "Unable to list accounts right now"), err
	}

	responses := make([]models.AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, mapAccountToResponse(account))
	}
	return commons.SuccessResponse("accounts listed", responses), nil
}

// UpdateAccountStatus moves an account between ACTIVE, FROZEN and
// CLOSED. Closing is refused while any balance is still held: funds
// must be withdrawn or transferred out first, and pending reservations
// resolved.
func (s *AccountService) UpdateAccountStatus(ctx context.Context, req models.UpdateAccountStatusRequest) (commons.Response[models.AccountResponse], error) {
	logger.Info("account service update status request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), err
	}

	target := domain.AccountStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	updated, err := s.accountRepo.Mutate(ctx, strings.TrimSpace(req.AccountID), func(a *domain.VaultAccount) error {
		if a.Status == domain.AccountStatusClosed && target != domain.AccountStatusClosed {
			return commons.ValidationError("closed accounts cannot be reopened")
		}
		if target == domain.AccountStatusClosed {
			if !a.ReservedBalance.IsZero() {
				return commons.ValidationError(fmt.Sprintf("account has %s reserved against pending transactions", a.ReservedBalance.StringFixed(2)))
			}
			if !a.TotalBalance.IsZero() {
				return commons.ValidationError(fmt.Sprintf("account still holds %s %s", a.TotalBalance.StringFixed(2), a.Currency))
			}
		}
		a.Status = target
		return nil
	})
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[models.AccountResponse]("Account not found"), err
		}
		logger.Error("account service update status failed", err, logger.Fields{
			"accountId": req.AccountID,
			"status":    target,
		})
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), err
	}

	logger.Info("account service update status success", logger.Fields{
		"accountId": updated.ID,
		"status":    updated.Status,
	})

	return commons.SuccessResponse("account status updated", mapAccountToResponse(updated)), nil
}

func mapAccountToResponse(account domain.VaultAccount) models.AccountResponse {
	return models.AccountResponse{
		ID:               account.ID,
		VaultID:          account.VaultID,
		Name:             account.Name,
		AccountType:      string(account.AccountType),
		Currency:         account.Currency,
		TotalBalance:     account.TotalBalance.StringFixed(2),
		ReservedBalance:  account.ReservedBalance.StringFixed(2),
		AvailableBalance: account.AvailableBalance().StringFixed(2),
		Status:           string(account.Status),
		CreatedAt:        account.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        account.UpdatedAt.Format(time.RFC3339),
	}
}
