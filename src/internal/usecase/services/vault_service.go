package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
	"github.com/api-sage/vault-ledger-engine/src/internal/logger"
)

type VaultService struct {
	vaultRepo    domain.VaultRepository
	approverRepo domain.VaultApproverRepository
	accountRepo  domain.AccountRepository
}

func NewVaultService(
	vaultRepo domain.VaultRepository,
	approverRepo domain.VaultApproverRepository,
	accountRepo domain.AccountRepository,
) *VaultService {
	return &VaultService{
		vaultRepo:    vaultRepo,
		approverRepo: approverRepo,
		accountRepo:  accountRepo,
	}
}

func (s *VaultService) CreateVault(ctx context.Context, req models.CreateVaultRequest) (commons.Response[models.CreateVaultResponse], error) {
	logger.Info("vault service create request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("vault service create validation failed", err, nil)
		return commons.ErrorResponse[models.CreateVaultResponse]("validation failed", err.Error()), err
	}

	vault := domain.VaultMaster{
		OwnerID:           strings.TrimSpace(req.OwnerID),
		Name:              strings.TrimSpace(req.Name),
		RequiresApproval:  req.RequiresApproval,
		ApprovalThreshold: req.ApprovalThreshold,
	}

	created, err := s.vaultRepo.Create(ctx, vault)
	if err != nil {
		logger.Error("vault service create failed", err, logger.Fields{
			"ownerId": vault.OwnerID,
		})
		return commons.ErrorResponse[models.CreateVaultResponse]("failed to create vault", "Unable to create vault right now"), err
	}

	approverIDs := make([]string, 0, len(req.Approvers))
	for _, input := range req.Approvers {
		registered, err := s.registerApprover(ctx, created.ID, input.ApproverID, input.Pin)
		if err != nil {
			logger.Error("vault service approver registration failed", err, logger.Fields{
				"vaultId":    created.ID,
				"approverId": input.ApproverID,
			})
			return commons.ErrorResponse[models.CreateVaultResponse]("failed to create vault", "Unable to register vault approvers"), err
		}
		approverIDs = append(approverIDs, registered.ApproverID)
	}

	logger.Info("vault service create success", logger.Fields{
		"vaultId": created.ID,
		"ownerId": created.OwnerID,
	})

	response := models.CreateVaultResponse{
		ID:                created.ID,
		OwnerID:           created.OwnerID,
		Name:              created.Name,
		RequiresApproval:  created.RequiresApproval,
		ApprovalThreshold: created.ApprovalThreshold,
		Approvers:         approverIDs,
		CreatedAt:         created.CreatedAt.Format(time.RFC3339),
	}
	return commons.SuccessResponse("vault created", response), nil
}

func (s *VaultService) RegisterApprover(ctx context.Context, req models.RegisterApproverRequest) (commons.Response[models.RegisterApproverResponse], error) {
	logger.Info("vault service register approver request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.RegisterApproverResponse]("validation failed", err.Error()), err
	}

	vaultID := strings.TrimSpace(req.VaultID)
	if _, err := s.vaultRepo.GetByID(ctx, vaultID); err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[models.RegisterApproverResponse]("Vault not found"), err
		}
		return commons.ErrorResponse[models.RegisterApproverResponse]("failed to register approver", "Unable to register approver right now"), err
	}

	created, err := s.registerApprover(ctx, vaultID, req.ApproverID, req.Pin)
	if err != nil {
		logger.Error("vault service register approver failed", err, logger.Fields{
			"vaultId": vaultID,
		})
		return commons.ErrorResponse[models.RegisterApproverResponse]("failed to register approver", "Unable to register approver right now"), err
	}

	response := models.RegisterApproverResponse{
		VaultID:    created.VaultID,
		ApproverID: created.ApproverID,
		CreatedAt:  created.CreatedAt.Format(time.RFC3339),
	}
	return commons.SuccessResponse("approver registered", response), nil
}

func (s *VaultService) registerApprover(ctx context.Context, vaultID string, approverID string, pin string) (domain.VaultApprover, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(pin)), bcrypt.DefaultCost)
	if err != nil {
		return domain.VaultApprover{}, fmt.Errorf("hash approver pin: %w", err)
	}

	return s.approverRepo.Create(ctx, domain.VaultApprover{
		VaultID:    vaultID,
		ApproverID: strings.TrimSpace(approverID),
		PinHash:    string(hash),
	})
}

// GetBalanceSummary aggregates the balances of every account in every
// vault the owner holds, grouped by currency. Closed accounts are
// included; their balances are zero by the close rule.
func (s *VaultService) GetBalanceSummary(ctx context.Context, ownerID string) (commons.Response[models.BalanceSummaryResponse], error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		err := commons.ValidationError("ownerId is required")
		return commons.ErrorResponse[models.BalanceSummaryResponse]("validation failed", err.Error()), err
	}

	vaults, err := s.vaultRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		logger.Error("vault service balance summary failed", err, logger.Fields{
			"ownerId": ownerID,
		})
		return commons.ErrorResponse[models.BalanceSummaryResponse]("failed to build balance summary", "Unable to build balance summary right now"), err
	}

	type bucket struct {
		total    decimal.Decimal
		reserved decimal.Decimal
		count    int
	}
	buckets := map[string]*bucket{}
	order := []string{}

	for _, vault := range vaults {
		accounts, err := s.accountRepo.ListByVault(ctx, vault.ID)
		if err != nil {
			logger.Error("vault service balance summary account listing failed", err, logger.Fields{
				"vaultId": vault.ID,
			})
			return commons.ErrorResponse[models.BalanceSummaryResponse]("failed to build balance summary", "Unable to build balance summary right now"), err
		}
		for _, account := range accounts {
			entry, ok := buckets[account.Currency]
			if !ok {
				entry = &bucket{total: decimal.Zero, reserved: decimal.Zero}
				buckets[account.Currency] = entry
				order = append(order, account.Currency)
			}
			entry.total = entry.total.Add(account.TotalBalance)
			entry.reserved = entry.reserved.Add(account.ReservedBalance)
			entry.count++
		}
	}

	currencies := make([]models.CurrencyBalanceSummary, 0, len(order))
	for _, currency := range order {
		entry := buckets[currency]
		currencies = append(currencies, models.CurrencyBalanceSummary{
			Currency:         currency,
			TotalBalance:     entry.total.StringFixed(2),
			AvailableBalance: entry.total.Sub(entry.reserved).StringFixed(2),
			ReservedBalance:  entry.reserved.StringFixed(2),
			AccountCount:     entry.count,
		})
	}

	response := models.BalanceSummaryResponse{
		OwnerID:    ownerID,
		Currencies: currencies,
	}
	return commons.SuccessResponse("balance summary built", response), nil
}
