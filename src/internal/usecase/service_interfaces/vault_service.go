package service_interfaces

import (
	"context"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
)

type VaultService interface {
	CreateVault(ctx context.Context, req models.CreateVaultRequest) (commons.Response[models.CreateVaultResponse], error)
	RegisterApprover(ctx context.Context, req models.RegisterApproverRequest) (commons.Response[models.RegisterApproverResponse], error)
	GetBalanceSummary(ctx context.Context, ownerID string) (commons.Response[models.BalanceSummaryResponse], error)
}
