package service_interfaces

import (
	"context"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
)

type AccountService interface {
	CreateAccount(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.AccountResponse], error)
	GetAccount(ctx context.Context, accountID string) (commons.Response[models.AccountResponse], error)
	ListAccounts(ctx context.Context, vaultID string) (commons.Response[[]models.AccountResponse], error)
	UpdateAccountStatus(ctx context.Context, req models.UpdateAccountStatusRequest) (commons.Response[models.AccountResponse], error)
}
