package service_interfaces

import (
	"context"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
)

type ApprovalService interface {
	SubmitApproval(ctx context.Context, req models.SubmitApprovalRequest) (commons.Response[models.TransactionResponse], error)
}
