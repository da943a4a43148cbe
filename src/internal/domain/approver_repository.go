package domain

import "context"

type VaultApproverRepository interface {
	Create(ctx context.Context, approver VaultApprover) (VaultApprover, error)
	Get(ctx context.Context, vaultID string, approverID string) (VaultApprover, error)
	ListByVault(ctx context.Context, vaultID string) ([]VaultApprover, error)
}
