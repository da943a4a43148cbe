package domain

import "context"

type VaultRepository interface {
	Create(ctx context.Context, vault VaultMaster) (VaultMaster, error)
	GetByID(ctx context.Context, id string) (VaultMaster, error)
	ListByOwner(ctx context.Context, ownerID string) ([]VaultMaster, error)
}
