package domain

import "context"

type AccountRepository interface {
	Create(ctx context.Context, account VaultAccount) (VaultAccount, error)
	GetByID(ctx context.Context, id string) (VaultAccount, error)
	ListByVault(ctx context.Context, vaultID string) ([]VaultAccount, error)

	// Mutate applies fn to the account under an exclusive lock scoped to
	// that account. fn returning an error discards the mutation.
	Mutate(ctx context.Context, id string, fn func(account *VaultAccount) error) (VaultAccount, error)
}
