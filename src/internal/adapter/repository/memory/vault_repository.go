package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
)

type VaultRepository struct {
	mu     sync.RWMutex
	vaults map[string]domain.VaultMaster
}

func NewVaultRepository() *VaultRepository {
	return &VaultRepository{vaults: make(map[string]domain.VaultMaster)}
}

func (r *VaultRepository) Create(_ context.Context, vault domain.VaultMaster) (domain.VaultMaster, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if vault.ID == "" {
		vault.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	vault.CreatedAt = now
	vault.UpdatedAt = now

	r.vaults[vault.ID] = vault
	return vault, nil
}

func (r *VaultRepository) GetByID(_ context.Context, id string) (domain.VaultMaster, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vault, ok := r.vaults[id]
	if !ok {
		return domain.VaultMaster{}, commons.ErrRecordNotFound
	}
	return vault, nil
}

func (r *VaultRepository) ListByOwner(_ context.Context, ownerID string) ([]domain.VaultMaster, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.VaultMaster
	for _, vault := range r.vaults {
		if vault.OwnerID == ownerID {
			out = append(out, vault)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
