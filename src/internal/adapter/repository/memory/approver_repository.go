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

type VaultApproverRepository struct {
	mu        sync.RWMutex
	approvers map[string]map[string]domain.VaultApprover
}

func NewVaultApproverRepository() *VaultApproverRepository {
	return &VaultApproverRepository{approvers: make(map[string]map[string]domain.VaultApprover)}
}

func (r *VaultApproverRepository) Create(_ context.Context, approver domain.VaultApprover) (domain.VaultApprover, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byApprover, ok := r.approvers[approver.VaultID]
	if !ok {
		byApprover = make(map[string]domain.VaultApprover)
		r.approvers[approver.VaultID] = byApprover
	}

	if approver.ID == "" {
		approver.ID = uuid.NewString()
	}
	approver.CreatedAt = time.Now().UTC()

	byApprover[approver.ApproverID] = approver
	return approver, nil
}

func (r *VaultApproverRepository) Get(_ context.Context, vaultID string, approverID string) (domain.VaultApprover, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	approver, ok := r.approvers[vaultID][approverID]
	if !ok {
		return domain.VaultApprover{}, commons.ErrRecordNotFound
	}
	return approver, nil
}

func (r *VaultApproverRepository) ListByVault(_ context.Context, vaultID string) ([]domain.VaultApprover, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.VaultApprover
	for _, approver := range r.approvers[vaultID] {
		out = append(out, approver)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ApproverID < out[j].ApproverID
	})
	return out, nil
}
