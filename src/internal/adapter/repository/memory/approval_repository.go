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

type ApprovalRepository struct {
	mu        sync.RWMutex
	approvals map[string]map[string]domain.Approval
}

func NewApprovalRepository() *ApprovalRepository {
	return &ApprovalRepository{approvals: make(map[string]map[string]domain.Approval)}
}

func (r *ApprovalRepository) Create(_ context.Context, approval domain.Approval) (domain.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byApprover, ok := r.approvals[approval.TransactionID]
	if !ok {
		byApprover = make(map[string]domain.Approval)
		r.approvals[approval.TransactionID] = byApprover
	}

	if _, exists := byApprover[approval.ApproverID]; exists {
		return domain.Approval{}, commons.ErrDuplicateApproval
	}

	if approval.ID == "" {
		approval.ID = uuid.NewString()
	}
	approval.CreatedAt = time.Now().UTC()

	byApprover[approval.ApproverID] = approval
	return approval, nil
}

func (r *ApprovalRepository) Get(_ context.Context, transactionID string, approverID string) (domain.Approval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	approval, ok := r.approvals[transactionID][approverID]
	if !ok {
		return domain.Approval{}, commons.ErrRecordNotFound
	}
	return approval, nil
}

func (r *ApprovalRepository) ListByTransaction(_ context.Context, transactionID string) ([]domain.Approval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Approval
	for _, approval := range r.approvals[transactionID] {
		out = append(out, approval)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ApprovalRepository) CountApproved(_ context.Context, transactionID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, approval := range r.approvals[transactionID] {
		if approval.Decision == domain.ApprovalDecisionApproved {
			count++
		}
	}
	return count, nil
}
