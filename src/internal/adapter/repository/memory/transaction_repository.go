package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
)

type TransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]domain.VaultTransaction
	history      map[string][]domain.TransactionStatusChange

	// accounts backs FinalizeWithMutation: the balance effect and the
	// status write happen under the same locks.
	accounts *AccountRepository
}

func NewTransactionRepository(accounts *AccountRepository) *TransactionRepository {
	return &TransactionRepository{
		transactions: make(map[string]domain.VaultTransaction),
		history:      make(map[string][]domain.TransactionStatusChange),
		accounts:     accounts,
	}
}

func (r *TransactionRepository) Create(_ context.Context, tx domain.VaultTransaction) (domain.VaultTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	r.transactions[tx.ID] = tx
	r.history[tx.ID] = append(r.history[tx.ID], domain.TransactionStatusChange{
		TransactionID: tx.ID,
		Status:        tx.Status,
		ChangedAt:     now,
	})
	return tx, nil
}

func (r *TransactionRepository) GetByID(_ context.Context, id string) (domain.VaultTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.transactions[id]
	if !ok {
		return domain.VaultTransaction{}, commons.ErrRecordNotFound
	}
	return tx, nil
}

func (r *TransactionRepository) List(_ context.Context, filter domain.TransactionFilter, page int, pageSize int) ([]domain.VaultTransaction, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []domain.VaultTransaction
	for _, tx := range r.transactions {
		if matchesFilter(tx, filter) {
			matches = append(matches, tx)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := len(matches)
	start := (page - 1) * pageSize
	if start >= total {
		return []domain.VaultTransaction{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matches[start:end], total, nil
}

func (r *TransactionRepository) UpdateStatus(_ context.Context, id string, status domain.TransactionStatus) (domain.VaultTransaction, bool, error) {
	return r.applyStatus(id, status, nil, nil)
}

// FinalizeWithMutation holds the account lock while the status
// transitions, so the balance effect applies exactly when the write
// wins: a retried or conflicting status leaves the account untouched.
func (r *TransactionRepository) FinalizeWithMutation(_ context.Context, id string, status domain.TransactionStatus, accountID string, fn func(account *domain.VaultAccount) error) (domain.VaultTransaction, error) {
	entry, err := r.accounts.entry(accountID)
	if err != nil {
		return domain.VaultTransaction{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := entry.account
	txn, _, err := r.applyStatus(id, status, func() error {
		return fn(&working)
	}, func(now time.Time) {
		working.UpdatedAt = now
		entry.account = working
	})
	return txn, err
}

func (r *TransactionRepository) FinalizeWithPairMutation(_ context.Context, id string, status domain.TransactionStatus, firstID string, secondID string, fn func(first *domain.VaultAccount, second *domain.VaultAccount) error) (domain.VaultTransaction, error) {
	if firstID == secondID {
		return domain.VaultTransaction{}, fmt.Errorf("finalize pair requires two distinct accounts, got %q twice", firstID)
	}

	firstEntry, err := r.accounts.entry(firstID)
	if err != nil {
		return domain.VaultTransaction{}, err
	}
	secondEntry, err := r.accounts.entry(secondID)
	if err != nil {
		return domain.VaultTransaction{}, err
	}

	// Fixed global lock order by ascending account id.
	lower, upper := firstEntry, secondEntry
	if secondID < firstID {
		lower, upper = secondEntry, firstEntry
	}

	lower.mu.Lock()
	defer lower.mu.Unlock()
	upper.mu.Lock()
	defer upper.mu.Unlock()

	workingFirst := firstEntry.account
	workingSecond := secondEntry.account
	txn, _, err := r.applyStatus(id, status, func() error {
		return fn(&workingFirst, &workingSecond)
	}, func(now time.Time) {
		workingFirst.UpdatedAt = now
		workingSecond.UpdatedAt = now
		firstEntry.account = workingFirst
		secondEntry.account = workingSecond
	})
	return txn, err
}

// applyStatus transitions a transaction with the UpdateStatus
// idempotency rules. apply runs only when the transition wins; store
// publishes the paired account mutation after the transition commits.
func (r *TransactionRepository) applyStatus(id string, status domain.TransactionStatus, apply func() error, store func(now time.Time)) (domain.VaultTransaction, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.transactions[id]
	if !ok {
		return domain.VaultTransaction{}, false, commons.ErrRecordNotFound
	}

	if tx.Status == status {
		// Retrying the same write is a no-op, not an error.
		return tx, false, nil
	}
	if tx.Status.IsTerminal() {
		return tx, false, commons.ErrAlreadyFinalized
	}

	if apply != nil {
		if err := apply(); err != nil {
			return domain.VaultTransaction{}, false, err
		}
	}

	now := time.Now().UTC()
	tx.Status = status
	tx.UpdatedAt = now
	if status.IsTerminal() {
		completedAt := now
		tx.CompletedAt = &completedAt
	}

	r.transactions[id] = tx
	r.history[id] = append(r.history[id], domain.TransactionStatusChange{
		TransactionID: id,
		Status:        status,
		ChangedAt:     now,
	})
	if store != nil {
		store(now)
	}
	return tx, true, nil
}

func (r *TransactionRepository) SetApprovalStatus(_ context.Context, id string, from domain.ApprovalStatus, to domain.ApprovalStatus) (domain.VaultTransaction, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.transactions[id]
	if !ok {
		return domain.VaultTransaction{}, false, commons.ErrRecordNotFound
	}

	if tx.ApprovalStatus != from {
		return tx, false, nil
	}

	tx.ApprovalStatus = to
	tx.UpdatedAt = time.Now().UTC()
	r.transactions[id] = tx
	return tx, true, nil
}

func (r *TransactionRepository) ListStatusHistory(_ context.Context, id string) ([]domain.TransactionStatusChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.transactions[id]; !ok {
		return nil, commons.ErrRecordNotFound
	}

	history := r.history[id]
	out := make([]domain.TransactionStatusChange, len(history))
	copy(out, history)
	return out, nil
}

func matchesFilter(tx domain.VaultTransaction, filter domain.TransactionFilter) bool {
	if filter.AccountID != "" && !touchesAccount(tx, filter.AccountID) {
		return false
	}
	if filter.Type != "" && tx.Type != filter.Type {
		return false
	}
	if filter.Status != "" && tx.Status != filter.Status {
		return false
	}
	if filter.ApprovalStatus != "" && tx.ApprovalStatus != filter.ApprovalStatus {
		return false
	}
	if filter.Currency != "" && tx.Currency != filter.Currency {
		return false
	}
	if filter.MinAmount != nil && tx.Amount.LessThan(*filter.MinAmount) {
		return false
	}
	return true
}

func touchesAccount(tx domain.VaultTransaction, accountID string) bool {
	if tx.AccountID == accountID {
		return true
	}
	if tx.SourceAccountID != nil && *tx.SourceAccountID == accountID {
		return true
	}
	if tx.DestinationAccountID != nil && *tx.DestinationAccountID == accountID {
		return true
	}
	return false
}
