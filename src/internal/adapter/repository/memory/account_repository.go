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

type accountEntry struct {
	mu      sync.Mutex
	account domain.VaultAccount
}

// AccountRepository keys accounts by id with one mutex per account, so
// mutations against different accounts never serialize behind each
// other.
type AccountRepository struct {
	mu      sync.RWMutex
	entries map[string]*accountEntry
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{entries: make(map[string]*accountEntry)}
}

func (r *AccountRepository) Create(_ context.Context, account domain.VaultAccount) (domain.VaultAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	r.entries[account.ID] = &accountEntry{account: account}
	return account, nil
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (domain.VaultAccount, error) {
	entry, err := r.entry(id)
	if err != nil {
		return domain.VaultAccount{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.account, nil
}

func (r *AccountRepository) ListByVault(_ context.Context, vaultID string) ([]domain.VaultAccount, error) {
	r.mu.RLock()
	entries := make([]*accountEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	var out []domain.VaultAccount
	for _, entry := range entries {
		entry.mu.Lock()
		if entry.account.VaultID == vaultID {
			out = append(out, entry.account)
		}
		entry.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *AccountRepository) Mutate(_ context.Context, id string, fn func(account *domain.VaultAccount) error) (domain.VaultAccount, error) {
	entry, err := r.entry(id)
	if err != nil {
		return domain.VaultAccount{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := entry.account
	if err := fn(&working); err != nil {
		return domain.VaultAccount{}, err
	}

	working.UpdatedAt = time.Now().UTC()
	entry.account = working
	return working, nil
}

func (r *AccountRepository) entry(id string) (*accountEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, commons.ErrRecordNotFound
	}
	return entry, nil
}
