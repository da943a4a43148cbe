package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
	"github.com/api-sage/vault-ledger-engine/src/internal/logger"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, vault_id, name, account_type, currency, total_balance, reserved_balance, status, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, account domain.VaultAccount) (domain.VaultAccount, error) {
	logger.Info("account repository create", logger.Fields{
		"vaultId":     account.VaultID,
		"name":        account.Name,
		"accountType": account.AccountType,
		"currency":    account.Currency,
	})

	const query = `
INSERT INTO vault_accounts (
	vault_id,
	name,
	account_type,
	currency,
	total_balance,
	reserved_balance,
	status
) VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at, updated_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		account.VaultID,
		account.Name,
		account.AccountType,
		account.Currency,
		account.TotalBalance.StringFixed(2),
		account.ReservedBalance.StringFixed(2),
		account.Status,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		logger.Error("account repository create failed", err, logger.Fields{
			"vaultId": account.VaultID,
			"name":    account.Name,
		})
		return domain.VaultAccount{}, fmt.Errorf("create account: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (domain.VaultAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM vault_accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.VaultAccount{}, commons.ErrRecordNotFound
		}
		logger.Error("account repository get failed", err, logger.Fields{
			"accountId": id,
		})
		return domain.VaultAccount{}, fmt.Errorf("get account by id: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) ListByVault(ctx context.Context, vaultID string) ([]domain.VaultAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM vault_accounts WHERE vault_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, vaultID)
	if err != nil {
		logger.Error("account repository list by vault failed", err, logger.Fields{
			"vaultId": vaultID,
		})
		return nil, fmt.Errorf("list accounts by vault: %w", err)
	}
	defer rows.Close()

	var out []domain.VaultAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		out = append(out, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}
	return out, nil
}

// Mutate serializes the mutation against the account row with
// SELECT ... FOR UPDATE, so concurrent transactions on the same
// account cannot produce lost balance updates.
func (r *AccountRepository) Mutate(ctx context.Context, id string, fn func(account *domain.VaultAccount) error) (domain.VaultAccount, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("account repository begin mutate tx failed", err, nil)
		return domain.VaultAccount{}, fmt.Errorf("begin account mutation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var account domain.VaultAccount
	account, err = lockAccount(ctx, tx, id)
	if err != nil {
		return domain.VaultAccount{}, err
	}

	if err = fn(&account); err != nil {
		return domain.VaultAccount{}, err
	}

	if err = writeAccount(ctx, tx, &account); err != nil {
		return domain.VaultAccount{}, err
	}

	if err = tx.Commit(); err != nil {
		logger.Error("account repository commit mutate tx failed", err, logger.Fields{
			"accountId": id,
		})
		return domain.VaultAccount{}, fmt.Errorf("commit account mutation: %w", err)
	}

	return account, nil
}

func lockAccount(ctx context.Context, tx *sql.Tx, id string) (domain.VaultAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM vault_accounts WHERE id = $1 FOR UPDATE`

	account, err := scanAccount(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.VaultAccount{}, commons.ErrRecordNotFound
		}
		return domain.VaultAccount{}, fmt.Errorf("lock account %s: %w", id, err)
	}
	return account, nil
}

func writeAccount(ctx context.Context, tx *sql.Tx, account *domain.VaultAccount) error {
	const query = `
UPDATE vault_accounts
SET name = $2,
    account_type = $3,
    total_balance = $4,
    reserved_balance = $5,
    status = $6,
    updated_at = NOW()
WHERE id = $1
RETURNING updated_at`

	if err := tx.QueryRowContext(
		ctx,
		query,
		account.ID,
		account.Name,
		account.AccountType,
		account.TotalBalance.StringFixed(2),
		account.ReservedBalance.StringFixed(2),
		account.Status,
	).Scan(&account.UpdatedAt); err != nil {
		return fmt.Errorf("write account %s: %w", account.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.VaultAccount, error) {
	var account domain.VaultAccount
	var totalBalance string
	var reservedBalance string

	if err := row.Scan(
		&account.ID,
		&account.VaultID,
		&account.Name,
		&account.AccountType,
		&account.Currency,
		&totalBalance,
		&reservedBalance,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return domain.VaultAccount{}, err
	}

	total, err := decimal.NewFromString(totalBalance)
	if err != nil {
		return domain.VaultAccount{}, fmt.Errorf("parse total balance %q: %w", totalBalance, err)
	}
	reserved, err := decimal.NewFromString(reservedBalance)
	if err != nil {
		return domain.VaultAccount{}, fmt.Errorf("parse reserved balance %q: %w", reservedBalance, err)
	}

	account.TotalBalance = total
	account.ReservedBalance = reserved
	return account, nil
}
