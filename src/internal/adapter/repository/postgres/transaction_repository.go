package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
	"github.com/api-sage/vault-ledger-engine/src/internal/logger"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, type, account_id, source_account_id, destination_account_id, external_source, external_destination, amount, fee, currency, narration, status, approval_status, requested_by, created_at, updated_at, completed_at`

func (r *TransactionRepository) Create(ctx context.Context, txn domain.VaultTransaction) (domain.VaultTransaction, error) {
	logger.Info("transaction repository create", logger.Fields{
		"type":      txn.Type,
		"accountId": txn.AccountID,
		"amount":    txn.Amount,
		"currency":  txn.Currency,
		"status":    txn.Status,
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("transaction repository begin create tx failed", err, nil)
		return domain.VaultTransaction{}, fmt.Errorf("begin transaction create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `
INSERT INTO vault_transactions (
	type,
	account_id,
	source_account_id,
	destination_account_id,
	external_source,
	external_destination,
	amount,
	fee,
	currency,
	narration,
	status,
	approval_status,
	requested_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id, created_at, updated_at`

	if err = tx.QueryRowContext(
		ctx,
		query,
		txn.Type,
		txn.AccountID,
		txn.SourceAccountID,
		txn.DestinationAccountID,
		txn.ExternalSource,
		txn.ExternalDestination,
		txn.Amount.StringFixed(2),
		txn.Fee.StringFixed(2),
		txn.Currency,
		txn.Narration,
		txn.Status,
		txn.ApprovalStatus,
		txn.RequestedBy,
	).Scan(&txn.ID, &txn.CreatedAt, &txn.UpdatedAt); err != nil {
		logger.Error("transaction repository create failed", err, logger.Fields{
			"accountId": txn.AccountID,
			"type":      txn.Type,
		})
		return domain.VaultTransaction{}, fmt.Errorf("create transaction: %w", err)
	}

	if err = appendStatusHistory(ctx, tx, txn.ID, txn.Status); err != nil {
		return domain.VaultTransaction{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.VaultTransaction{}, fmt.Errorf("commit transaction create: %w", err)
	}

	return txn, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (domain.VaultTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM vault_transactions WHERE id = $1`

	txn, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.VaultTransaction{}, commons.ErrRecordNotFound
		}
		logger.Error("transaction repository get failed", err, logger.Fields{
			"transactionId": id,
		})
		return domain.VaultTransaction{}, fmt.Errorf("get transaction by id: %w", err)
	}

	return txn, nil
}

func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter, page int, pageSize int) ([]domain.VaultTransaction, int, error) {
	where, args := buildTransactionFilter(filter)

	countQuery := `SELECT COUNT(*) FROM vault_transactions` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		logger.Error("transaction repository count failed", err, nil)
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	listQuery := `SELECT ` + transactionColumns + ` FROM vault_transactions` + where +
		` ORDER BY created_at DESC, id ASC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		logger.Error("transaction repository list failed", err, nil)
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []domain.VaultTransaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		out = append(out, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return out, total, nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus) (domain.VaultTransaction, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("transaction repository begin status tx failed", err, nil)
		return domain.VaultTransaction{}, false, fmt.Errorf("begin status update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	txn, transitioned, err := applyStatus(ctx, tx, id, status)
	if err != nil {
		return txn, false, err
	}
	if !transitioned {
		return txn, false, nil
	}

	if err := tx.Commit(); err != nil {
		return domain.VaultTransaction{}, false, fmt.Errorf("commit status update: %w", err)
	}
	return txn, true, nil
}

// FinalizeWithMutation locks the account row and the transaction row in
// one database transaction: the status write and the balance effect
// commit together or roll back together.
func (r *TransactionRepository) FinalizeWithMutation(ctx context.Context, id string, status domain.TransactionStatus, accountID string, fn func(account *domain.VaultAccount) error) (domain.VaultTransaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("transaction repository begin finalize tx failed", err, nil)
		return domain.VaultTransaction{}, fmt.Errorf("begin finalize: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	account, err := lockAccount(ctx, tx, accountID)
	if err != nil {
		return domain.VaultTransaction{}, err
	}

	txn, transitioned, err := applyStatus(ctx, tx, id, status)
	if err != nil {
		return txn, err
	}
	if !transitioned {
		return txn, nil
	}

	if err := fn(&account); err != nil {
		return domain.VaultTransaction{}, err
	}
	if err := writeAccount(ctx, tx, &account); err != nil {
		return domain.VaultTransaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.VaultTransaction{}, fmt.Errorf("commit finalize: %w", err)
	}
	return txn, nil
}

func (r *TransactionRepository) FinalizeWithPairMutation(ctx context.Context, id string, status domain.TransactionStatus, firstID string, secondID string, fn func(first *domain.VaultAccount, second *domain.VaultAccount) error) (domain.VaultTransaction, error) {
	if firstID == secondID {
		return domain.VaultTransaction{}, fmt.Errorf("finalize pair requires two distinct accounts, got %q twice", firstID)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("transaction repository begin finalize pair tx failed", err, nil)
		return domain.VaultTransaction{}, fmt.Errorf("begin finalize pair: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Fixed global lock order by ascending account id.
	lowerID, upperID := firstID, secondID
	if secondID < firstID {
		lowerID, upperID = secondID, firstID
	}
	lower, err := lockAccount(ctx, tx, lowerID)
	if err != nil {
		return domain.VaultTransaction{}, err
	}
	upper, err := lockAccount(ctx, tx, upperID)
	if err != nil {
		return domain.VaultTransaction{}, err
	}

	first, second := &lower, &upper
	if lowerID != firstID {
		first, second = &upper, &lower
	}

	txn, transitioned, err := applyStatus(ctx, tx, id, status)
	if err != nil {
		return txn, err
	}
	if !transitioned {
		return txn, nil
	}

	if err := fn(first, second); err != nil {
		return domain.VaultTransaction{}, err
	}
	if err := writeAccount(ctx, tx, first); err != nil {
		return domain.VaultTransaction{}, err
	}
	if err := writeAccount(ctx, tx, second); err != nil {
		return domain.VaultTransaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.VaultTransaction{}, fmt.Errorf("commit finalize pair: %w", err)
	}
	return txn, nil
}

// applyStatus locks the transaction row and transitions it inside the
// caller's database transaction. Retrying the status the row already
// holds is a no-op; writing over a different terminal status fails with
// commons.ErrAlreadyFinalized.
func applyStatus(ctx context.Context, tx *sql.Tx, id string, status domain.TransactionStatus) (domain.VaultTransaction, bool, error) {
	lockQuery := `SELECT ` + transactionColumns + ` FROM vault_transactions WHERE id = $1 FOR UPDATE`
	txn, err := scanTransaction(tx.QueryRowContext(ctx, lockQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.VaultTransaction{}, false, commons.ErrRecordNotFound
		}
		return domain.VaultTransaction{}, false, fmt.Errorf("lock transaction %s: %w", id, err)
	}

	if txn.Status == status {
		// Retrying the same write is a no-op, not an error.
		return txn, false, nil
	}
	if txn.Status.IsTerminal() {
		return txn, false, commons.ErrAlreadyFinalized
	}

	const updateQuery = `
UPDATE vault_transactions
SET status = $2,
    updated_at = NOW(),
    completed_at = CASE
        WHEN $2 IN ('COMPLETED', 'FAILED', 'CANCELLED') THEN NOW()
        ELSE completed_at
    END
WHERE id = $1
RETURNING updated_at, completed_at`

	var completedAt sql.NullTime
	if err := tx.QueryRowContext(ctx, updateQuery, id, status).Scan(&txn.UpdatedAt, &completedAt); err != nil {
		return domain.VaultTransaction{}, false, fmt.Errorf("update transaction status: %w", err)
	}

	txn.Status = status
	txn.CompletedAt = nil
	if completedAt.Valid {
		value := completedAt.Time
		txn.CompletedAt = &value
	}

	if err := appendStatusHistory(ctx, tx, id, status); err != nil {
		return domain.VaultTransaction{}, false, err
	}
	return txn, true, nil
}

func (r *TransactionRepository) SetApprovalStatus(ctx context.Context, id string, from domain.ApprovalStatus, to domain.ApprovalStatus) (domain.VaultTransaction, bool, error) {
	const query = `
UPDATE vault_transactions
SET approval_status = $3,
    updated_at = NOW()
WHERE id = $1 AND approval_status = $2
RETURNING ` + transactionColumns

	txn, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, from, to))
	if err == nil {
		return txn, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.Error("transaction repository set approval status failed", err, logger.Fields{
			"transactionId": id,
		})
		return domain.VaultTransaction{}, false, fmt.Errorf("set approval status: %w", err)
	}

	// CAS lost or the transaction does not exist; report the current row.
	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return domain.VaultTransaction{}, false, getErr
	}
	return current, false, nil
}

func (r *TransactionRepository) ListStatusHistory(ctx context.Context, id string) ([]domain.TransactionStatusChange, error) {
	const query = `
SELECT transaction_id, status, changed_at
FROM transaction_status_history
WHERE transaction_id = $1
ORDER BY changed_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		logger.Error("transaction repository status history failed", err, logger.Fields{
			"transactionId": id,
		})
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	var out []domain.TransactionStatusChange
	for rows.Next() {
		var change domain.TransactionStatusChange
		if err := rows.Scan(&change.TransactionID, &change.Status, &change.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status history row: %w", err)
		}
		out = append(out, change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history rows: %w", err)
	}
	if out == nil {
		return nil, commons.ErrRecordNotFound
	}
	return out, nil
}

func appendStatusHistory(ctx context.Context, tx *sql.Tx, id string, status domain.TransactionStatus) error {
	const query = `INSERT INTO transaction_status_history (transaction_id, status) VALUES ($1, $2)`
	if _, err := tx.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

func buildTransactionFilter(filter domain.TransactionFilter) (string, []any) {
	var clauses []string
	var args []any

	addClause := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.AccountID != "" {
		addClause("(account_id = $%[1]d OR source_account_id = $%[1]d OR destination_account_id = $%[1]d)", filter.AccountID)
	}
	if filter.Type != "" {
		addClause("type = $%d", filter.Type)
	}
	if filter.Status != "" {
		addClause("status = $%d", filter.Status)
	}
	if filter.ApprovalStatus != "" {
		addClause("approval_status = $%d", filter.ApprovalStatus)
	}
	if filter.Currency != "" {
		addClause("currency = $%d", filter.Currency)
	}
	if filter.MinAmount != nil {
		addClause("amount >= $%d::numeric", filter.MinAmount.StringFixed(2))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanTransaction(row rowScanner) (domain.VaultTransaction, error) {
	var txn domain.VaultTransaction
	var sourceAccountID sql.NullString
	var destinationAccountID sql.NullString
	var externalSource sql.NullString
	var externalDestination sql.NullString
	var amount string
	var fee string
	var narration sql.NullString
	var completedAt sql.NullTime

	if err := row.Scan(
		&txn.ID,
		&txn.Type,
		&txn.AccountID,
		&sourceAccountID,
		&destinationAccountID,
		&externalSource,
		&externalDestination,
		&amount,
		&fee,
		&txn.Currency,
		&narration,
		&txn.Status,
		&txn.ApprovalStatus,
		&txn.RequestedBy,
		&txn.CreatedAt,
		&txn.UpdatedAt,
		&completedAt,
	); err != nil {
		return domain.VaultTransaction{}, err
	}

	parsedAmount, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.VaultTransaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	parsedFee, err := decimal.NewFromString(fee)
	if err != nil {
		return domain.VaultTransaction{}, fmt.Errorf("parse fee %q: %w", fee, err)
	}

	txn.Amount = parsedAmount
	txn.Fee = parsedFee
	if sourceAccountID.Valid {
		value := sourceAccountID.String
		txn.SourceAccountID = &value
	}
	if destinationAccountID.Valid {
		value := destinationAccountID.String
		txn.DestinationAccountID = &value
	}
	if externalSource.Valid {
		value := externalSource.String
		txn.ExternalSource = &value
	}
	if externalDestination.Valid {
		value := externalDestination.String
		txn.ExternalDestination = &value
	}
	if narration.Valid {
		value := narration.String
		txn.Narration = &value
	}
	if completedAt.Valid {
		value := completedAt.Time
		txn.CompletedAt = &value
	}

	return txn, nil
}
