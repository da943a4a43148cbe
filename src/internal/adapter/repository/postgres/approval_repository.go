package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
	"github.com/api-sage/vault-ledger-engine/src/internal/logger"
)

type ApprovalRepository struct {
	db *sql.DB
}

func NewApprovalRepository(db *sql.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

func (r *ApprovalRepository) Create(ctx context.Context, approval domain.Approval) (domain.Approval, error) {
	logger.Info("approval repository create", logger.Fields{
		"transactionId": approval.TransactionID,
		"approverId":    approval.ApproverID,
		"decision":      approval.Decision,
	})

	const query = `
INSERT INTO transaction_approvals (
	transaction_id,
	approver_id,
	decision,
	comment
) VALUES ($1, $2, $3, $4)
RETURNING id, created_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		approval.TransactionID,
		approval.ApproverID,
		approval.Decision,
		approval.Comment,
	).Scan(&approval.ID, &approval.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Approval{}, commons.ErrDuplicateApproval
		}
		logger.Error("approval repository create failed", err, logger.Fields{
			"transactionId": approval.TransactionID,
			"approverId":    approval.ApproverID,
		})
		return domain.Approval{}, fmt.Errorf("create approval: %w", err)
	}

	return approval, nil
}

func (r *ApprovalRepository) Get(ctx context.Context, transactionID string, approverID string) (domain.Approval, error) {
	const query = `
SELECT id, transaction_id, approver_id, decision, comment, created_at
FROM transaction_approvals
WHERE transaction_id = $1 AND approver_id = $2`

	approval, err := scanApproval(r.db.QueryRowContext(ctx, query, transactionID, approverID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Approval{}, commons.ErrRecordNotFound
		}
		logger.Error("approval repository get failed", err, logger.Fields{
			"transactionId": transactionID,
			"approverId":    approverID,
		})
		return domain.Approval{}, fmt.Errorf("get approval: %w", err)
	}

	return approval, nil
}

func (r *ApprovalRepository) ListByTransaction(ctx context.Context, transactionID string) ([]domain.Approval, error) {
	const query = `
SELECT id, transaction_id, approver_id, decision, comment, created_at
FROM transaction_approvals
WHERE transaction_id = $1
ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, transactionID)
	if err != nil {
		logger.Error("approval repository list failed", err, logger.Fields{
			"transactionId": transactionID,
		})
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []domain.Approval
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval row: %w", err)
		}
		out = append(out, approval)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approval rows: %w", err)
	}
	return out, nil
}

func (r *ApprovalRepository) CountApproved(ctx context.Context, transactionID string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM transaction_approvals
WHERE transaction_id = $1 AND decision = 'APPROVED'`

	var count int
	if err := r.db.QueryRowContext(ctx, query, transactionID).Scan(&count); err != nil {
		logger.Error("approval repository count approved failed", err, logger.Fields{
			"transactionId": transactionID,
		})
		return 0, fmt.Errorf("count approved: %w", err)
	}
	return count, nil
}

func scanApproval(row rowScanner) (domain.Approval, error) {
	var approval domain.Approval
	var comment sql.NullString

	if err := row.Scan(
		&approval.ID,
		&approval.TransactionID,
		&approval.ApproverID,
		&approval.Decision,
		&comment,
		&approval.CreatedAt,
	); err != nil {
		return domain.Approval{}, err
	}

	if comment.Valid {
		value := comment.String
		approval.Comment = &value
	}
	return approval, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == "23505"
	}
	return false
}
