package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
	"github.com/api-sage/vault-ledger-engine/src/internal/logger"
)

type VaultApproverRepository struct {
	db *sql.DB
}

func NewVaultApproverRepository(db *sql.DB) *VaultApproverRepository {
	return &VaultApproverRepository{db: db}
}

func (r *VaultApproverRepository) Create(ctx context.Context, approver domain.VaultApprover) (domain.VaultApprover, error) {
	logger.Info("vault approver repository create", logger.Fields{
		"vaultId":    approver.VaultID,
		"approverId": approver.ApproverID,
	})

	const query = `
INSERT INTO vault_approvers (
	vault_id,
	approver_id,
	pin_hash
) VALUES ($1, $2, $3)
ON CONFLICT (vault_id, approver_id) DO UPDATE SET pin_hash = EXCLUDED.pin_hash
RETURNING id, created_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		approver.VaultID,
		approver.ApproverID,
		approver.PinHash,
	).Scan(&approver.ID, &approver.CreatedAt); err != nil {
		logger.Error("vault approver repository create failed", err, logger.Fields{
			"vaultId":    approver.VaultID,
			"approverId": approver.ApproverID,
		})
		return domain.VaultApprover{}, fmt.Errorf("create vault approver: %w", err)
	}

	return approver, nil
}

func (r *VaultApproverRepository) Get(ctx context.Context, vaultID string, approverID string) (domain.VaultApprover, error) {
	const query = `
SELECT id, vault_id, approver_id, pin_hash, created_at
FROM vault_approvers
WHERE vault_id = $1 AND approver_id = $2`

	var approver domain.VaultApprover
	if err := r.db.QueryRowContext(ctx, query, vaultID, approverID).Scan(
		&approver.ID,
		&approver.VaultID,
		&approver.ApproverID,
		&approver.PinHash,
		&approver.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.VaultApprover{}, commons.ErrRecordNotFound
		}
		logger.Error("vault approver repository get failed", err, logger.Fields{
			"vaultId":    vaultID,
			"approverId": approverID,
		})
		return domain.VaultApprover{}, fmt.Errorf("get vault approver: %w", err)
	}

	return approver, nil
}

func (r *VaultApproverRepository) ListByVault(ctx context.Context, vaultID string) ([]domain.VaultApprover, error) {
	const query = `
SELECT id, vault_id, approver_id, pin_hash, created_at
FROM vault_approvers
WHERE vault_id = $1
ORDER BY approver_id ASC`

	rows, err := r.db.QueryContext(ctx, query, vaultID)
	if err != nil {
		logger.Error("vault approver repository list failed", err, logger.Fields{
			"vaultId": vaultID,
		})
		return nil, fmt.Errorf("list vault approvers: %w", err)
	}
	defer rows.Close()

	var out []domain.VaultApprover
	for rows.Next() {
		var approver domain.VaultApprover
		if err := rows.Scan(
			&approver.ID,
			&approver.VaultID,
			&approver.ApproverID,
			&approver.PinHash,
			&approver.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan vault approver row: %w", err)
		}
		out = append(out, approver)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vault approver rows: %w", err)
	}
	return out, nil
}
