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

type VaultRepository struct {
	db *sql.DB
}

func NewVaultRepository(db *sql.DB) *VaultRepository {
	return &VaultRepository{db: db}
}

func (r *VaultRepository) Create(ctx context.Context, vault domain.VaultMaster) (domain.VaultMaster, error) {
	logger.Info("vault repository create", logger.Fields{
		"ownerId":           vault.OwnerID,
		"name":              vault.Name,
		"requiresApproval":  vault.RequiresApproval,
		"approvalThreshold": vault.ApprovalThreshold,
	})

	const query = `
INSERT INTO vaults (
	owner_id,
	name,
	requires_approval,
	approval_threshold
) VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		vault.OwnerID,
		vault.Name,
		vault.RequiresApproval,
		vault.ApprovalThreshold,
	).Scan(&vault.ID, &vault.CreatedAt, &vault.UpdatedAt); err != nil {
		logger.Error("vault repository create failed", err, logger.Fields{
			"ownerId": vault.OwnerID,
			"name":    vault.Name,
		})
		return domain.VaultMaster{}, fmt.Errorf("create vault: %w", err)
	}

	return vault, nil
}

func (r *VaultRepository) GetByID(ctx context.Context, id string) (domain.VaultMaster, error) {
	const query = `
SELECT id, owner_id, name, requires_approval, approval_threshold, created_at, updated_at
FROM vaults
WHERE id = $1`

	var vault domain.VaultMaster
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&vault.ID,
		&vault.OwnerID,
		&vault.Name,
		&vault.RequiresApproval,
		&vault.ApprovalThreshold,
		&vault.CreatedAt,
		&vault.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.VaultMaster{}, commons.ErrRecordNotFound
		}
		logger.Error("vault repository get failed", err, logger.Fields{
			"vaultId": id,
		})
		return domain.VaultMaster{}, fmt.Errorf("get vault by id: %w", err)
	}

	return vault, nil
}

func (r *VaultRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.VaultMaster, error) {
	const query = `
SELECT id, owner_id, name, requires_approval, approval_threshold, created_at, updated_at
FROM vaults
WHERE owner_id = $1
ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		logger.Error("vault repository list by owner failed", err, logger.Fields{
			"ownerId": ownerID,
		})
		return nil, fmt.Errorf("list vaults by owner: %w", err)
	}
	defer rows.Close()

	var out []domain.VaultMaster
	for rows.Next() {
		var vault domain.VaultMaster
		if err := rows.Scan(
			&vault.ID,
			&vault.OwnerID,
			&vault.Name,
			&vault.RequiresApproval,
			&vault.ApprovalThreshold,
			&vault.CreatedAt,
			&vault.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan vault row: %w", err)
		}
		out = append(out, vault)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vault rows: %w", err)
	}
	return out, nil
}
