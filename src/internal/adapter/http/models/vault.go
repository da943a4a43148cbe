package models

import (
	"strings"

	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
)

type VaultApproverInput struct {
	ApproverID string `json:"approverId"`
	Pin        string `json:"pin"`
}

type CreateVaultRequest struct {
	OwnerID           string               `json:"ownerId"`
	Name              string               `json:"name"`
	RequiresApproval  bool                 `json:"requiresApproval"`
	ApprovalThreshold int                  `json:"approvalThreshold"`
	Approvers         []VaultApproverInput `json:"approvers,omitempty"`
}

func (r CreateVaultRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.OwnerID) == "" {
		errs = append(errs, "ownerId is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	if r.ApprovalThreshold < 1 {
		errs = append(errs, "approvalThreshold must be at least 1")
	}
	if r.RequiresApproval && len(r.Approvers) < r.ApprovalThreshold {
		errs = append(errs, "approvers must cover at least approvalThreshold entries when requiresApproval is set")
	}
	for _, approver := range r.Approvers {
		if strings.TrimSpace(approver.ApproverID) == "" {
			errs = append(errs, "approverId is required for every approver")
			break
		}
		if len(strings.TrimSpace(approver.Pin)) < 4 {
			errs = append(errs, "approver pin must be at least 4 characters")
			break
		}
	}

	if len(errs) > 0 {
		return commons.ValidationError(strings.Join(errs, "; "))
	}
	return nil
}

type CreateVaultResponse struct {
	ID                string   `json:"id"`
	OwnerID           string   `json:"ownerId"`
	Name              string   `json:"name"`
	RequiresApproval  bool     `json:"requiresApproval"`
	ApprovalThreshold int      `json:"approvalThreshold"`
	Approvers         []string `json:"approvers,omitempty"`
	CreatedAt         string   `json:"createdAt"`
}

type RegisterApproverRequest struct {
	VaultID    string `json:"vaultId"`
	ApproverID string `json:"approverId"`
	Pin        string `json:"pin"`
}

func (r RegisterApproverRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.VaultID) == "" {
		errs = append(errs, "vaultId is required")
	}
	if strings.TrimSpace(r.ApproverID) == "" {
		errs = append(errs, "approverId is required")
	}
	if len(strings.TrimSpace(r.Pin)) < 4 {
		errs = append(errs, "pin must be at least 4 characters")
	}

	if len(errs) > 0 {
		return commons.ValidationError(strings.Join(errs, "; "))
	}
	return nil
}

type RegisterApproverResponse struct {
	VaultID    string `json:"vaultId"`
	ApproverID string `json:"approverId"`
	CreatedAt  string `json:"createdAt"`
}

type CurrencyBalanceSummary struct {
	Currency         string `json:"currency"`
	TotalBalance     string `json:"totalBalance"`
	AvailableBalance string `json:"availableBalance"`
	ReservedBalance  string `json:"reservedBalance"`
	AccountCount     int    `json:"accountCount"`
}

type BalanceSummaryResponse struct {
	OwnerID    string                   `json:"ownerId"`
	Currencies []CurrencyBalanceSummary `json:"currencies"`
}
