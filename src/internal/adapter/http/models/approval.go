package models

import (
	"strings"

	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
)

type SubmitApprovalRequest struct {
	TransactionID string `json:"transactionId"`
	ApproverID    string `json:"approverId"`
	Decision      string `json:"decision"`
	Pin           string `json:"pin"`
	Comment       string `json:"comment,omitempty"`
}

func (r SubmitApprovalRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.TransactionID) == "" {
		errs = append(errs, "transactionId is required")
	}
	if strings.TrimSpace(r.ApproverID) == "" {
		errs = append(errs, "approverId is required")
	}

	switch strings.ToUpper(strings.TrimSpace(r.Decision)) {
	case "APPROVED", "REJECTED":
	default:
		errs = append(errs, "decision must be APPROVED or REJECTED")
	}

	if strings.TrimSpace(r.Pin) == "" {
		errs = append(errs, "pin is required")
	}

	if len(errs) > 0 {
		return commons.ValidationError(strings.Join(errs, "; "))
	}
	return nil
}
