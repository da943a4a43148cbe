package domain

import "time"

type ApprovalDecision string

const (
	ApprovalDecisionApproved ApprovalDecision = "APPROVED"
	ApprovalDecisionRejected ApprovalDecision = "REJECTED"
)

// Approval records one approver's decision on one transaction. At most
// one row may exist per (TransactionID, ApproverID) pair.
type Approval struct {
	ID            string
	TransactionID string
	ApproverID    string
	Decision      ApprovalDecision
	Comment       *string
	CreatedAt     time.Time
}
