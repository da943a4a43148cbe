package domain

import "context"

type ApprovalRepository interface {
	// Create fails with commons.ErrDuplicateApproval when a decision by
	// the same approver already exists for the transaction.
	Create(ctx context.Context, approval Approval) (Approval, error)
	Get(ctx context.Context, transactionID string, approverID string) (Approval, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]Approval, error)
	CountApproved(ctx context.Context, transactionID string) (int, error)
}
