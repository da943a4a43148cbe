package domain

import "time"

// VaultApprover is a party allowed to approve or reject gated
// transactions for a vault. The approval PIN is stored as a bcrypt hash.
type VaultApprover struct {
	ID         string
	VaultID    string
	ApproverID string
	PinHash    string
	CreatedAt  time.Time
}
