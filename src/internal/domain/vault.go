package domain

import "time"

type VaultMaster struct {
	ID                string
	OwnerID           string
	Name              string
	RequiresApproval  bool
	ApprovalThreshold int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
