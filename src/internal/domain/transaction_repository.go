package domain

import "context"

type TransactionRepository interface {
	Create(ctx context.Context, tx VaultTransaction) (VaultTransaction, error)
	GetByID(ctx context.Context, id string) (VaultTransaction, error)
	List(ctx context.Context, filter TransactionFilter, page int, pageSize int) ([]VaultTransaction, int, error)

	// UpdateStatus transitions a transaction to status and appends the
	// change to the status history. Writing the terminal status a
	// transaction already holds is an idempotent no-op (transitioned is
	// false, no error); writing a different status over a terminal one
	// fails with commons.ErrAlreadyFinalized. Terminal transitions stamp
	// CompletedAt.
	UpdateStatus(ctx context.Context, id string, status TransactionStatus) (VaultTransaction, bool, error)

	// SetApprovalStatus is a compare-and-set on the approval status.
	// transitioned is false when the current value does not match from.
	SetApprovalStatus(ctx context.Context, id string, from ApprovalStatus, to ApprovalStatus) (VaultTransaction, bool, error)

	// FinalizeWithMutation writes status and applies fn to the account
	// in one atomic scope, so the balance effect and the terminal state
	// cannot diverge under partial failure. UpdateStatus idempotency
	// rules apply, and a skipped status write skips fn entirely; fn
	// returning an error discards both.
	FinalizeWithMutation(ctx context.Context, id string, status TransactionStatus, accountID string, fn func(account *VaultAccount) error) (VaultTransaction, error)

	// FinalizeWithPairMutation is FinalizeWithMutation over two distinct
	// accounts, locked in ascending account-id order. fn receives the
	// accounts in argument order.
	FinalizeWithPairMutation(ctx context.Context, id string, status TransactionStatus, firstID string, secondID string, fn func(first *VaultAccount, second *VaultAccount) error) (VaultTransaction, error)

	ListStatusHistory(ctx context.Context, id string) ([]TransactionStatusChange, error)
}
