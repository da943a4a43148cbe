// Package ledger is the only code path permitted to change an
// account's TotalBalance and ReservedBalance. Every function must be
// invoked from inside an AccountRepository mutation lock scope and
// validates the balance invariant before applying any change, so a
// detected violation leaves the account untouched.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
	"github.com/api-sage/vault-ledger-engine/src/internal/logger"
)

// Reserve locks amount out of the available balance so a pending debit
// cannot double-spend against concurrent transactions on the same
// account.
func Reserve(account *domain.VaultAccount, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	if account.AvailableBalance().LessThan(amount) {
		return commons.ErrInsufficientFunds
	}

	nextReserved := account.ReservedBalance.Add(amount)
	if err := checkInvariant(account, account.TotalBalance, nextReserved); err != nil {
		return err
	}

	account.ReservedBalance = nextReserved
	return nil
}

// CommitReservation turns a prior matching reservation into a real
// balance change: the funds leave the account permanently.
func CommitReservation(account *domain.VaultAccount, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	if account.ReservedBalance.LessThan(amount) {
		return reportViolation(account, fmt.Errorf("commit of %s exceeds reserved balance %s", amount, account.ReservedBalance))
	}

	nextReserved := account.ReservedBalance.Sub(amount)
	nextTotal := account.TotalBalance.Sub(amount)
	if err := checkInvariant(account, nextTotal, nextReserved); err != nil {
		return err
	}

	account.ReservedBalance = nextReserved
	account.TotalBalance = nextTotal
	return nil
}

// ReleaseReservation returns a held amount to the available balance
// without moving funds, used on rejection, cancellation and expiry.
func ReleaseReservation(account *domain.VaultAccount, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	if account.ReservedBalance.LessThan(amount) {
		return reportViolation(account, fmt.Errorf("release of %s exceeds reserved balance %s", amount, account.ReservedBalance))
	}

	nextReserved := account.ReservedBalance.Sub(amount)
	if err := checkInvariant(account, account.TotalBalance, nextReserved); err != nil {
		return err
	}

	account.ReservedBalance = nextReserved
	return nil
}

// Credit adds funds directly to the total balance. Credits carry no
// insufficient-funds risk and never touch the reserved portion.
func Credit(account *domain.VaultAccount, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	nextTotal := account.TotalBalance.Add(amount)
	if err := checkInvariant(account, nextTotal, account.ReservedBalance); err != nil {
		return err
	}

	account.TotalBalance = nextTotal
	return nil
}

func checkAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("amount must be greater than zero, got %s", amount)
	}
	return nil
}

func checkInvariant(account *domain.VaultAccount, total decimal.Decimal, reserved decimal.Decimal) error {
	if reserved.IsNegative() || total.IsNegative() || reserved.GreaterThan(total) {
		return reportViolation(account, fmt.Errorf("total %s, reserved %s", total, reserved))
	}
	return nil
}

func reportViolation(account *domain.VaultAccount, cause error) error {
	logger.Error("ledger balance invariant violation", cause, logger.Fields{
		"accountId":       account.ID,
		"totalBalance":    account.TotalBalance,
		"reservedBalance": account.ReservedBalance,
	})
	return fmt.Errorf("%w on account %s: %v", commons.ErrInvariantViolation, account.ID, cause)
}
