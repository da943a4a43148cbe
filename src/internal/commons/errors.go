package commons

import "errors"

var ErrRecordNotFound = errors.New("Record not found")

// ErrValidation tags client input errors so transports can map them to
// a status without matching on response message strings.
var ErrValidation = errors.New("validation failed")

// ValidationError builds a client input error that matches
// ErrValidation under errors.Is while keeping the bare detail as its
// message.
func ValidationError(detail string) error {
	return validationError(detail)
}

type validationError string

func (e validationError) Error() string { return string(e) }

func (e validationError) Is(target error) bool { return target == ErrValidation }

var ErrInsufficientFunds = errors.New("Insufficient funds")
var ErrAccountNotActive = errors.New("Account is not active")
var ErrDuplicateApproval = errors.New("Approval already recorded for this approver")
var ErrAlreadyDecided = errors.New("Approval decision already reached")
var ErrAlreadyFinalized = errors.New("Transaction already finalized")

// ErrInvariantViolation signals reserved > total or a negative balance
// component. It marks a logic bug, never a recoverable client error.
var ErrInvariantViolation = errors.New("Balance invariant violation")
