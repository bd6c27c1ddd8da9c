package ledger

import "errors"

var (
	// ErrUnbalanced indicates debit != credit beyond the monetary tolerance.
	ErrUnbalanced = errors.New("ledger: voucher entries must balance")
	// ErrTooFewLines indicates less than two entries.
	ErrTooFewLines = errors.New("ledger: voucher requires at least two entries")
	// ErrVoucherNotFound indicates a missing voucher or batch.
	ErrVoucherNotFound = errors.New("ledger: voucher not found")
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrInvalidStatus indicates action can't proceed from the current status.
	ErrInvalidStatus = errors.New("ledger: invalid status transition")
	// ErrDuplicateNumber indicates a voucher number collision; posting retries.
	ErrDuplicateNumber = errors.New("ledger: duplicate voucher number")
	// ErrInvalidConventions indicates the configured fixed accounts do not exist.
	ErrInvalidConventions = errors.New("ledger: account conventions reference missing accounts")
)
