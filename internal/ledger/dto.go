package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// balanceTolerance is the monetary-rounding slack allowed between total
// debits and credits.
const balanceTolerance = 0.01

// EntryInput describes one leg of a voucher to post.
type EntryInput struct {
	AccountID int64
	Debit     float64
	Credit    float64
	Narration string
}

// JournalInput groups fields required to post a voucher.
type JournalInput struct {
	Type       VoucherType
	Date       time.Time
	LocationID int64
	Narration  string
	Entries    []EntryInput
}

// Validate ensures posting input meets the double-entry law before any write.
func (in JournalInput) Validate() error {
	if len(in.Entries) < 2 {
		return ErrTooFewLines
	}
	var debit, credit float64
	for idx, entry := range in.Entries {
		if entry.AccountID == 0 {
			return fmt.Errorf("ledger: entry %d missing account", idx)
		}
		if entry.Debit < 0 || entry.Credit < 0 {
			return fmt.Errorf("ledger: entry %d negative amount", idx)
		}
		if entry.Debit > 0 && entry.Credit > 0 {
			return fmt.Errorf("ledger: entry %d cannot be both debit and credit", idx)
		}
		debit += entry.Debit
		credit += entry.Credit
	}
	if math.Abs(debit-credit) > balanceTolerance {
		return ErrUnbalanced
	}
	return nil
}

// Total returns the voucher total, the debit-side sum.
func (in JournalInput) Total() float64 {
	var debit float64
	for _, entry := range in.Entries {
		debit += entry.Debit
	}
	return debit
}

// ReceiptInput records money received from a patient.
type ReceiptInput struct {
	Amount      float64
	PaymentMode PaymentMode
	PatientID   string
	Narration   string
	Date        time.Time
	LocationID  int64
}

// Validate checks receipt fields.
func (in ReceiptInput) Validate() error {
	if in.Amount <= 0 {
		return errors.New("ledger: receipt amount must be positive")
	}
	if in.PaymentMode != ModeCash && in.PaymentMode != ModeBank {
		return fmt.Errorf("ledger: unknown payment mode %q", in.PaymentMode)
	}
	return nil
}

// PaymentInput records money paid out against an expense account.
type PaymentInput struct {
	Amount           float64
	ExpenseAccountID int64
	PaymentMode      PaymentMode
	Narration        string
	Date             time.Time
	LocationID       int64
}

// Validate checks payment fields.
func (in PaymentInput) Validate() error {
	if in.Amount <= 0 {
		return errors.New("ledger: payment amount must be positive")
	}
	if in.ExpenseAccountID == 0 {
		return errors.New("ledger: expense account required")
	}
	if in.PaymentMode != ModeCash && in.PaymentMode != ModeBank {
		return fmt.Errorf("ledger: unknown payment mode %q", in.PaymentMode)
	}
	return nil
}

// ContraInput moves money between two cash/bank accounts.
type ContraInput struct {
	Amount        float64
	FromAccountID int64
	ToAccountID   int64
	Narration     string
	Date          time.Time
	LocationID    int64
}

// Validate checks contra fields.
func (in ContraInput) Validate() error {
	if in.Amount <= 0 {
		return errors.New("ledger: contra amount must be positive")
	}
	if in.FromAccountID == 0 || in.ToAccountID == 0 {
		return errors.New("ledger: both accounts required")
	}
	if in.FromAccountID == in.ToAccountID {
		return errors.New("ledger: contra accounts must differ")
	}
	return nil
}

// EntryFilter narrows entry queries for reporting.
type EntryFilter struct {
	AccountID  *int64
	From       time.Time
	To         time.Time
	LocationID *int64
}
