package ledger

import (
	"time"

	"github.com/google/uuid"
)

// VoucherType enumerates the four supported voucher kinds.
type VoucherType string

const (
	TypeJournal VoucherType = "JOURNAL"
	TypeReceipt VoucherType = "RECEIPT"
	TypePayment VoucherType = "PAYMENT"
	TypeContra  VoucherType = "CONTRA"
)

// Prefix returns the human-readable voucher number prefix for the type.
func (t VoucherType) Prefix() string {
	switch t {
	case TypeReceipt:
		return "RV"
	case TypePayment:
		return "PV"
	case TypeContra:
		return "CV"
	default:
		return "JV"
	}
}

// VoucherStatus enumerates voucher lifecycle values.
type VoucherStatus string

const (
	// StatusPending marks a header whose entries or balance effects are not
	// yet confirmed. Only visible outside the posting transaction when a
	// non-transactional writer produced the row.
	StatusPending  VoucherStatus = "PENDING"
	StatusPosted   VoucherStatus = "POSTED"
	StatusReversed VoucherStatus = "REVERSED"
)

// PaymentMode selects the cash or bank leg for receipts and payments.
type PaymentMode string

const (
	ModeCash PaymentMode = "Cash"
	ModeBank PaymentMode = "Bank"
)

// Account is a ledger account with its cached balance. The cache is a
// materialized view over entries; TrialBalance and Reconcile never read it.
type Account struct {
	ID        int64
	Name      string
	Type      string
	Balance   float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VoucherLog is one posted transaction header.
type VoucherLog struct {
	ID          int64
	Number      string
	Type        VoucherType
	TotalAmount float64
	Narration   string
	Date        time.Time
	LocationID  int64
	BatchID     uuid.UUID
	Status      VoucherStatus
	IsDeleted   bool
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// VoucherEntry is one debit or credit leg of a voucher. Exactly one of
// Debit/Credit is non-zero.
type VoucherEntry struct {
	ID           int64
	VoucherLogID int64
	AccountID    int64
	Debit        float64
	Credit       float64
	Narration    string
	Date         time.Time
	BatchID      uuid.UUID
	LocationID   int64
	IsDeleted    bool
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountConventions names the fixed accounts the voucher engine posts
// against. Resolved once at startup from configuration, never discovered at
// runtime.
type AccountConventions struct {
	Cash        int64
	Bank        int64
	Receivables int64
}

// SettlementAccount returns the cash or bank account for a payment mode.
func (c AccountConventions) SettlementAccount(mode PaymentMode) int64 {
	if mode == ModeBank {
		return c.Bank
	}
	return c.Cash
}
