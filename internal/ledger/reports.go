package ledger

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"
)

// TrialBalanceRow aggregates debit/credit for one account over a range.
type TrialBalanceRow struct {
	AccountID   int64
	AccountName string
	Debit       float64
	Credit      float64
}

// Net returns the row's debit-minus-credit balance.
func (r TrialBalanceRow) Net() float64 {
	return r.Debit - r.Credit
}

// TrialBalance is the audit view over raw entries. It is derived entirely by
// replay and never reads the cached account balances.
type TrialBalance struct {
	From        time.Time
	To          time.Time
	Rows        []TrialBalanceRow
	TotalDebit  float64
	TotalCredit float64
}

// LedgerLine is one entry with the running balance after it.
type LedgerLine struct {
	Entry   VoucherEntry
	Balance float64
}

// AccountLedger lists an account's entries chronologically with a running
// balance folded left to right.
type AccountLedger struct {
	AccountID      int64
	From           time.Time
	To             time.Time
	Lines          []LedgerLine
	ClosingBalance float64
}

// Drift records disagreement between an account's cached balance and the
// balance derived from its entries.
type Drift struct {
	AccountID int64
	Cached    float64
	Derived   float64
}

// BuildTrialBalance groups entries by account, summing debits and credits
// independently.
func BuildTrialBalance(entries []VoucherEntry, names map[int64]string) TrialBalance {
	byAccount := make(map[int64]*TrialBalanceRow)
	ids := make([]int64, 0)
	for _, entry := range entries {
		row, ok := byAccount[entry.AccountID]
		if !ok {
			row = &TrialBalanceRow{AccountID: entry.AccountID, AccountName: names[entry.AccountID]}
			byAccount[entry.AccountID] = row
			ids = append(ids, entry.AccountID)
		}
		row.Debit += entry.Debit
		row.Credit += entry.Credit
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var tb TrialBalance
	for _, id := range ids {
		row := byAccount[id]
		tb.Rows = append(tb.Rows, *row)
		tb.TotalDebit += row.Debit
		tb.TotalCredit += row.Credit
	}
	return tb
}

// TrialBalance re-derives per-account totals over a date range.
func (s *Service) TrialBalance(ctx context.Context, from, to time.Time, locationID *int64) (TrialBalance, error) {
	entries, err := s.repo.ListEntries(ctx, EntryFilter{From: from, To: to, LocationID: locationID})
	if err != nil {
		return TrialBalance{}, err
	}
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return TrialBalance{}, err
	}
	names := make(map[int64]string, len(accounts))
	for _, acc := range accounts {
		names[acc.ID] = acc.Name
	}
	tb := BuildTrialBalance(entries, names)
	tb.From = from
	tb.To = to
	return tb, nil
}

// AccountLedger replays one account's entries with a running balance. This is
// the one read path where balance is derived rather than cached.
func (s *Service) AccountLedger(ctx context.Context, accountID int64, from, to time.Time) (AccountLedger, error) {
	entries, err := s.repo.ListEntries(ctx, EntryFilter{AccountID: &accountID, From: from, To: to})
	if err != nil {
		return AccountLedger{}, err
	}
	ledger := AccountLedger{AccountID: accountID, From: from, To: to}
	var running float64
	for _, entry := range entries {
		running += entry.Debit - entry.Credit
		ledger.Lines = append(ledger.Lines, LedgerLine{Entry: entry, Balance: running})
	}
	ledger.ClosingBalance = running
	return ledger, nil
}

// CashBook is the ledger pinned to the conventional cash account.
func (s *Service) CashBook(ctx context.Context, from, to time.Time) (AccountLedger, error) {
	return s.AccountLedger(ctx, s.accounts.Cash, from, to)
}

// Reconcile replays all entries per account and compares against cached
// balances. With repair set, drifted caches are rewritten from the derived
// value.
func (s *Service) Reconcile(ctx context.Context, repair bool) ([]Drift, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, EntryFilter{})
	if err != nil {
		return nil, err
	}
	derived := make(map[int64]float64, len(accounts))
	for _, entry := range entries {
		derived[entry.AccountID] += entry.Debit - entry.Credit
	}
	var drifts []Drift
	for _, acc := range accounts {
		want := derived[acc.ID]
		if math.Abs(acc.Balance-want) <= balanceTolerance {
			continue
		}
		drifts = append(drifts, Drift{AccountID: acc.ID, Cached: acc.Balance, Derived: want})
		if !repair {
			continue
		}
		if err := s.repo.SetAccountBalance(ctx, acc.ID, want); err != nil {
			return drifts, err
		}
		if s.logger != nil {
			s.logger.Warn("repaired drifted account balance",
				slog.Int64("account_id", acc.ID),
				slog.Float64("cached", acc.Balance),
				slog.Float64("derived", want))
		}
	}
	return drifts, nil
}
