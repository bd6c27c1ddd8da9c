package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// maxNumberAttempts bounds retries when concurrent postings collide on the
// same voucher number.
const maxNumberAttempts = 3

// Service is the double-entry voucher engine. Every posting runs inside a
// single store-side transaction: header, entries and balance effects commit
// or roll back together.
type Service struct {
	repo     Repository
	accounts AccountConventions
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds the voucher engine.
func NewService(repo Repository, accounts AccountConventions, logger *slog.Logger) *Service {
	return &Service{repo: repo, accounts: accounts, logger: logger, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ValidateConventions checks that the configured fixed accounts exist.
// Called once at startup, before any posting.
func (s *Service) ValidateConventions(ctx context.Context) error {
	for _, id := range []int64{s.accounts.Cash, s.accounts.Bank, s.accounts.Receivables} {
		if _, err := s.repo.GetAccount(ctx, id); err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return fmt.Errorf("%w: account %d", ErrInvalidConventions, id)
			}
			return err
		}
	}
	return nil
}

// PostJournal validates and posts a voucher with N balanced entries.
func (s *Service) PostJournal(ctx context.Context, input JournalInput) (VoucherLog, []VoucherEntry, error) {
	if err := input.Validate(); err != nil {
		return VoucherLog{}, nil, err
	}
	voucherType := input.Type
	if voucherType == "" {
		voucherType = TypeJournal
	}
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}

	var (
		log     VoucherLog
		entries []VoucherEntry
	)
	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		log, entries, err = s.postOnce(ctx, voucherType, date, input)
		if !errors.Is(err, ErrDuplicateNumber) {
			break
		}
		if s.logger != nil {
			s.logger.Warn("voucher number collision, retrying",
				slog.String("type", string(voucherType)),
				slog.Int("attempt", attempt+1))
		}
	}
	if err != nil {
		return VoucherLog{}, nil, err
	}
	if s.logger != nil {
		s.logger.Info("voucher posted",
			slog.String("number", log.Number),
			slog.String("type", string(log.Type)),
			slog.Float64("total", log.TotalAmount))
	}
	return log, entries, nil
}

func (s *Service) postOnce(ctx context.Context, voucherType VoucherType, date time.Time, input JournalInput) (VoucherLog, []VoucherEntry, error) {
	batchID := uuid.New()
	var (
		log     VoucherLog
		entries []VoucherEntry
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		prefix := voucherType.Prefix() + date.Format("20060102")
		seq, err := tx.NextSequence(ctx, prefix, input.LocationID)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertVoucherLog(ctx, VoucherLog{
			Number:      fmt.Sprintf("%s%03d", prefix, seq),
			Type:        voucherType,
			TotalAmount: input.Total(),
			Narration:   input.Narration,
			Date:        date,
			LocationID:  input.LocationID,
			BatchID:     batchID,
			Status:      StatusPending,
		})
		if err != nil {
			return err
		}
		toInsert := make([]VoucherEntry, 0, len(input.Entries))
		for _, in := range input.Entries {
			narration := in.Narration
			if narration == "" {
				narration = input.Narration
			}
			toInsert = append(toInsert, VoucherEntry{
				AccountID:  in.AccountID,
				Debit:      in.Debit,
				Credit:     in.Credit,
				Narration:  narration,
				Date:       date,
				BatchID:    batchID,
				LocationID: input.LocationID,
			})
		}
		written, err := tx.InsertVoucherEntries(ctx, inserted.ID, toInsert)
		if err != nil {
			return err
		}
		for _, entry := range written {
			if err := tx.ApplyBalance(ctx, entry.AccountID, entry.Debit, entry.Credit); err != nil {
				return err
			}
		}
		if err := tx.UpdateVoucherStatus(ctx, inserted.ID, StatusPosted); err != nil {
			return err
		}
		inserted.Status = StatusPosted
		log = inserted
		entries = written
		return nil
	})
	if err != nil {
		return VoucherLog{}, nil, err
	}
	return log, entries, nil
}

// PostReceipt debits cash or bank by payment mode and credits patient
// receivables, as a 2-entry batch.
func (s *Service) PostReceipt(ctx context.Context, input ReceiptInput) (VoucherLog, error) {
	if err := input.Validate(); err != nil {
		return VoucherLog{}, err
	}
	narration := input.Narration
	if narration == "" {
		narration = fmt.Sprintf("Receipt from patient %s", input.PatientID)
	}
	log, _, err := s.PostJournal(ctx, JournalInput{
		Type:       TypeReceipt,
		Date:       input.Date,
		LocationID: input.LocationID,
		Narration:  narration,
		Entries: []EntryInput{
			{AccountID: s.accounts.SettlementAccount(input.PaymentMode), Debit: input.Amount},
			{AccountID: s.accounts.Receivables, Credit: input.Amount},
		},
	})
	return log, err
}

// PostPayment debits the caller-specified expense account and credits cash
// or bank by payment mode.
func (s *Service) PostPayment(ctx context.Context, input PaymentInput) (VoucherLog, error) {
	if err := input.Validate(); err != nil {
		return VoucherLog{}, err
	}
	log, _, err := s.PostJournal(ctx, JournalInput{
		Type:       TypePayment,
		Date:       input.Date,
		LocationID: input.LocationID,
		Narration:  input.Narration,
		Entries: []EntryInput{
			{AccountID: input.ExpenseAccountID, Debit: input.Amount},
			{AccountID: s.accounts.SettlementAccount(input.PaymentMode), Credit: input.Amount},
		},
	})
	return log, err
}

// PostContra debits the destination account and credits the source account.
func (s *Service) PostContra(ctx context.Context, input ContraInput) (VoucherLog, error) {
	if err := input.Validate(); err != nil {
		return VoucherLog{}, err
	}
	log, _, err := s.PostJournal(ctx, JournalInput{
		Type:       TypeContra,
		Date:       input.Date,
		LocationID: input.LocationID,
		Narration:  input.Narration,
		Entries: []EntryInput{
			{AccountID: input.ToAccountID, Debit: input.Amount},
			{AccountID: input.FromAccountID, Credit: input.Amount},
		},
	})
	return log, err
}

// DeleteVoucher reverses every entry's balance effect and soft-deletes the
// batch as a unit. All deletion paths funnel through here.
func (s *Service) DeleteVoucher(ctx context.Context, batchID uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entries, err := tx.GetEntriesByBatch(ctx, batchID)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			// Swapped legs undo the original effect exactly.
			if err := tx.ApplyBalance(ctx, entry.AccountID, entry.Credit, entry.Debit); err != nil {
				return err
			}
		}
		// A header without live entries is still reversed: a post that died
		// before writing entries left no balance effect to undo, and the
		// header must not stay PENDING forever. SoftDeleteBatch reports
		// ErrVoucherNotFound when no live header carries the batch.
		return tx.SoftDeleteBatch(ctx, batchID, s.now())
	})
	if err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("voucher reversed", slog.String("batch", batchID.String()))
	}
	return nil
}

// DeleteVoucherByID resolves a voucher id to its batch identifier and
// delegates to DeleteVoucher.
func (s *Service) DeleteVoucherByID(ctx context.Context, id int64) error {
	log, err := s.repo.GetVoucher(ctx, id)
	if err != nil {
		return err
	}
	return s.DeleteVoucher(ctx, log.BatchID)
}

// GetVoucher returns a voucher header by id.
func (s *Service) GetVoucher(ctx context.Context, id int64) (VoucherLog, error) {
	return s.repo.GetVoucher(ctx, id)
}

// SweepPending rolls back vouchers left PENDING longer than ttl. PENDING
// outside a posting transaction means a non-transactional writer never
// confirmed the batch; reversal restores balances and marks it REVERSED.
func (s *Service) SweepPending(ctx context.Context, ttl time.Duration) (int, error) {
	stale, err := s.repo.ListPendingBefore(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, log := range stale {
		if err := s.DeleteVoucher(ctx, log.BatchID); err != nil {
			if s.logger != nil {
				s.logger.Error("pending voucher rollback failed",
					slog.String("number", log.Number),
					slog.Any("error", err))
			}
			continue
		}
		swept++
	}
	return swept, nil
}
