package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arogya-his/arogya-his/internal/platform/db"
)

const pgUniqueViolation = "23505"

// Repository encapsulates DB operations for the voucher engine.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetAccount(ctx context.Context, id int64) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	GetVoucher(ctx context.Context, id int64) (VoucherLog, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]VoucherEntry, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]VoucherLog, error)
	SetAccountBalance(ctx context.Context, accountID int64, balance float64) error
}

// TxRepository exposes methods available within a posting transaction.
type TxRepository interface {
	NextSequence(ctx context.Context, numberPrefix string, locationID int64) (int, error)
	InsertVoucherLog(ctx context.Context, log VoucherLog) (VoucherLog, error)
	InsertVoucherEntries(ctx context.Context, logID int64, entries []VoucherEntry) ([]VoucherEntry, error)
	ApplyBalance(ctx context.Context, accountID int64, debit, credit float64) error
	UpdateVoucherStatus(ctx context.Context, logID int64, status VoucherStatus) error
	GetEntriesByBatch(ctx context.Context, batchID uuid.UUID) ([]VoucherEntry, error)
	SoftDeleteBatch(ctx context.Context, batchID uuid.UUID, at time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds a PostgreSQL-backed ledger repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) GetAccount(ctx context.Context, id int64) (Account, error) {
	var acc Account
	err := r.db.QueryRow(ctx, `SELECT id, name, type, balance_amount, created_at, updated_at
FROM accounts WHERE id=$1`, id).
		Scan(&acc.ID, &acc.Name, &acc.Type, &acc.Balance, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return acc, nil
}

func (r *repository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, type, balance_amount, created_at, updated_at
FROM accounts ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var acc Account
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.Type, &acc.Balance, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (r *repository) GetVoucher(ctx context.Context, id int64) (VoucherLog, error) {
	var log VoucherLog
	err := r.db.QueryRow(ctx, `SELECT id, voucher_number, type, total_amount, narration, voucher_date, location_id, batch_identifier, status, is_deleted, deleted_at, created_at, updated_at
FROM voucher_logs WHERE id=$1 AND is_deleted=false`, id).
		Scan(&log.ID, &log.Number, &log.Type, &log.TotalAmount, &log.Narration, &log.Date, &log.LocationID, &log.BatchID, &log.Status, &log.IsDeleted, &log.DeletedAt, &log.CreatedAt, &log.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VoucherLog{}, ErrVoucherNotFound
		}
		return VoucherLog{}, err
	}
	return log, nil
}

func (r *repository) ListEntries(ctx context.Context, filter EntryFilter) ([]VoucherEntry, error) {
	query := `SELECT id, voucher_log_id, account_id, debit, credit, narration, voucher_date, batch_identifier, location_id, is_deleted, deleted_at, created_at, updated_at
FROM voucher_entries WHERE is_deleted=false`
	args := []any{}
	idx := 1
	if filter.AccountID != nil {
		query += fmt.Sprintf(" AND account_id=$%d", idx)
		args = append(args, *filter.AccountID)
		idx++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND voucher_date >= $%d", idx)
		args = append(args, filter.From)
		idx++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND voucher_date <= $%d", idx)
		args = append(args, filter.To)
		idx++
	}
	if filter.LocationID != nil {
		query += fmt.Sprintf(" AND location_id=$%d", idx)
		args = append(args, *filter.LocationID)
		idx++
	}
	query += " ORDER BY voucher_date ASC, id ASC"
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *repository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]VoucherLog, error) {
	rows, err := r.db.Query(ctx, `SELECT id, voucher_number, type, total_amount, narration, voucher_date, location_id, batch_identifier, status, is_deleted, deleted_at, created_at, updated_at
FROM voucher_logs WHERE status=$1 AND is_deleted=false AND created_at < $2 ORDER BY created_at ASC`, StatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []VoucherLog
	for rows.Next() {
		var log VoucherLog
		if err := rows.Scan(&log.ID, &log.Number, &log.Type, &log.TotalAmount, &log.Narration, &log.Date, &log.LocationID, &log.BatchID, &log.Status, &log.IsDeleted, &log.DeletedAt, &log.CreatedAt, &log.UpdatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (r *repository) SetAccountBalance(ctx context.Context, accountID int64, balance float64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET balance_amount=$2, updated_at=NOW() WHERE id=$1`, accountID, balance)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

type txRepository struct {
	tx pgx.Tx
}

// NextSequence returns max same-prefix sequence + 1. The suffix after the
// prefix is parsed whole, so sequences past 999 keep counting. The
// voucher_number unique constraint catches concurrent callers; posting
// retries on conflict.
func (r *txRepository) NextSequence(ctx context.Context, numberPrefix string, locationID int64) (int, error) {
	var max int
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(CAST(SUBSTRING(voucher_number FROM LENGTH($1) + 1) AS INT)), 0)
FROM voucher_logs WHERE voucher_number LIKE $1 || '%' AND location_id=$2`, numberPrefix, locationID).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *txRepository) InsertVoucherLog(ctx context.Context, log VoucherLog) (VoucherLog, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO voucher_logs (voucher_number, type, total_amount, narration, voucher_date, location_id, batch_identifier, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, updated_at`,
		log.Number, log.Type, log.TotalAmount, log.Narration, log.Date, log.LocationID, log.BatchID, log.Status)
	if err := row.Scan(&log.ID, &log.CreatedAt, &log.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return VoucherLog{}, ErrDuplicateNumber
		}
		return VoucherLog{}, err
	}
	return log, nil
}

func (r *txRepository) InsertVoucherEntries(ctx context.Context, logID int64, entries []VoucherEntry) ([]VoucherEntry, error) {
	out := make([]VoucherEntry, 0, len(entries))
	for _, entry := range entries {
		entry.VoucherLogID = logID
		err := r.tx.QueryRow(ctx, `INSERT INTO voucher_entries (voucher_log_id, account_id, debit, credit, narration, voucher_date, batch_identifier, location_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, updated_at`,
			logID, entry.AccountID, entry.Debit, entry.Credit, entry.Narration, entry.Date, entry.BatchID, entry.LocationID).
			Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// ApplyBalance adds debit-credit to the cached balance as a single atomic
// increment, creating a zero-initialized account row on first touch.
func (r *txRepository) ApplyBalance(ctx context.Context, accountID int64, debit, credit float64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO accounts (id, name, type, balance_amount)
VALUES ($1, 'Account ' || $1::text, 'UNSPECIFIED', $2)
ON CONFLICT (id) DO UPDATE SET balance_amount = accounts.balance_amount + $2, updated_at = NOW()`,
		accountID, debit-credit)
	return err
}

func (r *txRepository) UpdateVoucherStatus(ctx context.Context, logID int64, status VoucherStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE voucher_logs SET status=$2, updated_at=NOW() WHERE id=$1`, logID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVoucherNotFound
	}
	return nil
}

func (r *txRepository) GetEntriesByBatch(ctx context.Context, batchID uuid.UUID) ([]VoucherEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, voucher_log_id, account_id, debit, credit, narration, voucher_date, batch_identifier, location_id, is_deleted, deleted_at, created_at, updated_at
FROM voucher_entries WHERE batch_identifier=$1 AND is_deleted=false ORDER BY id ASC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *txRepository) SoftDeleteBatch(ctx context.Context, batchID uuid.UUID, at time.Time) error {
	if _, err := r.tx.Exec(ctx, `UPDATE voucher_entries SET is_deleted=true, deleted_at=$2, updated_at=NOW()
WHERE batch_identifier=$1 AND is_deleted=false`, batchID, at); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE voucher_logs SET is_deleted=true, deleted_at=$2, status=$3, updated_at=NOW()
WHERE batch_identifier=$1 AND is_deleted=false`, batchID, at, StatusReversed)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVoucherNotFound
	}
	return nil
}

func scanEntries(rows pgx.Rows) ([]VoucherEntry, error) {
	var entries []VoucherEntry
	for rows.Next() {
		var entry VoucherEntry
		if err := rows.Scan(&entry.ID, &entry.VoucherLogID, &entry.AccountID, &entry.Debit, &entry.Credit, &entry.Narration, &entry.Date, &entry.BatchID, &entry.LocationID, &entry.IsDeleted, &entry.DeletedAt, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
