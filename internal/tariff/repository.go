package tariff

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRateNotFound indicates no rate row exists for the standard/category pair.
var ErrRateNotFound = errors.New("tariff: rate not found")

// RepositoryPort defines data access methods for tariff rates.
type RepositoryPort interface {
	GetRate(ctx context.Context, standardID int64, category Category) (Rate, error)
	ListRates(ctx context.Context, standardID int64) ([]Rate, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds a PostgreSQL-backed tariff repository.
func NewRepository(db *pgxpool.Pool) RepositoryPort {
	return &repository{db: db}
}

func (r *repository) GetRate(ctx context.Context, standardID int64, category Category) (Rate, error) {
	var rate Rate
	err := r.db.QueryRow(ctx, `SELECT id, tariff_standard_id, category, nabh_charge, non_nabh_charge, created_at, updated_at
FROM tariff_rates WHERE tariff_standard_id=$1 AND category=$2`, standardID, category).
		Scan(&rate.ID, &rate.StandardID, &rate.Category, &rate.NABHCharge, &rate.NonNABHCharge, &rate.CreatedAt, &rate.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, ErrRateNotFound
		}
		return Rate{}, err
	}
	return rate, nil
}

func (r *repository) ListRates(ctx context.Context, standardID int64) ([]Rate, error) {
	rows, err := r.db.Query(ctx, `SELECT id, tariff_standard_id, category, nabh_charge, non_nabh_charge, created_at, updated_at
FROM tariff_rates WHERE tariff_standard_id=$1 ORDER BY category ASC`, standardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rates []Rate
	for rows.Next() {
		var rate Rate
		if err := rows.Scan(&rate.ID, &rate.StandardID, &rate.Category, &rate.NABHCharge, &rate.NonNABHCharge, &rate.CreatedAt, &rate.UpdatedAt); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}
