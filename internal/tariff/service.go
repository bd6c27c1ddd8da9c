package tariff

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Default rates applied when no tariff mapping exists. Billing must never
// hard-fail on a missing mapping; it degrades to these estimates.
var defaultRates = map[Category]float64{
	CategoryWardICU:      2500,
	CategoryWardDeluxe:   1800,
	CategoryWardAC:       1200,
	CategoryWardGeneral:  800,
	CategoryNursing:      200,
	CategoryDoctor:       500,
	CategoryLab:          300,
	CategoryRadiology:    400,
	CategorySurgery:      5000,
	CategoryRegistration: 100,
	CategoryConsultant:   350,
}

// Resolver answers rate lookups for charge categories.
type Resolver struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewResolver builds a Resolver instance.
func NewResolver(repo RepositoryPort, logger *slog.Logger) *Resolver {
	return &Resolver{repo: repo, logger: logger}
}

// Rate returns the applicable charge for a category under the given tariff
// standard, choosing the NABH or non-NABH column by the nabh flag. A missing
// mapping falls back to the category default.
func (r *Resolver) Rate(ctx context.Context, standardID int64, category Category, nabh bool) float64 {
	rate, err := r.repo.GetRate(ctx, standardID, category)
	if err != nil {
		if !errors.Is(err, ErrRateNotFound) && r.logger != nil {
			r.logger.Error("tariff lookup failed, using default rate",
				slog.Int64("standard_id", standardID),
				slog.String("category", string(category)),
				slog.Any("error", err))
		}
		return DefaultRate(category)
	}
	if nabh {
		return rate.NABHCharge
	}
	return rate.NonNABHCharge
}

// DefaultRate returns the hard-coded fallback for a category.
func DefaultRate(category Category) float64 {
	return defaultRates[category]
}

// WardCategory maps a free-text ward type to its tariff category. Matching is
// case-insensitive substring, first match wins.
func WardCategory(wardType string) Category {
	lower := strings.ToLower(wardType)
	switch {
	case strings.Contains(lower, "icu"):
		return CategoryWardICU
	case strings.Contains(lower, "deluxe"):
		return CategoryWardDeluxe
	case strings.Contains(lower, "ac"):
		return CategoryWardAC
	default:
		return CategoryWardGeneral
	}
}
