package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arogya-his/arogya-his/internal/ledger"
	"github.com/arogya-his/arogya-his/internal/tariff"
)

// RatePort resolves charge rates; satisfied by tariff.Resolver.
type RatePort interface {
	Rate(ctx context.Context, standardID int64, category tariff.Category, nabh bool) float64
}

// VoucherPort posts receipt vouchers for payments taken through billing.
type VoucherPort interface {
	PostReceipt(ctx context.Context, input ledger.ReceiptInput) (ledger.VoucherLog, error)
}

// CachePort holds short-lived breakdown snapshots keyed by patient.
type CachePort interface {
	GetBreakdown(ctx context.Context, patientID string) (Breakdown, bool, error)
	SetBreakdown(ctx context.Context, patientID string, breakdown Breakdown) error
	Invalidate(ctx context.Context, patientID string) error
}

// Config carries billing conventions resolved from configuration.
type Config struct {
	NABHLocationID int64
	AnesthesiaRate float64
}

// Service aggregates heterogeneous charge sources into a single consistent
// total and maintains the final-bill snapshot.
type Service struct {
	repo     RepositoryPort
	rates    RatePort
	vouchers VoucherPort
	cache    CachePort
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds the billing service.
func NewService(repo RepositoryPort, rates RatePort, vouchers VoucherPort, cache CachePort, cfg Config, logger *slog.Logger) *Service {
	if cfg.AnesthesiaRate == 0 {
		cfg.AnesthesiaRate = 0.15
	}
	return &Service{repo: repo, rates: rates, vouchers: vouchers, cache: cache, cfg: cfg, logger: logger, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// AdmissionDays counts whole days between two instants, rounding partial
// days up and never returning less than one. Hospital billing bills a
// same-day admission as one day.
func AdmissionDays(from, to time.Time) int {
	if !to.After(from) {
		return 1
	}
	days := int(math.Ceil(to.Sub(from).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// resolveEnd picks the interval end: discharge if recorded, otherwise now,
// so charges on an open admission grow until discharge.
func (s *Service) resolveEnd(out *time.Time) time.Time {
	if out != nil && !out.IsZero() {
		return *out
	}
	return s.now()
}

// IsNABH reports whether the patient bills at NABH rates: either the
// explicit flag or the location convention suffices.
func (s *Service) IsNABH(patient Patient) bool {
	return patient.HospitalType == HospitalTypeNABH || patient.LocationID == s.cfg.NABHLocationID
}

// WardCharges walks the patient's ward-stay history summing day-count times
// the resolved daily rate per stay.
func (s *Service) WardCharges(ctx context.Context, patient Patient, nabh bool) (float64, error) {
	stays, err := s.repo.ListWardStays(ctx, patient.ID)
	if err != nil {
		return 0, fmt.Errorf("billing: list ward stays: %w", err)
	}
	var total float64
	for _, stay := range stays {
		days := AdmissionDays(stay.InDate, s.resolveEnd(stay.OutDate))
		rate := s.rates.Rate(ctx, stay.TariffStandardID, tariff.WardCategory(stay.WardType), nabh)
		total += float64(days) * rate
	}
	return total, nil
}

// serviceCharges sums quantity times resolved rate over the patient's rows in
// one category. Missing rows mean zero, never an error.
func (s *Service) serviceCharges(ctx context.Context, patient Patient, category tariff.Category, nabh bool) (float64, error) {
	records, err := s.repo.ListServiceRecords(ctx, patient.ID, category)
	if err != nil {
		return 0, fmt.Errorf("billing: list %s records: %w", category, err)
	}
	var total float64
	for _, rec := range records {
		standardID := rec.TariffStandardID
		if standardID == 0 {
			standardID = patient.TariffStandardID
		}
		total += rec.Quantity * s.rates.Rate(ctx, standardID, category, nabh)
	}
	return total, nil
}

// PharmacyCharges sums the stored flat sale amounts.
func (s *Service) PharmacyCharges(ctx context.Context, patientID string) (float64, error) {
	sales, err := s.repo.ListPharmacySales(ctx, patientID)
	if err != nil {
		return 0, fmt.Errorf("billing: list pharmacy sales: %w", err)
	}
	var total float64
	for _, sale := range sales {
		total += sale.TotalAmount
	}
	return total, nil
}

// CalculateTotalBill assembles all category subtotals for a patient. The one
// mandatory precondition is that the patient exists; every charge category
// defaults to zero. Pure with respect to payments.
func (s *Service) CalculateTotalBill(ctx context.Context, patientID string) (Breakdown, error) {
	patient, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		return Breakdown{}, err
	}
	nabh := s.IsNABH(patient)
	totalDays := AdmissionDays(patient.AdmissionDate, s.resolveEnd(patient.DischargeDate))

	var breakdown Breakdown
	breakdown.RegistrationCharges = s.rates.Rate(ctx, patient.TariffStandardID, tariff.CategoryRegistration, nabh)
	breakdown.ConsultantCharges = s.rates.Rate(ctx, patient.TariffStandardID, tariff.CategoryConsultant, nabh)
	// Professional fee is a flat per-day charge, independent of source rows.
	breakdown.DoctorCharges = float64(totalDays) * s.rates.Rate(ctx, patient.TariffStandardID, tariff.CategoryDoctor, nabh)

	// Category aggregators have no ordering dependency between them.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		breakdown.WardCharges, err = s.WardCharges(gctx, patient, nabh)
		return err
	})
	g.Go(func() error {
		var err error
		breakdown.NursingCharges, err = s.serviceCharges(gctx, patient, tariff.CategoryNursing, nabh)
		return err
	})
	g.Go(func() error {
		var err error
		breakdown.LabCharges, err = s.serviceCharges(gctx, patient, tariff.CategoryLab, nabh)
		return err
	})
	g.Go(func() error {
		var err error
		breakdown.RadiologyCharges, err = s.serviceCharges(gctx, patient, tariff.CategoryRadiology, nabh)
		return err
	})
	g.Go(func() error {
		var err error
		breakdown.PharmacyCharges, err = s.PharmacyCharges(gctx, patient.ID)
		return err
	})
	g.Go(func() error {
		surgery, err := s.serviceCharges(gctx, patient, tariff.CategorySurgery, nabh)
		if err != nil {
			return err
		}
		breakdown.SurgeryCharges = surgery
		// Anesthesia is billed as a proportion of surgery, not from its own
		// source rows.
		breakdown.AnesthesiaCharges = s.cfg.AnesthesiaRate * surgery
		return nil
	})
	g.Go(func() error {
		records, err := s.repo.ListServiceRecords(gctx, patient.ID, tariff.CategoryOther)
		if err != nil {
			return fmt.Errorf("billing: list other records: %w", err)
		}
		var total float64
		for _, rec := range records {
			total += rec.Quantity
		}
		breakdown.OtherCharges = total
		return nil
	})
	if err := g.Wait(); err != nil {
		return Breakdown{}, err
	}

	breakdown.TotalCharges = breakdown.Sum()
	return breakdown, nil
}

// GetBreakdown serves the breakdown from cache when fresh, recomputing
// otherwise. Cache failures degrade to recomputation.
func (s *Service) GetBreakdown(ctx context.Context, patientID string) (Breakdown, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetBreakdown(ctx, patientID)
		if err != nil && s.logger != nil {
			s.logger.Warn("breakdown cache read failed", slog.Any("error", err))
		}
		if ok {
			return cached, nil
		}
	}
	breakdown, err := s.CalculateTotalBill(ctx, patientID)
	if err != nil {
		return Breakdown{}, err
	}
	if s.cache != nil {
		if err := s.cache.SetBreakdown(ctx, patientID, breakdown); err != nil && s.logger != nil {
			s.logger.Warn("breakdown cache write failed", slog.Any("error", err))
		}
	}
	return breakdown, nil
}

// FinalBillInput carries the user-entered payment allocation.
type FinalBillInput struct {
	PatientID      string
	DiscountAmount float64
	PaidAmount     float64
	PaymentMode    ledger.PaymentMode
	LocationID     int64
}

// SaveFinalBill recomputes the breakdown, upserts the denormalized snapshot
// and posts a matching receipt voucher for the paid amount. The snapshot
// write and the voucher post are separate operations; ledger replay is the
// audit for the gap between them.
func (s *Service) SaveFinalBill(ctx context.Context, input FinalBillInput) (FinalBill, error) {
	if input.DiscountAmount < 0 || input.PaidAmount < 0 {
		return FinalBill{}, errors.New("billing: negative amounts not allowed")
	}
	breakdown, err := s.CalculateTotalBill(ctx, input.PatientID)
	if err != nil {
		return FinalBill{}, err
	}
	advance, err := s.repo.SumAdvances(ctx, input.PatientID)
	if err != nil {
		return FinalBill{}, fmt.Errorf("billing: sum advances: %w", err)
	}
	final := breakdown.TotalCharges - advance - input.DiscountAmount
	bill := FinalBill{
		PatientID:      input.PatientID,
		TotalBill:      breakdown.TotalCharges,
		AdvanceAmount:  advance,
		DiscountAmount: input.DiscountAmount,
		FinalAmount:    final,
		PaidAmount:     input.PaidAmount,
		BalanceAmount:  final - input.PaidAmount,
		Breakdown:      breakdown,
		UpdatedAt:      s.now(),
	}
	if err := s.repo.UpsertFinalBill(ctx, bill); err != nil {
		return FinalBill{}, fmt.Errorf("billing: upsert final bill: %w", err)
	}
	s.invalidate(ctx, input.PatientID)
	if input.PaidAmount > 0 && s.vouchers != nil {
		mode := input.PaymentMode
		if mode == "" {
			mode = ledger.ModeCash
		}
		if _, err := s.vouchers.PostReceipt(ctx, ledger.ReceiptInput{
			Amount:      input.PaidAmount,
			PaymentMode: mode,
			PatientID:   input.PatientID,
			Narration:   fmt.Sprintf("Final bill payment for patient %s", input.PatientID),
			LocationID:  input.LocationID,
		}); err != nil {
			return FinalBill{}, fmt.Errorf("billing: post receipt: %w", err)
		}
	}
	return bill, nil
}

// AdvanceInput records an advance payment.
type AdvanceInput struct {
	PatientID   string
	Amount      float64
	PaymentMode ledger.PaymentMode
	LocationID  int64
}

// RecordAdvance stores the advance, posts its receipt voucher and refreshes
// the snapshot's advance and balance columns.
func (s *Service) RecordAdvance(ctx context.Context, input AdvanceInput) (AdvancePayment, error) {
	if input.Amount <= 0 {
		return AdvancePayment{}, errors.New("billing: advance amount must be positive")
	}
	if _, err := s.repo.GetPatient(ctx, input.PatientID); err != nil {
		return AdvancePayment{}, err
	}
	mode := input.PaymentMode
	if mode == "" {
		mode = ledger.ModeCash
	}
	advance, err := s.repo.InsertAdvance(ctx, AdvancePayment{
		PatientID:   input.PatientID,
		Amount:      input.Amount,
		PaymentMode: string(mode),
		ReceivedAt:  s.now(),
	})
	if err != nil {
		return AdvancePayment{}, fmt.Errorf("billing: insert advance: %w", err)
	}
	s.invalidate(ctx, input.PatientID)
	if s.vouchers != nil {
		if _, err := s.vouchers.PostReceipt(ctx, ledger.ReceiptInput{
			Amount:      input.Amount,
			PaymentMode: mode,
			PatientID:   input.PatientID,
			Narration:   fmt.Sprintf("Advance payment from patient %s", input.PatientID),
			LocationID:  input.LocationID,
		}); err != nil {
			return AdvancePayment{}, fmt.Errorf("billing: post receipt: %w", err)
		}
	}
	if err := s.refreshSnapshot(ctx, input.PatientID); err != nil && s.logger != nil {
		// The snapshot is a cache; a failed refresh is logged, not fatal.
		s.logger.Warn("final bill snapshot refresh failed",
			slog.String("patient_id", input.PatientID), slog.Any("error", err))
	}
	return advance, nil
}

func (s *Service) refreshSnapshot(ctx context.Context, patientID string) error {
	breakdown, err := s.CalculateTotalBill(ctx, patientID)
	if err != nil {
		return err
	}
	advance, err := s.repo.SumAdvances(ctx, patientID)
	if err != nil {
		return err
	}
	existing, err := s.repo.GetFinalBill(ctx, patientID)
	if err != nil && !errors.Is(err, ErrPatientNotFound) {
		return err
	}
	final := breakdown.TotalCharges - advance - existing.DiscountAmount
	return s.repo.UpsertFinalBill(ctx, FinalBill{
		PatientID:      patientID,
		TotalBill:      breakdown.TotalCharges,
		AdvanceAmount:  advance,
		DiscountAmount: existing.DiscountAmount,
		FinalAmount:    final,
		PaidAmount:     existing.PaidAmount,
		BalanceAmount:  final - existing.PaidAmount,
		Breakdown:      breakdown,
		UpdatedAt:      s.now(),
	})
}

func (s *Service) invalidate(ctx context.Context, patientID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, patientID); err != nil && s.logger != nil {
		s.logger.Warn("breakdown cache invalidation failed", slog.Any("error", err))
	}
}
