package billing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arogya-his/arogya-his/internal/tariff"
)

// ErrPatientNotFound is the one mandatory precondition failure of the bill
// assembler.
var ErrPatientNotFound = errors.New("billing: patient not found")

// RepositoryPort defines data access for the billing core. Ward stays and
// category source rows are owned by other modules and read-only here.
type RepositoryPort interface {
	GetPatient(ctx context.Context, patientID string) (Patient, error)
	ListWardStays(ctx context.Context, patientID string) ([]WardStay, error)
	ListServiceRecords(ctx context.Context, patientID string, category tariff.Category) ([]ServiceRecord, error)
	ListPharmacySales(ctx context.Context, patientID string) ([]PharmacySale, error)
	UpsertFinalBill(ctx context.Context, bill FinalBill) error
	GetFinalBill(ctx context.Context, patientID string) (FinalBill, error)
	InsertAdvance(ctx context.Context, advance AdvancePayment) (AdvancePayment, error)
	SumAdvances(ctx context.Context, patientID string) (float64, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds a PostgreSQL-backed billing repository.
func NewRepository(db *pgxpool.Pool) RepositoryPort {
	return &repository{db: db}
}

func (r *repository) GetPatient(ctx context.Context, patientID string) (Patient, error) {
	var p Patient
	err := r.db.QueryRow(ctx, `SELECT id, name, tariff_standard_id, hospital_type, location_id, admission_date, discharge_date, created_at, updated_at
FROM patients WHERE id=$1`, patientID).
		Scan(&p.ID, &p.Name, &p.TariffStandardID, &p.HospitalType, &p.LocationID, &p.AdmissionDate, &p.DischargeDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Patient{}, ErrPatientNotFound
		}
		return Patient{}, err
	}
	return p, nil
}

func (r *repository) ListWardStays(ctx context.Context, patientID string) ([]WardStay, error) {
	rows, err := r.db.Query(ctx, `SELECT id, patient_id, ward_type, tariff_standard_id, in_date, out_date
FROM ward_stays WHERE patient_id=$1 ORDER BY in_date ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stays []WardStay
	for rows.Next() {
		var stay WardStay
		if err := rows.Scan(&stay.ID, &stay.PatientID, &stay.WardType, &stay.TariffStandardID, &stay.InDate, &stay.OutDate); err != nil {
			return nil, err
		}
		stays = append(stays, stay)
	}
	return stays, rows.Err()
}

func (r *repository) ListServiceRecords(ctx context.Context, patientID string, category tariff.Category) ([]ServiceRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, patient_id, category, quantity, tariff_standard_id, recorded_at
FROM service_records WHERE patient_id=$1 AND category=$2 ORDER BY recorded_at ASC`, patientID, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []ServiceRecord
	for rows.Next() {
		var rec ServiceRecord
		if err := rows.Scan(&rec.ID, &rec.PatientID, &rec.Category, &rec.Quantity, &rec.TariffStandardID, &rec.RecordedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *repository) ListPharmacySales(ctx context.Context, patientID string) ([]PharmacySale, error) {
	rows, err := r.db.Query(ctx, `SELECT id, patient_id, total_amount, sold_at
FROM pharmacy_sales WHERE patient_id=$1 ORDER BY sold_at ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sales []PharmacySale
	for rows.Next() {
		var sale PharmacySale
		if err := rows.Scan(&sale.ID, &sale.PatientID, &sale.TotalAmount, &sale.SoldAt); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (r *repository) UpsertFinalBill(ctx context.Context, bill FinalBill) error {
	_, err := r.db.Exec(ctx, `INSERT INTO final_billings (patient_id, total_bill_amount, advance_amount, discount_amount, final_amount, paid_amount, balance_amount,
registration_charges, consultant_charges, ward_charges, nursing_charges, doctor_charges, lab_charges, radiology_charges, pharmacy_charges, surgery_charges, anesthesia_charges, other_charges, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,NOW())
ON CONFLICT (patient_id) DO UPDATE SET
total_bill_amount=EXCLUDED.total_bill_amount, advance_amount=EXCLUDED.advance_amount, discount_amount=EXCLUDED.discount_amount,
final_amount=EXCLUDED.final_amount, paid_amount=EXCLUDED.paid_amount, balance_amount=EXCLUDED.balance_amount,
registration_charges=EXCLUDED.registration_charges, consultant_charges=EXCLUDED.consultant_charges, ward_charges=EXCLUDED.ward_charges,
nursing_charges=EXCLUDED.nursing_charges, doctor_charges=EXCLUDED.doctor_charges, lab_charges=EXCLUDED.lab_charges,
radiology_charges=EXCLUDED.radiology_charges, pharmacy_charges=EXCLUDED.pharmacy_charges, surgery_charges=EXCLUDED.surgery_charges,
anesthesia_charges=EXCLUDED.anesthesia_charges, other_charges=EXCLUDED.other_charges, updated_at=NOW()`,
		bill.PatientID, bill.TotalBill, bill.AdvanceAmount, bill.DiscountAmount, bill.FinalAmount, bill.PaidAmount, bill.BalanceAmount,
		bill.Breakdown.RegistrationCharges, bill.Breakdown.ConsultantCharges, bill.Breakdown.WardCharges, bill.Breakdown.NursingCharges,
		bill.Breakdown.DoctorCharges, bill.Breakdown.LabCharges, bill.Breakdown.RadiologyCharges, bill.Breakdown.PharmacyCharges,
		bill.Breakdown.SurgeryCharges, bill.Breakdown.AnesthesiaCharges, bill.Breakdown.OtherCharges)
	return err
}

func (r *repository) GetFinalBill(ctx context.Context, patientID string) (FinalBill, error) {
	var bill FinalBill
	err := r.db.QueryRow(ctx, `SELECT patient_id, total_bill_amount, advance_amount, discount_amount, final_amount, paid_amount, balance_amount,
registration_charges, consultant_charges, ward_charges, nursing_charges, doctor_charges, lab_charges, radiology_charges, pharmacy_charges, surgery_charges, anesthesia_charges, other_charges, updated_at
FROM final_billings WHERE patient_id=$1`, patientID).
		Scan(&bill.PatientID, &bill.TotalBill, &bill.AdvanceAmount, &bill.DiscountAmount, &bill.FinalAmount, &bill.PaidAmount, &bill.BalanceAmount,
			&bill.Breakdown.RegistrationCharges, &bill.Breakdown.ConsultantCharges, &bill.Breakdown.WardCharges, &bill.Breakdown.NursingCharges,
			&bill.Breakdown.DoctorCharges, &bill.Breakdown.LabCharges, &bill.Breakdown.RadiologyCharges, &bill.Breakdown.PharmacyCharges,
			&bill.Breakdown.SurgeryCharges, &bill.Breakdown.AnesthesiaCharges, &bill.Breakdown.OtherCharges, &bill.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FinalBill{}, ErrPatientNotFound
		}
		return FinalBill{}, err
	}
	bill.Breakdown.TotalCharges = bill.Breakdown.Sum()
	return bill, nil
}

func (r *repository) InsertAdvance(ctx context.Context, advance AdvancePayment) (AdvancePayment, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO advance_payments (patient_id, amount, payment_mode, received_at)
VALUES ($1,$2,$3,$4) RETURNING id`, advance.PatientID, advance.Amount, advance.PaymentMode, advance.ReceivedAt).
		Scan(&advance.ID)
	if err != nil {
		return AdvancePayment{}, err
	}
	return advance, nil
}

func (r *repository) SumAdvances(ctx context.Context, patientID string) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM advance_payments WHERE patient_id=$1`, patientID).Scan(&total)
	return total, err
}
