package billing

import (
	"time"

	"github.com/arogya-his/arogya-his/internal/tariff"
)

// HospitalTypeNABH is the explicit accreditation flag value on a patient.
const HospitalTypeNABH = "NABH"

// Patient holds the admission attributes the billing core reads. Registration
// itself is owned by another module.
type Patient struct {
	ID               string
	Name             string
	TariffStandardID int64
	HospitalType     string
	LocationID       int64
	AdmissionDate    time.Time
	DischargeDate    *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// WardStay is one interval of ward occupancy. Mid-admission transfers produce
// multiple stays per patient.
type WardStay struct {
	ID               int64
	PatientID        string
	WardType         string
	TariffStandardID int64
	InDate           time.Time
	OutDate          *time.Time
}

// ServiceRecord is a quantity-tagged charge source row (nursing, lab,
// radiology, surgery, other).
type ServiceRecord struct {
	ID               int64
	PatientID        string
	Category         tariff.Category
	Quantity         float64
	TariffStandardID int64
	RecordedAt       time.Time
}

// PharmacySale carries its own flat amount; no rate resolution applies.
type PharmacySale struct {
	ID          int64
	PatientID   string
	TotalAmount float64
	SoldAt      time.Time
}

// Breakdown is the recomputed-on-demand totals object every billing screen
// consumes. Never cached authoritatively.
type Breakdown struct {
	RegistrationCharges float64 `json:"registration_charges"`
	ConsultantCharges   float64 `json:"consultant_charges"`
	WardCharges         float64 `json:"ward_charges"`
	NursingCharges      float64 `json:"nursing_charges"`
	DoctorCharges       float64 `json:"doctor_charges"`
	LabCharges          float64 `json:"lab_charges"`
	RadiologyCharges    float64 `json:"radiology_charges"`
	PharmacyCharges     float64 `json:"pharmacy_charges"`
	SurgeryCharges      float64 `json:"surgery_charges"`
	AnesthesiaCharges   float64 `json:"anesthesia_charges"`
	OtherCharges        float64 `json:"other_charges"`
	TotalCharges        float64 `json:"total_charges"`
}

// Sum recomputes the grand total from the category subtotals.
func (b Breakdown) Sum() float64 {
	return b.RegistrationCharges + b.ConsultantCharges + b.WardCharges +
		b.NursingCharges + b.DoctorCharges + b.LabCharges + b.RadiologyCharges +
		b.PharmacyCharges + b.SurgeryCharges + b.AnesthesiaCharges + b.OtherCharges
}

// FinalBill is the denormalized per-patient snapshot of aggregated charges
// plus payment state. One row per patient, upserted on every save. It can
// drift from the live aggregation if source rows change afterwards; that
// window is accepted.
type FinalBill struct {
	PatientID      string
	TotalBill      float64
	AdvanceAmount  float64
	DiscountAmount float64
	FinalAmount    float64
	PaidAmount     float64
	BalanceAmount  float64
	Breakdown      Breakdown
	UpdatedAt      time.Time
}

// AdvancePayment is money received before the final bill.
type AdvancePayment struct {
	ID          int64
	PatientID   string
	Amount      float64
	PaymentMode string
	ReceivedAt  time.Time
}
