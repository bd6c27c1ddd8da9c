package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arogya-his/arogya-his/internal/ledger"
	"github.com/arogya-his/arogya-his/internal/tariff"
)

type memoryBillingRepo struct {
	patients      map[string]Patient
	stays         map[string][]WardStay
	records       map[string][]ServiceRecord
	sales         map[string][]PharmacySale
	finalBills    map[string]FinalBill
	advances      map[string][]AdvancePayment
	nextAdvanceID int64
}

func newMemoryBillingRepo() *memoryBillingRepo {
	return &memoryBillingRepo{
		patients:   make(map[string]Patient),
		stays:      make(map[string][]WardStay),
		records:    make(map[string][]ServiceRecord),
		sales:      make(map[string][]PharmacySale),
		finalBills: make(map[string]FinalBill),
		advances:   make(map[string][]AdvancePayment),
	}
}

func (r *memoryBillingRepo) GetPatient(ctx context.Context, patientID string) (Patient, error) {
	p, ok := r.patients[patientID]
	if !ok {
		return Patient{}, ErrPatientNotFound
	}
	return p, nil
}

func (r *memoryBillingRepo) ListWardStays(ctx context.Context, patientID string) ([]WardStay, error) {
	return r.stays[patientID], nil
}

func (r *memoryBillingRepo) ListServiceRecords(ctx context.Context, patientID string, category tariff.Category) ([]ServiceRecord, error) {
	var out []ServiceRecord
	for _, rec := range r.records[patientID] {
		if rec.Category == category {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryBillingRepo) ListPharmacySales(ctx context.Context, patientID string) ([]PharmacySale, error) {
	return r.sales[patientID], nil
}

func (r *memoryBillingRepo) UpsertFinalBill(ctx context.Context, bill FinalBill) error {
	r.finalBills[bill.PatientID] = bill
	return nil
}

func (r *memoryBillingRepo) GetFinalBill(ctx context.Context, patientID string) (FinalBill, error) {
	bill, ok := r.finalBills[patientID]
	if !ok {
		return FinalBill{}, ErrPatientNotFound
	}
	return bill, nil
}

func (r *memoryBillingRepo) InsertAdvance(ctx context.Context, advance AdvancePayment) (AdvancePayment, error) {
	r.nextAdvanceID++
	advance.ID = r.nextAdvanceID
	r.advances[advance.PatientID] = append(r.advances[advance.PatientID], advance)
	return advance, nil
}

func (r *memoryBillingRepo) SumAdvances(ctx context.Context, patientID string) (float64, error) {
	var total float64
	for _, adv := range r.advances[patientID] {
		total += adv.Amount
	}
	return total, nil
}

type fakeRates struct {
	rates map[tariff.Category]float64
}

func (f *fakeRates) Rate(ctx context.Context, standardID int64, category tariff.Category, nabh bool) float64 {
	return f.rates[category]
}

type fakeVouchers struct {
	receipts []ledger.ReceiptInput
}

func (f *fakeVouchers) PostReceipt(ctx context.Context, input ledger.ReceiptInput) (ledger.VoucherLog, error) {
	f.receipts = append(f.receipts, input)
	return ledger.VoucherLog{ID: int64(len(f.receipts)), Type: ledger.TypeReceipt}, nil
}

var testNow = time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

func newTestService(repo *memoryBillingRepo, rates *fakeRates, vouchers *fakeVouchers) *Service {
	svc := NewService(repo, rates, vouchers, nil, Config{NABHLocationID: 2, AnesthesiaRate: 0.15}, nil)
	svc.WithNow(func() time.Time { return testNow })
	return svc
}

func seedPatient(repo *memoryBillingRepo, id string, locationID int64, hospitalType string) Patient {
	admitted := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	discharged := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	p := Patient{
		ID:               id,
		Name:             "Test Patient",
		TariffStandardID: 1,
		HospitalType:     hospitalType,
		LocationID:       locationID,
		AdmissionDate:    admitted,
		DischargeDate:    &discharged,
	}
	repo.patients[id] = p
	return p
}

func TestAdmissionDaysRoundsPartialDaysUp(t *testing.T) {
	from := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)
	require.Equal(t, 1, AdmissionDays(from, to))

	require.Equal(t, 2, AdmissionDays(from, from.Add(25*time.Hour)))
	require.Equal(t, 1, AdmissionDays(from, from.Add(24*time.Hour)))
}

func TestAdmissionDaysSameInstantIsOneDay(t *testing.T) {
	d := time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC)
	require.Equal(t, 1, AdmissionDays(d, d))
}

func TestWardChargesSumsTransfers(t *testing.T) {
	repo := newMemoryBillingRepo()
	rates := &fakeRates{rates: map[tariff.Category]float64{
		tariff.CategoryWardICU:     2000,
		tariff.CategoryWardGeneral: 800,
	}}
	svc := newTestService(repo, rates, nil)
	patient := seedPatient(repo, "P1", 1, "")

	day1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	day3 := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	repo.stays["P1"] = []WardStay{
		{PatientID: "P1", WardType: "ICU", TariffStandardID: 1, InDate: day1, OutDate: &day2},
		{PatientID: "P1", WardType: "General Ward", TariffStandardID: 1, InDate: day2, OutDate: &day3},
	}

	total, err := svc.WardCharges(context.Background(), patient, false)
	require.NoError(t, err)
	require.Equal(t, 2000.0+800.0, total)
}

func TestWardChargesOngoingStayUsesNow(t *testing.T) {
	repo := newMemoryBillingRepo()
	rates := &fakeRates{rates: map[tariff.Category]float64{tariff.CategoryWardGeneral: 100}}
	svc := newTestService(repo, rates, nil)
	patient := seedPatient(repo, "P1", 1, "")

	// Admitted four days before the injected clock, not yet discharged.
	in := testNow.Add(-4 * 24 * time.Hour)
	repo.stays["P1"] = []WardStay{
		{PatientID: "P1", WardType: "General", TariffStandardID: 1, InDate: in},
	}

	total, err := svc.WardCharges(context.Background(), patient, false)
	require.NoError(t, err)
	require.Equal(t, 400.0, total)
}

func TestCalculateTotalBillMissingPatient(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newTestService(repo, &fakeRates{rates: map[tariff.Category]float64{}}, nil)

	_, err := svc.CalculateTotalBill(context.Background(), "missing")
	require.ErrorIs(t, err, ErrPatientNotFound)
}

func TestCalculateTotalBillZeroPharmacy(t *testing.T) {
	repo := newMemoryBillingRepo()
	rates := &fakeRates{rates: map[tariff.Category]float64{
		tariff.CategoryWardGeneral:  800,
		tariff.CategoryRegistration: 100,
		tariff.CategoryConsultant:   350,
	}}
	svc := newTestService(repo, rates, nil)
	patient := seedPatient(repo, "P1", 1, "")
	repo.stays["P1"] = []WardStay{
		{PatientID: "P1", WardType: "General", TariffStandardID: 1, InDate: patient.AdmissionDate, OutDate: patient.DischargeDate},
	}

	breakdown, err := svc.CalculateTotalBill(context.Background(), "P1")
	require.NoError(t, err)
	require.Equal(t, 1600.0, breakdown.WardCharges)
	require.Zero(t, breakdown.PharmacyCharges)
	require.Zero(t, breakdown.SurgeryCharges)
	require.Zero(t, breakdown.LabCharges)
	require.Equal(t, breakdown.WardCharges+breakdown.RegistrationCharges+breakdown.ConsultantCharges, breakdown.TotalCharges)
}

func TestCalculateTotalBillAggregatesCategories(t *testing.T) {
	repo := newMemoryBillingRepo()
	rates := &fakeRates{rates: map[tariff.Category]float64{
		tariff.CategoryNursing: 200,
		tariff.CategoryDoctor:  500,
		tariff.CategoryLab:     300,
		tariff.CategorySurgery: 5000,
	}}
	svc := newTestService(repo, rates, nil)
	seedPatient(repo, "P1", 1, "")

	repo.records["P1"] = []ServiceRecord{
		{PatientID: "P1", Category: tariff.CategoryNursing, Quantity: 2, TariffStandardID: 1},
		{PatientID: "P1", Category: tariff.CategoryLab, Quantity: 3, TariffStandardID: 1},
		{PatientID: "P1", Category: tariff.CategorySurgery, Quantity: 1, TariffStandardID: 1},
	}
	repo.sales["P1"] = []PharmacySale{
		{PatientID: "P1", TotalAmount: 420.50},
		{PatientID: "P1", TotalAmount: 79.50},
	}

	breakdown, err := svc.CalculateTotalBill(context.Background(), "P1")
	require.NoError(t, err)
	require.Equal(t, 400.0, breakdown.NursingCharges)
	require.Equal(t, 900.0, breakdown.LabCharges)
	require.Equal(t, 5000.0, breakdown.SurgeryCharges)
	require.Equal(t, 750.0, breakdown.AnesthesiaCharges)
	require.Equal(t, 500.0, breakdown.PharmacyCharges)
	// Two admission days at the flat daily professional fee.
	require.Equal(t, 1000.0, breakdown.DoctorCharges)
	require.Equal(t, breakdown.Sum(), breakdown.TotalCharges)
}

func TestCalculateTotalBillIdempotent(t *testing.T) {
	repo := newMemoryBillingRepo()
	rates := &fakeRates{rates: map[tariff.Category]float64{
		tariff.CategoryWardGeneral: 800,
		tariff.CategoryNursing:     200,
	}}
	svc := newTestService(repo, rates, nil)
	patient := seedPatient(repo, "P1", 1, "")
	repo.stays["P1"] = []WardStay{
		{PatientID: "P1", WardType: "General", TariffStandardID: 1, InDate: patient.AdmissionDate, OutDate: patient.DischargeDate},
	}
	repo.records["P1"] = []ServiceRecord{
		{PatientID: "P1", Category: tariff.CategoryNursing, Quantity: 4, TariffStandardID: 1},
	}

	first, err := svc.CalculateTotalBill(context.Background(), "P1")
	require.NoError(t, err)
	second, err := svc.CalculateTotalBill(context.Background(), "P1")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestIsNABHEitherSignalSuffices(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newTestService(repo, &fakeRates{rates: map[tariff.Category]float64{}}, nil)

	require.True(t, svc.IsNABH(Patient{HospitalType: HospitalTypeNABH, LocationID: 1}))
	require.True(t, svc.IsNABH(Patient{HospitalType: "", LocationID: 2}))
	require.False(t, svc.IsNABH(Patient{HospitalType: "", LocationID: 1}))
}

func TestSaveFinalBillComputesTotalsAndPostsReceipt(t *testing.T) {
	repo := newMemoryBillingRepo()
	rates := &fakeRates{rates: map[tariff.Category]float64{tariff.CategoryWardGeneral: 800}}
	vouchers := &fakeVouchers{}
	svc := newTestService(repo, rates, vouchers)
	patient := seedPatient(repo, "P1", 1, "")
	repo.stays["P1"] = []WardStay{
		{PatientID: "P1", WardType: "General", TariffStandardID: 1, InDate: patient.AdmissionDate, OutDate: patient.DischargeDate},
	}
	repo.advances["P1"] = []AdvancePayment{{PatientID: "P1", Amount: 500}}

	bill, err := svc.SaveFinalBill(context.Background(), FinalBillInput{
		PatientID:      "P1",
		DiscountAmount: 100,
		PaidAmount:     400,
		PaymentMode:    ledger.ModeCash,
	})
	require.NoError(t, err)
	require.Equal(t, 1600.0, bill.TotalBill)
	require.Equal(t, 500.0, bill.AdvanceAmount)
	require.Equal(t, 1000.0, bill.FinalAmount)
	require.Equal(t, 600.0, bill.BalanceAmount)

	stored, err := repo.GetFinalBill(context.Background(), "P1")
	require.NoError(t, err)
	require.Equal(t, bill.FinalAmount, stored.FinalAmount)

	require.Len(t, vouchers.receipts, 1)
	require.Equal(t, 400.0, vouchers.receipts[0].Amount)
	require.Equal(t, ledger.ModeCash, vouchers.receipts[0].PaymentMode)
	require.Equal(t, "P1", vouchers.receipts[0].PatientID)
}

func TestSaveFinalBillNoReceiptWhenNothingPaid(t *testing.T) {
	repo := newMemoryBillingRepo()
	vouchers := &fakeVouchers{}
	svc := newTestService(repo, &fakeRates{rates: map[tariff.Category]float64{}}, vouchers)
	seedPatient(repo, "P1", 1, "")

	_, err := svc.SaveFinalBill(context.Background(), FinalBillInput{PatientID: "P1"})
	require.NoError(t, err)
	require.Empty(t, vouchers.receipts)
}

func TestRecordAdvancePostsReceiptAndRefreshesSnapshot(t *testing.T) {
	repo := newMemoryBillingRepo()
	rates := &fakeRates{rates: map[tariff.Category]float64{tariff.CategoryWardGeneral: 800}}
	vouchers := &fakeVouchers{}
	svc := newTestService(repo, rates, vouchers)
	patient := seedPatient(repo, "P1", 1, "")
	repo.stays["P1"] = []WardStay{
		{PatientID: "P1", WardType: "General", TariffStandardID: 1, InDate: patient.AdmissionDate, OutDate: patient.DischargeDate},
	}

	advance, err := svc.RecordAdvance(context.Background(), AdvanceInput{
		PatientID:   "P1",
		Amount:      700,
		PaymentMode: ledger.ModeBank,
	})
	require.NoError(t, err)
	require.NotZero(t, advance.ID)

	require.Len(t, vouchers.receipts, 1)
	require.Equal(t, 700.0, vouchers.receipts[0].Amount)
	require.Equal(t, ledger.ModeBank, vouchers.receipts[0].PaymentMode)

	snapshot, err := repo.GetFinalBill(context.Background(), "P1")
	require.NoError(t, err)
	require.Equal(t, 700.0, snapshot.AdvanceAmount)
	require.Equal(t, 1600.0, snapshot.TotalBill)
	require.Equal(t, 900.0, snapshot.BalanceAmount)
}

func TestRecordAdvanceRejectsUnknownPatient(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newTestService(repo, &fakeRates{rates: map[tariff.Category]float64{}}, &fakeVouchers{})

	_, err := svc.RecordAdvance(context.Background(), AdvanceInput{PatientID: "ghost", Amount: 100})
	require.ErrorIs(t, err, ErrPatientNotFound)
}
