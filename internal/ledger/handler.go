package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arogya-his/arogya-his/internal/platform/httpx"
)

// Handler exposes the voucher engine and ledger reports over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the ledger HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type entryRequest struct {
	AccountID int64   `json:"account_id"`
	Debit     float64 `json:"debit"`
	Credit    float64 `json:"credit"`
	Narration string  `json:"narration"`
}

type journalRequest struct {
	Date       string         `json:"date"`
	LocationID int64          `json:"location_id"`
	Narration  string         `json:"narration"`
	Entries    []entryRequest `json:"entries"`
}

type voucherResponse struct {
	ID          int64   `json:"id"`
	Number      string  `json:"voucher_number"`
	Type        string  `json:"type"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
	BatchID     string  `json:"batch_identifier"`
}

func toVoucherResponse(log VoucherLog) voucherResponse {
	return voucherResponse{
		ID:          log.ID,
		Number:      log.Number,
		Type:        string(log.Type),
		TotalAmount: log.TotalAmount,
		Status:      string(log.Status),
		BatchID:     log.BatchID.String(),
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrTooFewLines):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrVoucherNotFound), errors.Is(err, ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("ledger: invalid date %q", raw)
	}
	return t, nil
}

// parseRange reads the optional from/to query parameters.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// PostJournal handles POST /vouchers/journal.
func (h *Handler) PostJournal(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := JournalInput{
		Date:       date,
		LocationID: req.LocationID,
		Narration:  req.Narration,
	}
	for _, entry := range req.Entries {
		input.Entries = append(input.Entries, EntryInput{
			AccountID: entry.AccountID,
			Debit:     entry.Debit,
			Credit:    entry.Credit,
			Narration: entry.Narration,
		})
	}
	log, _, err := h.service.PostJournal(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toVoucherResponse(log))
}

type receiptRequest struct {
	Amount      float64 `json:"amount"`
	PaymentMode string  `json:"payment_mode"`
	PatientID   string  `json:"patient_id"`
	Narration   string  `json:"narration"`
	Date        string  `json:"date"`
	LocationID  int64   `json:"location_id"`
}

// PostReceipt handles POST /vouchers/receipt.
func (h *Handler) PostReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	log, err := h.service.PostReceipt(r.Context(), ReceiptInput{
		Amount:      req.Amount,
		PaymentMode: PaymentMode(req.PaymentMode),
		PatientID:   req.PatientID,
		Narration:   req.Narration,
		Date:        date,
		LocationID:  req.LocationID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toVoucherResponse(log))
}

type paymentRequest struct {
	Amount           float64 `json:"amount"`
	ExpenseAccountID int64   `json:"expense_account_id"`
	PaymentMode      string  `json:"payment_mode"`
	Narration        string  `json:"narration"`
	Date             string  `json:"date"`
	LocationID       int64   `json:"location_id"`
}

// PostPayment handles POST /vouchers/payment.
func (h *Handler) PostPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	log, err := h.service.PostPayment(r.Context(), PaymentInput{
		Amount:           req.Amount,
		ExpenseAccountID: req.ExpenseAccountID,
		PaymentMode:      PaymentMode(req.PaymentMode),
		Narration:        req.Narration,
		Date:             date,
		LocationID:       req.LocationID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toVoucherResponse(log))
}

type contraRequest struct {
	Amount        float64 `json:"amount"`
	FromAccountID int64   `json:"from_account_id"`
	ToAccountID   int64   `json:"to_account_id"`
	Narration     string  `json:"narration"`
	Date          string  `json:"date"`
	LocationID    int64   `json:"location_id"`
}

// PostContra handles POST /vouchers/contra.
func (h *Handler) PostContra(w http.ResponseWriter, r *http.Request) {
	var req contraRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	log, err := h.service.PostContra(r.Context(), ContraInput{
		Amount:        req.Amount,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Narration:     req.Narration,
		Date:          date,
		LocationID:    req.LocationID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toVoucherResponse(log))
}

// Delete handles DELETE /vouchers/{batchID}. A numeric id is resolved to its
// batch first.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "batchID")
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if err := h.service.DeleteVoucherByID(r.Context(), id); err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "reversed"})
		return
	}
	batchID, err := uuid.Parse(raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch identifier")
		return
	}
	if err := h.service.DeleteVoucher(r.Context(), batchID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reversed"})
}

// TrialBalance handles GET /reports/trial-balance.
func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var locationID *int64
	if raw := r.URL.Query().Get("location_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid location id")
			return
		}
		locationID = &id
	}
	tb, err := h.service.TrialBalance(r.Context(), from, to, locationID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

// AccountLedger handles GET /reports/ledger/{accountID}.
func (h *Handler) AccountLedger(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ledger, err := h.service.AccountLedger(r.Context(), accountID, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ledger)
}

// CashBook handles GET /reports/cash-book.
func (h *Handler) CashBook(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	book, err := h.service.CashBook(r.Context(), from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}
