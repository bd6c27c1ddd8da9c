package billing

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/arogya-his/arogya-his/internal/ledger"
	"github.com/arogya-his/arogya-his/internal/platform/httpx"
)

// Handler exposes billing operations over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the billing HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPatientNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ledger.ErrUnbalanced):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("billing request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// GetBill handles GET /patients/{id}/bill.
func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "id")
	breakdown, err := h.service.GetBreakdown(r.Context(), patientID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, breakdown)
}

type finalBillRequest struct {
	DiscountAmount float64 `json:"discount_amount" validate:"gte=0"`
	PaidAmount     float64 `json:"paid_amount" validate:"gte=0"`
	PaymentMode    string  `json:"payment_mode" validate:"omitempty,oneof=Cash Bank"`
	LocationID     int64   `json:"location_id"`
}

// SaveFinalBill handles POST /patients/{id}/final-bill.
func (h *Handler) SaveFinalBill(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "id")
	var req finalBillRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	bill, err := h.service.SaveFinalBill(r.Context(), FinalBillInput{
		PatientID:      patientID,
		DiscountAmount: req.DiscountAmount,
		PaidAmount:     req.PaidAmount,
		PaymentMode:    ledger.PaymentMode(req.PaymentMode),
		LocationID:     req.LocationID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

type advanceRequest struct {
	Amount      float64 `json:"amount" validate:"gt=0"`
	PaymentMode string  `json:"payment_mode" validate:"omitempty,oneof=Cash Bank"`
	LocationID  int64   `json:"location_id"`
}

// RecordAdvance handles POST /patients/{id}/advances.
func (h *Handler) RecordAdvance(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "id")
	var req advanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	advance, err := h.service.RecordAdvance(r.Context(), AdvanceInput{
		PatientID:   patientID,
		Amount:      req.Amount,
		PaymentMode: ledger.PaymentMode(req.PaymentMode),
		LocationID:  req.LocationID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, advance)
}
