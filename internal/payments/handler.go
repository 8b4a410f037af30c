package payments

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/financed-sales/internal/plans"
	"github.com/odyssey-erp/financed-sales/internal/platform/httpx"
	"github.com/odyssey-erp/financed-sales/internal/shared"
)

// Handler wires the payment entry endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	modes     ModeDirectory
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, modes ModeDirectory) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		modes:     modes,
		validator: validator.New(),
	}
}

// MountRoutes registers payment routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/payment-entries/finance-application", h.createFromApplication)
	r.Post("/payment-entries/payment-plan", h.createFromPlan)
	r.Get("/modes/{mode}/classification", h.classification)
}

type createRequest struct {
	FinanceApplicationName string  `json:"finance_application_name"`
	PaymentPlanName        string  `json:"payment_plan_name"`
	PaidAmount             float64 `json:"paid_amount" validate:"required,gt=0"`
	ModeOfPayment          string  `json:"mode_of_payment" validate:"required"`
	ReferenceNo            string  `json:"reference_no"`
	ReferenceDate          string  `json:"reference_date"`
	Submit                 bool    `json:"submit"`
	IdempotencyKey         string  `json:"idempotency_key"`
}

func (h *Handler) createFromApplication(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	entry, err := h.service.CreateFromFinanceApplication(r.Context(), CreateInput{
		SourceName:     req.FinanceApplicationName,
		PaidAmount:     req.PaidAmount,
		ModeOfPayment:  req.ModeOfPayment,
		ReferenceNo:    req.ReferenceNo,
		ReferenceDate:  req.ReferenceDate,
		Submit:         req.Submit,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.respondCreateError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) createFromPlan(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	entry, err := h.service.CreateFromPaymentPlan(r.Context(), CreateInput{
		SourceName:     req.PaymentPlanName,
		PaidAmount:     req.PaidAmount,
		ModeOfPayment:  req.ModeOfPayment,
		ReferenceNo:    req.ReferenceNo,
		ReferenceDate:  req.ReferenceDate,
		Submit:         req.Submit,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.respondCreateError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (createRequest, bool) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) respondCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "payment already processed")
	case errors.Is(err, ErrSourceNotFound), errors.Is(err, plans.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error("create payment entry failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusUnprocessableEntity, "Payment Failed", err.Error())
	}
}

func (h *Handler) classification(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	classification, err := h.modes.Classification(r.Context(), mode)
	if err != nil {
		if errors.Is(err, ErrModeNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("mode classification failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"mode": mode, "classification": classification})
}
