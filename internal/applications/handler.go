package applications

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/financed-sales/internal/platform/httpx"
	"github.com/odyssey-erp/financed-sales/internal/schedule"
	"github.com/odyssey-erp/financed-sales/internal/shared"
)

// Handler wires HTTP endpoints for finance applications.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers application routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/applications/from-quotation", h.createFromQuotation)
	r.Post("/applications/from-cart", h.createFromCart)
	r.Get("/applications", h.list)
	r.Get("/applications/{id}", h.show)
	r.Put("/applications/{id}/terms", h.updateTerms)
	r.Post("/applications/{id}/submit", h.submit)
	r.Post("/applications/{id}/approve", h.approve)
	r.Post("/applications/{id}/reject", h.reject)
	r.Get("/applications/{id}/proforma", h.proforma)
}

type fromQuotationRequest struct {
	QuotationID      int64  `json:"quotation_id" validate:"required,gt=0"`
	FirstInstallment string `json:"first_installment"`
	RepaymentTerm    int    `json:"repayment_term" validate:"omitempty,gte=1"`
}

func (h *Handler) createFromQuotation(w http.ResponseWriter, r *http.Request) {
	var req fromQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	first, ok := h.parseDate(w, req.FirstInstallment)
	if !ok {
		return
	}

	app, err := h.service.CreateFromQuotation(r.Context(), CreateFromQuotationInput{
		QuotationID:      req.QuotationID,
		FirstInstallment: first,
		RepaymentTerm:    req.RepaymentTerm,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, app)
}

type fromCartRequest struct {
	CustomerID       int64      `json:"customer_id" validate:"required,gt=0"`
	Items            []CartItem `json:"items" validate:"required,min=1,dive"`
	FirstInstallment string     `json:"first_installment"`
	RepaymentTerm    int        `json:"repayment_term" validate:"omitempty,gte=1"`
}

func (h *Handler) createFromCart(w http.ResponseWriter, r *http.Request) {
	var req fromCartRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	first, ok := h.parseDate(w, req.FirstInstallment)
	if !ok {
		return
	}

	app, err := h.service.CreateFromPOSCart(r.Context(), CreateFromCartInput{
		CustomerID:       req.CustomerID,
		Items:            req.Items,
		FirstInstallment: first,
		RepaymentTerm:    req.RepaymentTerm,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, app)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	status := Status(r.URL.Query().Get("status"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	apps, err := h.service.List(r.Context(), status, page, perPage)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, apps)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	app, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

type termsRequest struct {
	AmountToFinance  float64 `json:"total_amount_to_finance"`
	DownPayment      float64 `json:"down_payment"`
	InterestRate     float64 `json:"interest_rate"`
	RatePeriod       string  `json:"rate_period" validate:"omitempty,oneof=Monthly Annual"`
	RepaymentTerm    int     `json:"repayment_term" validate:"omitempty,gte=1"`
	FirstInstallment string  `json:"first_installment"`
	ApplicationFee   float64 `json:"application_fee"`
}

func (h *Handler) updateTerms(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req termsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	first, ok := h.parseDate(w, req.FirstInstallment)
	if !ok {
		return
	}

	app, err := h.service.UpdateTerms(r.Context(), id, schedule.FinancingTerms{
		AmountToFinance:  req.AmountToFinance,
		DownPayment:      req.DownPayment,
		InterestRate:     req.InterestRate,
		RatePeriod:       schedule.RatePeriod(req.RatePeriod),
		RepaymentTerm:    req.RepaymentTerm,
		FirstInstallment: first,
		ApplicationFee:   req.ApplicationFee,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	app, err := h.service.SubmitForApproval(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	result, err := h.service.Approve(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	app, err := h.service.Reject(r.Context(), id, req.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *Handler) proforma(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Proforma(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid application ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) parseDate(w http.ResponseWriter, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return parsed, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, shared.ErrInvalidStatus):
		httpx.Problem(w, http.StatusConflict, "Invalid Status", err.Error())
	case errors.Is(err, shared.ErrSettingsIncomplete):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Settings Incomplete", err.Error())
	default:
		h.logger.Error("application request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusUnprocessableEntity, "Request Failed", err.Error())
	}
}
