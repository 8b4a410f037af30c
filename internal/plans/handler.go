package plans

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/financed-sales/internal/platform/httpx"
)

// Handler wires HTTP endpoints for payment plans and the overdue report.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	overdueSF singleflight.Group
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers plan routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/plans/{id}", h.show)
	r.Post("/plans/{id}/analyze", h.analyze)
	r.Post("/plans/{id}/penalties", h.applyPenalties)
	r.Get("/reports/overdue", h.overdue)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid plan ID")
		return
	}
	plan, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("get plan failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, plan)
}

type analyzeRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid plan ID")
		return
	}
	var req analyzeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	analysis, err := h.service.Analyze(r.Context(), id, req.Amount)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("analyze allocation failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, analysis)
}

func (h *Handler) applyPenalties(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid plan ID")
		return
	}
	changed, err := h.service.ApplyPenalties(r.Context(), id, time.Time{})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("apply penalties failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"penalties_applied": changed})
}

// overdue serves the overdue report. Concurrent identical requests collapse
// into one service call.
func (h *Handler) overdue(w http.ResponseWriter, r *http.Request) {
	result, err, _ := h.overdueSF.Do("overdue", func() (any, error) {
		return h.service.OverdueReport(r.Context(), time.Time{})
	})
	if err != nil {
		h.logger.Error("overdue report failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
