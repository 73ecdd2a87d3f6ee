package payments

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/estateops/estateops/internal/masterdata/shared"
	"github.com/estateops/estateops/internal/platform/httpx"
	"github.com/estateops/estateops/internal/rbac"
	sharedpkg "github.com/estateops/estateops/internal/shared"
)

// IdempotencyHeader carries the client-chosen dedup key for payment recording.
const IdempotencyHeader = "Idempotency-Key"

// Handler manages payment endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), rbac: rbacMW}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(sharedpkg.PermPaymentsView, sharedpkg.PermPaymentsRecord, sharedpkg.PermPaymentsApprove))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(sharedpkg.PermPaymentsRecord))
		r.Post("/", h.record)
		r.Post("/{id}/void", h.void)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(sharedpkg.PermPaymentsApprove))
		r.Post("/{id}/approve", h.approve)
	})
}

type recordForm struct {
	TenantID  int64     `json:"tenant_id" validate:"required,gt=0"`
	Amount    int64     `json:"amount" validate:"required,gt=0"`
	Method    string    `json:"method" validate:"required,oneof=cash transfer card"`
	Reference string    `json:"reference"`
	Period    string    `json:"period" validate:"required"`
	PaidAt    time.Time `json:"paid_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r)
	payments, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"payments":   payments,
		"pagination": sharedpkg.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	payment, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var form recordForm
	if !h.decode(w, r, &form) {
		return
	}
	payment, err := h.service.Record(r.Context(), RecordInput{
		TenantID:       form.TenantID,
		Amount:         form.Amount,
		Method:         form.Method,
		Reference:      form.Reference,
		Period:         form.Period,
		PaidAt:         form.PaidAt,
		RecordedBy:     h.actor(r),
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "payment recorded", payment)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Approve(r.Context(), id, h.actor(r)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "payment approved", nil)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Void(r.Context(), id, h.actor(r)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "payment voided", nil)
}

func (h *Handler) actor(r *http.Request) string {
	sess := sharedpkg.SessionFromContext(r.Context())
	if sess == nil {
		return ""
	}
	return sess.User()
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyApproved), errors.Is(err, ErrVoided), errors.Is(err, ErrDuplicateRequest):
		httpx.Fail(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("payment operation failed", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
