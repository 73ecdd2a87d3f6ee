package inspections

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

// Handler manages inspection endpoints.
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

// MountRoutes registers inspection routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(sharedpkg.PermInspectionsView, sharedpkg.PermInspectionsEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(sharedpkg.PermInspectionsEdit))
		r.Post("/", h.schedule)
		r.Post("/{id}/reschedule", h.reschedule)
		r.Post("/{id}/complete", h.complete)
		r.Post("/{id}/cancel", h.cancel)
	})
}

type scheduleForm struct {
	PropertyID  int64     `json:"property_id" validate:"required,gt=0"`
	Inspector   string    `json:"inspector" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

type rescheduleForm struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

type completeForm struct {
	Findings string `json:"findings"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r)
	inspections, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"inspections": inspections,
		"pagination":  sharedpkg.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	insp, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, insp)
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	var form scheduleForm
	if !h.decode(w, r, &form) {
		return
	}
	insp, err := h.service.Schedule(r.Context(), form.PropertyID, form.Inspector, form.ScheduledAt)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "inspection scheduled", insp)
}

func (h *Handler) reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var form rescheduleForm
	if !h.decode(w, r, &form) {
		return
	}
	if err := h.service.Reschedule(r.Context(), id, form.ScheduledAt); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "inspection rescheduled", nil)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var form completeForm
	if !h.decode(w, r, &form) {
		return
	}
	if err := h.service.Complete(r.Context(), id, form.Findings); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "inspection completed", nil)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Cancel(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "inspection cancelled", nil)
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
	case errors.Is(err, ErrClosed):
		httpx.Fail(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("inspection operation failed", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
