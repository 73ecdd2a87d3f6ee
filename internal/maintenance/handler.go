package maintenance

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/estateops/estateops/internal/masterdata/shared"
	"github.com/estateops/estateops/internal/platform/httpx"
	"github.com/estateops/estateops/internal/rbac"
	sharedpkg "github.com/estateops/estateops/internal/shared"
)

// Handler manages maintenance endpoints.
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

// MountRoutes registers maintenance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(sharedpkg.PermMaintenanceView, sharedpkg.PermMaintenanceEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(sharedpkg.PermMaintenanceEdit))
		r.Post("/", h.create)
		r.Post("/{id}/assign", h.assign)
		r.Post("/{id}/resolve", h.resolve)
		r.Post("/{id}/cancel", h.cancel)
	})
}

type createForm struct {
	PropertyID  int64  `json:"property_id" validate:"required,gt=0"`
	TenantID    *int64 `json:"tenant_id,omitempty"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

type assignForm struct {
	Assignee string `json:"assignee" validate:"required"`
}

type resolveForm struct {
	Resolution string `json:"resolution" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r)
	requests, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"requests":   requests,
		"pagination": sharedpkg.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form createForm
	if !h.decode(w, r, &form) {
		return
	}
	req, err := h.service.Create(r.Context(), CreateInput{
		PropertyID:  form.PropertyID,
		TenantID:    form.TenantID,
		Title:       form.Title,
		Description: form.Description,
		Priority:    form.Priority,
		ReportedBy:  h.actor(r),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "request opened", req)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var form assignForm
	if !h.decode(w, r, &form) {
		return
	}
	if err := h.service.Assign(r.Context(), id, form.Assignee); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "request assigned", nil)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var form resolveForm
	if !h.decode(w, r, &form) {
		return
	}
	if err := h.service.Resolve(r.Context(), id, form.Resolution); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "request resolved", nil)
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
	httpx.OK(w, http.StatusOK, "request cancelled", nil)
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
	case errors.Is(err, ErrClosed):
		httpx.Fail(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("maintenance operation failed", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
