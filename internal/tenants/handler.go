package tenants

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

// Handler manages tenant endpoints.
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

// MountRoutes registers tenant routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(sharedpkg.PermTenantsView, sharedpkg.PermTenantsEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(sharedpkg.PermTenantsEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Post("/{id}/end-lease", h.endLease)
	})
}

type tenantForm struct {
	PropertyID  int64      `json:"property_id" validate:"required,gt=0"`
	Name        string     `json:"name" validate:"required"`
	Email       string     `json:"email" validate:"omitempty,email"`
	Phone       string     `json:"phone"`
	MoveInDate  time.Time  `json:"move_in_date" validate:"required"`
	MoveOutDate *time.Time `json:"move_out_date,omitempty"`
	MonthlyRent int64      `json:"monthly_rent" validate:"required,gt=0"`
	Deposit     int64      `json:"deposit" validate:"gte=0"`
	IsActive    bool       `json:"is_active"`
}

type endLeaseForm struct {
	MoveOutDate time.Time `json:"move_out_date"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r)
	tenants, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"tenants":    tenants,
		"pagination": sharedpkg.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	tenant, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tenant)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form tenantForm
	if !h.decode(w, r, &form) {
		return
	}
	tenant, err := h.service.Create(r.Context(), tenantFromForm(form))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "tenant created", tenant)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var form tenantForm
	if !h.decode(w, r, &form) {
		return
	}
	tenant := tenantFromForm(form)
	tenant.ID = id
	tenant.IsActive = form.IsActive
	tenant.MoveOutDate = form.MoveOutDate
	if err := h.service.Update(r.Context(), tenant); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "tenant updated", nil)
}

func (h *Handler) endLease(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var form endLeaseForm
	if !h.decode(w, r, &form) {
		return
	}
	if err := h.service.EndLease(r.Context(), id, form.MoveOutDate); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "lease ended", nil)
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
	case errors.Is(err, ErrLeaseEnded):
		httpx.Fail(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("tenant operation failed", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}

func tenantFromForm(form tenantForm) Tenant {
	return Tenant{
		PropertyID:  form.PropertyID,
		Name:        form.Name,
		Email:       form.Email,
		Phone:       form.Phone,
		MoveInDate:  form.MoveInDate,
		MonthlyRent: form.MonthlyRent,
		Deposit:     form.Deposit,
	}
}
