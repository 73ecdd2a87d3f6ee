package properties

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

// Handler manages property endpoints.
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

// MountRoutes registers property routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(sharedpkg.PermPropertiesView, sharedpkg.PermPropertiesEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(sharedpkg.PermPropertiesCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(sharedpkg.PermPropertiesEdit))
		r.Put("/{id}", h.update)
		r.Put("/{id}/status", h.setStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(sharedpkg.PermPropertiesDelete))
		r.Post("/{id}/retire", h.retire)
	})
}

type propertyForm struct {
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
	BranchID  int64  `json:"branch_id" validate:"required,gt=0"`
	OwnerID   int64  `json:"owner_id" validate:"required,gt=0"`
	Name      string `json:"name" validate:"required"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city"`
	UnitCount int    `json:"unit_count" validate:"required,gte=1"`
	Status    string `json:"status" validate:"omitempty,oneof=available occupied maintenance inactive"`
}

type statusForm struct {
	Status string `json:"status" validate:"required,oneof=available occupied maintenance inactive"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r)
	properties, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"properties": properties,
		"pagination": sharedpkg.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	property, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, property)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form propertyForm
	if !h.decode(w, r, &form) {
		return
	}
	property, err := h.service.Create(r.Context(), propertyFromForm(form))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "property created", property)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var form propertyForm
	if !h.decode(w, r, &form) {
		return
	}
	property := propertyFromForm(form)
	property.ID = id
	if property.Status == "" {
		property.Status = StatusAvailable
	}
	if err := h.service.Update(r.Context(), property); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "property updated", nil)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var form statusForm
	if !h.decode(w, r, &form) {
		return
	}
	if err := h.service.SetStatus(r.Context(), id, form.Status); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "property status updated", nil)
}

func (h *Handler) retire(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.SetStatus(r.Context(), id, StatusInactive); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "property retired", nil)
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
	case errors.Is(err, ErrInvalidStatus):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("property operation failed", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}

func propertyFromForm(form propertyForm) Property {
	return Property{
		CompanyID: form.CompanyID,
		BranchID:  form.BranchID,
		OwnerID:   form.OwnerID,
		Name:      form.Name,
		Address:   form.Address,
		City:      form.City,
		UnitCount: form.UnitCount,
		Status:    form.Status,
	}
}
