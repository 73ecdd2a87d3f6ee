package branches

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

// Handler manages branch endpoints.
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

// MountRoutes registers branch routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(sharedpkg.PermBranchesView, sharedpkg.PermBranchesEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(sharedpkg.PermBranchesEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Post("/{id}/deactivate", h.deactivate)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r)
	branches, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"branches":   branches,
		"pagination": sharedpkg.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	branch, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, branch)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	branch, err := h.service.Create(r.Context(), branchFromForm(form))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "branch created", branch)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	if err := h.service.Update(r.Context(), id, branchFromForm(form)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "branch updated", nil)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "branch deactivated", nil)
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request) (BranchForm, bool) {
	var form BranchForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return BranchForm{}, false
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return BranchForm{}, false
	}
	return form, true
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
	case errors.Is(err, shared.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		httpx.Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, shared.ErrInvalidID), errors.Is(err, shared.ErrRequiredField), errors.Is(err, shared.ErrValidation):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("branch operation failed", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}

func branchFromForm(form BranchForm) Branch {
	return Branch{
		CompanyID: form.CompanyID,
		Code:      form.Code,
		Name:      form.Name,
		Address:   form.Address,
		Phone:     form.Phone,
		IsActive:  form.IsActive,
	}
}
