package users

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/estateops/estateops/internal/platform/httpx"
	"github.com/estateops/estateops/internal/rbac"
	"github.com/estateops/estateops/internal/shared"
)

// Handler manages user management endpoints.
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

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView, shared.PermUsersEdit))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUsersEdit))
		r.Post("/", h.createUser)
		r.Put("/{id}", h.updateUser)
		r.Post("/{id}/deactivate", h.deactivateUser)
		r.Post("/{id}/activate", h.activateUser)
		r.Put("/{id}/password", h.changePassword)
	})
}

type createUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name" validate:"required"`
	Phone     string `json:"phone"`
	Password  string `json:"password" validate:"required,min=8"`
	CompanyID *int64 `json:"company_id,omitempty"`
	BranchID  *int64 `json:"branch_id,omitempty"`
}

type updateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name" validate:"required"`
	Phone     string `json:"phone"`
	CompanyID *int64 `json:"company_id,omitempty"`
	BranchID  *int64 `json:"branch_id,omitempty"`
	IsActive  bool   `json:"is_active"`
}

type changePasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.service.CreateUser(r.Context(), CreateInput{
		Email:     req.Email,
		Name:      req.Name,
		Phone:     req.Phone,
		Password:  req.Password,
		CompanyID: req.CompanyID,
		BranchID:  req.BranchID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "user created", user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	user := User{
		ID:        chi.URLParam(r, "id"),
		Email:     req.Email,
		Name:      req.Name,
		Phone:     req.Phone,
		CompanyID: req.CompanyID,
		BranchID:  req.BranchID,
		IsActive:  req.IsActive,
	}
	if err := h.service.UpdateUser(r.Context(), user); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "user updated", nil)
}

func (h *Handler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeactivateUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "user deactivated", nil)
}

func (h *Handler) activateUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ActivateUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "user activated", nil)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.ChangePassword(r.Context(), chi.URLParam(r, "id"), req.Password); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "password updated", nil)
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

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateEmail):
		httpx.Fail(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("user operation failed", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
