package rbac

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/estateops/estateops/internal/platform/httpx"
	"github.com/estateops/estateops/internal/shared"
)

// Handler exposes the permission engine's administrative API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), rbac: rbac}
}

// MountRoutes registers role, permission, assignment, and override routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/roles", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermRolesView, shared.PermRolesEdit))
			r.Get("/", h.listRoles)
			r.Get("/{id}", h.getRole)
			r.Get("/{id}/permissions", h.getRolePermissions)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(shared.PermRolesEdit))
			r.Post("/", h.createRole)
			r.Put("/{id}", h.updateRole)
			r.Delete("/{id}", h.deleteRole)
			r.Post("/{id}/clone", h.cloneRole)
			r.Put("/{id}/permissions", h.setRolePermissions)
			r.Put("/{id}/permissions/{permissionID}", h.setRolePermissionActive)
		})
	})

	r.Route("/permissions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermPermissionsView, shared.PermPermissionsEdit))
			r.Get("/", h.listPermissions)
			r.Get("/categories/{category}", h.listPermissionsByCategory)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(shared.PermPermissionsEdit))
			r.Post("/", h.createPermission)
			r.Put("/{id}", h.updatePermission)
			r.Delete("/{id}", h.deletePermission)
		})
	})

}

// MountUserRoutes registers the per-user assignment and override routes.
// It expects to share the users subrouter, so the path parameter is "id".
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView, shared.PermUsersEdit))
		r.Get("/{id}/roles", h.listUserRoles)
		r.Get("/{id}/overrides", h.listUserOverrides)
		r.Get("/{id}/effective-permissions", h.effectivePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUsersEdit))
		r.Post("/{id}/roles", h.assignRole)
		r.Delete("/{id}/roles/{roleID}", h.revokeRole)
		r.Put("/{id}/overrides", h.setOverride)
		r.Delete("/{id}/overrides/{permissionID}", h.removeOverride)
	})
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	IsPreset    bool   `json:"is_preset"`
}

type updateRoleRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	IsPreset    bool   `json:"is_preset"`
	IsActive    bool   `json:"is_active"`
}

type cloneRoleRequest struct {
	Name string `json:"name" validate:"required"`
}

type setRolePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

type setRolePermissionActiveRequest struct {
	IsActive bool `json:"is_active"`
}

type createPermissionRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	SystemName  string `json:"system_name" validate:"required"`
	IsActive    bool   `json:"is_active"`
}

type assignRoleRequest struct {
	RoleID    int64      `json:"role_id" validate:"required"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type setOverrideRequest struct {
	PermissionID int64 `json:"permission_id" validate:"required"`
	IsGranted    bool  `json:"is_granted"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) getRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.GetRoleWithPermissions(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.CreateRole(r.Context(), RoleInput{
		Name:        req.Name,
		Description: req.Description,
		IsPreset:    req.IsPreset,
	}, h.actor(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "role created", role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, RoleUpdate{
		Name:        req.Name,
		Description: req.Description,
		IsPreset:    req.IsPreset,
		IsActive:    req.IsActive,
	}, h.actor(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "role updated", role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "role deleted", nil)
}

func (h *Handler) cloneRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req cloneRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	clone, err := h.service.CloneRole(r.Context(), id, req.Name, h.actor(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "role cloned", clone)
}

func (h *Handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req setRolePermissionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SetRolePermissions(r.Context(), id, req.PermissionIDs); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "role permissions updated", nil)
}

func (h *Handler) setRolePermissionActive(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	permissionID, ok := h.pathID(w, r, "permissionID")
	if !ok {
		return
	}
	var req setRolePermissionActiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SetRolePermissionActive(r.Context(), roleID, permissionID, req.IsActive); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "role permission updated", nil)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) listPermissionsByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	perms, err := h.service.ListPermissionsByCategory(r.Context(), category)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req createPermissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), PermissionInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		SystemName:  req.SystemName,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "permission created", perm)
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req createPermissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	perm, err := h.service.UpdatePermission(r.Context(), id, PermissionInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		SystemName:  req.SystemName,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "permission updated", perm)
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "permission deleted", nil)
}

func (h *Handler) listUserRoles(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.service.ListUserRoles(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, assignments)
}

func (h *Handler) listUserOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.service.ListUserOverrides(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overrides)
}

func (h *Handler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.EffectivePermissions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID := chi.URLParam(r, "id")
	if err := h.service.AssignRole(r.Context(), userID, req.RoleID, h.actor(r), req.ExpiresAt); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "role assigned", nil)
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	userID := chi.URLParam(r, "id")
	if err := h.service.RevokeRole(r.Context(), userID, roleID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "role revoked", nil)
}

func (h *Handler) setOverride(w http.ResponseWriter, r *http.Request) {
	var req setOverrideRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID := chi.URLParam(r, "id")
	if err := h.service.SetOverride(r.Context(), userID, req.PermissionID, req.IsGranted, h.actor(r)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "override set", nil)
}

func (h *Handler) removeOverride(w http.ResponseWriter, r *http.Request) {
	permissionID, ok := h.pathID(w, r, "permissionID")
	if !ok {
		return
	}
	userID := chi.URLParam(r, "id")
	if err := h.service.RemoveOverride(r.Context(), userID, permissionID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "override removed", nil)
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

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func (h *Handler) actor(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.User()
	}
	return ""
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateName),
		errors.Is(err, ErrPresetRole),
		errors.Is(err, ErrRoleInUse),
		errors.Is(err, ErrPermissionInUse):
		httpx.Fail(w, http.StatusConflict, err.Error())
	default:
		if h.logger != nil {
			h.logger.Error("rbac operation failed", slog.Any("error", err))
		}
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
