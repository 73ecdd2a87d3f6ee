package rbac

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Service orchestrates permission engine operations: CRUD on the permission
// store entities, cached reads, and the cache invalidation that every
// mutation triggers before returning.
type Service struct {
	store   Store
	cache   *Cache
	checker PermissionChecker
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs a Service. The cached resolver built here is shared
// with the authorization middleware through Checker.
func NewService(store Store, cache *Cache, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		checker: NewCachedResolver(NewResolver(store), cache),
		logger:  logger,
		now:     time.Now,
	}
}

// Checker exposes the cached resolver for authorization checks.
func (s *Service) Checker() PermissionChecker {
	return s.checker
}

// HasPermission reports whether the user holds the named permission, served
// from cache when possible.
func (s *Service) HasPermission(ctx context.Context, userID, systemName string) (bool, error) {
	return s.checker.HasPermission(ctx, userID, systemName)
}

// EffectivePermissions returns the user's effective permission set, served
// from cache when possible.
func (s *Service) EffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	return s.checker.ListPermissions(ctx, userID)
}

// PermissionInput carries the mutable fields of a permission.
type PermissionInput struct {
	Name        string
	Description string
	Category    string
	SystemName  string
	IsActive    bool
}

// CreatePermission registers a new permission. System names are unique.
func (s *Service) CreatePermission(ctx context.Context, input PermissionInput) (Permission, error) {
	systemName := strings.TrimSpace(input.SystemName)
	if systemName == "" {
		return Permission{}, errors.New("rbac: permission system name required")
	}
	perm, err := s.store.CreatePermission(ctx, Permission{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		SystemName:  systemName,
		IsActive:    input.IsActive,
	})
	if err != nil {
		return Permission{}, err
	}
	s.invalidatePermission(ctx, perm.ID, perm.Category)
	return perm, nil
}

// UpdatePermission updates permission metadata. Changing the category clears
// both the old and the new category listing.
func (s *Service) UpdatePermission(ctx context.Context, id int64, input PermissionInput) (Permission, error) {
	existing, err := s.store.GetPermission(ctx, id)
	if err != nil {
		return Permission{}, err
	}
	updated := Permission{
		ID:          id,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		SystemName:  strings.TrimSpace(input.SystemName),
		IsActive:    input.IsActive,
	}
	if updated.SystemName == "" {
		return Permission{}, errors.New("rbac: permission system name required")
	}
	if err := s.store.UpdatePermission(ctx, updated); err != nil {
		return Permission{}, err
	}
	s.invalidatePermission(ctx, id, existing.Category, updated.Category)
	return updated, nil
}

// DeletePermission removes a permission. Blocked while any role still links
// to it; the links must be detached first.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	perm, err := s.store.GetPermission(ctx, id)
	if err != nil {
		return err
	}
	links, err := s.store.CountRoleLinks(ctx, id)
	if err != nil {
		return err
	}
	if links > 0 {
		return ErrPermissionInUse
	}
	if err := s.store.DeletePermission(ctx, id); err != nil {
		return err
	}
	s.invalidatePermission(ctx, id, perm.Category)
	return nil
}

// GetPermission fetches a permission by ID through the cache.
func (s *Service) GetPermission(ctx context.Context, id int64) (Permission, error) {
	var perm Permission
	err := s.cache.FetchJSON(ctx, keyPermissionByID(id), &perm, func(ctx context.Context) (any, error) {
		return s.store.GetPermission(ctx, id)
	})
	return perm, err
}

// ListPermissions returns the whole permission catalog through the cache.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	var perms []Permission
	err := s.cache.FetchJSON(ctx, keyAllPermissions, &perms, func(ctx context.Context) (any, error) {
		return s.store.ListPermissions(ctx)
	})
	return perms, err
}

// ListPermissionsByCategory returns one category of the catalog through the cache.
func (s *Service) ListPermissionsByCategory(ctx context.Context, category string) ([]Permission, error) {
	var perms []Permission
	err := s.cache.FetchJSON(ctx, keyPermissionsCategory(category), &perms, func(ctx context.Context) (any, error) {
		return s.store.ListPermissionsByCategory(ctx, category)
	})
	return perms, err
}

// RoleInput carries the fields for creating a role.
type RoleInput struct {
	Name        string
	Description string
	IsPreset    bool
}

// RoleUpdate carries the mutable fields of an existing role.
type RoleUpdate struct {
	Name        string
	Description string
	IsPreset    bool
	IsActive    bool
}

// CreateRole inserts a new role. Role names are unique and case-sensitive.
func (s *Service) CreateRole(ctx context.Context, input RoleInput, actor string) (Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	role, err := s.store.CreateRole(ctx, Role{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsPreset:    input.IsPreset,
		IsActive:    true,
		CreatedBy:   actor,
	})
	if err != nil {
		return Role{}, err
	}
	s.invalidateRole(ctx, role.ID, false)
	return role, nil
}

// UpdateRole updates role metadata. Preset roles cannot be demoted. Toggling
// the active flag changes what every assigned user resolves, so their caches
// are cleared as well.
func (s *Service) UpdateRole(ctx context.Context, id int64, input RoleUpdate, actor string) (Role, error) {
	existing, err := s.store.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if existing.IsPreset && !input.IsPreset {
		return Role{}, ErrPresetRole
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	updated := existing
	updated.Name = name
	updated.Description = strings.TrimSpace(input.Description)
	updated.IsPreset = input.IsPreset
	updated.IsActive = input.IsActive
	updated.UpdatedBy = actor
	if err := s.store.UpdateRole(ctx, updated); err != nil {
		return Role{}, err
	}
	s.invalidateRole(ctx, id, existing.IsActive != input.IsActive)
	return updated, nil
}

// DeleteRole removes a role and its permission links. Preset roles and roles
// with active user assignments cannot be deleted.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsPreset {
		return ErrPresetRole
	}
	active, err := s.store.CountActiveAssignments(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrRoleInUse
	}
	if err := s.store.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.invalidateRole(ctx, id, false)
	return nil
}

// CloneRole duplicates a role's permission set under a new unique name. The
// clone is always a custom, active role.
func (s *Service) CloneRole(ctx context.Context, sourceID int64, newName, actor string) (Role, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	source, err := s.store.GetRole(ctx, sourceID)
	if err != nil {
		return Role{}, err
	}
	perms, err := s.store.ListRolePermissions(ctx, sourceID)
	if err != nil {
		return Role{}, err
	}
	clone, err := s.store.CreateRole(ctx, Role{
		Name:        newName,
		Description: source.Description,
		IsPreset:    false,
		IsActive:    true,
		CreatedBy:   actor,
	})
	if err != nil {
		return Role{}, err
	}
	for _, p := range perms {
		if err := s.store.AttachPermission(ctx, clone.ID, p.ID); err != nil {
			return Role{}, err
		}
	}
	s.invalidateRole(ctx, clone.ID, false)
	return clone, nil
}

// SetRolePermissions replaces the role's permission set with the given IDs,
// attaching missing links and detaching removed ones.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	existing, err := s.store.ListRolePermissions(ctx, roleID)
	if err != nil {
		return err
	}
	current := make(map[int64]struct{}, len(existing))
	for _, p := range existing {
		current[p.ID] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		keep[id] = struct{}{}
		if _, ok := current[id]; !ok {
			if err := s.store.AttachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	for id := range current {
		if _, ok := keep[id]; !ok {
			if err := s.store.DetachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	s.invalidateRole(ctx, roleID, true)
	return nil
}

// SetRolePermissionActive soft-enables or soft-disables a single grant
// without deleting the link.
func (s *Service) SetRolePermissionActive(ctx context.Context, roleID, permissionID int64, active bool) error {
	if err := s.store.SetRolePermissionActive(ctx, roleID, permissionID, active); err != nil {
		return err
	}
	s.invalidateRole(ctx, roleID, true)
	return nil
}

// GetRole fetches a role by ID through the cache.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := s.cache.FetchJSON(ctx, keyRole(id), &role, func(ctx context.Context) (any, error) {
		return s.store.GetRole(ctx, id)
	})
	return role, err
}

// GetRoleWithPermissions fetches a role and its attached permissions through
// the cache.
func (s *Service) GetRoleWithPermissions(ctx context.Context, id int64) (RoleWithPermissions, error) {
	var result RoleWithPermissions
	err := s.cache.FetchJSON(ctx, keyRoleWithPermissions(id), &result, func(ctx context.Context) (any, error) {
		role, err := s.store.GetRole(ctx, id)
		if err != nil {
			return nil, err
		}
		perms, err := s.store.ListRolePermissions(ctx, id)
		if err != nil {
			return nil, err
		}
		return RoleWithPermissions{Role: role, Permissions: perms}, nil
	})
	return result, err
}

// ListRoles returns all roles through the cache.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	err := s.cache.FetchJSON(ctx, keyAllRoles, &roles, func(ctx context.Context) (any, error) {
		return s.store.ListRoles(ctx)
	})
	return roles, err
}

// AssignRole grants a role to a user. Assigning an already-held role updates
// the existing row, so exactly one row exists per (user, role) pair.
func (s *Service) AssignRole(ctx context.Context, userID string, roleID int64, assignedBy string, expiresAt *time.Time) error {
	if userID == "" {
		return errors.New("rbac: user id required")
	}
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	err := s.store.UpsertAssignment(ctx, UserRoleAssignment{
		UserID:     userID,
		RoleID:     roleID,
		IsActive:   true,
		AssignedAt: s.now().UTC(),
		AssignedBy: assignedBy,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		return err
	}
	s.invalidateUser(ctx, userID)
	return nil
}

// RevokeRole deactivates a user's role assignment, retaining the row for
// audit history.
func (s *Service) RevokeRole(ctx context.Context, userID string, roleID int64) error {
	if err := s.store.DeactivateAssignment(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidateUser(ctx, userID)
	return nil
}

// ActiveRoleNames returns the names of the user's currently effective roles,
// for session claims.
func (s *Service) ActiveRoleNames(ctx context.Context, userID string) ([]string, error) {
	roleIDs, err := s.store.ActiveRoleIDs(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		role, err := s.store.GetRole(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		names = append(names, role.Name)
	}
	return names, nil
}

// ListUserRoles returns every assignment row for a user through the cache.
func (s *Service) ListUserRoles(ctx context.Context, userID string) ([]UserRoleAssignment, error) {
	var assignments []UserRoleAssignment
	err := s.cache.FetchJSON(ctx, keyUserRoles(userID), &assignments, func(ctx context.Context) (any, error) {
		return s.store.ListUserAssignments(ctx, userID)
	})
	return assignments, err
}

// SetOverride records a user-specific exception, granting or denying the
// permission regardless of role membership. Last write wins.
func (s *Service) SetOverride(ctx context.Context, userID string, permissionID int64, granted bool, setBy string) error {
	if userID == "" {
		return errors.New("rbac: user id required")
	}
	if _, err := s.store.GetPermission(ctx, permissionID); err != nil {
		return err
	}
	err := s.store.UpsertOverride(ctx, UserPermissionOverride{
		UserID:       userID,
		PermissionID: permissionID,
		IsGranted:    granted,
		SetBy:        setBy,
		SetAt:        s.now().UTC(),
	})
	if err != nil {
		return err
	}
	s.invalidateUser(ctx, userID)
	return nil
}

// RemoveOverride deletes a user's override, restoring role-derived behavior.
func (s *Service) RemoveOverride(ctx context.Context, userID string, permissionID int64) error {
	if err := s.store.DeleteOverride(ctx, userID, permissionID); err != nil {
		return err
	}
	s.invalidateUser(ctx, userID)
	return nil
}

// ListUserOverrides returns all overrides for a user through the cache.
func (s *Service) ListUserOverrides(ctx context.Context, userID string) ([]UserPermissionOverride, error) {
	var overrides []UserPermissionOverride
	err := s.cache.FetchJSON(ctx, keyUserOverrides(userID), &overrides, func(ctx context.Context) (any, error) {
		return s.store.ListUserOverrides(ctx, userID)
	})
	return overrides, err
}

// Invalidation helpers. Invalidation runs synchronously after the mutation
// commits; a failed invalidation is logged rather than failing the already
// committed mutation, and the TTL bounds the resulting staleness.

func (s *Service) invalidateUser(ctx context.Context, userID string) {
	if err := s.cache.InvalidateUser(ctx, userID); err != nil && s.logger != nil {
		s.logger.Warn("rbac invalidate user cache", slog.String("user_id", userID), slog.Any("error", err))
	}
}

// invalidateRole clears the role-level keys. When cascade is set, every user
// holding an active assignment is invalidated too, so role-wide changes are
// visible immediately instead of after TTL expiry.
func (s *Service) invalidateRole(ctx context.Context, roleID int64, cascade bool) {
	if err := s.cache.InvalidateRole(ctx, roleID); err != nil && s.logger != nil {
		s.logger.Warn("rbac invalidate role cache", slog.Int64("role_id", roleID), slog.Any("error", err))
	}
	if !cascade {
		return
	}
	userIDs, err := s.store.ListActiveAssignedUserIDs(ctx, roleID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("rbac list assigned users for invalidation", slog.Int64("role_id", roleID), slog.Any("error", err))
		}
		return
	}
	for _, userID := range userIDs {
		s.invalidateUser(ctx, userID)
	}
}

func (s *Service) invalidatePermission(ctx context.Context, permissionID int64, categories ...string) {
	if err := s.cache.InvalidatePermission(ctx, permissionID, categories...); err != nil && s.logger != nil {
		s.logger.Warn("rbac invalidate permission cache", slog.Int64("permission_id", permissionID), slog.Any("error", err))
	}
}
