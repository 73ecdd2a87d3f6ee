package rbac

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// PermissionChecker is the evaluation contract consumed by the authorization
// middleware and by claims hydration. Both Resolver and CachedResolver
// satisfy it.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID, systemName string) (bool, error)
	ListPermissions(ctx context.Context, userID string) ([]string, error)
}

// Resolver computes authorization decisions by combining role-derived grants
// with user-level overrides. Every lookup fails closed: an unknown or
// inactive permission is never granted.
type Resolver struct {
	store Store
	now   func() time.Time
}

// NewResolver constructs a Resolver backed by the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

var _ PermissionChecker = (*Resolver)(nil)

// HasPermission reports whether the user holds the named permission.
//
// An override for (user, permission) is authoritative in either direction and
// short-circuits role membership. Otherwise the user must reach the
// permission through at least one active role carrying an active grant.
func (r *Resolver) HasPermission(ctx context.Context, userID, systemName string) (bool, error) {
	systemName = strings.TrimSpace(systemName)
	if userID == "" || systemName == "" {
		return false, nil
	}

	perm, err := r.store.GetPermissionBySystemName(ctx, systemName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !perm.IsActive {
		return false, nil
	}

	override, err := r.store.GetOverride(ctx, userID, perm.ID)
	if err == nil {
		return override.IsGranted, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	roleIDs, err := r.store.ActiveRoleIDs(ctx, userID, r.now())
	if err != nil {
		return false, err
	}
	if len(roleIDs) == 0 {
		return false, nil
	}

	return r.store.RoleGrantExists(ctx, roleIDs, perm.ID)
}

// ListPermissions returns the deduplicated set of permission system names the
// user effectively holds, consistent with HasPermission: explicit denies
// remove role-derived grants, explicit grants are additive, and inactive
// permissions never appear.
func (r *Resolver) ListPermissions(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}

	granted, err := r.store.RoleGrantedSystemNames(ctx, userID, r.now())
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(granted))
	for _, name := range granted {
		set[name] = struct{}{}
	}

	overrides, err := r.store.ListUserOverrides(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		perm, err := r.store.GetPermission(ctx, o.PermissionID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !o.IsGranted {
			delete(set, perm.SystemName)
			continue
		}
		if perm.IsActive {
			set[perm.SystemName] = struct{}{}
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
