package rbac

import (
	"context"
	"time"
)

// Store is the persistence boundary for the permission engine. Lookups return
// ErrNotFound when the requested record does not exist; mutations return
// ErrDuplicateName on uniqueness violations.
type Store interface {
	// Permission catalog.
	GetPermission(ctx context.Context, id int64) (Permission, error)
	GetPermissionBySystemName(ctx context.Context, systemName string) (Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	ListPermissionsByCategory(ctx context.Context, category string) ([]Permission, error)
	CreatePermission(ctx context.Context, p Permission) (Permission, error)
	UpdatePermission(ctx context.Context, p Permission) error
	DeletePermission(ctx context.Context, id int64) error
	CountRoleLinks(ctx context.Context, permissionID int64) (int, error)

	// Roles and their permission links.
	GetRole(ctx context.Context, id int64) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error)
	CreateRole(ctx context.Context, r Role) (Role, error)
	UpdateRole(ctx context.Context, r Role) error
	DeleteRole(ctx context.Context, id int64) error
	AttachPermission(ctx context.Context, roleID, permissionID int64) error
	DetachPermission(ctx context.Context, roleID, permissionID int64) error
	SetRolePermissionActive(ctx context.Context, roleID, permissionID int64, active bool) error

	// User role assignments. Deactivation, not deletion, is the removal path.
	GetAssignment(ctx context.Context, userID string, roleID int64) (UserRoleAssignment, error)
	ListUserAssignments(ctx context.Context, userID string) ([]UserRoleAssignment, error)
	UpsertAssignment(ctx context.Context, a UserRoleAssignment) error
	DeactivateAssignment(ctx context.Context, userID string, roleID int64) error
	CountActiveAssignments(ctx context.Context, roleID int64) (int, error)
	ListActiveAssignedUserIDs(ctx context.Context, roleID int64) ([]string, error)

	// User permission overrides.
	GetOverride(ctx context.Context, userID string, permissionID int64) (UserPermissionOverride, error)
	ListUserOverrides(ctx context.Context, userID string) ([]UserPermissionOverride, error)
	UpsertOverride(ctx context.Context, o UserPermissionOverride) error
	DeleteOverride(ctx context.Context, userID string, permissionID int64) error

	// Resolution queries. ActiveRoleIDs returns roles reachable through
	// active, unexpired assignments to active roles as of now.
	ActiveRoleIDs(ctx context.Context, userID string, now time.Time) ([]int64, error)
	RoleGrantExists(ctx context.Context, roleIDs []int64, permissionID int64) (bool, error)
	RoleGrantedSystemNames(ctx context.Context, userID string, now time.Time) ([]string, error)
}
