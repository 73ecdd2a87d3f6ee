package rbac

import (
	"errors"
	"time"
)

// Domain errors surfaced by the service layer. Handlers translate these into
// failure envelopes; nothing here reaches callers as a raw exception.
var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrDuplicateName indicates a role name or permission system name collision.
	ErrDuplicateName = errors.New("rbac: name already in use")
	// ErrPresetRole indicates an attempt to delete or demote a preset role.
	ErrPresetRole = errors.New("rbac: preset roles cannot be deleted or demoted")
	// ErrRoleInUse indicates a role still referenced by active user assignments.
	ErrRoleInUse = errors.New("rbac: role has active user assignments")
	// ErrPermissionInUse indicates a permission still attached to a role.
	ErrPermissionInUse = errors.New("rbac: permission is assigned to one or more roles")
)

// Permission represents an atomic capability, addressed by a unique
// machine-readable system name such as "properties.create".
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	SystemName  string `json:"system_name"`
	IsActive    bool   `json:"is_active"`
}

// Role represents a named, reusable bundle of permission grants. Preset roles
// are system-defined and cannot be deleted or demoted to custom roles.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsPreset    bool      `json:"is_preset"`
	IsActive    bool      `json:"is_active"`
	CreatedBy   string    `json:"created_by"`
	UpdatedBy   string    `json:"updated_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RolePermission links a permission to a role. A grant can be soft-disabled
// by clearing IsActive without deleting the link.
type RolePermission struct {
	RoleID       int64 `json:"role_id"`
	PermissionID int64 `json:"permission_id"`
	IsActive     bool  `json:"is_active"`
}

// RoleWithPermissions bundles a role with its currently attached permissions.
type RoleWithPermissions struct {
	Role
	Permissions []Permission `json:"permissions"`
}

// UserRoleAssignment links a user to a role. Assignments are deactivated
// rather than deleted so the audit trail survives; at most one row exists per
// (user, role) pair and reactivation updates the existing row.
type UserRoleAssignment struct {
	UserID     string     `json:"user_id"`
	RoleID     int64      `json:"role_id"`
	IsActive   bool       `json:"is_active"`
	AssignedAt time.Time  `json:"assigned_at"`
	AssignedBy string     `json:"assigned_by"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the assignment has an expiry in the past.
func (a UserRoleAssignment) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// UserPermissionOverride is a user-specific exception that takes precedence
// over role-derived grants, in either direction. At most one override exists
// per (user, permission) pair; last write wins.
type UserPermissionOverride struct {
	UserID       string    `json:"user_id"`
	PermissionID int64     `json:"permission_id"`
	IsGranted    bool      `json:"is_granted"`
	SetBy        string    `json:"set_by"`
	SetAt        time.Time `json:"set_at"`
}
