package rbac

import (
	"errors"
	"strings"
)

// PolicyPrefix is the marker that identifies permission-backed policies at
// the framework boundary: "Permission:properties.create" requests a dynamic
// check for the "properties.create" permission.
const PolicyPrefix = "Permission:"

// PermissionPolicy names a permission-backed authorization policy. Policies
// are constructed from validated permission system names rather than parsed
// out of arbitrary strings; ParsePolicy keeps the string-prefix convention
// available at the outermost integration boundary only.
type PermissionPolicy struct {
	permission string
}

// NewPermissionPolicy builds a policy for a permission system name. System
// names are dotted lowercase identifiers such as "payments.approve".
func NewPermissionPolicy(systemName string) (PermissionPolicy, error) {
	systemName = strings.TrimSpace(systemName)
	if systemName == "" {
		return PermissionPolicy{}, errors.New("rbac: policy permission name required")
	}
	if strings.ContainsAny(systemName, " \t\n") {
		return PermissionPolicy{}, errors.New("rbac: policy permission name contains whitespace")
	}
	if !strings.Contains(systemName, ".") {
		return PermissionPolicy{}, errors.New("rbac: policy permission name must be of the form resource.action")
	}
	return PermissionPolicy{permission: systemName}, nil
}

// MustPolicy is NewPermissionPolicy for compile-time constant names; it
// panics on invalid input and is intended for route declarations.
func MustPolicy(systemName string) PermissionPolicy {
	p, err := NewPermissionPolicy(systemName)
	if err != nil {
		panic(err)
	}
	return p
}

// Permission returns the permission system name the policy checks.
func (p PermissionPolicy) Permission() string {
	return p.permission
}

// String renders the policy in the wire convention.
func (p PermissionPolicy) String() string {
	return PolicyPrefix + p.permission
}

// ParsePolicy recognises the "Permission:" convention and synthesizes a
// policy for the trailing system name. The second return is false for
// strings outside the convention, which defers to other policy providers.
func ParsePolicy(name string) (PermissionPolicy, bool) {
	if !strings.HasPrefix(name, PolicyPrefix) {
		return PermissionPolicy{}, false
	}
	policy, err := NewPermissionPolicy(strings.TrimPrefix(name, PolicyPrefix))
	if err != nil {
		return PermissionPolicy{}, false
	}
	return policy, true
}
