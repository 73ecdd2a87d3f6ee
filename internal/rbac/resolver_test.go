package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func seedPermission(t *testing.T, store *memStore, systemName string, active bool) Permission {
	t.Helper()
	perm, err := store.CreatePermission(context.Background(), Permission{
		Name:       systemName,
		SystemName: systemName,
		Category:   "test",
		IsActive:   active,
	})
	require.NoError(t, err)
	return perm
}

func seedRole(t *testing.T, store *memStore, name string, active bool) Role {
	t.Helper()
	role, err := store.CreateRole(context.Background(), Role{Name: name, IsActive: active})
	require.NoError(t, err)
	return role
}

func seedAssignment(t *testing.T, store *memStore, userID string, roleID int64, expiresAt *time.Time) {
	t.Helper()
	err := store.UpsertAssignment(context.Background(), UserRoleAssignment{
		UserID:     userID,
		RoleID:     roleID,
		IsActive:   true,
		AssignedAt: time.Now().UTC(),
		ExpiresAt:  expiresAt,
	})
	require.NoError(t, err)
}

func TestResolverRoleDerivedGrant(t *testing.T) {
	store := newMemStore()
	perm := seedPermission(t, store, "properties.view", true)
	role := seedRole(t, store, "Manager", true)
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, perm.ID))
	seedAssignment(t, store, "user-1", role.ID, nil)

	resolver := NewResolver(store)

	granted, err := resolver.HasPermission(context.Background(), "user-1", "properties.view")
	require.NoError(t, err)
	require.True(t, granted)

	granted, err = resolver.HasPermission(context.Background(), "user-2", "properties.view")
	require.NoError(t, err)
	require.False(t, granted)
}

func TestResolverOverrideIsAuthoritative(t *testing.T) {
	store := newMemStore()
	perm := seedPermission(t, store, "payments.approve", true)
	role := seedRole(t, store, "Accountant", true)
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, perm.ID))
	seedAssignment(t, store, "user-1", role.ID, nil)

	resolver := NewResolver(store)

	// Deny override removes a role-derived grant.
	require.NoError(t, store.UpsertOverride(context.Background(), UserPermissionOverride{
		UserID: "user-1", PermissionID: perm.ID, IsGranted: false,
	}))
	granted, err := resolver.HasPermission(context.Background(), "user-1", "payments.approve")
	require.NoError(t, err)
	require.False(t, granted)

	// Grant override works with no role membership at all.
	require.NoError(t, store.UpsertOverride(context.Background(), UserPermissionOverride{
		UserID: "user-2", PermissionID: perm.ID, IsGranted: true,
	}))
	granted, err = resolver.HasPermission(context.Background(), "user-2", "payments.approve")
	require.NoError(t, err)
	require.True(t, granted)
}

func TestResolverInactivePermissionAlwaysDenied(t *testing.T) {
	store := newMemStore()
	perm := seedPermission(t, store, "reports.view", false)
	role := seedRole(t, store, "Analyst", true)
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, perm.ID))
	seedAssignment(t, store, "user-1", role.ID, nil)
	require.NoError(t, store.UpsertOverride(context.Background(), UserPermissionOverride{
		UserID: "user-1", PermissionID: perm.ID, IsGranted: true,
	}))

	resolver := NewResolver(store)
	granted, err := resolver.HasPermission(context.Background(), "user-1", "reports.view")
	require.NoError(t, err)
	require.False(t, granted)
}

func TestResolverUnknownPermissionDenied(t *testing.T) {
	resolver := NewResolver(newMemStore())
	granted, err := resolver.HasPermission(context.Background(), "user-1", "no.such")
	require.NoError(t, err)
	require.False(t, granted)

	granted, err = resolver.HasPermission(context.Background(), "", "properties.view")
	require.NoError(t, err)
	require.False(t, granted)

	granted, err = resolver.HasPermission(context.Background(), "user-1", "   ")
	require.NoError(t, err)
	require.False(t, granted)
}

func TestResolverInactiveRoleDenied(t *testing.T) {
	store := newMemStore()
	perm := seedPermission(t, store, "owners.view", true)
	role := seedRole(t, store, "Archived", false)
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, perm.ID))
	seedAssignment(t, store, "user-1", role.ID, nil)

	resolver := NewResolver(store)
	granted, err := resolver.HasPermission(context.Background(), "user-1", "owners.view")
	require.NoError(t, err)
	require.False(t, granted)
}

func TestResolverExpiredAssignmentDenied(t *testing.T) {
	store := newMemStore()
	perm := seedPermission(t, store, "tenants.view", true)
	role := seedRole(t, store, "Temp", true)
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, perm.ID))
	expired := time.Now().Add(-time.Hour)
	seedAssignment(t, store, "user-1", role.ID, &expired)

	resolver := NewResolver(store)
	granted, err := resolver.HasPermission(context.Background(), "user-1", "tenants.view")
	require.NoError(t, err)
	require.False(t, granted)
}

func TestResolverDisabledRolePermissionLinkDenied(t *testing.T) {
	store := newMemStore()
	perm := seedPermission(t, store, "files.delete", true)
	role := seedRole(t, store, "Admin", true)
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, perm.ID))
	require.NoError(t, store.SetRolePermissionActive(context.Background(), role.ID, perm.ID, false))
	seedAssignment(t, store, "user-1", role.ID, nil)

	resolver := NewResolver(store)
	granted, err := resolver.HasPermission(context.Background(), "user-1", "files.delete")
	require.NoError(t, err)
	require.False(t, granted)
}

func TestResolverListPermissions(t *testing.T) {
	store := newMemStore()
	view := seedPermission(t, store, "properties.view", true)
	edit := seedPermission(t, store, "properties.edit", true)
	approve := seedPermission(t, store, "payments.approve", true)
	dormant := seedPermission(t, store, "reports.view", false)

	role := seedRole(t, store, "Manager", true)
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, view.ID))
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, edit.ID))
	seedAssignment(t, store, "user-1", role.ID, nil)

	// Deny override drops a role-derived grant; grant overrides add only
	// active permissions.
	require.NoError(t, store.UpsertOverride(context.Background(), UserPermissionOverride{
		UserID: "user-1", PermissionID: edit.ID, IsGranted: false,
	}))
	require.NoError(t, store.UpsertOverride(context.Background(), UserPermissionOverride{
		UserID: "user-1", PermissionID: approve.ID, IsGranted: true,
	}))
	require.NoError(t, store.UpsertOverride(context.Background(), UserPermissionOverride{
		UserID: "user-1", PermissionID: dormant.ID, IsGranted: true,
	}))

	resolver := NewResolver(store)
	names, err := resolver.ListPermissions(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{"payments.approve", "properties.view"}, names)
}

func TestResolverListPermissionsEmptyUser(t *testing.T) {
	resolver := NewResolver(newMemStore())
	names, err := resolver.ListPermissions(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, names)
}
