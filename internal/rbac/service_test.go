package rbac

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, NewCache(nil, 0), logger), store
}

func newCachedTestService(t *testing.T) (*Service, *memStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, NewCache(client, DefaultCacheTTL), logger), store, mr
}

func TestServiceAssignRoleIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	role := seedRole(t, store, "Manager", true)

	require.NoError(t, svc.AssignRole(context.Background(), "user-1", role.ID, "admin", nil))
	expires := time.Now().Add(24 * time.Hour)
	require.NoError(t, svc.AssignRole(context.Background(), "user-1", role.ID, "admin", &expires))

	assignments, err := svc.ListUserRoles(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	require.True(t, assignments[0].IsActive)
	require.NotNil(t, assignments[0].ExpiresAt)
}

func TestServiceAssignRoleUnknownRole(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.AssignRole(context.Background(), "user-1", 99, "admin", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceRevokeRoleDeactivatesAssignment(t *testing.T) {
	svc, store := newTestService(t)
	role := seedRole(t, store, "Manager", true)
	require.NoError(t, svc.AssignRole(context.Background(), "user-1", role.ID, "admin", nil))

	require.NoError(t, svc.RevokeRole(context.Background(), "user-1", role.ID))

	// The row survives revocation for audit history; only the flag flips.
	assignments, err := svc.ListUserRoles(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	require.False(t, assignments[0].IsActive)
}

func TestServiceDeleteRoleGuards(t *testing.T) {
	svc, store := newTestService(t)
	preset, err := store.CreateRole(context.Background(), Role{Name: "Administrator", IsPreset: true, IsActive: true})
	require.NoError(t, err)
	require.ErrorIs(t, svc.DeleteRole(context.Background(), preset.ID), ErrPresetRole)

	custom := seedRole(t, store, "Custom", true)
	require.NoError(t, svc.AssignRole(context.Background(), "user-1", custom.ID, "admin", nil))
	require.ErrorIs(t, svc.DeleteRole(context.Background(), custom.ID), ErrRoleInUse)

	require.NoError(t, svc.RevokeRole(context.Background(), "user-1", custom.ID))
	require.NoError(t, svc.DeleteRole(context.Background(), custom.ID))
	_, err = store.GetRole(context.Background(), custom.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceUpdateRolePresetCannotBeDemoted(t *testing.T) {
	svc, store := newTestService(t)
	preset, err := store.CreateRole(context.Background(), Role{Name: "Administrator", IsPreset: true, IsActive: true})
	require.NoError(t, err)

	_, err = svc.UpdateRole(context.Background(), preset.ID, RoleUpdate{
		Name: "Administrator", IsPreset: false, IsActive: true,
	}, "admin")
	require.ErrorIs(t, err, ErrPresetRole)
}

func TestServiceCreateRoleDuplicateName(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateRole(context.Background(), RoleInput{Name: "Manager"}, "admin")
	require.NoError(t, err)
	_, err = svc.CreateRole(context.Background(), RoleInput{Name: "Manager"}, "admin")
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestServiceCloneRole(t *testing.T) {
	svc, store := newTestService(t)
	perm := seedPermission(t, store, "properties.view", true)
	source, err := store.CreateRole(context.Background(), Role{Name: "Administrator", IsPreset: true, IsActive: true})
	require.NoError(t, err)
	require.NoError(t, store.AttachPermission(context.Background(), source.ID, perm.ID))

	clone, err := svc.CloneRole(context.Background(), source.ID, "Junior Admin", "admin")
	require.NoError(t, err)
	require.False(t, clone.IsPreset)
	require.True(t, clone.IsActive)

	perms, err := store.ListRolePermissions(context.Background(), clone.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	require.Equal(t, perm.ID, perms[0].ID)
}

func TestServiceSetRolePermissionsReplacesSet(t *testing.T) {
	svc, store := newTestService(t)
	a := seedPermission(t, store, "properties.view", true)
	b := seedPermission(t, store, "properties.edit", true)
	c := seedPermission(t, store, "properties.delete", true)
	role := seedRole(t, store, "Manager", true)
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, a.ID))
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, b.ID))

	require.NoError(t, svc.SetRolePermissions(context.Background(), role.ID, []int64{b.ID, c.ID}))

	perms, err := store.ListRolePermissions(context.Background(), role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	require.Equal(t, b.ID, perms[0].ID)
	require.Equal(t, c.ID, perms[1].ID)
}

func TestServiceDeletePermissionInUse(t *testing.T) {
	svc, store := newTestService(t)
	perm := seedPermission(t, store, "owners.edit", true)
	role := seedRole(t, store, "Manager", true)
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, perm.ID))

	require.ErrorIs(t, svc.DeletePermission(context.Background(), perm.ID), ErrPermissionInUse)

	require.NoError(t, store.DetachPermission(context.Background(), role.ID, perm.ID))
	require.NoError(t, svc.DeletePermission(context.Background(), perm.ID))
}

func TestServiceCreatePermissionValidation(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreatePermission(context.Background(), PermissionInput{Name: "View", SystemName: "  "})
	require.Error(t, err)

	perm, err := svc.CreatePermission(context.Background(), PermissionInput{
		Name: " View Properties ", SystemName: " properties.view ", Category: "properties", IsActive: true,
	})
	require.NoError(t, err)
	require.Equal(t, "properties.view", perm.SystemName)
	require.Equal(t, "View Properties", perm.Name)

	_, err = svc.CreatePermission(context.Background(), PermissionInput{Name: "Dup", SystemName: "properties.view"})
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestServiceSetOverrideRequiresExistingPermission(t *testing.T) {
	svc, store := newTestService(t)
	require.ErrorIs(t, svc.SetOverride(context.Background(), "user-1", 42, true, "admin"), ErrNotFound)

	perm := seedPermission(t, store, "payments.record", true)
	require.NoError(t, svc.SetOverride(context.Background(), "user-1", perm.ID, false, "admin"))

	overrides, err := svc.ListUserOverrides(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	require.False(t, overrides[0].IsGranted)
}

func TestServiceRemoveOverrideRestoresRoleBehavior(t *testing.T) {
	svc, store := newTestService(t)
	perm := seedPermission(t, store, "payments.record", true)
	role := seedRole(t, store, "Accountant", true)
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, perm.ID))
	require.NoError(t, svc.AssignRole(context.Background(), "user-1", role.ID, "admin", nil))
	require.NoError(t, svc.SetOverride(context.Background(), "user-1", perm.ID, false, "admin"))

	granted, err := svc.HasPermission(context.Background(), "user-1", "payments.record")
	require.NoError(t, err)
	require.False(t, granted)

	require.NoError(t, svc.RemoveOverride(context.Background(), "user-1", perm.ID))
	granted, err = svc.HasPermission(context.Background(), "user-1", "payments.record")
	require.NoError(t, err)
	require.True(t, granted)
}

func TestServiceRoleMutationInvalidatesAssignedUsers(t *testing.T) {
	svc, store, _ := newCachedTestService(t)
	perm := seedPermission(t, store, "maintenance.edit", true)
	role := seedRole(t, store, "Technician", true)
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, perm.ID))
	require.NoError(t, svc.AssignRole(context.Background(), "user-1", role.ID, "admin", nil))

	granted, err := svc.HasPermission(context.Background(), "user-1", "maintenance.edit")
	require.NoError(t, err)
	require.True(t, granted)

	// Stripping the role's grants must be visible on the very next check,
	// not after the TTL runs out.
	require.NoError(t, svc.SetRolePermissions(context.Background(), role.ID, nil))

	granted, err = svc.HasPermission(context.Background(), "user-1", "maintenance.edit")
	require.NoError(t, err)
	require.False(t, granted)
}

func TestServiceRevokeInvalidatesCachedDecision(t *testing.T) {
	svc, store, _ := newCachedTestService(t)
	perm := seedPermission(t, store, "inspections.edit", true)
	role := seedRole(t, store, "Inspector", true)
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, perm.ID))
	require.NoError(t, svc.AssignRole(context.Background(), "user-1", role.ID, "admin", nil))

	granted, err := svc.HasPermission(context.Background(), "user-1", "inspections.edit")
	require.NoError(t, err)
	require.True(t, granted)

	require.NoError(t, svc.RevokeRole(context.Background(), "user-1", role.ID))

	granted, err = svc.HasPermission(context.Background(), "user-1", "inspections.edit")
	require.NoError(t, err)
	require.False(t, granted)
}
