package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, DefaultCacheTTL), mr
}

func TestCacheFetchJSONLoadsOnce(t *testing.T) {
	cache, _ := newTestCache(t)
	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return []string{"a", "b"}, nil
	}

	var first, second []string
	require.NoError(t, cache.FetchJSON(context.Background(), "rbac:test", &first, loader))
	require.NoError(t, cache.FetchJSON(context.Background(), "rbac:test", &second, loader))
	require.Equal(t, 1, loads)
	require.Equal(t, first, second)
}

func TestCacheEntryExpiresAfterTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return loads, nil
	}

	var value int
	require.NoError(t, cache.FetchJSON(context.Background(), "rbac:test", &value, loader))
	require.Equal(t, 1, value)

	mr.FastForward(DefaultCacheTTL + time.Second)

	require.NoError(t, cache.FetchJSON(context.Background(), "rbac:test", &value, loader))
	require.Equal(t, 2, value)
}

func TestCacheNilClientFallsThrough(t *testing.T) {
	cache := NewCache(nil, 0)
	loads := 0
	var value string
	loader := func(context.Context) (any, error) {
		loads++
		return "fresh", nil
	}
	require.NoError(t, cache.FetchJSON(context.Background(), "rbac:test", &value, loader))
	require.NoError(t, cache.FetchJSON(context.Background(), "rbac:test", &value, loader))
	require.Equal(t, 2, loads)
	require.Equal(t, "fresh", value)
}

func TestCachedResolverServesRepeatChecksFromCache(t *testing.T) {
	cache, _ := newTestCache(t)
	store := newMemStore()
	perm := seedPermission(t, store, "properties.view", true)
	role := seedRole(t, store, "Manager", true)
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, perm.ID))
	seedAssignment(t, store, "user-1", role.ID, nil)

	resolver := NewCachedResolver(NewResolver(store), cache)

	granted, err := resolver.HasPermission(context.Background(), "user-1", "properties.view")
	require.NoError(t, err)
	require.True(t, granted)
	lookups := store.callCount("GetPermissionBySystemName")

	granted, err = resolver.HasPermission(context.Background(), "user-1", "properties.view")
	require.NoError(t, err)
	require.True(t, granted)
	require.Equal(t, lookups, store.callCount("GetPermissionBySystemName"))
}

func TestCachedResolverCachesDenials(t *testing.T) {
	cache, _ := newTestCache(t)
	store := newMemStore()
	seedPermission(t, store, "properties.view", true)

	resolver := NewCachedResolver(NewResolver(store), cache)

	granted, err := resolver.HasPermission(context.Background(), "user-1", "properties.view")
	require.NoError(t, err)
	require.False(t, granted)
	lookups := store.callCount("GetPermissionBySystemName")

	granted, err = resolver.HasPermission(context.Background(), "user-1", "properties.view")
	require.NoError(t, err)
	require.False(t, granted)
	require.Equal(t, lookups, store.callCount("GetPermissionBySystemName"))
}

func TestCacheInvalidateUserClearsDecisionKeys(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	var granted bool
	require.NoError(t, cache.FetchJSON(ctx, keyUserPermission("user-1", "properties.view"), &granted,
		func(context.Context) (any, error) { return true, nil }))
	var names []string
	require.NoError(t, cache.FetchJSON(ctx, keyUserPermissions("user-1"), &names,
		func(context.Context) (any, error) { return []string{"properties.view"}, nil }))

	require.True(t, mr.Exists(keyUserPermission("user-1", "properties.view")))
	require.True(t, mr.Exists(keyUserPermissions("user-1")))

	require.NoError(t, cache.InvalidateUser(ctx, "user-1"))

	require.False(t, mr.Exists(keyUserPermission("user-1", "properties.view")))
	require.False(t, mr.Exists(keyUserPermissions("user-1")))
}

func TestCacheInvalidateRoleClearsRoleKeys(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	var role Role
	require.NoError(t, cache.FetchJSON(ctx, keyRole(7), &role,
		func(context.Context) (any, error) { return Role{ID: 7, Name: "Manager"}, nil }))
	var roles []Role
	require.NoError(t, cache.FetchJSON(ctx, keyAllRoles, &roles,
		func(context.Context) (any, error) { return []Role{{ID: 7}}, nil }))

	require.NoError(t, cache.InvalidateRole(ctx, 7))

	require.False(t, mr.Exists(keyRole(7)))
	require.False(t, mr.Exists(keyRoleWithPermissions(7)))
	require.False(t, mr.Exists(keyAllRoles))
}

func TestCacheInvalidatePermissionClearsCategoryListings(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	var perms []Permission
	require.NoError(t, cache.FetchJSON(ctx, keyPermissionsCategory("properties"), &perms,
		func(context.Context) (any, error) { return []Permission{{ID: 3}}, nil }))
	require.NoError(t, cache.FetchJSON(ctx, keyAllPermissions, &perms,
		func(context.Context) (any, error) { return []Permission{{ID: 3}}, nil }))

	require.NoError(t, cache.InvalidatePermission(ctx, 3, "properties", "properties", ""))

	require.False(t, mr.Exists(keyPermissionsCategory("properties")))
	require.False(t, mr.Exists(keyAllPermissions))
	require.False(t, mr.Exists(keyPermissionByID(3)))
}
