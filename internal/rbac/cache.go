package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL bounds staleness for every cached entry. Expiry is passive:
// entries age out on the Redis side, there is no sweeper.
const DefaultCacheTTL = 5 * time.Minute

// Cache is a Redis backed key-value layer in front of the permission store
// and resolver. Entries carry a fixed TTL; mutations invalidate affected keys
// synchronously before the mutating call returns.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache instantiates the cache helper. A nil client disables caching and
// every fetch falls through to its loader.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func keyUserPermission(userID, systemName string) string {
	return "rbac:permission:" + userID + ":" + systemName
}

func keyUserPermissions(userID string) string {
	return "rbac:permissions:" + userID
}

func keyUserRoles(userID string) string {
	return "rbac:user_roles:" + userID
}

func keyUserOverrides(userID string) string {
	return "rbac:user_overrides:" + userID
}

func keyPermissionByID(id int64) string {
	return "rbac:permission:" + strconv.FormatInt(id, 10)
}

func keyRole(id int64) string {
	return "rbac:role:" + strconv.FormatInt(id, 10)
}

func keyRoleWithPermissions(id int64) string {
	return "rbac:role_with_permissions:" + strconv.FormatInt(id, 10)
}

func keyPermissionsCategory(category string) string {
	return "rbac:permissions_category:" + category
}

const (
	keyAllPermissions = "rbac:all_permissions"
	keyAllRoles       = "rbac:all_roles"
)

// FetchJSON loads a cached value or populates it using the loader. Concurrent
// misses for the same key are collapsed into a single loader call.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("rbac: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}

	raw, err, _ := c.group.Do(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}

func (c *Cache) del(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// InvalidateUser clears every cached decision and entity list belonging to a
// single user: per-permission decisions, the effective permission set, role
// memberships, and overrides.
func (c *Cache) InvalidateUser(ctx context.Context, userID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.del(ctx, keyUserPermissions(userID), keyUserRoles(userID), keyUserOverrides(userID)); err != nil {
		return err
	}
	iter := c.client.Scan(ctx, 0, keyUserPermission(userID, "*"), 0).Iterator()
	var stale []string
	for iter.Next(ctx) {
		stale = append(stale, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.del(ctx, stale...)
}

// InvalidateRole clears the role-level entries. Callers mutating what a role
// grants must additionally cascade InvalidateUser over the role's actively
// assigned users, or per-user decisions stay stale until the TTL expires.
func (c *Cache) InvalidateRole(ctx context.Context, roleID int64) error {
	return c.del(ctx, keyRole(roleID), keyRoleWithPermissions(roleID), keyAllRoles)
}

// InvalidatePermission clears catalog-level entries for a permission,
// including the category listings it moved between.
func (c *Cache) InvalidatePermission(ctx context.Context, permissionID int64, categories ...string) error {
	keys := []string{keyAllPermissions, keyPermissionByID(permissionID)}
	seen := make(map[string]struct{}, len(categories))
	for _, cat := range categories {
		if cat == "" {
			continue
		}
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		keys = append(keys, keyPermissionsCategory(cat))
	}
	return c.del(ctx, keys...)
}

// CachedResolver memoizes resolver decisions under the fixed TTL.
type CachedResolver struct {
	resolver PermissionChecker
	cache    *Cache
}

// NewCachedResolver wraps a resolver with the cache layer.
func NewCachedResolver(resolver PermissionChecker, cache *Cache) *CachedResolver {
	return &CachedResolver{resolver: resolver, cache: cache}
}

var _ PermissionChecker = (*CachedResolver)(nil)

// HasPermission returns the cached decision or computes and caches it.
func (c *CachedResolver) HasPermission(ctx context.Context, userID, systemName string) (bool, error) {
	var granted bool
	err := c.cache.FetchJSON(ctx, keyUserPermission(userID, systemName), &granted, func(ctx context.Context) (any, error) {
		return c.resolver.HasPermission(ctx, userID, systemName)
	})
	if err != nil {
		return false, err
	}
	return granted, nil
}

// ListPermissions returns the cached effective permission set or computes and
// caches it.
func (c *CachedResolver) ListPermissions(ctx context.Context, userID string) ([]string, error) {
	var names []string
	err := c.cache.FetchJSON(ctx, keyUserPermissions(userID), &names, func(ctx context.Context) (any, error) {
		return c.resolver.ListPermissions(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
