package rbac

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store used across the package tests. It mirrors
// the repository contract including ErrNotFound/ErrDuplicateName semantics
// and counts calls per method so cache tests can assert store traffic.
type memStore struct {
	mu          sync.Mutex
	nextPermID  int64
	nextRoleID  int64
	permissions map[int64]Permission
	roles       map[int64]Role
	rolePerms   map[string]RolePermission
	assignments map[string]UserRoleAssignment
	overrides   map[string]UserPermissionOverride
	calls       map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		permissions: make(map[int64]Permission),
		roles:       make(map[int64]Role),
		rolePerms:   make(map[string]RolePermission),
		assignments: make(map[string]UserRoleAssignment),
		overrides:   make(map[string]UserPermissionOverride),
		calls:       make(map[string]int),
	}
}

func linkKey(roleID, permissionID int64) string {
	return fmt.Sprintf("%d:%d", roleID, permissionID)
}

func userKey(userID string, id int64) string {
	return fmt.Sprintf("%s:%d", userID, id)
}

func (m *memStore) hit(method string) {
	m.calls[method]++
}

func (m *memStore) callCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *memStore) GetPermission(_ context.Context, id int64) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("GetPermission")
	perm, ok := m.permissions[id]
	if !ok {
		return Permission{}, ErrNotFound
	}
	return perm, nil
}

func (m *memStore) GetPermissionBySystemName(_ context.Context, systemName string) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("GetPermissionBySystemName")
	for _, perm := range m.permissions {
		if perm.SystemName == systemName {
			return perm, nil
		}
	}
	return Permission{}, ErrNotFound
}

func (m *memStore) ListPermissions(_ context.Context) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("ListPermissions")
	out := make([]Permission, 0, len(m.permissions))
	for _, perm := range m.permissions {
		out = append(out, perm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListPermissionsByCategory(_ context.Context, category string) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("ListPermissionsByCategory")
	var out []Permission
	for _, perm := range m.permissions {
		if perm.Category == category {
			out = append(out, perm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreatePermission(_ context.Context, p Permission) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("CreatePermission")
	for _, existing := range m.permissions {
		if existing.SystemName == p.SystemName {
			return Permission{}, ErrDuplicateName
		}
	}
	m.nextPermID++
	p.ID = m.nextPermID
	m.permissions[p.ID] = p
	return p, nil
}

func (m *memStore) UpdatePermission(_ context.Context, p Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("UpdatePermission")
	if _, ok := m.permissions[p.ID]; !ok {
		return ErrNotFound
	}
	m.permissions[p.ID] = p
	return nil
}

func (m *memStore) DeletePermission(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("DeletePermission")
	if _, ok := m.permissions[id]; !ok {
		return ErrNotFound
	}
	delete(m.permissions, id)
	return nil
}

func (m *memStore) CountRoleLinks(_ context.Context, permissionID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("CountRoleLinks")
	count := 0
	for _, link := range m.rolePerms {
		if link.PermissionID == permissionID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) GetRole(_ context.Context, id int64) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("GetRole")
	role, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (m *memStore) GetRoleByName(_ context.Context, name string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("GetRoleByName")
	for _, role := range m.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return Role{}, ErrNotFound
}

func (m *memStore) ListRoles(_ context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("ListRoles")
	out := make([]Role, 0, len(m.roles))
	for _, role := range m.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListRolePermissions(_ context.Context, roleID int64) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("ListRolePermissions")
	var out []Permission
	for _, link := range m.rolePerms {
		if link.RoleID != roleID {
			continue
		}
		if perm, ok := m.permissions[link.PermissionID]; ok {
			out = append(out, perm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreateRole(_ context.Context, r Role) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("CreateRole")
	for _, existing := range m.roles {
		if existing.Name == r.Name {
			return Role{}, ErrDuplicateName
		}
	}
	m.nextRoleID++
	r.ID = m.nextRoleID
	m.roles[r.ID] = r
	return r, nil
}

func (m *memStore) UpdateRole(_ context.Context, r Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("UpdateRole")
	if _, ok := m.roles[r.ID]; !ok {
		return ErrNotFound
	}
	for _, existing := range m.roles {
		if existing.ID != r.ID && existing.Name == r.Name {
			return ErrDuplicateName
		}
	}
	m.roles[r.ID] = r
	return nil
}

func (m *memStore) DeleteRole(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("DeleteRole")
	if _, ok := m.roles[id]; !ok {
		return ErrNotFound
	}
	for key, link := range m.rolePerms {
		if link.RoleID == id {
			delete(m.rolePerms, key)
		}
	}
	delete(m.roles, id)
	return nil
}

func (m *memStore) AttachPermission(_ context.Context, roleID, permissionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("AttachPermission")
	m.rolePerms[linkKey(roleID, permissionID)] = RolePermission{RoleID: roleID, PermissionID: permissionID, IsActive: true}
	return nil
}

func (m *memStore) DetachPermission(_ context.Context, roleID, permissionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("DetachPermission")
	delete(m.rolePerms, linkKey(roleID, permissionID))
	return nil
}

func (m *memStore) SetRolePermissionActive(_ context.Context, roleID, permissionID int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("SetRolePermissionActive")
	link, ok := m.rolePerms[linkKey(roleID, permissionID)]
	if !ok {
		return ErrNotFound
	}
	link.IsActive = active
	m.rolePerms[linkKey(roleID, permissionID)] = link
	return nil
}

func (m *memStore) GetAssignment(_ context.Context, userID string, roleID int64) (UserRoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("GetAssignment")
	a, ok := m.assignments[userKey(userID, roleID)]
	if !ok {
		return UserRoleAssignment{}, ErrNotFound
	}
	return a, nil
}

func (m *memStore) ListUserAssignments(_ context.Context, userID string) ([]UserRoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("ListUserAssignments")
	var out []UserRoleAssignment
	for _, a := range m.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleID < out[j].RoleID })
	return out, nil
}

func (m *memStore) UpsertAssignment(_ context.Context, a UserRoleAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("UpsertAssignment")
	m.assignments[userKey(a.UserID, a.RoleID)] = a
	return nil
}

func (m *memStore) DeactivateAssignment(_ context.Context, userID string, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("DeactivateAssignment")
	a, ok := m.assignments[userKey(userID, roleID)]
	if !ok {
		return ErrNotFound
	}
	a.IsActive = false
	m.assignments[userKey(userID, roleID)] = a
	return nil
}

func (m *memStore) CountActiveAssignments(_ context.Context, roleID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("CountActiveAssignments")
	count := 0
	for _, a := range m.assignments {
		if a.RoleID == roleID && a.IsActive && !a.Expired(time.Now()) {
			count++
		}
	}
	return count, nil
}

func (m *memStore) ListActiveAssignedUserIDs(_ context.Context, roleID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("ListActiveAssignedUserIDs")
	var out []string
	for _, a := range m.assignments {
		if a.RoleID == roleID && a.IsActive && !a.Expired(time.Now()) {
			out = append(out, a.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) GetOverride(_ context.Context, userID string, permissionID int64) (UserPermissionOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("GetOverride")
	o, ok := m.overrides[userKey(userID, permissionID)]
	if !ok {
		return UserPermissionOverride{}, ErrNotFound
	}
	return o, nil
}

func (m *memStore) ListUserOverrides(_ context.Context, userID string) ([]UserPermissionOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("ListUserOverrides")
	var out []UserPermissionOverride
	for _, o := range m.overrides {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PermissionID < out[j].PermissionID })
	return out, nil
}

func (m *memStore) UpsertOverride(_ context.Context, o UserPermissionOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("UpsertOverride")
	m.overrides[userKey(o.UserID, o.PermissionID)] = o
	return nil
}

func (m *memStore) DeleteOverride(_ context.Context, userID string, permissionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("DeleteOverride")
	delete(m.overrides, userKey(userID, permissionID))
	return nil
}

func (m *memStore) ActiveRoleIDs(_ context.Context, userID string, now time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("ActiveRoleIDs")
	return m.activeRoleIDsLocked(userID, now), nil
}

func (m *memStore) activeRoleIDsLocked(userID string, now time.Time) []int64 {
	var out []int64
	for _, a := range m.assignments {
		if a.UserID != userID || !a.IsActive || a.Expired(now) {
			continue
		}
		role, ok := m.roles[a.RoleID]
		if !ok || !role.IsActive {
			continue
		}
		out = append(out, a.RoleID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *memStore) RoleGrantExists(_ context.Context, roleIDs []int64, permissionID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("RoleGrantExists")
	for _, roleID := range roleIDs {
		link, ok := m.rolePerms[linkKey(roleID, permissionID)]
		if ok && link.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) RoleGrantedSystemNames(_ context.Context, userID string, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit("RoleGrantedSystemNames")
	set := make(map[string]struct{})
	for _, roleID := range m.activeRoleIDsLocked(userID, now) {
		for _, link := range m.rolePerms {
			if link.RoleID != roleID || !link.IsActive {
				continue
			}
			perm, ok := m.permissions[link.PermissionID]
			if !ok || !perm.IsActive {
				continue
			}
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

var _ Store = (*memStore)(nil)
