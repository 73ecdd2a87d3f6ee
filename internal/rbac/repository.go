package rbac

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estateops/estateops/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for the permission store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateName
	}
	return err
}

const permissionColumns = `id, name, description, category, system_name, is_active`

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.SystemName, &p.IsActive); err != nil {
		return Permission{}, translateError(err)
	}
	return p, nil
}

// GetPermission fetches a permission by ID.
func (r *Repository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	return scanPermission(r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id))
}

// GetPermissionBySystemName fetches a permission by its unique system name.
func (r *Repository) GetPermissionBySystemName(ctx context.Context, systemName string) (Permission, error) {
	return scanPermission(r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE system_name = $1`, systemName))
}

// ListPermissions returns the whole permission catalog ordered by system name.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	return r.queryPermissions(ctx, `SELECT `+permissionColumns+` FROM permissions ORDER BY system_name`)
}

// ListPermissionsByCategory returns permissions grouped under a category.
func (r *Repository) ListPermissionsByCategory(ctx context.Context, category string) ([]Permission, error) {
	return r.queryPermissions(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE category = $1 ORDER BY system_name`, category)
}

func (r *Repository) queryPermissions(ctx context.Context, query string, args ...any) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.SystemName, &p.IsActive); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// CreatePermission inserts a new permission.
func (r *Repository) CreatePermission(ctx context.Context, p Permission) (Permission, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO permissions (name, description, category, system_name, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+permissionColumns,
		p.Name, p.Description, p.Category, p.SystemName, p.IsActive)
	return scanPermission(row)
}

// UpdatePermission updates permission metadata and active flag.
func (r *Repository) UpdatePermission(ctx context.Context, p Permission) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE permissions SET name = $2, description = $3, category = $4, system_name = $5, is_active = $6 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Category, p.SystemName, p.IsActive)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePermission removes a permission row.
func (r *Repository) DeletePermission(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountRoleLinks counts role_permissions rows referencing a permission.
func (r *Repository) CountRoleLinks(ctx context.Context, permissionID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM role_permissions WHERE permission_id = $1`, permissionID).Scan(&count)
	return count, err
}

const roleColumns = `id, name, description, is_preset, is_active, created_by, updated_by, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.IsPreset, &role.IsActive, &role.CreatedBy, &role.UpdatedBy, &createdAt, &updatedAt); err != nil {
		return Role{}, translateError(err)
	}
	if createdAt.Valid {
		role.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		role.UpdatedAt = updatedAt.Time
	}
	return role, nil
}

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
}

// GetRoleByName fetches a role by its unique, case-sensitive name.
func (r *Repository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name))
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		var createdAt, updatedAt pgtype.Timestamptz
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsPreset, &role.IsActive, &role.CreatedBy, &role.UpdatedBy, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			role.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			role.UpdatedAt = updatedAt.Time
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ListRolePermissions returns permissions attached to a role through active links.
func (r *Repository) ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	return r.queryPermissions(ctx,
		`SELECT p.id, p.name, p.description, p.category, p.system_name, p.is_active
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role_id = $1 AND rp.is_active
		 ORDER BY p.system_name`, roleID)
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, role Role) (Role, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, is_preset, is_active, created_by, updated_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5, $6, $6)
		 RETURNING `+roleColumns,
		role.Name, role.Description, role.IsPreset, role.IsActive, role.CreatedBy,
		pgtype.Timestamptz{Time: now, Valid: true})
	return scanRole(row)
}

// UpdateRole updates role metadata and flags.
func (r *Repository) UpdateRole(ctx context.Context, role Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles SET name = $2, description = $3, is_preset = $4, is_active = $5, updated_by = $6, updated_at = $7 WHERE id = $1`,
		role.ID, role.Name, role.Description, role.IsPreset, role.IsActive, role.UpdatedBy,
		pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true})
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRole removes a role and its permission links in one transaction.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AttachPermission creates or reactivates a role permission link.
func (r *Repository) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_permissions (role_id, permission_id, is_active)
		 VALUES ($1, $2, TRUE)
		 ON CONFLICT (role_id, permission_id) DO UPDATE SET is_active = TRUE`,
		roleID, permissionID)
	return err
}

// DetachPermission removes a role permission link.
func (r *Repository) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	return err
}

// SetRolePermissionActive soft-enables or soft-disables an existing link.
func (r *Repository) SetRolePermissionActive(ctx context.Context, roleID, permissionID int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE role_permissions SET is_active = $3 WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAssignment(row pgx.Row) (UserRoleAssignment, error) {
	var a UserRoleAssignment
	var assignedAt, expiresAt pgtype.Timestamptz
	if err := row.Scan(&a.UserID, &a.RoleID, &a.IsActive, &assignedAt, &a.AssignedBy, &expiresAt); err != nil {
		return UserRoleAssignment{}, translateError(err)
	}
	if assignedAt.Valid {
		a.AssignedAt = assignedAt.Time
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		a.ExpiresAt = &t
	}
	return a, nil
}

const assignmentColumns = `user_id, role_id, is_active, assigned_at, assigned_by, expires_at`

// GetAssignment fetches the assignment row for (user, role).
func (r *Repository) GetAssignment(ctx context.Context, userID string, roleID int64) (UserRoleAssignment, error) {
	return scanAssignment(r.pool.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM user_role_assignments WHERE user_id = $1 AND role_id = $2`, userID, roleID))
}

// ListUserAssignments returns every assignment row for a user, active or not.
func (r *Repository) ListUserAssignments(ctx context.Context, userID string) ([]UserRoleAssignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assignmentColumns+` FROM user_role_assignments WHERE user_id = $1 ORDER BY role_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []UserRoleAssignment
	for rows.Next() {
		var a UserRoleAssignment
		var assignedAt, expiresAt pgtype.Timestamptz
		if err := rows.Scan(&a.UserID, &a.RoleID, &a.IsActive, &assignedAt, &a.AssignedBy, &expiresAt); err != nil {
			return nil, err
		}
		if assignedAt.Valid {
			a.AssignedAt = assignedAt.Time
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			a.ExpiresAt = &t
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// UpsertAssignment inserts the (user, role) row or reactivates the existing
// one, keeping exactly one row per pair.
func (r *Repository) UpsertAssignment(ctx context.Context, a UserRoleAssignment) error {
	var expires pgtype.Timestamptz
	if a.ExpiresAt != nil {
		expires = pgtype.Timestamptz{Time: a.ExpiresAt.UTC(), Valid: true}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_role_assignments (user_id, role_id, is_active, assigned_at, assigned_by, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, role_id) DO UPDATE
		 SET is_active = EXCLUDED.is_active, assigned_at = EXCLUDED.assigned_at,
		     assigned_by = EXCLUDED.assigned_by, expires_at = EXCLUDED.expires_at`,
		a.UserID, a.RoleID, a.IsActive,
		pgtype.Timestamptz{Time: a.AssignedAt.UTC(), Valid: true}, a.AssignedBy, expires)
	return err
}

// DeactivateAssignment marks the assignment inactive, retaining it for audit.
func (r *Repository) DeactivateAssignment(ctx context.Context, userID string, roleID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_role_assignments SET is_active = FALSE WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActiveAssignments counts active, unexpired assignments for a role.
func (r *Repository) CountActiveAssignments(ctx context.Context, roleID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_role_assignments
		 WHERE role_id = $1 AND is_active AND (expires_at IS NULL OR expires_at > NOW())`, roleID).Scan(&count)
	return count, err
}

// ListActiveAssignedUserIDs returns user IDs with an active assignment for a
// role. Used to cascade cache invalidation when a role changes.
func (r *Repository) ListActiveAssignedUserIDs(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM user_role_assignments
		 WHERE role_id = $1 AND is_active AND (expires_at IS NULL OR expires_at > NOW())`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const overrideColumns = `user_id, permission_id, is_granted, set_by, set_at`

// GetOverride fetches the override for (user, permission).
func (r *Repository) GetOverride(ctx context.Context, userID string, permissionID int64) (UserPermissionOverride, error) {
	var o UserPermissionOverride
	var setAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx,
		`SELECT `+overrideColumns+` FROM user_permission_overrides WHERE user_id = $1 AND permission_id = $2`,
		userID, permissionID).Scan(&o.UserID, &o.PermissionID, &o.IsGranted, &o.SetBy, &setAt)
	if err != nil {
		return UserPermissionOverride{}, translateError(err)
	}
	if setAt.Valid {
		o.SetAt = setAt.Time
	}
	return o, nil
}

// ListUserOverrides returns all overrides for a user.
func (r *Repository) ListUserOverrides(ctx context.Context, userID string) ([]UserPermissionOverride, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+overrideColumns+` FROM user_permission_overrides WHERE user_id = $1 ORDER BY permission_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overrides []UserPermissionOverride
	for rows.Next() {
		var o UserPermissionOverride
		var setAt pgtype.Timestamptz
		if err := rows.Scan(&o.UserID, &o.PermissionID, &o.IsGranted, &o.SetBy, &setAt); err != nil {
			return nil, err
		}
		if setAt.Valid {
			o.SetAt = setAt.Time
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// UpsertOverride inserts or replaces the override for (user, permission);
// last write wins.
func (r *Repository) UpsertOverride(ctx context.Context, o UserPermissionOverride) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_permission_overrides (user_id, permission_id, is_granted, set_by, set_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, permission_id) DO UPDATE
		 SET is_granted = EXCLUDED.is_granted, set_by = EXCLUDED.set_by, set_at = EXCLUDED.set_at`,
		o.UserID, o.PermissionID, o.IsGranted, o.SetBy,
		pgtype.Timestamptz{Time: o.SetAt.UTC(), Valid: true})
	return err
}

// DeleteOverride removes the override for (user, permission).
func (r *Repository) DeleteOverride(ctx context.Context, userID string, permissionID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM user_permission_overrides WHERE user_id = $1 AND permission_id = $2`, userID, permissionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveRoleIDs returns roles reachable through active, unexpired assignments
// to active roles.
func (r *Repository) ActiveRoleIDs(ctx context.Context, userID string, now time.Time) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ura.role_id
		 FROM user_role_assignments ura
		 JOIN roles ro ON ro.id = ura.role_id
		 WHERE ura.user_id = $1 AND ura.is_active AND ro.is_active
		   AND (ura.expires_at IS NULL OR ura.expires_at > $2)`,
		userID, pgtype.Timestamptz{Time: now.UTC(), Valid: true})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RoleGrantExists reports whether any of the roles carries an active link to
// the permission.
func (r *Repository) RoleGrantExists(ctx context.Context, roleIDs []int64, permissionID int64) (bool, error) {
	if len(roleIDs) == 0 {
		return false, nil
	}
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM role_permissions
		   WHERE role_id = ANY($1) AND permission_id = $2 AND is_active
		 )`, roleIDs, permissionID).Scan(&exists)
	return exists, err
}

// RoleGrantedSystemNames returns the system names of active permissions
// granted through the user's active role memberships.
func (r *Repository) RoleGrantedSystemNames(ctx context.Context, userID string, now time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT p.system_name
		 FROM user_role_assignments ura
		 JOIN roles ro ON ro.id = ura.role_id AND ro.is_active
		 JOIN role_permissions rp ON rp.role_id = ura.role_id AND rp.is_active
		 JOIN permissions p ON p.id = rp.permission_id AND p.is_active
		 WHERE ura.user_id = $1 AND ura.is_active
		   AND (ura.expires_at IS NULL OR ura.expires_at > $2)
		 ORDER BY p.system_name`,
		userID, pgtype.Timestamptz{Time: now.UTC(), Valid: true})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
