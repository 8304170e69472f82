package sqlite

import (
	"context"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
)

type rolesRepo struct {
	db dbtx
}

const roleColumns = `r.id, r.name, r.description, r.is_default, r.created_at, r.updated_at`

// scanRole reads the role row; permissions are loaded separately.
func scanRole(s scanner) (domain.RoleData, error) {
	var (
		d                domain.RoleData
		isDefault        int
		created, updated int64
	)
	if err := s.Scan(&d.ID, &d.Name, &d.Description, &isDefault, &created, &updated); err != nil {
		return domain.RoleData{}, err
	}
	d.IsDefault = isDefault == 1
	d.CreatedAt = fromNanos(created)
	d.UpdatedAt = fromNanos(updated)
	return d, nil
}

// hydrateRoles attaches permissions. Rows must already be closed since an
// in-memory database runs on a single connection.
func hydrateRoles(ctx context.Context, db dbtx, data []domain.RoleData) ([]*domain.Role, error) {
	roles := make([]*domain.Role, 0, len(data))
	for _, d := range data {
		rows, err := db.QueryContext(ctx,
			`SELECT `+permissionColumns+`
			   FROM permissions p
			   JOIN role_permissions rp ON rp.permission_id = p.id
			  WHERE rp.role_id = ?
			  ORDER BY rp.position`, d.ID)
		if err != nil {
			return nil, err
		}
		perms, err := collectPermissions(rows)
		if err != nil {
			return nil, err
		}
		d.Permissions = perms

		role, err := domain.RoleFromData(d)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (r *rolesRepo) getOne(ctx context.Context, where string, arg any) (*domain.Role, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles r WHERE `+where, arg)
	d, err := scanRole(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	roles, err := hydrateRoles(ctx, r.db, []domain.RoleData{d})
	if err != nil {
		return nil, err
	}
	return roles[0], nil
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.getOne(ctx, `r.id = ?`, id)
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.getOne(ctx, `r.name = ?`, name)
}

func (r *rolesRepo) GetDefaultRole(ctx context.Context) (*domain.Role, error) {
	return r.getOne(ctx, `r.is_default = ?`, 1)
}

func (r *rolesRepo) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles r ORDER BY r.created_at, r.id`)
	if err != nil {
		return nil, err
	}

	var data []domain.RoleData
	for rows.Next() {
		d, err := scanRole(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		data = append(data, d)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hydrateRoles(ctx, r.db, data)
}

func (r *rolesRepo) CreateRole(ctx context.Context, role *domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, description, is_default, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		role.ID(), role.Name(), role.Description(), boolToInt(role.IsDefault()),
		toNanos(role.CreatedAt()), toNanos(role.UpdatedAt()),
	)
	if err != nil {
		return mapWriteErr(err)
	}
	return r.writePermissions(ctx, role)
}

func (r *rolesRepo) UpdateRole(ctx context.Context, role *domain.Role) error {
	err := requireAffected(r.db.ExecContext(ctx,
		`UPDATE roles SET name = ?, description = ?, is_default = ?, updated_at = ? WHERE id = ?`,
		role.Name(), role.Description(), boolToInt(role.IsDefault()), toNanos(role.UpdatedAt()), role.ID(),
	))
	if err != nil {
		return mapWriteErr(err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = ?`, role.ID()); err != nil {
		return err
	}
	return r.writePermissions(ctx, role)
}

func (r *rolesRepo) writePermissions(ctx context.Context, role *domain.Role) error {
	for i, p := range role.Permissions() {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO role_permissions (role_id, permission_id, position) VALUES (?, ?, ?)`,
			role.ID(), p.ID(), i,
		)
		if err != nil {
			return mapWriteErr(err)
		}
	}
	return nil
}

func (r *rolesRepo) DeleteRole(ctx context.Context, id string) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, id))
}
