package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
)

type permissionsRepo struct {
	db dbtx
}

const permissionColumns = `p.id, p.resource, p.action, p.description, p.created_at, p.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPermission(s scanner) (domain.Permission, error) {
	var (
		d                domain.PermissionData
		created, updated int64
	)
	if err := s.Scan(&d.ID, &d.Resource, &d.Action, &d.Description, &created, &updated); err != nil {
		return domain.Permission{}, err
	}
	d.CreatedAt = fromNanos(created)
	d.UpdatedAt = fromNanos(updated)
	return domain.PermissionFromData(d)
}

func (r *permissionsRepo) GetPermissionByID(ctx context.Context, id string) (domain.Permission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+permissionColumns+` FROM permissions p WHERE p.id = ?`, id)
	p, err := scanPermission(row)
	if err != nil {
		return domain.Permission{}, mapNotFound(err)
	}
	return p, nil
}

func (r *permissionsRepo) GetPermissionByName(ctx context.Context, name string) (domain.Permission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+permissionColumns+` FROM permissions p WHERE p.name = ?`, name)
	p, err := scanPermission(row)
	if err != nil {
		return domain.Permission{}, mapNotFound(err)
	}
	return p, nil
}

func (r *permissionsRepo) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+permissionColumns+` FROM permissions p ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	return collectPermissions(rows)
}

func collectPermissions(rows *sql.Rows) ([]domain.Permission, error) {
	defer rows.Close()

	var perms []domain.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *permissionsRepo) CreatePermission(ctx context.Context, p domain.Permission) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO permissions (id, resource, action, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID(), p.Resource(), string(p.Action()), p.Name(), p.Description(),
		toNanos(p.CreatedAt()), toNanos(p.UpdatedAt()),
	)
	return mapWriteErr(err)
}

func (r *permissionsRepo) UpdatePermission(ctx context.Context, p domain.Permission) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE permissions SET description = ?, updated_at = ? WHERE id = ?`,
		p.Description(), toNanos(p.UpdatedAt()), p.ID(),
	))
}

func (r *permissionsRepo) DeletePermission(ctx context.Context, id string) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM permissions WHERE id = ?`, id))
}
