package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `u.id, u.email, u.password_hash, u.first_name, u.last_name, u.is_active,
	u.otp_enabled, u.otp_secret, u.last_login_at, u.created_at, u.updated_at`

func scanUser(s scanner) (domain.UserData, error) {
	var (
		d                domain.UserData
		isActive, otpOn  int
		otpSecret        sql.NullString
		lastLogin        sql.NullInt64
		created, updated int64
	)
	err := s.Scan(&d.ID, &d.Email, &d.PasswordHash, &d.FirstName, &d.LastName, &isActive,
		&otpOn, &otpSecret, &lastLogin, &created, &updated)
	if err != nil {
		return domain.UserData{}, err
	}
	d.IsActive = isActive == 1
	d.OtpEnabled = otpOn == 1
	d.OtpSecret = otpSecret.String
	d.LastLoginAt = fromNullNanos(lastLogin)
	d.CreatedAt = fromNanos(created)
	d.UpdatedAt = fromNanos(updated)
	return d, nil
}

// hydrateUsers loads each user's roles in assignment order.
func hydrateUsers(ctx context.Context, db dbtx, data []domain.UserData) ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(data))
	for _, d := range data {
		rows, err := db.QueryContext(ctx,
			`SELECT `+roleColumns+`
			   FROM roles r
			   JOIN user_roles ur ON ur.role_id = r.id
			  WHERE ur.user_id = ?
			  ORDER BY ur.position`, d.ID)
		if err != nil {
			return nil, err
		}
		var roleData []domain.RoleData
		for rows.Next() {
			rd, err := scanRole(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			roleData = append(roleData, rd)
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}

		roles, err := hydrateRoles(ctx, db, roleData)
		if err != nil {
			return nil, err
		}
		d.Roles = roles

		u, err := domain.UserFromData(d)
		if err != nil {
			return nil, fmt.Errorf("sqlite: user %s: %w", d.ID, err)
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *usersRepo) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE `+where, arg)
	d, err := scanUser(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	users, err := hydrateUsers(ctx, r.db, []domain.UserData{d})
	if err != nil {
		return nil, err
	}
	return users[0], nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `u.id = ?`, id)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `u.email = ?`, email)
}

func (r *usersRepo) ListUsers(ctx context.Context, p store.Page) ([]*domain.User, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users u ORDER BY u.created_at, u.id LIMIT ? OFFSET ?`,
		limit, max(p.Offset, 0),
	)
	if err != nil {
		return nil, err
	}

	var data []domain.UserData
	for rows.Next() {
		d, err := scanUser(rows)
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
	return hydrateUsers(ctx, r.db, data)
}

func (r *usersRepo) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *usersRepo) CountUsersWithRole(ctx context.Context, roleID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_roles WHERE role_id = ?`, roleID).Scan(&n)
	return n, err
}

func (r *usersRepo) CreateUser(ctx context.Context, u *domain.User) error {
	d := u.Data()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, is_active,
		                    otp_enabled, otp_secret, last_login_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Email, d.PasswordHash, d.FirstName, d.LastName, boolToInt(d.IsActive),
		boolToInt(d.OtpEnabled), stringToNullString(d.OtpSecret), toNullNanos(d.LastLoginAt),
		toNanos(d.CreatedAt), toNanos(d.UpdatedAt),
	)
	if err != nil {
		return mapWriteErr(err)
	}
	return r.writeRoles(ctx, d)
}

func (r *usersRepo) UpdateUser(ctx context.Context, u *domain.User) error {
	d := u.Data()
	err := requireAffected(r.db.ExecContext(ctx,
		`UPDATE users
		    SET email = ?, password_hash = ?, first_name = ?, last_name = ?, is_active = ?,
		        otp_enabled = ?, otp_secret = ?, last_login_at = ?, updated_at = ?
		  WHERE id = ?`,
		d.Email, d.PasswordHash, d.FirstName, d.LastName, boolToInt(d.IsActive),
		boolToInt(d.OtpEnabled), stringToNullString(d.OtpSecret), toNullNanos(d.LastLoginAt),
		toNanos(d.UpdatedAt), d.ID,
	))
	if err != nil {
		return mapWriteErr(err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ?`, d.ID); err != nil {
		return err
	}
	return r.writeRoles(ctx, d)
}

func (r *usersRepo) writeRoles(ctx context.Context, d domain.UserData) error {
	for i, role := range d.Roles {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role_id, position) VALUES (?, ?, ?)`,
			d.ID, role.ID(), i,
		)
		if err != nil {
			return mapWriteErr(err)
		}
	}
	return nil
}

func (r *usersRepo) DeleteUser(ctx context.Context, id string) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id))
}
