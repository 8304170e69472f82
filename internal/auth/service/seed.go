package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

const (
	AdminRoleName = "admin"
	UserRoleName  = "user"
)

// DefaultUserPermissions are granted to the default "user" role.
var DefaultUserPermissions = []string{"user:read", "storage:read", "storage:create"}

// AdminSeed describes the initial administrator. An empty Email skips it.
type AdminSeed struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// SeedService makes sure the permission catalogue, the admin and default
// roles, and optionally an initial administrator exist. Running it again is
// harmless.
type SeedService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Admin  AdminSeed
}

func (s *SeedService) Seed(ctx context.Context) error {
	l := slogx.FromContext(ctx)

	var hash string
	if s.Admin.Email != "" {
		password, err := domain.NewPassword(s.Admin.Password)
		if err != nil {
			return fmt.Errorf("admin password: %w", err)
		}
		if hash, err = s.Hasher.Hash(password.String()); err != nil {
			return err
		}
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		perms, err := s.ensurePermissions(ctx, tx)
		if err != nil {
			return err
		}

		admin, err := ensureRole(ctx, tx, AdminRoleName, "Full administrative access", false, perms)
		if err != nil {
			return err
		}

		var userPerms []domain.Permission
		for _, p := range perms {
			for _, name := range DefaultUserPermissions {
				if p.Name() == name {
					userPerms = append(userPerms, p)
				}
			}
		}
		_, err = tx.Roles().GetDefaultRole(ctx)
		hasDefault := err == nil
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if _, err := ensureRole(ctx, tx, UserRoleName, "Regular user", !hasDefault, userPerms); err != nil {
			return err
		}

		if s.Admin.Email == "" {
			return nil
		}
		return s.ensureAdmin(ctx, tx, admin, hash, l)
	})
}

func (s *SeedService) ensurePermissions(ctx context.Context, tx store.Tx) ([]domain.Permission, error) {
	var out []domain.Permission
	for _, resource := range domain.KnownResources {
		for _, action := range domain.Actions {
			ra := domain.MustResourceAction(resource, action)
			p, err := tx.Permissions().GetPermissionByName(ctx, ra.String())
			if errors.Is(err, store.ErrNotFound) {
				p, err = domain.NewPermission(ra, fmt.Sprintf("Allows %s on %s", action, resource))
				if err != nil {
					return nil, err
				}
				if err := tx.Permissions().CreatePermission(ctx, p); err != nil {
					return nil, err
				}
			} else if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// ensureRole creates the role or tops up its permissions.
func ensureRole(ctx context.Context, tx store.Tx, name, description string, isDefault bool, perms []domain.Permission) (*domain.Role, error) {
	role, err := tx.Roles().GetRoleByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		role, err = domain.NewRole(name, description, isDefault)
		if err != nil {
			return nil, err
		}
		if err := role.AddPermissionsOnCreation(perms...); err != nil {
			return nil, err
		}
		if err := tx.Roles().CreateRole(ctx, role); err != nil {
			return nil, err
		}
		slogx.FromContext(ctx).Info("seeded role", slog.String("role", name), slog.Bool("default", isDefault))
		return role, nil
	}
	if err != nil {
		return nil, err
	}

	var missing []domain.Permission
	for _, p := range perms {
		if !role.HasPermission(p.Name()) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return role, nil
	}
	if err := role.AddPermissionsOnCreation(missing...); err != nil {
		return nil, err
	}
	return role, tx.Roles().UpdateRole(ctx, role)
}

// ensureAdmin creates the administrator through the eligibility-bypassing
// path; nobody can be promoted to admin before one exists.
func (s *SeedService) ensureAdmin(ctx context.Context, tx store.Tx, admin *domain.Role, hash string, l *slog.Logger) error {
	email, err := domain.NewEmail(s.Admin.Email)
	if err != nil {
		return fmt.Errorf("admin email: %w", err)
	}
	if _, err := tx.Users().GetUserByEmail(ctx, email.String()); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	first, last := s.Admin.FirstName, s.Admin.LastName
	if first == "" {
		first = "System"
	}
	if last == "" {
		last = "Administrator"
	}

	u, err := domain.NewUser(email, hash, first, last)
	if err != nil {
		return err
	}
	if err := u.AddRoleOnCreation(admin); err != nil {
		return err
	}
	if err := tx.Users().CreateUser(ctx, u); err != nil {
		return err
	}

	// the configured address is trusted
	v, err := domain.NewEmailVerification(email, 0)
	if err != nil {
		return err
	}
	if err := v.MarkAsVerified(); err != nil {
		return err
	}
	if err := tx.EmailVerifications().CreateEmailVerification(ctx, v); err != nil {
		return err
	}

	l.Info("seeded administrator", slog.String("user_id", u.ID()), slog.String("email", email.String()))
	return nil
}
