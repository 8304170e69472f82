package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// RolesService owns the "at most one default role" rule: whenever a role is
// made default the previous default is cleared in the same transaction.
type RolesService struct {
	Store store.Store
	Authz *AuthorizationService
}

type CreateRoleInput struct {
	Name        string
	Description string
	IsDefault   bool
}

type UpdateRoleInput struct {
	Name        *string
	Description *string
	IsDefault   *bool
}

func (s *RolesService) CreateRole(ctx context.Context, in CreateRoleInput) (*domain.Role, error) {
	return s.CreateRoleWithPermissions(ctx, in, nil)
}

// CreateRoleWithPermissions creates a role already holding the given
// permissions. Being construction time, critical permissions are allowed on
// any role.
func (s *RolesService) CreateRoleWithPermissions(ctx context.Context, in CreateRoleInput, permissionIDs []string) (*domain.Role, error) {
	role, err := domain.NewRole(in.Name, in.Description, in.IsDefault)
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Roles().GetRoleByName(ctx, role.Name()); err == nil {
			return alreadyExists("role", role.Name())
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		perms := make([]domain.Permission, 0, len(permissionIDs))
		for _, id := range permissionIDs {
			p, err := tx.Permissions().GetPermissionByID(ctx, id)
			if err != nil {
				return storeErr(err, "permission", id)
			}
			perms = append(perms, p)
		}
		if err := role.AddPermissionsOnCreation(perms...); err != nil {
			return err
		}
		if err := checkDefaultRole(role); err != nil {
			return err
		}

		if role.IsDefault() {
			if err := clearDefault(ctx, tx, ""); err != nil {
				return err
			}
		}
		return storeErr(tx.Roles().CreateRole(ctx, role), "role", role.Name())
	})
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("role created",
		slog.String("role_id", role.ID()),
		slog.String("name", role.Name()),
		slog.Bool("default", role.IsDefault()),
	)
	return role, nil
}

// checkDefaultRole refuses an admin-type default role: registration attaches
// the default role and new accounts are never eligible for admin roles.
func checkDefaultRole(role *domain.Role) error {
	if role.IsDefault() && role.IsAdminRole() {
		return forbidden("an admin role cannot be the default role")
	}
	return nil
}

// clearDefault unsets the current default role unless it is keepID.
func clearDefault(ctx context.Context, tx store.Tx, keepID string) error {
	prev, err := tx.Roles().GetDefaultRole(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if prev.ID() == keepID {
		return nil
	}
	prev.SetDefault(false)
	return tx.Roles().UpdateRole(ctx, prev)
}

func (s *RolesService) UpdateRole(ctx context.Context, id string, in UpdateRoleInput) (*domain.Role, error) {
	var out *domain.Role
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		role, err := tx.Roles().GetRoleByID(ctx, id)
		if err != nil {
			return storeErr(err, "role", id)
		}

		if in.Name != nil && *in.Name != role.Name() {
			if err := role.Rename(*in.Name); err != nil {
				return err
			}
			if other, err := tx.Roles().GetRoleByName(ctx, role.Name()); err == nil && other.ID() != role.ID() {
				return alreadyExists("role", role.Name())
			} else if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
		if in.Description != nil {
			if err := role.UpdateDescription(*in.Description); err != nil {
				return err
			}
		}
		if in.IsDefault != nil && *in.IsDefault != role.IsDefault() {
			if *in.IsDefault {
				if err := clearDefault(ctx, tx, role.ID()); err != nil {
					return err
				}
			}
			role.SetDefault(*in.IsDefault)
		}
		if err := checkDefaultRole(role); err != nil {
			return err
		}

		if err := tx.Roles().UpdateRole(ctx, role); err != nil {
			return storeErr(err, "role", role.Name())
		}
		out = role
		return nil
	})
	return out, err
}

func (s *RolesService) AssignPermissionToRole(ctx context.Context, roleID, permissionID string) (*domain.Role, error) {
	return s.mutate(ctx, roleID, permissionID, func(r *domain.Role, p domain.Permission) error {
		return r.AddPermission(p)
	})
}

// RemovePermissionFromRole is a no-op when the role lacks the permission.
func (s *RolesService) RemovePermissionFromRole(ctx context.Context, roleID, permissionID string) (*domain.Role, error) {
	return s.mutate(ctx, roleID, permissionID, func(r *domain.Role, p domain.Permission) error {
		r.RemovePermission(p.ID())
		return nil
	})
}

func (s *RolesService) mutate(ctx context.Context, roleID, permissionID string, fn func(*domain.Role, domain.Permission) error) (*domain.Role, error) {
	var out *domain.Role
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		role, err := tx.Roles().GetRoleByID(ctx, roleID)
		if err != nil {
			return storeErr(err, "role", roleID)
		}
		p, err := tx.Permissions().GetPermissionByID(ctx, permissionID)
		if err != nil {
			return storeErr(err, "permission", permissionID)
		}
		if err := fn(role, p); err != nil {
			return err
		}
		if err := checkDefaultRole(role); err != nil {
			return err
		}
		if err := tx.Roles().UpdateRole(ctx, role); err != nil {
			return err
		}
		out = role
		return nil
	})
	return out, err
}

// DeleteRole refuses the default role and roles still held by users. With a
// non-empty actorID the actor must be allowed to delete roles.
func (s *RolesService) DeleteRole(ctx context.Context, roleID, actorID string) error {
	l := slogx.FromContext(ctx)

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		role, err := tx.Roles().GetRoleByID(ctx, roleID)
		if err != nil {
			return storeErr(err, "role", roleID)
		}
		if err := role.EnsureDeletable(); err != nil {
			return err
		}

		if actorID != "" {
			actor, err := tx.Users().GetUserByID(ctx, actorID)
			if err != nil {
				return storeErr(err, "user", actorID)
			}
			if !s.Authz.CanDeleteRole(actor, role) {
				l.Warn("role deletion denied", slog.String("actor_id", actorID), slog.String("role", role.Name()))
				return forbidden("actor may not delete role " + role.Name())
			}
		}

		n, err := tx.Users().CountUsersWithRole(ctx, roleID)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrRoleHasAssignedUsers
		}

		if err := tx.Roles().DeleteRole(ctx, roleID); err != nil {
			return storeErr(err, "role", roleID)
		}
		l.Info("role deleted", slog.String("role_id", roleID), slog.String("name", role.Name()))
		return nil
	})
}

func (s *RolesService) GetRole(ctx context.Context, id string) (*domain.Role, error) {
	r, err := s.Store.Roles().GetRoleByID(ctx, id)
	return r, storeErr(err, "role", id)
}

func (s *RolesService) GetRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	r, err := s.Store.Roles().GetRoleByName(ctx, name)
	return r, storeErr(err, "role", name)
}

func (s *RolesService) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	return s.Store.Roles().ListRoles(ctx)
}

// GetDefaultRole returns EntityNotFound when no role is marked default.
func (s *RolesService) GetDefaultRole(ctx context.Context) (*domain.Role, error) {
	r, err := s.Store.Roles().GetDefaultRole(ctx)
	return r, storeErr(err, "role", "default")
}
