package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/mail"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

type UserService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Authz  *AuthorizationService

	// Mailer sends the welcome message. Optional.
	Mailer mail.Sender

	// Files, when set, has its blobs removed along with a deleted user.
	Files *FileService

	dummyOnce sync.Once
	dummyHash string
}

type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string

	// RoleIDs replaces the default role when non-empty. With an AssignerID
	// every role goes through the same checks as AssignRoleToUser.
	RoleIDs    []string
	AssignerID string
}

// UpdateUserInput carries optional changes; nil fields are left alone.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	RoleIDs   []string // nil leaves roles untouched
	IsActive  *bool
}

// CreateUser registers an account with the default role, if one exists, or
// with in.RoleIDs. Nothing is stored when any role cannot be granted.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	l := slogx.FromContext(ctx)

	email, err := domain.NewEmail(in.Email)
	if err != nil {
		return nil, err
	}
	password, err := domain.NewPassword(in.Password)
	if err != nil {
		return nil, err
	}

	hash, err := s.Hasher.Hash(password.String())
	if err != nil {
		return nil, err
	}

	u, err := domain.NewUser(email, hash, in.FirstName, in.LastName)
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().GetUserByEmail(ctx, email.String()); err == nil {
			return alreadyExists("user", email.String())
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if len(in.RoleIDs) > 0 {
			var assigner *domain.User
			if in.AssignerID != "" {
				a, err := tx.Users().GetUserByID(ctx, in.AssignerID)
				if err != nil {
					return storeErr(err, "user", in.AssignerID)
				}
				assigner = a
			}
			if err := s.applyRoles(ctx, tx, assigner, u, in.RoleIDs); err != nil {
				return err
			}
			return storeErr(tx.Users().CreateUser(ctx, u), "user", email.String())
		}

		def, err := tx.Roles().GetDefaultRole(ctx)
		switch {
		case err == nil:
			if err := u.AddRole(def); err != nil {
				return err
			}
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		return storeErr(tx.Users().CreateUser(ctx, u), "user", email.String())
	})
	if err != nil {
		return nil, err
	}

	l.Info("user created", slog.String("user_id", u.ID()), slog.Any("roles", u.Roles().Names()))

	if s.Mailer != nil {
		if err := s.Mailer.SendWelcome(ctx, email.String(), u.FirstName()); err != nil {
			l.Error("failed to send welcome email", slog.String("user_id", u.ID()), slog.Any("error", err))
		}
	}
	return u, nil
}

// ValidateCredentials returns the user when email and password match an
// active account, and (nil, nil) on any credential failure so callers cannot
// tell which part was wrong. Only infrastructure errors are returned.
func (s *UserService) ValidateCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	l := slogx.FromContext(ctx)

	addr, err := domain.NewEmail(email)
	if err != nil {
		s.burnHash(password)
		return nil, nil
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, addr.String())
	if errors.Is(err, store.ErrNotFound) {
		s.burnHash(password)
		l.Warn("login for unknown email")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !u.IsActive() {
		s.burnHash(password)
		l.Warn("login for inactive user", slog.String("user_id", u.ID()))
		return nil, nil
	}
	if err := s.Hasher.Verify(password, u.PasswordHash()); err != nil {
		l.Warn("login with wrong password", slog.String("user_id", u.ID()))
		return nil, nil
	}
	return u, nil
}

// burnHash spends the same time as a real verification.
func (s *UserService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("not-a-real-password")
	})
	_ = s.Hasher.Verify(password, s.dummyHash)
}

func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	return u, storeErr(err, "user", id)
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	return u, storeErr(err, "user", email)
}

// ListUsers returns one page of users and the total count.
func (s *UserService) ListUsers(ctx context.Context, page store.Page) ([]*domain.User, int, error) {
	users, err := s.Store.Users().ListUsers(ctx, page)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.Users().CountUsers(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateUserDetails applies profile, email, role and activation changes in
// one write. Roles are diffed against the current set; additions go through
// the same checks as AssignRoleToUser. When assignerID is empty no
// authorization check is made.
func (s *UserService) UpdateUserDetails(ctx context.Context, id string, in UpdateUserInput, assignerID string) (*domain.User, error) {
	var updated *domain.User

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, id)
		if err != nil {
			return storeErr(err, "user", id)
		}

		var assigner *domain.User
		if assignerID != "" {
			if assigner, err = tx.Users().GetUserByID(ctx, assignerID); err != nil {
				return storeErr(err, "user", assignerID)
			}
		}

		// reactivate first so the remaining changes are allowed
		if in.IsActive != nil && *in.IsActive {
			u.Activate()
		}

		if in.FirstName != nil || in.LastName != nil {
			first, last := u.FirstName(), u.LastName()
			if in.FirstName != nil {
				first = *in.FirstName
			}
			if in.LastName != nil {
				last = *in.LastName
			}
			if err := u.UpdateProfile(first, last); err != nil {
				return err
			}
		}

		if in.Email != nil {
			email, err := domain.NewEmail(*in.Email)
			if err != nil {
				return err
			}
			if !email.Equal(u.Email()) {
				if other, err := tx.Users().GetUserByEmail(ctx, email.String()); err == nil && other.ID() != u.ID() {
					return alreadyExists("user", email.String())
				} else if err != nil && !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}
			if err := u.ChangeEmail(email); err != nil {
				return err
			}
		}

		if in.RoleIDs != nil {
			if err := s.applyRoles(ctx, tx, assigner, u, in.RoleIDs); err != nil {
				return err
			}
		}

		if in.IsActive != nil && !*in.IsActive {
			u.Deactivate()
		}

		if err := tx.Users().UpdateUser(ctx, u); err != nil {
			return storeErr(err, "user", u.Email().String())
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyRoles adds before it removes so swapping a user's only role works.
func (s *UserService) applyRoles(ctx context.Context, tx store.Tx, assigner, u *domain.User, wanted []string) error {
	current := u.Roles().IDs()

	for _, id := range wanted {
		if slices.Contains(current, id) {
			continue
		}
		role, err := tx.Roles().GetRoleByID(ctx, id)
		if err != nil {
			return storeErr(err, "role", id)
		}
		if assigner != nil && !s.Authz.CanAssignRole(assigner, u, role) {
			return forbidden("assigner may not grant role " + role.Name())
		}
		if err := u.AddRole(role); err != nil {
			return err
		}
	}

	for _, id := range current {
		if slices.Contains(wanted, id) {
			continue
		}
		if assigner != nil {
			role, _ := u.Roles().Get(id)
			if !s.Authz.CanRemoveRole(assigner, role) {
				return forbidden("assigner may not revoke role " + role.Name())
			}
		}
		if err := u.RemoveRole(id); err != nil {
			return err
		}
	}
	return nil
}

// ChangePassword sets a new password. currentPassword is checked when given.
func (s *UserService) ChangePassword(ctx context.Context, id string, currentPassword *string, newPassword string) error {
	password, err := domain.NewPassword(newPassword)
	if err != nil {
		return err
	}

	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !u.IsActive() {
		return domain.ErrInactiveUser
	}
	if currentPassword != nil {
		if err := s.Hasher.Verify(*currentPassword, u.PasswordHash()); err != nil {
			slogx.FromContext(ctx).Warn("password change with wrong current password", slog.String("user_id", id))
			return domain.ErrAuthenticationFailed
		}
	}

	hash, err := s.Hasher.Hash(password.String())
	if err != nil {
		return err
	}
	if err := u.ChangePassword(hash); err != nil {
		return err
	}
	return storeErr(s.Store.Users().UpdateUser(ctx, u), "user", id)
}

// AssignRoleToUser grants a role. With a non-empty assignerID the assigner
// must be allowed to grant it.
func (s *UserService) AssignRoleToUser(ctx context.Context, userID, roleID, assignerID string) (*domain.User, error) {
	return s.mutateRoles(ctx, userID, roleID, assignerID, func(assigner, u *domain.User, role *domain.Role) error {
		if assigner != nil && !s.Authz.CanAssignRole(assigner, u, role) {
			slogx.FromContext(ctx).Warn("role assignment denied",
				slog.String("assigner_id", assigner.ID()),
				slog.String("user_id", u.ID()),
				slog.String("role", role.Name()),
			)
			return forbidden("assigner may not grant role " + role.Name())
		}
		return u.AddRole(role)
	})
}

func (s *UserService) RemoveRoleFromUser(ctx context.Context, userID, roleID, assignerID string) (*domain.User, error) {
	return s.mutateRoles(ctx, userID, roleID, assignerID, func(assigner, u *domain.User, role *domain.Role) error {
		if assigner != nil && !s.Authz.CanRemoveRole(assigner, role) {
			return forbidden("assigner may not revoke role " + role.Name())
		}
		return u.RemoveRole(role.ID())
	})
}

func (s *UserService) mutateRoles(
	ctx context.Context,
	userID, roleID, assignerID string,
	fn func(assigner, u *domain.User, role *domain.Role) error,
) (*domain.User, error) {
	var out *domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return storeErr(err, "user", userID)
		}
		role, err := tx.Roles().GetRoleByID(ctx, roleID)
		if err != nil {
			return storeErr(err, "role", roleID)
		}

		var assigner *domain.User
		if assignerID != "" {
			if assigner, err = tx.Users().GetUserByID(ctx, assignerID); err != nil {
				return storeErr(err, "user", assignerID)
			}
		}

		if err := fn(assigner, u, role); err != nil {
			return err
		}
		if err := tx.Users().UpdateUser(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}

func (s *UserService) ActivateUser(ctx context.Context, id string) (*domain.User, error) {
	return s.toggle(ctx, id, (*domain.User).Activate)
}

func (s *UserService) DeactivateUser(ctx context.Context, id string) (*domain.User, error) {
	return s.toggle(ctx, id, (*domain.User).Deactivate)
}

func (s *UserService) toggle(ctx context.Context, id string, fn func(*domain.User)) (*domain.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	before := u.IsActive()
	fn(u)
	if u.IsActive() == before {
		return u, nil // already in the requested state
	}
	if err := s.Store.Users().UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	slogx.FromContext(ctx).Info("user activation changed", slog.String("user_id", id), slog.Bool("active", u.IsActive()))
	return u, nil
}

// DeleteUser removes the account and everything it owns.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}
	if s.Files != nil {
		if err := s.Files.PurgeOwner(ctx, id); err != nil {
			return err
		}
	}
	if err := s.Store.Users().DeleteUser(ctx, id); err != nil {
		return storeErr(err, "user", id)
	}
	slogx.FromContext(ctx).Info("user deleted", slog.String("user_id", id))
	return nil
}

// RecordLogin stamps the login time.
func (s *UserService) RecordLogin(ctx context.Context, u *domain.User) error {
	u.RecordLogin(domain.Now())
	return s.Store.Users().UpdateUser(ctx, u)
}
