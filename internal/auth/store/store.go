package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite) implement
// this. It exposes sub-repositories to keep concerns tidy and testable, and so
// a Tx can hand out the same repositories bound to the transaction.
type Store interface {
	Users() Users
	Roles() Roles
	Permissions() Permissions
	OTPs() OTPs
	RefreshTokens() RefreshTokens
	EmailVerifications() EmailVerifications
	PasswordResets() PasswordResets
	Files() Files

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Inside fn only
	// the tx may be used.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Page bounds list queries. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

type Users interface {
	// GetUserByID returns the user with roles and their permissions loaded.
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, p Page) ([]*domain.User, error)
	CountUsers(ctx context.Context) (int, error)

	// CountUsersWithRole is used to refuse deleting a role still in use.
	CountUsersWithRole(ctx context.Context, roleID string) (int, error)

	// CreateUser inserts the user and its role assignments.
	CreateUser(ctx context.Context, u *domain.User) error

	// UpdateUser writes every column and replaces the role assignments.
	UpdateUser(ctx context.Context, u *domain.User) error

	// DeleteUser cascades to role assignments, tokens, OTPs, resets and files.
	DeleteUser(ctx context.Context, id string) error
}

type Roles interface {
	GetRoleByID(ctx context.Context, id string) (*domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (*domain.Role, error)

	// GetDefaultRole returns ErrNotFound when no role is marked default.
	GetDefaultRole(ctx context.Context) (*domain.Role, error)
	ListRoles(ctx context.Context) ([]*domain.Role, error)

	// CreateRole inserts the role and its permission assignments.
	CreateRole(ctx context.Context, r *domain.Role) error

	// UpdateRole writes name, description and default flag, and replaces the
	// permission assignments.
	UpdateRole(ctx context.Context, r *domain.Role) error

	DeleteRole(ctx context.Context, id string) error
}

type Permissions interface {
	GetPermissionByID(ctx context.Context, id string) (domain.Permission, error)
	GetPermissionByName(ctx context.Context, name string) (domain.Permission, error)
	ListPermissions(ctx context.Context) ([]domain.Permission, error)
	CreatePermission(ctx context.Context, p domain.Permission) error

	// UpdatePermission only persists the description; name is immutable.
	UpdatePermission(ctx context.Context, p domain.Permission) error

	// DeletePermission also removes it from every role.
	DeletePermission(ctx context.Context, id string) error
}

type OTPs interface {
	CreateOtp(ctx context.Context, o *domain.Otp) error

	// GetLatestOtp returns the user's newest record of the given purpose.
	GetLatestOtp(ctx context.Context, userID string, purpose domain.OtpPurpose) (*domain.Otp, error)
	// MarkOtpVerified returns ErrNotFound when the record is gone or was
	// already verified.
	MarkOtpVerified(ctx context.Context, id string, at time.Time) error
	DeleteUserOtps(ctx context.Context, userID string, purpose domain.OtpPurpose) error
	DeleteExpiredOtps(ctx context.Context, before time.Time) (int64, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error

	// GetRefreshTokenByHash looks a token up by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, at time.Time) error
	DeleteUserRefreshTokens(ctx context.Context, userID string) error
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}

type EmailVerifications interface {
	CreateEmailVerification(ctx context.Context, v *domain.EmailVerification) error

	// GetEmailVerification returns the newest record matching email and code.
	GetEmailVerification(ctx context.Context, email, code string) (*domain.EmailVerification, error)
	MarkEmailVerified(ctx context.Context, id string, at time.Time) error
	IsEmailVerified(ctx context.Context, email string) (bool, error)

	// DeletePendingEmailVerifications drops unverified codes for the email.
	DeletePendingEmailVerifications(ctx context.Context, email string) error
	DeleteExpiredEmailVerifications(ctx context.Context, before time.Time) (int64, error)
}

type PasswordResets interface {
	CreatePasswordReset(ctx context.Context, r *domain.PasswordReset) error
	GetPasswordResetByHash(ctx context.Context, hash string) (*domain.PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, id string, at time.Time) error

	// DeletePendingPasswordResets drops unused resets for the user.
	DeletePendingPasswordResets(ctx context.Context, userID string) error
	DeleteExpiredPasswordResets(ctx context.Context, before time.Time) (int64, error)
}

type Files interface {
	CreateFile(ctx context.Context, f *domain.File) error
	GetFileByID(ctx context.Context, id string) (*domain.File, error)
	ListFilesByOwner(ctx context.Context, ownerID string) ([]*domain.File, error)
	DeleteFile(ctx context.Context, id string) error
}
