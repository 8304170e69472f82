package domain

import (
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
)

const maxNameLength = 100

// User is an account. Users are created without roles; the service attaches
// the default role afterwards. While inactive, only Activate (and the
// idempotent toggles) may change a user.
type User struct {
	id           string
	email        Email
	passwordHash string
	firstName    string
	lastName     string
	isActive     bool
	otpEnabled   bool
	otpSecret    string
	roles        RolesCollection
	lastLoginAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

// UserData is the flat form used by storage.
type UserData struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsActive     bool
	OtpEnabled   bool
	OtpSecret    string
	Roles        []*Role
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewUser(email Email, passwordHash, firstName, lastName string) (*User, error) {
	if email.IsZero() {
		return nil, invalid("email", "must not be empty")
	}
	if passwordHash == "" {
		return nil, invalid("password", "hash must not be empty")
	}
	first, err := validName("firstName", firstName)
	if err != nil {
		return nil, err
	}
	last, err := validName("lastName", lastName)
	if err != nil {
		return nil, err
	}

	t := now()
	return &User{
		id:           idx.NewString(),
		email:        email,
		passwordHash: passwordHash,
		firstName:    first,
		lastName:     last,
		isActive:     true,
		createdAt:    t,
		updatedAt:    t,
	}, nil
}

func UserFromData(d UserData) (*User, error) {
	if d.ID == "" {
		return nil, invalid("id", "must not be empty")
	}
	email, err := NewEmail(d.Email)
	if err != nil {
		return nil, err
	}
	roles, err := NewRolesCollection(d.Roles...)
	if err != nil {
		return nil, err
	}
	if d.OtpEnabled && d.OtpSecret == "" {
		return nil, invalid("otpSecret", "required when two-factor is enabled")
	}

	u := &User{
		id:           d.ID,
		email:        email,
		passwordHash: d.PasswordHash,
		firstName:    d.FirstName,
		lastName:     d.LastName,
		isActive:     d.IsActive,
		otpEnabled:   d.OtpEnabled,
		roles:        roles,
		createdAt:    d.CreatedAt.UTC(),
		updatedAt:    d.UpdatedAt.UTC(),
	}
	if d.OtpEnabled {
		u.otpSecret = d.OtpSecret
	}
	if d.LastLoginAt != nil {
		t := d.LastLoginAt.UTC()
		u.lastLoginAt = &t
	}
	if u.updatedAt.Before(u.createdAt) {
		u.updatedAt = u.createdAt
	}
	return u, nil
}

func (u *User) ID() string           { return u.id }
func (u *User) Email() Email         { return u.email }
func (u *User) PasswordHash() string { return u.passwordHash }
func (u *User) FirstName() string    { return u.firstName }
func (u *User) LastName() string     { return u.lastName }
func (u *User) FullName() string     { return u.firstName + " " + u.lastName }
func (u *User) IsActive() bool       { return u.isActive }
func (u *User) OtpEnabled() bool     { return u.otpEnabled }
func (u *User) OtpSecret() string    { return u.otpSecret }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

func (u *User) LastLoginAt() *time.Time {
	if u.lastLoginAt == nil {
		return nil
	}
	t := *u.lastLoginAt
	return &t
}

// Roles is immutable; use AddRole/RemoveRole to change membership.
func (u *User) Roles() RolesCollection { return u.roles }

func (u *User) HasRole(roleID string) bool { return u.roles.Contains(roleID) }

func (u *User) HasPermission(name string) bool { return u.roles.HasPermission(name) }

func (u *User) PermissionNames() []string { return u.roles.PermissionNames() }

func (u *User) IsAdmin() bool { return u.roles.HasAdminPrivileges() }

// IsEligibleForAdminRole: active and already holding an admin role. Admins are
// grown from existing admin privilege.
func (u *User) IsEligibleForAdminRole() bool {
	return u.isActive && u.roles.HasAdminPrivileges()
}

func (u *User) Activate() {
	if u.isActive {
		return
	}
	u.isActive = true
	u.touch()
}

func (u *User) Deactivate() {
	if !u.isActive {
		return
	}
	u.isActive = false
	u.touch()
}

func (u *User) EnableTwoFactor(secret string) error {
	if !u.isActive {
		return ErrInactiveUser
	}
	if strings.TrimSpace(secret) == "" {
		return invalid("otpSecret", "must not be empty")
	}
	u.otpEnabled = true
	u.otpSecret = secret
	u.touch()
	return nil
}

func (u *User) DisableTwoFactor() {
	if !u.otpEnabled {
		return
	}
	u.otpEnabled = false
	u.otpSecret = ""
	u.touch()
}

func (u *User) AddRole(role *Role) error {
	if !u.isActive {
		return ErrInactiveUser
	}
	if u.roles.Contains(role.id) {
		return ErrUserAlreadyHasRole
	}
	if role.IsAdminRole() && !u.IsEligibleForAdminRole() {
		return ErrUserNotEligibleForRole
	}
	return u.attach(role)
}

// AddRoleOnCreation attaches role without the admin eligibility check.
// Seed data and account bootstrap only.
func (u *User) AddRoleOnCreation(role *Role) error {
	if u.roles.Contains(role.id) {
		return ErrUserAlreadyHasRole
	}
	return u.attach(role)
}

func (u *User) attach(role *Role) error {
	next, err := u.roles.Add(role)
	if err != nil {
		return err
	}
	u.roles = next
	u.touch()
	return nil
}

// RemoveRole detaches the role. Absent roles are a no-op; the last role can
// never be removed.
func (u *User) RemoveRole(roleID string) error {
	if !u.isActive {
		return ErrInactiveUser
	}
	if !u.roles.Contains(roleID) {
		return nil
	}
	if u.roles.Len() == 1 {
		return ErrUserCannotRemoveLastRole
	}
	u.roles = u.roles.Remove(roleID)
	u.touch()
	return nil
}

func (u *User) ChangeEmail(email Email) error {
	if !u.isActive {
		return ErrInactiveUser
	}
	if email.IsZero() {
		return invalid("email", "must not be empty")
	}
	if email.Equal(u.email) {
		return nil
	}
	u.email = email
	u.touch()
	return nil
}

// ChangePassword stores a new hash. Hashing is the caller's job.
func (u *User) ChangePassword(passwordHash string) error {
	if !u.isActive {
		return ErrInactiveUser
	}
	if passwordHash == "" {
		return invalid("password", "hash must not be empty")
	}
	u.passwordHash = passwordHash
	u.touch()
	return nil
}

func (u *User) UpdateProfile(firstName, lastName string) error {
	if !u.isActive {
		return ErrInactiveUser
	}
	first, err := validName("firstName", firstName)
	if err != nil {
		return err
	}
	last, err := validName("lastName", lastName)
	if err != nil {
		return err
	}
	if first == u.firstName && last == u.lastName {
		return nil
	}
	u.firstName, u.lastName = first, last
	u.touch()
	return nil
}

func (u *User) RecordLogin(at time.Time) {
	at = at.UTC()
	u.lastLoginAt = &at
	u.touch()
}

func (u *User) Data() UserData {
	return UserData{
		ID:           u.id,
		Email:        u.email.String(),
		PasswordHash: u.passwordHash,
		FirstName:    u.firstName,
		LastName:     u.lastName,
		IsActive:     u.isActive,
		OtpEnabled:   u.otpEnabled,
		OtpSecret:    u.otpSecret,
		Roles:        u.roles.Items(),
		LastLoginAt:  u.LastLoginAt(),
		CreatedAt:    u.createdAt,
		UpdatedAt:    u.updatedAt,
	}
}

// touch bumps updatedAt, never behind createdAt.
func (u *User) touch() {
	t := now()
	if t.Before(u.createdAt) {
		t = u.createdAt
	}
	u.updatedAt = t
}

func validName(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid(field, "must not be empty")
	}
	if len(s) > maxNameLength {
		return "", invalid(field, "must be at most 100 characters")
	}
	return s, nil
}
