package domain

import (
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
)

const maxRoleNameLength = 100

// Role is a named bundle of permissions. At most one role is the default
// across the system; RolesService and RolesCollection enforce that, not Role.
type Role struct {
	id          string
	name        string
	description string
	permissions PermissionsCollection
	isDefault   bool
	createdAt   time.Time
	updatedAt   time.Time
}

// RoleData is the flat form used by storage.
type RoleData struct {
	ID          string
	Name        string
	Description string
	IsDefault   bool
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewRole(name, description string, isDefault bool) (*Role, error) {
	n, err := validRoleName(name)
	if err != nil {
		return nil, err
	}
	desc, err := validDescription(description)
	if err != nil {
		return nil, err
	}

	t := now()
	return &Role{
		id:          idx.NewString(),
		name:        n,
		description: desc,
		isDefault:   isDefault,
		createdAt:   t,
		updatedAt:   t,
	}, nil
}

func RoleFromData(d RoleData) (*Role, error) {
	if d.ID == "" {
		return nil, invalid("id", "must not be empty")
	}
	n, err := validRoleName(d.Name)
	if err != nil {
		return nil, err
	}
	desc, err := validDescription(d.Description)
	if err != nil {
		return nil, err
	}
	perms, err := NewPermissionsCollection(d.Permissions...)
	if err != nil {
		return nil, err
	}
	return &Role{
		id:          d.ID,
		name:        n,
		description: desc,
		permissions: perms,
		isDefault:   d.IsDefault,
		createdAt:   d.CreatedAt.UTC(),
		updatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

func (r *Role) ID() string           { return r.id }
func (r *Role) Name() string         { return r.name }
func (r *Role) Description() string  { return r.description }
func (r *Role) IsDefault() bool      { return r.isDefault }
func (r *Role) CreatedAt() time.Time { return r.createdAt }
func (r *Role) UpdatedAt() time.Time { return r.updatedAt }

// Permissions returns a copy; changing it does not touch the role.
func (r *Role) Permissions() []Permission { return r.permissions.Items() }

func (r *Role) PermissionsCollection() PermissionsCollection { return r.permissions }

func (r *Role) HasPermission(name string) bool { return r.permissions.HasPermission(name) }

// IsAdminRole is true for roles holding a write permission on a sensitive
// resource, or whose name mentions admin.
func (r *Role) IsAdminRole() bool {
	if r.permissions.HasAdminPermissions() {
		return true
	}
	return strings.Contains(strings.ToLower(r.name), "admin")
}

// AddPermission attaches p. Critical permissions can only be added to roles
// that are already admin roles.
func (r *Role) AddPermission(p Permission) error {
	if r.permissions.Contains(p.id) || r.permissions.ContainsName(p.Name()) {
		return ErrPermissionAlreadyAssigned
	}
	if p.IsSystemAdmin() && !r.IsAdminRole() {
		return ErrSystemPermissionDenied
	}
	return r.add(p)
}

// AddPermissionsOnCreation attaches permissions without the admin check.
// Seed data and role construction only.
func (r *Role) AddPermissionsOnCreation(perms ...Permission) error {
	for _, p := range perms {
		if r.permissions.Contains(p.id) || r.permissions.ContainsName(p.Name()) {
			return ErrPermissionAlreadyAssigned
		}
		if err := r.add(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Role) add(p Permission) error {
	next, err := r.permissions.Add(p)
	if err != nil {
		return err
	}
	r.permissions = next
	r.updatedAt = now()
	return nil
}

// RemovePermission is a no-op when the permission is not attached.
func (r *Role) RemovePermission(permissionID string) {
	if !r.permissions.Contains(permissionID) {
		return
	}
	r.permissions = r.permissions.Remove(permissionID)
	r.updatedAt = now()
}

func (r *Role) CanBeDeleted() bool { return !r.isDefault }

func (r *Role) EnsureDeletable() error {
	if !r.CanBeDeleted() {
		return ErrCannotDeleteDefaultRole
	}
	return nil
}

func (r *Role) Rename(name string) error {
	n, err := validRoleName(name)
	if err != nil {
		return err
	}
	if n == r.name {
		return nil
	}
	r.name = n
	r.updatedAt = now()
	return nil
}

func (r *Role) UpdateDescription(description string) error {
	desc, err := validDescription(description)
	if err != nil {
		return err
	}
	if desc == r.description {
		return nil
	}
	r.description = desc
	r.updatedAt = now()
	return nil
}

func (r *Role) SetDefault(isDefault bool) {
	if r.isDefault == isDefault {
		return
	}
	r.isDefault = isDefault
	r.updatedAt = now()
}

// Clone returns a deep copy.
func (r *Role) Clone() *Role {
	c := *r
	c.permissions = PermissionsCollection{items: r.permissions.Items()}
	return &c
}

func (r *Role) Data() RoleData {
	return RoleData{
		ID:          r.id,
		Name:        r.name,
		Description: r.description,
		IsDefault:   r.isDefault,
		Permissions: r.permissions.Items(),
		CreatedAt:   r.createdAt,
		UpdatedAt:   r.updatedAt,
	}
}

func validRoleName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid("name", "must not be empty")
	}
	if len(s) > maxRoleNameLength {
		return "", invalid("name", "must be at most 100 characters")
	}
	return s, nil
}
