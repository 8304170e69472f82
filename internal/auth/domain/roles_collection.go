package domain

import (
	"slices"
	"sort"
)

// RolesCollection is an immutable set of roles: unique ids and names, at most
// one default. Roles are cloned on the way in and on the way out.
type RolesCollection struct {
	items []*Role
}

func NewRolesCollection(roles ...*Role) (RolesCollection, error) {
	ids := make(map[string]struct{}, len(roles))
	names := make(map[string]struct{}, len(roles))
	defaults := 0

	items := make([]*Role, 0, len(roles))
	for _, r := range roles {
		if _, ok := ids[r.id]; ok {
			return RolesCollection{}, duplicate("role id", r.id)
		}
		if _, ok := names[r.name]; ok {
			return RolesCollection{}, duplicate("role name", r.name)
		}
		if r.isDefault {
			defaults++
			if defaults > 1 {
				return RolesCollection{}, &ValidationError{
					Field:  "role default",
					Reason: "more than one default role",
					Kind:   ErrDuplicateEntry,
				}
			}
		}
		ids[r.id] = struct{}{}
		names[r.name] = struct{}{}
		items = append(items, r.Clone())
	}
	return RolesCollection{items: items}, nil
}

// Items returns deep copies of the roles.
func (c RolesCollection) Items() []*Role {
	out := make([]*Role, len(c.items))
	for i, r := range c.items {
		out[i] = r.Clone()
	}
	return out
}

func (c RolesCollection) Len() int      { return len(c.items) }
func (c RolesCollection) IsEmpty() bool { return len(c.items) == 0 }

func (c RolesCollection) Get(id string) (*Role, bool) {
	for _, r := range c.items {
		if r.id == id {
			return r.Clone(), true
		}
	}
	return nil, false
}

func (c RolesCollection) Contains(id string) bool {
	return slices.ContainsFunc(c.items, func(r *Role) bool { return r.id == id })
}

func (c RolesCollection) ContainsName(name string) bool {
	return slices.ContainsFunc(c.items, func(r *Role) bool { return r.name == name })
}

func (c RolesCollection) Add(r *Role) (RolesCollection, error) {
	return NewRolesCollection(append(slices.Clone(c.items), r)...)
}

func (c RolesCollection) Remove(id string) RolesCollection {
	return c.filter(func(r *Role) bool { return r.id != id })
}

// Merge returns the union; roles already present by id are skipped.
func (c RolesCollection) Merge(other RolesCollection) (RolesCollection, error) {
	out := slices.Clone(c.items)
	for _, r := range other.items {
		if !c.Contains(r.id) {
			out = append(out, r)
		}
	}
	return NewRolesCollection(out...)
}

func (c RolesCollection) Intersect(other RolesCollection) RolesCollection {
	return c.filter(func(r *Role) bool { return other.Contains(r.id) })
}

// Default returns the default role, if the collection holds one.
func (c RolesCollection) Default() (*Role, bool) {
	for _, r := range c.items {
		if r.isDefault {
			return r.Clone(), true
		}
	}
	return nil, false
}

func (c RolesCollection) AdminRoles() RolesCollection {
	return c.filter((*Role).IsAdminRole)
}

// HasAdminPrivileges reports whether any role is an admin role.
func (c RolesCollection) HasAdminPrivileges() bool {
	return slices.ContainsFunc(c.items, (*Role).IsAdminRole)
}

// HasPermission reports whether any role grants "resource:action".
func (c RolesCollection) HasPermission(name string) bool {
	return slices.ContainsFunc(c.items, func(r *Role) bool { return r.HasPermission(name) })
}

// PermissionNames is the sorted, de-duplicated union of every role's permissions.
func (c RolesCollection) PermissionNames() []string {
	set := map[string]struct{}{}
	for _, r := range c.items {
		for _, n := range r.permissions.Names() {
			set[n] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (c RolesCollection) Names() []string {
	out := make([]string, len(c.items))
	for i, r := range c.items {
		out[i] = r.name
	}
	return out
}

func (c RolesCollection) IDs() []string {
	out := make([]string, len(c.items))
	for i, r := range c.items {
		out[i] = r.id
	}
	return out
}

func (c RolesCollection) filter(keep func(*Role) bool) RolesCollection {
	var out []*Role
	for _, r := range c.items {
		if keep(r) {
			out = append(out, r)
		}
	}
	return RolesCollection{items: out}
}
