package domain

import "slices"

// PermissionsCollection is an immutable set of permissions with unique ids
// and names. Every "mutating" method returns a new collection.
type PermissionsCollection struct {
	items []Permission
}

func NewPermissionsCollection(perms ...Permission) (PermissionsCollection, error) {
	ids := make(map[string]struct{}, len(perms))
	names := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		if _, ok := ids[p.id]; ok {
			return PermissionsCollection{}, duplicate("permission id", p.id)
		}
		if _, ok := names[p.Name()]; ok {
			return PermissionsCollection{}, duplicate("permission name", p.Name())
		}
		ids[p.id] = struct{}{}
		names[p.Name()] = struct{}{}
	}
	return PermissionsCollection{items: slices.Clone(perms)}, nil
}

func (c PermissionsCollection) Items() []Permission { return slices.Clone(c.items) }
func (c PermissionsCollection) Len() int            { return len(c.items) }
func (c PermissionsCollection) IsEmpty() bool       { return len(c.items) == 0 }

func (c PermissionsCollection) Get(id string) (Permission, bool) {
	for _, p := range c.items {
		if p.id == id {
			return p, true
		}
	}
	return Permission{}, false
}

func (c PermissionsCollection) Contains(id string) bool {
	_, ok := c.Get(id)
	return ok
}

func (c PermissionsCollection) ContainsName(name string) bool {
	return slices.ContainsFunc(c.items, func(p Permission) bool { return p.Name() == name })
}

// HasPermission reports whether a permission named "resource:action" is present.
func (c PermissionsCollection) HasPermission(name string) bool { return c.ContainsName(name) }

func (c PermissionsCollection) Add(p Permission) (PermissionsCollection, error) {
	return NewPermissionsCollection(append(slices.Clone(c.items), p)...)
}

func (c PermissionsCollection) Remove(id string) PermissionsCollection {
	return PermissionsCollection{items: slices.DeleteFunc(slices.Clone(c.items), func(p Permission) bool {
		return p.id == id
	})}
}

// Merge returns the union; entries already present by id are skipped.
func (c PermissionsCollection) Merge(other PermissionsCollection) (PermissionsCollection, error) {
	out := slices.Clone(c.items)
	for _, p := range other.items {
		if !c.Contains(p.id) {
			out = append(out, p)
		}
	}
	return NewPermissionsCollection(out...)
}

func (c PermissionsCollection) Intersect(other PermissionsCollection) PermissionsCollection {
	return c.filter(func(p Permission) bool { return other.Contains(p.id) })
}

func (c PermissionsCollection) FilterByResource(resource string) PermissionsCollection {
	return c.filter(func(p Permission) bool { return p.Resource() == resource })
}

func (c PermissionsCollection) FilterByAction(action Action) PermissionsCollection {
	return c.filter(func(p Permission) bool { return p.Action() == action })
}

// HasAdminPermissions reports whether any permission is a write on a
// sensitive resource.
func (c PermissionsCollection) HasAdminPermissions() bool {
	return slices.ContainsFunc(c.items, Permission.IsSystemAdmin)
}

func (c PermissionsCollection) Names() []string {
	out := make([]string, len(c.items))
	for i, p := range c.items {
		out[i] = p.Name()
	}
	return out
}

func (c PermissionsCollection) IDs() []string {
	out := make([]string, len(c.items))
	for i, p := range c.items {
		out[i] = p.id
	}
	return out
}

func (c PermissionsCollection) filter(keep func(Permission) bool) PermissionsCollection {
	var out []Permission
	for _, p := range c.items {
		if keep(p) {
			out = append(out, p)
		}
	}
	return PermissionsCollection{items: out}
}
