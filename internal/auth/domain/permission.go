package domain

import (
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
)

const maxDescriptionLength = 500

// Permission grants one action on one resource. Its name is always
// "resource:action"; only the description may change.
type Permission struct {
	id          string
	ra          ResourceAction
	description string
	createdAt   time.Time
	updatedAt   time.Time
}

// PermissionData is the flat form used by storage.
type PermissionData struct {
	ID          string
	Resource    string
	Action      string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewPermission(ra ResourceAction, description string) (Permission, error) {
	desc, err := validDescription(description)
	if err != nil {
		return Permission{}, err
	}
	if ra.resource == "" {
		return Permission{}, invalid("resource", "must not be empty")
	}

	t := now()
	return Permission{
		id:          idx.NewString(),
		ra:          ra,
		description: desc,
		createdAt:   t,
		updatedAt:   t,
	}, nil
}

func PermissionFromData(d PermissionData) (Permission, error) {
	if d.ID == "" {
		return Permission{}, invalid("id", "must not be empty")
	}
	ra, err := NewResourceAction(d.Resource, d.Action)
	if err != nil {
		return Permission{}, err
	}
	desc, err := validDescription(d.Description)
	if err != nil {
		return Permission{}, err
	}
	return Permission{
		id:          d.ID,
		ra:          ra,
		description: desc,
		createdAt:   d.CreatedAt.UTC(),
		updatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

func (p Permission) ID() string                     { return p.id }
func (p Permission) Name() string                   { return p.ra.String() }
func (p Permission) Resource() string               { return p.ra.resource }
func (p Permission) Action() Action                 { return p.ra.action }
func (p Permission) ResourceAction() ResourceAction { return p.ra }
func (p Permission) Description() string            { return p.description }
func (p Permission) CreatedAt() time.Time           { return p.createdAt }
func (p Permission) UpdatedAt() time.Time           { return p.updatedAt }
func (p Permission) IsSystemAdmin() bool            { return p.ra.IsSystemAdmin() }

func (p *Permission) UpdateDescription(description string) error {
	desc, err := validDescription(description)
	if err != nil {
		return err
	}
	if desc == p.description {
		return nil
	}
	p.description = desc
	p.updatedAt = now()
	return nil
}

func (p Permission) Data() PermissionData {
	return PermissionData{
		ID:          p.id,
		Resource:    p.ra.resource,
		Action:      string(p.ra.action),
		Description: p.description,
		CreatedAt:   p.createdAt,
		UpdatedAt:   p.updatedAt,
	}
}

func validDescription(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid("description", "must not be empty")
	}
	if len(s) > maxDescriptionLength {
		return "", invalid("description", "must be at most 500 characters")
	}
	return s, nil
}
