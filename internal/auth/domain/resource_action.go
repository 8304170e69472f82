package domain

import (
	"regexp"
	"strings"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Actions lists every valid action.
var Actions = []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}

const (
	ResourceUser       = "user"
	ResourceRole       = "role"
	ResourcePermission = "permission"
	ResourceStorage    = "storage"
	ResourceAudit      = "audit"
	ResourceSystem     = "system"
)

// KnownResources are seeded with a permission per action.
var KnownResources = []string{ResourceUser, ResourceRole, ResourcePermission, ResourceStorage, ResourceAudit}

// sensitive resources whose write actions make a permission "system admin".
var sensitiveResources = map[string]bool{
	ResourceUser:       true,
	ResourceRole:       true,
	ResourcePermission: true,
	ResourceSystem:     true,
}

const maxResourceLength = 50

var resourceRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func ParseAction(s string) (Action, error) {
	a := Action(s)
	switch a {
	case ActionRead, ActionCreate, ActionUpdate, ActionDelete:
		return a, nil
	}
	return "", invalid("action", "must be one of read, create, update, delete")
}

func (a Action) IsWrite() bool { return a != ActionRead }

// ResourceAction is the atomic unit of permission, e.g. user:read.
type ResourceAction struct {
	resource string
	action   Action
}

func NewResourceAction(resource, action string) (ResourceAction, error) {
	if resource == "" {
		return ResourceAction{}, invalid("resource", "must not be empty")
	}
	if len(resource) > maxResourceLength || !resourceRe.MatchString(resource) {
		return ResourceAction{}, invalid("resource", "must be lowercase alphanumeric or hyphen")
	}
	a, err := ParseAction(action)
	if err != nil {
		return ResourceAction{}, err
	}
	return ResourceAction{resource: resource, action: a}, nil
}

// ParseResourceAction parses the "resource:action" form.
func ParseResourceAction(s string) (ResourceAction, error) {
	resource, action, ok := strings.Cut(s, ":")
	if !ok {
		return ResourceAction{}, invalid("permission", `must look like "resource:action"`)
	}
	return NewResourceAction(resource, action)
}

func MustResourceAction(resource string, action Action) ResourceAction {
	ra, err := NewResourceAction(resource, string(action))
	if err != nil {
		panic(err)
	}
	return ra
}

func (ra ResourceAction) Resource() string { return ra.resource }
func (ra ResourceAction) Action() Action   { return ra.action }
func (ra ResourceAction) String() string   { return ra.resource + ":" + string(ra.action) }

// IsSystemAdmin reports whether this is a write on a sensitive resource.
func (ra ResourceAction) IsSystemAdmin() bool {
	return sensitiveResources[ra.resource] && ra.action.IsWrite()
}

// PermissionName builds "resource:action" without validating.
func PermissionName(resource string, action Action) string {
	return resource + ":" + string(action)
}
