package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// ListRoles requires: role:read
func (s *Session) ListRoles(ctx context.Context) (*ListRolesResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/roles", nil, nil, "role:read")
	if err != nil {
		return nil, err
	}

	var rolesResp ListRolesResponse
	if err := decodeJSON(resp, &rolesResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &rolesResp, nil
}

// GetRole requires: role:read
func (s *Session) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	return s.roleCall(ctx, http.MethodGet, rolePath(id), nil, http.StatusOK, "role:read")
}

// CreateRole requires: role:create
func (s *Session) CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error) {
	return s.roleCall(ctx, http.MethodPost, "/v1/roles", req, http.StatusCreated, "role:create")
}

// UpdateRole requires: role:update
func (s *Session) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	return s.roleCall(ctx, http.MethodPatch, rolePath(id), req, http.StatusOK, "role:update")
}

// DeleteRole fails for the default role and for roles still assigned.
// Requires: role:delete
func (s *Session) DeleteRole(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, rolePath(id), nil, nil, "role:delete")
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// AssignPermission requires: role:update
func (s *Session) AssignPermission(ctx context.Context, roleID, permissionID string) (*RoleResponse, error) {
	return s.roleCall(ctx, http.MethodPost, rolePermissionPath(roleID, permissionID), nil, http.StatusOK, "role:update")
}

// RemovePermission requires: role:update
func (s *Session) RemovePermission(ctx context.Context, roleID, permissionID string) (*RoleResponse, error) {
	return s.roleCall(ctx, http.MethodDelete, rolePermissionPath(roleID, permissionID), nil, http.StatusOK, "role:update")
}

func rolePath(id string) string { return "/v1/roles/" + url.PathEscape(id) }

func rolePermissionPath(roleID, permissionID string) string {
	return rolePath(roleID) + "/permissions/" + url.PathEscape(permissionID)
}

func (s *Session) roleCall(ctx context.Context, method, path string, body any, expected int, perm string) (*RoleResponse, error) {
	resp, err := s.doAuthJSON(ctx, method, path, body, perm)
	if err != nil {
		return nil, err
	}

	var role RoleResponse
	if err := decodeJSON(resp, &role, expected); err != nil {
		return nil, err
	}
	return &role, nil
}

// ============================================================================
// Permissions
// ============================================================================

// ListPermissions requires: permission:read
func (s *Session) ListPermissions(ctx context.Context) (*ListPermissionsResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/permissions", nil, nil, "permission:read")
	if err != nil {
		return nil, err
	}

	var perms ListPermissionsResponse
	if err := decodeJSON(resp, &perms, http.StatusOK); err != nil {
		return nil, err
	}
	return &perms, nil
}

// GetPermission requires: permission:read
func (s *Session) GetPermission(ctx context.Context, id string) (*PermissionResponse, error) {
	return s.permissionCall(ctx, http.MethodGet, permissionPath(id), nil, http.StatusOK, "permission:read")
}

// CreatePermission requires: permission:create
func (s *Session) CreatePermission(ctx context.Context, req CreatePermissionRequest) (*PermissionResponse, error) {
	return s.permissionCall(ctx, http.MethodPost, "/v1/permissions", req, http.StatusCreated, "permission:create")
}

// UpdatePermission changes only the description.
// Requires: permission:update
func (s *Session) UpdatePermission(ctx context.Context, id, description string) (*PermissionResponse, error) {
	return s.permissionCall(ctx, http.MethodPatch, permissionPath(id),
		UpdatePermissionRequest{Description: description}, http.StatusOK, "permission:update")
}

// DeletePermission requires: permission:delete
func (s *Session) DeletePermission(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, permissionPath(id), nil, nil, "permission:delete")
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func permissionPath(id string) string { return "/v1/permissions/" + url.PathEscape(id) }

func (s *Session) permissionCall(ctx context.Context, method, path string, body any, expected int, perm string) (*PermissionResponse, error) {
	resp, err := s.doAuthJSON(ctx, method, path, body, perm)
	if err != nil {
		return nil, err
	}

	var p PermissionResponse
	if err := decodeJSON(resp, &p, expected); err != nil {
		return nil, err
	}
	return &p, nil
}
