package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ============================================================================
// Current user
// ============================================================================

// GetMe returns the authenticated user's profile.
func (s *Session) GetMe(ctx context.Context) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/me", nil, nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateMe changes the authenticated user's own name or email.
func (s *Session) UpdateMe(ctx context.Context, req UpdateProfileRequest) (*UserResponse, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPatch, "/v1/me", req)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword requires the current password.
func (s *Session) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/me/password", ChangePasswordRequest{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// LogoutAll revokes every refresh token of the user, this session's included.
func (s *Session) LogoutAll(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/me/logout-all", nil, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ============================================================================
// User administration
// ============================================================================

// ListUsers pages through all users. A zero limit uses the server default.
// Requires: user:read
func (s *Session) ListUsers(ctx context.Context, limit, offset int) (*ListUsersResponse, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/v1/users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil, nil, "user:read")
	if err != nil {
		return nil, err
	}

	var users ListUsersResponse
	if err := decodeJSON(resp, &users, http.StatusOK); err != nil {
		return nil, err
	}
	return &users, nil
}

// GetUser requires: user:read
func (s *Session) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	return s.userCall(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(id), nil, http.StatusOK, "user:read")
}

// CreateUser requires: user:create
func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	return s.userCall(ctx, http.MethodPost, "/v1/users", req, http.StatusCreated, "user:create")
}

// UpdateUser requires: user:update
func (s *Session) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error) {
	return s.userCall(ctx, http.MethodPatch, "/v1/users/"+url.PathEscape(id), req, http.StatusOK, "user:update")
}

// DeleteUser requires: user:delete
func (s *Session) DeleteUser(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(id), nil, nil, "user:delete")
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// AssignRole requires: user:update
func (s *Session) AssignRole(ctx context.Context, userID, roleID string) (*UserResponse, error) {
	return s.userCall(ctx, http.MethodPost, userRolePath(userID, roleID), nil, http.StatusOK, "user:update")
}

// RemoveRole requires: user:update
func (s *Session) RemoveRole(ctx context.Context, userID, roleID string) (*UserResponse, error) {
	return s.userCall(ctx, http.MethodDelete, userRolePath(userID, roleID), nil, http.StatusOK, "user:update")
}

// ActivateUser requires: user:update
func (s *Session) ActivateUser(ctx context.Context, id string) (*UserResponse, error) {
	return s.userCall(ctx, http.MethodPost, "/v1/users/"+url.PathEscape(id)+"/activate", nil, http.StatusOK, "user:update")
}

// DeactivateUser requires: user:update
func (s *Session) DeactivateUser(ctx context.Context, id string) (*UserResponse, error) {
	return s.userCall(ctx, http.MethodPost, "/v1/users/"+url.PathEscape(id)+"/deactivate", nil, http.StatusOK, "user:update")
}

func userRolePath(userID, roleID string) string {
	return "/v1/users/" + url.PathEscape(userID) + "/roles/" + url.PathEscape(roleID)
}

func (s *Session) userCall(ctx context.Context, method, path string, body any, expected int, perm string) (*UserResponse, error) {
	resp, err := s.doAuthJSON(ctx, method, path, body, perm)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, expected); err != nil {
		return nil, err
	}
	return &user, nil
}
