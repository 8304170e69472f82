package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// MeHandler serves the authenticated user's own account.
type MeHandler struct {
	Users *service.UserService
	Auth  *service.AuthService
}

// currentUser loads the token's subject. Deactivated accounts are refused
// even while their access token is still valid.
func (h *MeHandler) currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok || userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return nil, false
	}

	u, err := h.Users.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, "failed to load user", err)
		return nil, false
	}
	if !u.IsActive() {
		authsdk.ErrInactiveUser.WriteError(w)
		return nil, false
	}
	return u, true
}

// HandleGet handles GET /v1/me
//
//	@Summary		Get the current user
//	@Description	Returns the authenticated user's profile, roles and effective permissions.
//	@Tags			Me
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"inactive_user"
//	@Router			/v1/me [get].
func (h *MeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleUpdate handles PATCH /v1/me
//
//	@Summary	Update the current user's profile
//	@Tags		Me
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		authsdk.UpdateProfileRequest	true	"Fields to change"
//	@Success	200		{object}	authsdk.UserResponse
//	@Failure	400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure	409		{object}	authsdk.ErrorResponse	"already_exists"
//	@Router		/v1/me [patch].
func (h *MeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req authsdk.UpdateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "update profile: bad body", err)
		return
	}

	updated, err := h.Users.UpdateUserDetails(r.Context(), u.ID(), service.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}, u.ID())
	if err != nil {
		writeError(w, r, "update profile failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(updated))
}

// HandleChangePassword handles POST /v1/me/password
//
//	@Summary	Change the current user's password
//	@Tags		Me
//	@Security	BearerAuth
//	@Accept		json
//	@Param		request	body	authsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success	204
//	@Failure	400	{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure	401	{object}	authsdk.ErrorResponse	"authentication_failed"
//	@Router		/v1/me/password [post].
func (h *MeHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req authsdk.ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "change password: bad body", err)
		return
	}
	if req.CurrentPassword == "" {
		badRequest(w, "current_password is required")
		return
	}

	if err := h.Users.ChangePassword(r.Context(), u.ID(), &req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, "change password failed", err)
		return
	}
	// Other sessions must sign in again with the new password.
	if err := h.Auth.RevokeAllRefreshTokens(r.Context(), u.ID()); err != nil {
		writeError(w, r, "change password: revoke sessions failed", err)
		return
	}

	slogx.FromContext(r.Context()).Info("password changed", "user_id", u.ID())
	w.WriteHeader(http.StatusNoContent)
}

// HandleLogoutAll handles POST /v1/me/logout-all
//
//	@Summary	Revoke every refresh token of the current user
//	@Tags		Me
//	@Security	BearerAuth
//	@Success	204
//	@Router		/v1/me/logout-all [post].
func (h *MeHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok || userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.Auth.RevokeAllRefreshTokens(r.Context(), userID); err != nil {
		writeError(w, r, "logout all failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
