package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// UsersHandler is the user administration API.
type UsersHandler struct {
	Users *service.UserService
}

// pageFromQuery reads limit and offset, clamping limit to (0, maxPageLimit].
func pageFromQuery(r *http.Request) (store.Page, bool) {
	page := store.Page{Limit: defaultPageLimit}
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return page, false
		}
		page.Limit = min(n, maxPageLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, false
		}
		page.Offset = n
	}
	return page, true
}

// HandleList handles GET /v1/users
//
//	@Summary	List users
//	@Tags		Users
//	@Security	BearerAuth
//	@Produce	json
//	@Param		limit	query		int	false	"Page size (default 50, max 200)"
//	@Param		offset	query		int	false	"Offset"
//	@Success	200		{object}	authsdk.ListUsersResponse
//	@Failure	400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure	403		{object}	authsdk.ErrorResponse	"forbidden"
//	@Router		/v1/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromQuery(r)
	if !ok {
		badRequest(w, "limit and offset must be non-negative integers")
		return
	}

	users, total, err := h.Users.ListUsers(r.Context(), page)
	if err != nil {
		writeError(w, r, "list users failed", err)
		return
	}

	resp := authsdk.ListUsersResponse{
		Users:  make([]authsdk.UserResponse, len(users)),
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for i, u := range users {
		resp.Users[i] = toUserResponse(u)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /v1/users/{id}
//
//	@Summary	Get a user
//	@Tags		Users
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	authsdk.UserResponse
//	@Failure	404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router		/v1/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "get user failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleCreate handles POST /v1/users
//
//	@Summary		Create a user
//	@Description	Creates an account with the default role, or with role_ids when given.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateUserRequest	true	"New user"
//	@Success		201		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		403		{object}	authsdk.ErrorResponse	"forbidden"
//	@Failure		409		{object}	authsdk.ErrorResponse	"already_exists"
//	@Router			/v1/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, _ := httpx.UserIDFromContext(ctx)

	var req authsdk.CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "create user: bad body", err)
		return
	}

	u, err := h.Users.CreateUser(ctx, service.CreateUserInput{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		RoleIDs:    req.RoleIDs,
		AssignerID: actorID,
	})
	if err != nil {
		writeError(w, r, "create user failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

// HandleUpdate handles PATCH /v1/users/{id}
//
//	@Summary		Update a user
//	@Description	Applies the given fields in one transaction. role_ids replaces the user's roles.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"User ID"
//	@Param			request	body		authsdk.UpdateUserRequest	true	"Fields to change"
//	@Success		200		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		403		{object}	authsdk.ErrorResponse	"forbidden, not_eligible_for_role"
//	@Failure		404		{object}	authsdk.ErrorResponse	"not_found"
//	@Failure		409		{object}	authsdk.ErrorResponse	"already_exists, cannot_remove_last_role"
//	@Router			/v1/users/{id} [patch].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, _ := httpx.UserIDFromContext(ctx)

	var req authsdk.UpdateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "update user: bad body", err)
		return
	}

	u, err := h.Users.UpdateUserDetails(ctx, r.PathValue("id"), service.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		RoleIDs:   req.RoleIDs,
		IsActive:  req.IsActive,
	}, actorID)
	if err != nil {
		writeError(w, r, "update user failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleDelete handles DELETE /v1/users/{id}
//
//	@Summary	Delete a user
//	@Tags		Users
//	@Security	BearerAuth
//	@Param		id	path	string	true	"User ID"
//	@Success	204
//	@Failure	403	{object}	authsdk.ErrorResponse	"forbidden"
//	@Failure	404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router		/v1/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if actorID, _ := httpx.UserIDFromContext(r.Context()); actorID == id {
		authsdk.ErrForbidden.WithDescription("cannot delete your own account").WriteError(w)
		return
	}

	if err := h.Users.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, "delete user failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAssignRole handles POST /v1/users/{id}/roles/{roleId}
func (h *UsersHandler) HandleAssignRole(w http.ResponseWriter, r *http.Request) {
	actorID, _ := httpx.UserIDFromContext(r.Context())
	u, err := h.Users.AssignRoleToUser(r.Context(), r.PathValue("id"), r.PathValue("roleId"), actorID)
	if err != nil {
		writeError(w, r, "assign role failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleRemoveRole handles DELETE /v1/users/{id}/roles/{roleId}
func (h *UsersHandler) HandleRemoveRole(w http.ResponseWriter, r *http.Request) {
	actorID, _ := httpx.UserIDFromContext(r.Context())
	u, err := h.Users.RemoveRoleFromUser(r.Context(), r.PathValue("id"), r.PathValue("roleId"), actorID)
	if err != nil {
		writeError(w, r, "remove role failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *UsersHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.ActivateUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "activate user failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *UsersHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.DeactivateUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "deactivate user failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}
