package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
)

type RolesHandler struct {
	Roles *service.RolesService
}

// HandleList handles GET /v1/roles
//
//	@Summary		List all roles
//	@Description	Returns every role with its permissions. Requires role:read.
//	@Tags			Roles
//	@Produce		json
//	@Success		200	{object}	authsdk.ListRolesResponse	"List of roles"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Unauthorized - missing or invalid token"
//	@Failure		403	{object}	authsdk.ErrorResponse		"Forbidden - missing required permission"
//	@Failure		500	{object}	authsdk.ErrorResponse		"Internal server error"
//	@Security		BearerAuth
//	@Router			/v1/roles [get].
func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Roles.ListRoles(r.Context())
	if err != nil {
		writeError(w, r, "failed to list roles", err)
		return
	}

	response := authsdk.ListRolesResponse{
		Roles: make([]authsdk.RoleResponse, len(roles)),
	}
	for i, role := range roles {
		response.Roles[i] = toRoleResponse(role)
	}

	httpx.WriteJSON(w, http.StatusOK, response)
}

// HandleGet handles GET /v1/roles/{id}
//
//	@Summary	Get a role
//	@Tags		Roles
//	@Produce	json
//	@Param		id	path		string	true	"Role ID"
//	@Success	200	{object}	authsdk.RoleResponse
//	@Failure	404	{object}	authsdk.ErrorResponse	"not_found"
//	@Security	BearerAuth
//	@Router		/v1/roles/{id} [get].
func (h *RolesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	role, err := h.Roles.GetRole(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "get role failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRoleResponse(role))
}

// HandleCreate handles POST /v1/roles
//
//	@Summary		Create a role
//	@Description	Creates a role, optionally already holding permission_ids. Marking it default clears the previous default.
//	@Tags			Roles
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateRoleRequest	true	"New role"
//	@Success		201		{object}	authsdk.RoleResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		409		{object}	authsdk.ErrorResponse	"already_exists"
//	@Security		BearerAuth
//	@Router			/v1/roles [post].
func (h *RolesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "create role: bad body", err)
		return
	}

	role, err := h.Roles.CreateRoleWithPermissions(r.Context(), service.CreateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		IsDefault:   req.IsDefault,
	}, req.PermissionIDs)
	if err != nil {
		writeError(w, r, "create role failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toRoleResponse(role))
}

// HandleUpdate handles PATCH /v1/roles/{id}
//
//	@Summary	Update a role
//	@Tags		Roles
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string						true	"Role ID"
//	@Param		request	body		authsdk.UpdateRoleRequest	true	"Fields to change"
//	@Success	200		{object}	authsdk.RoleResponse
//	@Failure	400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure	404		{object}	authsdk.ErrorResponse	"not_found"
//	@Failure	409		{object}	authsdk.ErrorResponse	"already_exists"
//	@Security	BearerAuth
//	@Router		/v1/roles/{id} [patch].
func (h *RolesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.UpdateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "update role: bad body", err)
		return
	}

	role, err := h.Roles.UpdateRole(r.Context(), r.PathValue("id"), service.UpdateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		writeError(w, r, "update role failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRoleResponse(role))
}

// HandleDelete handles DELETE /v1/roles/{id}
//
//	@Summary	Delete a role
//	@Tags		Roles
//	@Param		id	path	string	true	"Role ID"
//	@Success	204
//	@Failure	403	{object}	authsdk.ErrorResponse	"forbidden"
//	@Failure	404	{object}	authsdk.ErrorResponse	"not_found"
//	@Failure	409	{object}	authsdk.ErrorResponse	"cannot_delete_default_role, role_has_assigned_users"
//	@Security	BearerAuth
//	@Router		/v1/roles/{id} [delete].
func (h *RolesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actorID, _ := httpx.UserIDFromContext(r.Context())
	if err := h.Roles.DeleteRole(r.Context(), r.PathValue("id"), actorID); err != nil {
		writeError(w, r, "delete role failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAssignPermission handles POST /v1/roles/{id}/permissions/{permissionId}
//
//	@Summary		Grant a permission to a role
//	@Description	Write permissions on user, role, permission or system only go to admin roles.
//	@Tags			Roles
//	@Produce		json
//	@Param			id				path		string	true	"Role ID"
//	@Param			permissionId	path		string	true	"Permission ID"
//	@Success		200				{object}	authsdk.RoleResponse
//	@Failure		403				{object}	authsdk.ErrorResponse	"forbidden"
//	@Failure		409				{object}	authsdk.ErrorResponse	"permission_already_assigned"
//	@Security		BearerAuth
//	@Router			/v1/roles/{id}/permissions/{permissionId} [post].
func (h *RolesHandler) HandleAssignPermission(w http.ResponseWriter, r *http.Request) {
	role, err := h.Roles.AssignPermissionToRole(r.Context(), r.PathValue("id"), r.PathValue("permissionId"))
	if err != nil {
		writeError(w, r, "assign permission failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRoleResponse(role))
}

// HandleRemovePermission handles DELETE /v1/roles/{id}/permissions/{permissionId}
func (h *RolesHandler) HandleRemovePermission(w http.ResponseWriter, r *http.Request) {
	role, err := h.Roles.RemovePermissionFromRole(r.Context(), r.PathValue("id"), r.PathValue("permissionId"))
	if err != nil {
		writeError(w, r, "remove permission failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRoleResponse(role))
}
