package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
)

type PermissionsHandler struct {
	Permissions *service.PermissionService
}

// HandleList handles GET /v1/permissions
//
//	@Summary	List permissions
//	@Tags		Permissions
//	@Produce	json
//	@Success	200	{object}	authsdk.ListPermissionsResponse
//	@Security	BearerAuth
//	@Router		/v1/permissions [get].
func (h *PermissionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	perms, err := h.Permissions.ListPermissions(r.Context())
	if err != nil {
		writeError(w, r, "list permissions failed", err)
		return
	}

	resp := authsdk.ListPermissionsResponse{Permissions: make([]authsdk.PermissionResponse, len(perms))}
	for i, p := range perms {
		resp.Permissions[i] = toPermissionResponse(p)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *PermissionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.Permissions.GetPermission(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "get permission failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPermissionResponse(p))
}

// HandleCreate handles POST /v1/permissions
//
//	@Summary	Create a permission
//	@Tags		Permissions
//	@Accept		json
//	@Produce	json
//	@Param		request	body		authsdk.CreatePermissionRequest	true	"resource, action and description"
//	@Success	201		{object}	authsdk.PermissionResponse
//	@Failure	400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure	409		{object}	authsdk.ErrorResponse	"already_exists"
//	@Security	BearerAuth
//	@Router		/v1/permissions [post].
func (h *PermissionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreatePermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "create permission: bad body", err)
		return
	}

	p, err := h.Permissions.CreatePermission(r.Context(), req.Resource, req.Action, req.Description)
	if err != nil {
		writeError(w, r, "create permission failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toPermissionResponse(p))
}

// HandleUpdate handles PATCH /v1/permissions/{id}. Only the description can change.
func (h *PermissionsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.UpdatePermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "update permission: bad body", err)
		return
	}

	p, err := h.Permissions.UpdatePermissionDescription(r.Context(), r.PathValue("id"), req.Description)
	if err != nil {
		writeError(w, r, "update permission failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPermissionResponse(p))
}

// HandleDelete handles DELETE /v1/permissions/{id}. Roles holding it lose it.
func (h *PermissionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Permissions.DeletePermission(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, "delete permission failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
