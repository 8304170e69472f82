package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// pathIDs are the route wildcards that hold record identifiers.
var pathIDs = []string{"id", "roleId", "permissionId"}

// requireULIDs answers 404 for identifiers that cannot exist, before any
// lookup is made.
func requireULIDs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, name := range pathIDs {
			v := r.PathValue(name)
			if v == "" {
				continue
			}
			if _, err := idx.Parse(v); err != nil {
				authsdk.ErrNotFound.WithDescription(name + " " + v + " not found").WriteError(w)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin re-checks the caller against the live account. The token's
// permissions may be up to one access token lifetime stale; this is not.
func requireAdmin(users *service.UserService, authz *service.AuthorizationService, resource string, action domain.Action) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			userID, ok := httpx.UserIDFromContext(ctx)
			if !ok || userID == "" {
				authsdk.ErrInvalidToken.WriteError(w)
				return
			}

			u, err := users.GetUser(ctx, userID)
			if err != nil {
				// the account was deleted after the token was issued
				log.Warn("admin request from unknown user", "user_id", userID, "error", err)
				authsdk.ErrInvalidToken.WriteError(w)
				return
			}
			if !u.IsActive() {
				authsdk.ErrInactiveUser.WriteError(w)
				return
			}
			if !authz.CanAccessAdminFeatures(u) || !authz.CanAccessResource(u, resource, action) {
				log.Warn("admin request denied", "user_id", userID, "permission", domain.PermissionName(resource, action))
				authsdk.ErrForbidden.WithDescription("missing permission: " + domain.PermissionName(resource, action)).WriteError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
