package httpx

import (
	"net/http"
	"strings"
)

// RequireAnyPermission the caller must hold at least one of the provided
// "resource:action" permissions.
func RequireAnyPermission(required ...string) Middleware {
	want := make(map[string]struct{}, len(required))
	for _, p := range required {
		want[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range permissionsFromCtx(r.Context()) {
				if _, ok := want[p]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeInsufficientPermission(w, required...)
		})
	}
}

// RequirePermissions the caller must hold every permission listed.
func RequirePermissions(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have := make(map[string]struct{})
			for _, p := range permissionsFromCtx(r.Context()) {
				have[p] = struct{}{}
			}

			for _, req := range required {
				if _, ok := have[req]; !ok {
					writeInsufficientPermission(w, required...)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeInsufficientPermission(w http.ResponseWriter, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":             "forbidden",
		"error_description": "missing permission: " + strings.Join(required, " "),
	})
}
