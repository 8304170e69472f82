package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"

	_ "github.com/aussiebroadwan/gatekeeper/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	UserService       *service.UserService
	RolesService      *service.RolesService
	PermissionService *service.PermissionService
	AuthService       *service.AuthService
	SessionService    *service.SessionService
	Authz             *service.AuthorizationService

	// FileService is optional; the /v1/files routes exist only when it has
	// blob storage.
	FileService    *service.FileService
	MaxUploadBytes int64

	// Throttler counts every API request; AuthThrottler additionally counts
	// the credential endpoints. Either may be nil.
	Throttler        httpx.Throttler
	AuthThrottler    httpx.Throttler
	IgnoreUserAgents []string

	// ClientIP keys anonymous throttling. Nil means the TCP peer address.
	ClientIP httpx.KeyExtractor

	// ReadyChecks are pinged by /readyz in addition to the database.
	ReadyChecks map[string]Pinger
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMe()
	r.registerUsers()
	r.registerRoles()
	r.registerPermissions()
	r.registerFiles()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Gatekeeper API
//	@version		0.1.0
//	@description	Authentication and role-based authorization: accounts, roles, permissions, sessions and user files.
//	@description
//	@description				Access tokens are HS256 JWTs carrying the user's roles and "resource:action" permissions.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/gatekeeper
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// throttle returns a middleware counting requests against t, or none when t is nil.
func (r *Router) clientIP() httpx.KeyExtractor {
	if r.ClientIP != nil {
		return r.ClientIP
	}
	return httpx.IPKeyExtractor
}

func (r *Router) throttle(t httpx.Throttler, prefix string, key httpx.KeyExtractor) []httpx.Middleware {
	if t == nil {
		return nil
	}
	return []httpx.Middleware{httpx.Throttle(httpx.ThrottleConfig{
		Throttler:        t,
		Key:              httpx.PrefixKeyExtractor(prefix, key),
		IgnoreUserAgents: r.IgnoreUserAgents,
	})}
}

// public chains h behind the general throttle keyed by IP.
func (r *Router) public(h http.HandlerFunc) http.Handler {
	return httpx.Chain(h, r.throttle(r.Throttler, "ip", r.clientIP())...)
}

// credentials chains h behind both throttles; the strict one guards against
// password and code guessing.
func (r *Router) credentials(h http.HandlerFunc) http.Handler {
	mws := r.throttle(r.Throttler, "ip", r.clientIP())
	mws = append(mws, r.throttle(r.AuthThrottler, "auth", r.clientIP())...)
	return httpx.Chain(h, mws...)
}

// authenticated requires a valid access token and throttles by user.
func (r *Router) authenticated(h http.HandlerFunc, mws ...httpx.Middleware) http.Handler {
	chain := []httpx.Middleware{httpx.AuthnMiddleware(r.verifier), requireULIDs}
	chain = append(chain, mws...)
	chain = append(chain, r.throttle(r.Throttler, "user", httpx.UserIDKeyExtractor)...)
	return httpx.Chain(h, chain...)
}

// admin requires the permission in the token and again on the live account.
func (r *Router) admin(h http.HandlerFunc, resource string, action domain.Action) http.Handler {
	return r.authenticated(h,
		httpx.RequirePermissions(domain.PermissionName(resource, action)),
		requireAdmin(r.UserService, r.Authz, resource, action),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Users:    r.UserService,
		Auth:     r.AuthService,
		Sessions: r.SessionService,
	}

	r.Mux.Handle("POST /v1/auth/register", r.credentials(h.HandleRegister))
	r.Mux.Handle("POST /v1/auth/login", r.credentials(h.HandleLogin))
	r.Mux.Handle("POST /v1/auth/refresh", r.public(h.HandleRefresh))
	r.Mux.Handle("POST /v1/auth/logout", r.public(h.HandleLogout))

	r.Mux.Handle("POST /v1/auth/email/send-code", r.credentials(h.HandleSendVerificationCode))
	r.Mux.Handle("POST /v1/auth/email/verify", r.credentials(h.HandleVerifyEmail))
	r.Mux.Handle("POST /v1/auth/password/forgot", r.credentials(h.HandleForgotPassword))
	r.Mux.Handle("POST /v1/auth/password/reset", r.credentials(h.HandleResetPassword))
	r.Mux.Handle("POST /v1/auth/otp/generate", r.credentials(h.HandleGenerateOTP))
	r.Mux.Handle("POST /v1/auth/otp/verify", r.credentials(h.HandleVerifyOTP))
}

func (r *Router) registerMe() {
	h := &MeHandler{Users: r.UserService, Auth: r.AuthService}

	r.Mux.Handle("GET /v1/me", r.authenticated(h.HandleGet))
	r.Mux.Handle("PATCH /v1/me", r.authenticated(h.HandleUpdate))
	r.Mux.Handle("POST /v1/me/password", r.authenticated(h.HandleChangePassword))
	r.Mux.Handle("POST /v1/me/logout-all", r.authenticated(h.HandleLogoutAll))

	r.Mux.Handle("POST /v1/me/2fa/setup", r.authenticated(h.HandleSetupTwoFactor))
	r.Mux.Handle("POST /v1/me/2fa/confirm", r.authenticated(h.HandleConfirmTwoFactor))
	r.Mux.Handle("DELETE /v1/me/2fa", r.authenticated(h.HandleDisableTwoFactor))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Users: r.UserService}
	const res = domain.ResourceUser

	r.Mux.Handle("GET /v1/users", r.admin(h.HandleList, res, domain.ActionRead))
	r.Mux.Handle("POST /v1/users", r.admin(h.HandleCreate, res, domain.ActionCreate))
	r.Mux.Handle("GET /v1/users/{id}", r.admin(h.HandleGet, res, domain.ActionRead))
	r.Mux.Handle("PATCH /v1/users/{id}", r.admin(h.HandleUpdate, res, domain.ActionUpdate))
	r.Mux.Handle("DELETE /v1/users/{id}", r.admin(h.HandleDelete, res, domain.ActionDelete))

	r.Mux.Handle("POST /v1/users/{id}/roles/{roleId}", r.admin(h.HandleAssignRole, res, domain.ActionUpdate))
	r.Mux.Handle("DELETE /v1/users/{id}/roles/{roleId}", r.admin(h.HandleRemoveRole, res, domain.ActionUpdate))
	r.Mux.Handle("POST /v1/users/{id}/activate", r.admin(h.HandleActivate, res, domain.ActionUpdate))
	r.Mux.Handle("POST /v1/users/{id}/deactivate", r.admin(h.HandleDeactivate, res, domain.ActionUpdate))
}

func (r *Router) registerRoles() {
	h := &RolesHandler{Roles: r.RolesService}
	const res = domain.ResourceRole

	r.Mux.Handle("GET /v1/roles", r.admin(h.HandleList, res, domain.ActionRead))
	r.Mux.Handle("POST /v1/roles", r.admin(h.HandleCreate, res, domain.ActionCreate))
	r.Mux.Handle("GET /v1/roles/{id}", r.admin(h.HandleGet, res, domain.ActionRead))
	r.Mux.Handle("PATCH /v1/roles/{id}", r.admin(h.HandleUpdate, res, domain.ActionUpdate))
	r.Mux.Handle("DELETE /v1/roles/{id}", r.admin(h.HandleDelete, res, domain.ActionDelete))

	r.Mux.Handle("POST /v1/roles/{id}/permissions/{permissionId}", r.admin(h.HandleAssignPermission, res, domain.ActionUpdate))
	r.Mux.Handle("DELETE /v1/roles/{id}/permissions/{permissionId}", r.admin(h.HandleRemovePermission, res, domain.ActionUpdate))
}

func (r *Router) registerPermissions() {
	h := &PermissionsHandler{Permissions: r.PermissionService}
	const res = domain.ResourcePermission

	r.Mux.Handle("GET /v1/permissions", r.admin(h.HandleList, res, domain.ActionRead))
	r.Mux.Handle("POST /v1/permissions", r.admin(h.HandleCreate, res, domain.ActionCreate))
	r.Mux.Handle("GET /v1/permissions/{id}", r.admin(h.HandleGet, res, domain.ActionRead))
	r.Mux.Handle("PATCH /v1/permissions/{id}", r.admin(h.HandleUpdate, res, domain.ActionUpdate))
	r.Mux.Handle("DELETE /v1/permissions/{id}", r.admin(h.HandleDelete, res, domain.ActionDelete))
}

func (r *Router) registerFiles() {
	if r.FileService == nil || r.FileService.Blob == nil {
		return
	}
	h := &FilesHandler{Files: r.FileService, MaxUploadBytes: r.MaxUploadBytes}

	r.Mux.Handle("POST /v1/files", r.authenticated(h.HandleUpload))
	r.Mux.Handle("GET /v1/files", r.authenticated(h.HandleList))
	r.Mux.Handle("GET /v1/files/{id}", r.authenticated(h.HandleGet))
	r.Mux.Handle("DELETE /v1/files/{id}", r.authenticated(h.HandleDelete))
}

func (r *Router) registerSystem() {
	checks := map[string]Pinger{"database": r.store}
	for name, p := range r.ReadyChecks {
		checks[name] = p
	}

	// Health probes are never throttled.
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, checks))
}
