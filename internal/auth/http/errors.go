package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// apiError maps a service error onto the wire error. Order matters: several
// domain errors match more than one sentinel.
func apiError(err error) *authsdk.APIError {
	var ra httpx.RetryAfter
	switch {
	case errors.As(err, &ra), errors.Is(err, domain.ErrThrottled):
		return authsdk.ErrRateLimitExceeded
	case errors.Is(err, domain.ErrInvalidThrottleIdentifier):
		return authsdk.ErrInvalidThrottleIdentifier

	case errors.Is(err, domain.ErrEntityNotFound):
		return authsdk.ErrNotFound.WithDescription(err.Error())
	case errors.Is(err, domain.ErrEntityAlreadyExists), errors.Is(err, domain.ErrDuplicateEntry):
		return authsdk.ErrAlreadyExists.WithDescription(err.Error())
	case errors.Is(err, domain.ErrInvalidValue), errors.Is(err, httpx.ErrInvalidBody):
		return authsdk.ErrInvalidRequest.WithDescription(err.Error())

	case errors.Is(err, domain.ErrTwoFactorRequired):
		return authsdk.ErrTwoFactorRequired
	case errors.Is(err, domain.ErrAuthenticationFailed):
		return authsdk.ErrAuthenticationFailed
	case errors.Is(err, domain.ErrOtpExpired):
		return authsdk.ErrOtpExpired
	case errors.Is(err, domain.ErrOtpInvalid):
		return authsdk.ErrOtpInvalid

	case errors.Is(err, domain.ErrForbiddenAction):
		return authsdk.ErrForbidden.WithDescription(err.Error())
	case errors.Is(err, domain.ErrUserNotEligibleForRole):
		return authsdk.ErrNotEligibleForRole
	case errors.Is(err, domain.ErrUserAlreadyHasRole):
		return authsdk.ErrUserAlreadyHasRole
	case errors.Is(err, domain.ErrInactiveUser):
		return authsdk.ErrInactiveUser
	case errors.Is(err, domain.ErrUserCannotRemoveLastRole):
		return authsdk.ErrCannotRemoveLastRole
	case errors.Is(err, domain.ErrCannotDeleteDefaultRole):
		return authsdk.ErrCannotDeleteDefaultRole
	case errors.Is(err, domain.ErrRoleHasAssignedUsers):
		return authsdk.ErrRoleHasAssignedUsers
	case errors.Is(err, domain.ErrPermissionAlreadyAssigned):
		return authsdk.ErrPermissionAlreadyAssigned

	case errors.Is(err, service.ErrStorageDisabled):
		return authsdk.ErrStorageDisabled
	}
	return authsdk.ErrServerError
}

// writeError logs server errors and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	log := slogx.FromContext(r.Context())

	apiErr := apiError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.Error(msg, "error", err)
	} else {
		log.Debug(msg, "error", err)
	}

	var ra httpx.RetryAfter
	if errors.As(err, &ra) {
		w.Header().Set("Retry-After", strconv.Itoa(max(ra.Seconds(), 1)))
	}
	apiErr.WriteError(w)
}

func badRequest(w http.ResponseWriter, desc string) {
	authsdk.ErrInvalidRequest.WithDescription(desc).WriteError(w)
}
