package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
)

// Error codes carried in the "error" field of every failure response.
const (
	ErrorCodeInvalidRequest            = "invalid_request"
	ErrorCodeNotFound                  = "not_found"
	ErrorCodeAlreadyExists             = "already_exists"
	ErrorCodeAuthenticationFailed      = "authentication_failed"
	ErrorCodeTwoFactorRequired         = "two_factor_required"
	ErrorCodeOtpExpired                = "otp_expired"
	ErrorCodeOtpInvalid                = "otp_invalid"
	ErrorCodeForbidden                 = "forbidden"
	ErrorCodeRateLimitExceeded         = "rate_limit_exceeded"
	ErrorCodeInvalidThrottleID         = "invalid_throttle_identifier"
	ErrorCodeNotEligibleForRole        = "not_eligible_for_role"
	ErrorCodeUserAlreadyHasRole        = "user_already_has_role"
	ErrorCodeInactiveUser              = "inactive_user"
	ErrorCodeCannotRemoveLastRole      = "cannot_remove_last_role"
	ErrorCodeCannotDeleteDefaultRole   = "cannot_delete_default_role"
	ErrorCodeRoleHasAssignedUsers      = "role_has_assigned_users"
	ErrorCodePermissionAlreadyAssigned = "permission_already_assigned"
	ErrorCodeStorageDisabled           = "storage_disabled"
	ErrorCodeInvalidToken              = "invalid_token"
	ErrorCodeServerError               = "server_error"
)

// APIError is the {"error", "error_description"} envelope. The server writes
// it and the client returns it, so callers can match with errors.Is against
// the predefined values below.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on the error code alone.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WriteError writes e as a JSON response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, ErrorResponse{Error: e.Code, ErrorDescription: e.Description})
}

// WithDescription returns a copy of e with a different description.
func (e *APIError) WithDescription(desc string) *APIError {
	c := *e
	c.Description = desc
	return &c
}

func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Description: description}
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required fields",
	}
	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "not found",
	}
	ErrAlreadyExists = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeAlreadyExists,
		Description: "already exists",
	}
	ErrAuthenticationFailed = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeAuthenticationFailed,
		Description: "invalid credentials",
	}
	ErrTwoFactorRequired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTwoFactorRequired,
		Description: "a two-factor code is required",
	}
	ErrOtpExpired = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeOtpExpired,
		Description: "the code has expired",
	}
	ErrOtpInvalid = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeOtpInvalid,
		Description: "the code is invalid",
	}
	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeForbidden,
		Description: "forbidden",
	}
	ErrRateLimitExceeded = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeRateLimitExceeded,
		Description: "too many requests",
	}
	ErrInvalidThrottleIdentifier = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidThrottleID,
		Description: "invalid throttle identifier",
	}
	ErrNotEligibleForRole = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeNotEligibleForRole,
		Description: "user is not eligible for this role",
	}
	ErrUserAlreadyHasRole = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeUserAlreadyHasRole,
		Description: "user already has this role",
	}
	ErrInactiveUser = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInactiveUser,
		Description: "user is inactive",
	}
	ErrCannotRemoveLastRole = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeCannotRemoveLastRole,
		Description: "a user must keep at least one role",
	}
	ErrCannotDeleteDefaultRole = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeCannotDeleteDefaultRole,
		Description: "the default role cannot be deleted",
	}
	ErrRoleHasAssignedUsers = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeRoleHasAssignedUsers,
		Description: "the role is still assigned to users",
	}
	ErrPermissionAlreadyAssigned = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodePermissionAlreadyAssigned,
		Description: "the role already has this permission",
	}
	ErrStorageDisabled = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeStorageDisabled,
		Description: "file storage is not configured",
	}
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid or expired",
	}
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
