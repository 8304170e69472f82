package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Services wrap these; callers test with errors.Is.
var (
	ErrEntityNotFound      = errors.New("entity not found")
	ErrEntityAlreadyExists = errors.New("entity already exists")
	ErrInvalidValue        = errors.New("invalid value")
	ErrDuplicateEntry      = errors.New("duplicate entry")

	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrTwoFactorRequired    = fmt.Errorf("%w: two-factor code required", ErrAuthenticationFailed)
	ErrOtpExpired           = errors.New("code expired")
	ErrOtpInvalid           = errors.New("code invalid")

	ErrForbiddenAction           = errors.New("forbidden action")
	ErrThrottled                 = errors.New("too many requests")
	ErrInvalidThrottleIdentifier = errors.New("invalid throttle identifier")

	ErrUserNotEligibleForRole    = errors.New("user not eligible for role")
	ErrUserAlreadyHasRole        = errors.New("user already has role")
	ErrInactiveUser              = errors.New("user is inactive")
	ErrUserCannotRemoveLastRole  = errors.New("user cannot remove last role")
	ErrCannotDeleteDefaultRole   = errors.New("cannot delete default role")
	ErrRoleHasAssignedUsers      = errors.New("role has assigned users")
	ErrPermissionAlreadyAssigned = errors.New("permission already assigned")
)

// ErrSystemPermissionDenied is returned when a critical permission is added to
// a role that is not an admin role. It matches ErrPermissionAlreadyAssigned as
// well as ErrForbiddenAction.
var ErrSystemPermissionDenied = fmt.Errorf("system permission requires an admin role: %w",
	errors.Join(ErrPermissionAlreadyAssigned, ErrForbiddenAction))

// ValidationError reports a value object or entity field that failed
// validation. It always matches ErrInvalidValue; Kind narrows it further
// (e.g. ErrDuplicateEntry).
type ValidationError struct {
	Field  string
	Reason string
	Kind   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Kind == nil || e.Kind == ErrInvalidValue {
		return []error{ErrInvalidValue}
	}
	return []error{ErrInvalidValue, e.Kind}
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func duplicate(field, value string) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf("duplicate %q", value), Kind: ErrDuplicateEntry}
}

// NotFoundError names the entity and lookup key that matched nothing.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrEntityNotFound }

// NotFound builds a *NotFoundError.
func NotFound(entity, key string) error {
	return &NotFoundError{Entity: entity, Key: key}
}
