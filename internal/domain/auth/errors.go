package auth

import "errors"

// Error kinds of the session and provisioning flows.
var (
	// ErrAuthenticationAbsent means the request carries no valid session.
	ErrAuthenticationAbsent = errors.New("authentication absent")
	// ErrRoleMismatch means the session is valid but its role does not match the route.
	ErrRoleMismatch = errors.New("role mismatch")
	// ErrRoleRecordMissing means the identity has no row in its role directory.
	// The session still resolves with role-specific fields absent.
	ErrRoleRecordMissing = errors.New("role record missing")
	// ErrTransientLookup means the identity store or role directory was unreachable.
	ErrTransientLookup = errors.New("transient lookup failure")
	// ErrDuplicateEmail means an identity with the same email already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrProvisioningFailure covers every other identity-creation failure.
	ErrProvisioningFailure = errors.New("provisioning failed")
	// ErrInvalidCredentials is returned for any failed email/password sign-in.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnknownRole is returned when a string is not one of the closed role set.
	ErrUnknownRole = errors.New("unknown role")
)
