package data

import apperrors "github.com/fakehospital/portal/internal/errors"

// Shared sentinel errors for data-layer repositories. They carry the not_found
// code so callers outside this package can test them with apperrors.IsNotFound.
var (
	// ErrIdentityNotFound is returned when no identity matches the lookup.
	ErrIdentityNotFound = apperrors.NotFound("identity not found")
	// ErrCredentialNotFound is returned when an identity has no credential account.
	ErrCredentialNotFound = apperrors.NotFound("credential not found")
)
