package httpx

import (
	"context"
	"errors"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	apperrors "github.com/fakehospital/portal/internal/errors"
)

const (
	msgEmailTaken    = "This email is already registered"
	msgStaffFailed   = "Failed to create staff member. Please try again."
	msgSignUpFailed  = "Failed to create account. Please try again."
	msgInvalidSignIn = "Invalid email or password"
	msgUnavailable   = "The service is temporarily unavailable. Please try again."
	msgFixBelow      = "Please fix the errors below."
)

// formError maps a service error from an account-creating flow onto the form:
// a duplicate email becomes a field error on "email", a validation error lands
// on its field, and anything else becomes the generic failure message. Internal
// error text is never surfaced.
func formError(err error, failure string) (fields map[string]string, general string) {
	switch {
	case err == nil:
		return nil, ""
	case errors.Is(err, domainauth.ErrDuplicateEmail):
		return map[string]string{"email": msgEmailTaken}, ""
	case apperrors.IsValidation(err):
		if field := apperrors.GetField(err); field != "" {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				return map[string]string{field: appErr.Message}, ""
			}
		}
		return nil, failure
	case errors.Is(err, context.DeadlineExceeded):
		return nil, "Request timed out. Please try again."
	default:
		return nil, failure
	}
}
