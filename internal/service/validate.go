package service

import (
	"strings"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	apperrors "github.com/fakehospital/portal/internal/errors"
	"github.com/fakehospital/portal/internal/http/validation"
)

// Names are checked after markup is stripped, so the value that passes is the
// value that gets stored.
func validateNames(fv *validation.FieldValidator, first, last string) *validation.FieldValidator {
	return fv.
		Validate("firstName", sanitizeName(first), validation.Required("First name", validation.MaxNameLength)).
		Validate("lastName", sanitizeName(last), validation.Required("Last name", validation.MaxNameLength))
}

// ValidateStaffInput returns the provisioning field errors keyed by form field,
// or nil when in is acceptable.
func ValidateStaffInput(in StaffInput) map[string]string {
	roles := make([]string, 0, 3)
	for _, r := range domainauth.StaffRoles() {
		roles = append(roles, string(r))
	}
	fv := validateNames(validation.New(), in.FirstName, in.LastName).
		Validate("email", strings.TrimSpace(in.Email), validation.Email()).
		Validate("role", string(in.Role), validation.OneOf("Please select a role", roles))
	return fieldErrors(fv)
}

// ValidateSignUpInput returns the self-registration field errors, or nil.
// Password confirmation is a form concern and is checked by the caller.
func ValidateSignUpInput(in SignUpInput) map[string]string {
	fv := validateNames(validation.New(), in.FirstName, in.LastName).
		Validate("email", strings.TrimSpace(in.Email), validation.Email()).
		Validate("password", in.Password, validation.Password())
	return fieldErrors(fv)
}

func fieldErrors(fv *validation.FieldValidator) map[string]string {
	if fv.Valid() {
		return nil
	}
	return fv.Errors()
}

var fieldOrder = []string{"firstName", "lastName", "email", "password", "role"}

// firstFieldError reports the first failing field, in form order, as a
// validation error.
func firstFieldError(fields map[string]string) error {
	for _, f := range fieldOrder {
		if msg, ok := fields[f]; ok {
			return apperrors.ValidationField(f, msg)
		}
	}
	return nil
}
