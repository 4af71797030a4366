// Package errors turns errors into low-cardinality class names for metric labels and log attributes.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
)

var known = []struct {
	err   error
	class string
}{
	{domainauth.ErrAuthenticationAbsent, "authentication_absent"},
	{domainauth.ErrRoleMismatch, "role_mismatch"},
	{domainauth.ErrRoleRecordMissing, "role_record_missing"},
	{domainauth.ErrTransientLookup, "transient_lookup"},
	{domainauth.ErrDuplicateEmail, "duplicate_email"},
	{domainauth.ErrProvisioningFailure, "provisioning_failure"},
	{domainauth.ErrInvalidCredentials, "invalid_credentials"},
	{context.DeadlineExceeded, "timeout"},
	{context.Canceled, "canceled"},
}

// Classify returns a stable class for err. Portal sentinels map to fixed names;
// anything else is named after its innermost concrete type, e.g. "pgconn_pgerror".
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range known {
		if goerrors.Is(err, k.err) {
			return k.class
		}
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
