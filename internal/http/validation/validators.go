// Package validation holds the form-field checks shared by the portal's
// sign-up, sign-in, and staff provisioning forms.
package validation

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Form field limits.
const (
	MaxNameLength     = 50
	MaxEmailLength    = 254
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores bytes past 72
)

// Validator is a function that validates a string value and returns an error message if invalid.
type Validator func(v string) string

// Required validates that a field is not empty and does not exceed maxLen characters.
// Uses rune count for proper Unicode support.
//
//	Required("First name", 50)("")  // "First name is required"
func Required(label string, maxLen int) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return label + " is required"
		}
		if utf8.RuneCountInString(v) > maxLen {
			return label + " is too long"
		}
		return ""
	}
}

// Email validates a single bare address such as "dana@fakehospital.com".
// Display-name forms ("Dana <dana@...>") are rejected.
func Email() Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return "Email is required"
		}
		if utf8.RuneCountInString(v) > MaxEmailLength {
			return "Please enter a valid email address"
		}
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Address != v || addr.Name != "" {
			return "Please enter a valid email address"
		}
		at := strings.LastIndexByte(v, '@')
		if at < 1 || !strings.Contains(v[at+1:], ".") {
			return "Please enter a valid email address"
		}
		return ""
	}
}

// Password validates a new password: at least MinPasswordLength characters with
// one letter and one number.
func Password() Validator {
	return func(v string) string {
		if v == "" {
			return "Password is required"
		}
		if utf8.RuneCountInString(v) < MinPasswordLength {
			return "Password must be at least 8 characters"
		}
		if len(v) > MaxPasswordLength {
			return "Password is too long"
		}
		var letter, digit bool
		for _, r := range v {
			switch {
			case unicode.IsLetter(r):
				letter = true
			case unicode.IsDigit(r):
				digit = true
			}
		}
		if !letter {
			return "Password must contain at least one letter"
		}
		if !digit {
			return "Password must contain at least one number"
		}
		return ""
	}
}

// Matches validates a confirmation field against the original value.
func Matches(original string) Validator {
	return func(v string) string {
		if v == "" {
			return "Please confirm your password"
		}
		if v != original {
			return "Passwords do not match"
		}
		return ""
	}
}

// NotEmpty only checks presence. Sign-in uses it so the form never hints at
// password rules.
func NotEmpty(label string) Validator {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return label + " is required"
		}
		return ""
	}
}

// OneOf validates that a field matches one of the provided options (case-insensitive).
func OneOf(message string, options []string) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		for _, opt := range options {
			if strings.EqualFold(v, opt) {
				return ""
			}
		}
		return message
	}
}

// FieldValidator provides a fluent API for validating multiple fields.
type FieldValidator struct {
	errors map[string]string
}

// New creates a new FieldValidator instance.
func New() *FieldValidator {
	return &FieldValidator{errors: make(map[string]string)}
}

// Validate validates a field with one or more validators.
// It stops at the first error for each field.
func (fv *FieldValidator) Validate(field, value string, validators ...Validator) *FieldValidator {
	for _, v := range validators {
		if err := v(value); err != "" {
			fv.errors[field] = err
			break
		}
	}
	return fv
}

// Valid reports whether no field failed.
func (fv *FieldValidator) Valid() bool { return len(fv.errors) == 0 }

// Errors returns the accumulated validation errors.
func (fv *FieldValidator) Errors() map[string]string {
	return fv.errors
}
