package auth

// Package auth contains domain-level types for identities, roles, and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"fmt"
	"strings"
	"time"
)

// Role is the single role tag carried by every identity.
// The set is closed: values outside the constants below are never produced by ParseRole.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RoleAdmin   Role = "admin"
)

// DefaultRole is assigned to identities created without an explicit role (self sign-up).
const DefaultRole = RolePatient

// AllRoles lists every role in a stable order.
func AllRoles() []Role {
	return []Role{RolePatient, RoleDoctor, RoleNurse, RoleAdmin}
}

// StaffRoles lists the roles an admin may provision. Patients self-register.
func StaffRoles() []Role {
	return []Role{RoleDoctor, RoleNurse, RoleAdmin}
}

// ParseRole converts a raw string into a Role, rejecting anything outside the closed set.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return r, nil
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleNurse, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsStaff reports whether r can be assigned through staff provisioning.
func (r Role) IsStaff() bool {
	switch r {
	case RoleDoctor, RoleNurse, RoleAdmin:
		return true
	case RolePatient:
		return false
	default:
		return false
	}
}

// DirectoryTable returns the role directory table holding records for r.
func (r Role) DirectoryTable() (string, error) {
	switch r {
	case RolePatient:
		return "patients", nil
	case RoleDoctor:
		return "doctors", nil
	case RoleNurse:
		return "nurses", nil
	case RoleAdmin:
		return "admins", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
	}
}

// RecordAlias is the key under which a role record's own id is exposed on the
// session user, so it cannot be confused with the identity id.
func (r Role) RecordAlias() string {
	if !r.Valid() {
		return ""
	}
	return string(r) + "Id"
}

// Title returns a display label for r.
func (r Role) Title() string {
	switch r {
	case RolePatient:
		return "Patient"
	case RoleDoctor:
		return "Doctor"
	case RoleNurse:
		return "Nurse"
	case RoleAdmin:
		return "Admin"
	default:
		return ""
	}
}

// Identity is the portal's core identity record held by the identity store.
type Identity struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"name"`
	EmailVerified bool      `json:"emailVerified"`
	Role          Role      `json:"role"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewIdentity carries the inputs for creating an identity together with its
// credential hash and role record.
type NewIdentity struct {
	Email          string
	DisplayName    string
	Role           Role
	CredentialHash string
}

// ProviderIdentity is the authenticated principal returned by an external IdP.
// Adapters map provider-specific claims into this shape.
type ProviderIdentity struct {
	Subject   string
	FirstName string
	LastName  string
	Email     string
	ExpiresAt time.Time
}

// AuthToken is the server-side record behind an opaque authentication token.
// It is what the auth token store persists; everything else is derived.
type AuthToken struct {
	Token      string    `json:"token"`
	IdentityID string    `json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its expiry at now.
func (t AuthToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// RoleRecord is one row of a role directory table.
type RoleRecord struct {
	Role       Role      `json:"role"`
	ID         int64     `json:"id"`
	IdentityID string    `json:"authId"`
	CreatedAt  time.Time `json:"createdAt"`
	// Patient care-team assignment; nil for other roles or when unassigned.
	DoctorID *int64 `json:"doctorId,omitempty"`
	NurseID  *int64 `json:"nurseId,omitempty"`
}
