package auth

import (
	"encoding/json"
	"time"
)

// Session is the enriched, derived view of an authenticated request. It is
// recomputed from the auth token on a cache miss and never persisted on its own.
type Session struct {
	Token string
	User  SessionUser
	// AccessToken is a signed credential for the downstream data service.
	// Empty when no signing secret is configured.
	AccessToken string
	ExpiresAt   time.Time
}

// Role returns the session's role tag.
func (s Session) Role() Role { return s.User.Role }

// SessionUser is the identity snapshot with the role record merged in.
// Record is nil when the role directory had no row for the identity.
type SessionUser struct {
	Identity
	Record *RoleRecord
}

// RecordID returns the role record id, or nil when the record is absent.
func (u SessionUser) RecordID() *int64 {
	if u.Record == nil {
		return nil
	}
	id := u.Record.ID
	return &id
}

// MarshalJSON flattens the identity and role record into one object. The role
// record id appears under the role's alias (e.g. "doctorId") and patient
// care-team ids under "assignedDoctorId" / "assignedNurseId". Role-specific
// keys are omitted entirely when the record is absent.
func (u SessionUser) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"id":            u.ID,
		"email":         u.Email,
		"name":          u.DisplayName,
		"emailVerified": u.EmailVerified,
		"role":          u.Role,
		"createdAt":     u.CreatedAt,
		"updatedAt":     u.UpdatedAt,
	}
	if u.Record != nil {
		out[u.Role.RecordAlias()] = u.Record.ID
		if u.Record.DoctorID != nil {
			out["assignedDoctorId"] = *u.Record.DoctorID
		}
		if u.Record.NurseID != nil {
			out["assignedNurseId"] = *u.Record.NurseID
		}
	}
	return json.Marshal(out)
}
