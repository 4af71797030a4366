// Package care holds the read models shown on the role dashboards.
package care

import (
	"time"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
)

// AssignedPatient is a patient on a doctor's or nurse's list.
type AssignedPatient struct {
	PatientID  int64     `json:"patientId"`
	IdentityID string    `json:"authId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Since      time.Time `json:"createdAt"`
}

// Clinician is a member of a patient's care team.
type Clinician struct {
	RecordID int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// CareTeam is the doctor and nurse assigned to a patient. Either may be nil.
type CareTeam struct {
	Doctor *Clinician `json:"doctor,omitempty"`
	Nurse  *Clinician `json:"nurse,omitempty"`
}

// Prescription is a medication prescribed to a patient.
type Prescription struct {
	ID           int64     `json:"id"`
	Medication   string    `json:"medication"`
	Dosage       string    `json:"dosage"`
	PrescribedBy string    `json:"prescribedBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

// StaffMember is a row in the admin's staff overview.
type StaffMember struct {
	IdentityID string          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Role       domainauth.Role `json:"role"`
	CreatedAt  time.Time       `json:"createdAt"`
}
