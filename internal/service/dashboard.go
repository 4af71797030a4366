package service

import (
	"context"
	"errors"
	"fmt"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/fakehospital/portal/internal/domain/care"
	"github.com/fakehospital/portal/internal/ports"
)

// DashboardService reads what each role's home page shows.
type DashboardService struct {
	directory ports.RoleDirectory
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(directory ports.RoleDirectory) (*DashboardService, error) {
	if directory == nil {
		return nil, errors.New("RoleDirectory is required")
	}
	return &DashboardService{directory: directory}, nil
}

// PatientView is the patient home page.
type PatientView struct {
	Team          care.CareTeam       `json:"careTeam"`
	Prescriptions []care.Prescription `json:"prescriptions"`
	// RecordMissing is set when the patient has no role record yet.
	RecordMissing bool `json:"recordMissing"`
}

// Patient builds the patient view for sess.
func (d *DashboardService) Patient(ctx context.Context, sess domainauth.Session) (PatientView, error) {
	record := sess.User.Record
	if record == nil {
		return PatientView{Prescriptions: []care.Prescription{}, RecordMissing: true}, nil
	}
	team, err := d.directory.CareTeam(ctx, *record)
	if err != nil {
		return PatientView{}, fmt.Errorf("care team: %w", err)
	}
	rxs, err := d.directory.ListPrescriptions(ctx, record.ID)
	if err != nil {
		return PatientView{}, fmt.Errorf("prescriptions: %w", err)
	}
	if rxs == nil {
		rxs = []care.Prescription{}
	}
	return PatientView{Team: team, Prescriptions: rxs}, nil
}

// ClinicianView is the doctor and nurse home page.
type ClinicianView struct {
	Patients      []care.AssignedPatient `json:"patients"`
	RecordMissing bool                   `json:"recordMissing"`
}

// Clinician lists the patients assigned to the doctor or nurse in sess.
func (d *DashboardService) Clinician(ctx context.Context, sess domainauth.Session) (ClinicianView, error) {
	record := sess.User.Record
	if record == nil {
		return ClinicianView{Patients: []care.AssignedPatient{}, RecordMissing: true}, nil
	}
	patients, err := d.directory.ListAssignedPatients(ctx, sess.Role(), record.ID)
	if err != nil {
		return ClinicianView{}, fmt.Errorf("assigned patients: %w", err)
	}
	if patients == nil {
		patients = []care.AssignedPatient{}
	}
	return ClinicianView{Patients: patients}, nil
}
