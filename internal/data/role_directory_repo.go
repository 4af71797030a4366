package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fakehospital/portal/internal/data/pgxutil"
	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/fakehospital/portal/internal/domain/care"
	apperrors "github.com/fakehospital/portal/internal/errors"
	"github.com/jackc/pgx/v5"
)

// RoleDirectoryRepo reads the patients, doctors, nurses, and admins tables and
// the care data keyed off them.
type RoleDirectoryRepo struct {
	DB *sql.DB
}

// NewRoleDirectoryRepo creates a new RoleDirectoryRepo.
func NewRoleDirectoryRepo(db *sql.DB) *RoleDirectoryRepo {
	return &RoleDirectoryRepo{DB: db}
}

// GetRoleRecord returns the single role record for identityID in role's table,
// or (nil, nil) when the identity has no row there.
func (r *RoleDirectoryRepo) GetRoleRecord(ctx context.Context, role domainauth.Role, identityID string) (*domainauth.RoleRecord, error) {
	table, err := role.DirectoryTable()
	if err != nil {
		return nil, err
	}

	rec := domainauth.RoleRecord{Role: role}
	if role == domainauth.RolePatient {
		var doctorID, nurseID sql.NullInt64
		err = r.DB.QueryRowContext(ctx,
			`SELECT id, auth_id, created_at, doctor_id, nurse_id FROM patients WHERE auth_id = $1`,
			identityID,
		).Scan(&rec.ID, &rec.IdentityID, &rec.CreatedAt, &doctorID, &nurseID)
		rec.DoctorID = nullInt64Ptr(doctorID)
		rec.NurseID = nullInt64Ptr(nurseID)
	} else {
		// table comes from the closed Role set.
		err = r.DB.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT id, auth_id, created_at FROM %s WHERE auth_id = $1`, table),
			identityID,
		).Scan(&rec.ID, &rec.IdentityID, &rec.CreatedAt)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s record: %w", role, apperrors.MapDBError(err))
	}
	return &rec, nil
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

type assignedPatientRow struct {
	PatientID  int64     `db:"patient_id"`
	IdentityID string    `db:"identity_id"`
	Name       string    `db:"name"`
	Email      string    `db:"email"`
	Since      time.Time `db:"since"`
}

// ListAssignedPatients lists the patients assigned to the doctor or nurse record recordID.
func (r *RoleDirectoryRepo) ListAssignedPatients(ctx context.Context, role domainauth.Role, recordID int64) ([]care.AssignedPatient, error) {
	var column string
	switch role {
	case domainauth.RoleDoctor:
		column = "doctor_id"
	case domainauth.RoleNurse:
		column = "nurse_id"
	case domainauth.RolePatient, domainauth.RoleAdmin:
		return nil, apperrors.Validationf("role %s has no assigned patients", role)
	default:
		return nil, fmt.Errorf("%w: %q", domainauth.ErrUnknownRole, string(role))
	}

	query := fmt.Sprintf(`
		SELECT p.id AS patient_id, i.id::text AS identity_id, i.display_name AS name, i.email, p.created_at AS since
		FROM patients p
		JOIN identities i ON i.id = p.auth_id
		WHERE p.%s = $1
		ORDER BY i.display_name, p.id`, column)

	var rows []assignedPatientRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		res, qerr := conn.Query(ctx, query, recordID)
		if qerr != nil {
			return qerr
		}
		rows, qerr = pgx.CollectRows(res, pgx.RowToStructByName[assignedPatientRow])
		return qerr
	})
	if err != nil {
		return nil, fmt.Errorf("list assigned patients: %w", apperrors.MapDBError(err))
	}

	out := make([]care.AssignedPatient, len(rows))
	for i, row := range rows {
		out[i] = care.AssignedPatient(row)
	}
	return out, nil
}

type prescriptionRow struct {
	ID           int64     `db:"id"`
	Medication   string    `db:"medication"`
	Dosage       string    `db:"dosage"`
	PrescribedBy string    `db:"prescribed_by"`
	CreatedAt    time.Time `db:"created_at"`
}

// ListPrescriptions lists a patient's prescriptions, newest first.
func (r *RoleDirectoryRepo) ListPrescriptions(ctx context.Context, patientID int64) ([]care.Prescription, error) {
	var rows []prescriptionRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		res, qerr := conn.Query(ctx, `
			SELECT rx.id, m.name AS medication, rx.dosage, i.display_name AS prescribed_by, rx.created_at
			FROM prescriptions rx
			JOIN medications m ON m.id = rx.medication_id
			JOIN doctors d ON d.id = rx.prescribed_by
			JOIN identities i ON i.id = d.auth_id
			WHERE rx.prescribed_to = $1
			ORDER BY rx.created_at DESC, rx.id DESC`, patientID)
		if qerr != nil {
			return qerr
		}
		rows, qerr = pgx.CollectRows(res, pgx.RowToStructByName[prescriptionRow])
		return qerr
	})
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", apperrors.MapDBError(err))
	}

	out := make([]care.Prescription, len(rows))
	for i, row := range rows {
		out[i] = care.Prescription(row)
	}
	return out, nil
}

// CareTeam resolves the doctor and nurse assigned to patient. Unassigned or
// dangling references leave the corresponding member nil.
func (r *RoleDirectoryRepo) CareTeam(ctx context.Context, patient domainauth.RoleRecord) (care.CareTeam, error) {
	var team care.CareTeam
	var err error
	if patient.DoctorID != nil {
		if team.Doctor, err = r.clinician(ctx, "doctors", *patient.DoctorID); err != nil {
			return care.CareTeam{}, err
		}
	}
	if patient.NurseID != nil {
		if team.Nurse, err = r.clinician(ctx, "nurses", *patient.NurseID); err != nil {
			return care.CareTeam{}, err
		}
	}
	return team, nil
}

func (r *RoleDirectoryRepo) clinician(ctx context.Context, table string, id int64) (*care.Clinician, error) {
	c := care.Clinician{RecordID: id}
	err := r.DB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT i.display_name, i.email FROM %s t JOIN identities i ON i.id = t.auth_id WHERE t.id = $1`, table),
		id,
	).Scan(&c.Name, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get care team member: %w", apperrors.MapDBError(err))
	}
	return &c, nil
}
