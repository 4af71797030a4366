package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fakehospital/portal/internal/data/pgxutil"
	apperrors "github.com/fakehospital/portal/internal/errors"
)

// CareRepo writes care-team assignments and prescriptions. Reads go through
// RoleDirectoryRepo.
type CareRepo struct {
	DB *sql.DB
}

// NewCareRepo creates a new CareRepo.
func NewCareRepo(db *sql.DB) *CareRepo {
	return &CareRepo{DB: db}
}

// AssignCareTeam points a patient record at a doctor and nurse record. A zero
// id clears that assignment.
func (r *CareRepo) AssignCareTeam(ctx context.Context, patientID, doctorID, nurseID int64) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE patients SET doctor_id = NULLIF($2, 0), nurse_id = NULLIF($3, 0) WHERE id = $1`,
		patientID, doctorID, nurseID,
	)
	if err != nil {
		return fmt.Errorf("assign care team: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("assign care team: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("patient record not found")
	}
	return nil
}

// PrescribeRequest describes one prescription.
type PrescribeRequest struct {
	DoctorID   int64
	PatientID  int64
	Medication string
	Dosage     string
}

// Prescribe records a prescription, creating the medication on first use.
func (r *CareRepo) Prescribe(ctx context.Context, req PrescribeRequest) (int64, error) {
	name := strings.TrimSpace(req.Medication)
	if name == "" {
		return 0, apperrors.ValidationField("medication", "medication is required")
	}

	var id int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		var medID int64
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO medications (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, name,
		).Scan(&medID); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO prescriptions (prescribed_by, prescribed_to, medication_id, dosage)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			req.DoctorID, req.PatientID, medID, strings.TrimSpace(req.Dosage),
		).Scan(&id)
	}})
	if err != nil {
		return 0, fmt.Errorf("prescribe: %w", apperrors.MapDBError(err))
	}
	return id, nil
}
