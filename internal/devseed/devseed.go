// Package devseed creates a small demo hospital for local development: one
// admin, a doctor, a nurse, and two patients with a care team and prescriptions.
package devseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fakehospital/portal/internal/adapters/passhash"
	"github.com/fakehospital/portal/internal/data"
	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	apperrors "github.com/fakehospital/portal/internal/errors"
	"github.com/fakehospital/portal/internal/ports"
)

// DefaultPassword is the password every seeded account signs in with.
const DefaultPassword = "Portal2025!"

// CareWriter records care-team assignments and prescriptions.
type CareWriter interface {
	AssignCareTeam(ctx context.Context, patientID, doctorID, nurseID int64) error
	Prescribe(ctx context.Context, req data.PrescribeRequest) (int64, error)
}

// Services bundles the dependencies needed for development seeding.
type Services struct {
	Identities ports.IdentityStore
	Directory  ports.RoleDirectory
	Care       CareWriter
	Hasher     ports.PasswordHasher
}

// NewServices constructs the seeding dependencies on db.
func NewServices(db *sql.DB) Services {
	return Services{
		Identities: data.NewIdentityRepo(db),
		Directory:  data.NewRoleDirectoryRepo(db),
		Care:       data.NewCareRepo(db),
		Hasher:     passhash.New(0),
	}
}

// Account is one seeded login.
type Account struct {
	Email string
	Name  string
	Role  domainauth.Role
}

// Demo accounts, in creation order.
var (
	AdminAccount   = Account{Email: "admin@fakehospital.com", Name: "Avery Admin", Role: domainauth.RoleAdmin}
	DoctorAccount  = Account{Email: "dr.grey@fakehospital.com", Name: "Meredith Grey", Role: domainauth.RoleDoctor}
	NurseAccount   = Account{Email: "nurse.joy@fakehospital.com", Name: "Joy Hatake", Role: domainauth.RoleNurse}
	PatientAccount = Account{Email: "pat.lee@example.com", Name: "Pat Lee", Role: domainauth.RolePatient}
	WalkInAccount  = Account{Email: "sam.rivera@example.com", Name: "Sam Rivera", Role: domainauth.RolePatient}
)

// Options tunes Seed.
type Options struct {
	// Password defaults to DefaultPassword.
	Password string
	Logger   *slog.Logger
}

// Result reports what Seed did.
type Result struct {
	Created  []string
	Existing []string
}

type seeded struct {
	record  int64
	created bool
}

// Seed creates the demo accounts that do not exist yet. Care data is only
// written for patients created by this run, so reseeding is safe.
func Seed(ctx context.Context, svcs Services, opts Options) (Result, error) {
	if svcs.Identities == nil || svcs.Directory == nil || svcs.Care == nil || svcs.Hasher == nil {
		return Result{}, errors.New("devseed: all services are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	password := opts.Password
	if password == "" {
		password = DefaultPassword
	}
	hash, err := svcs.Hasher.Hash(password)
	if err != nil {
		return Result{}, fmt.Errorf("devseed: hash password: %w", err)
	}

	var res Result
	accounts := []Account{AdminAccount, DoctorAccount, NurseAccount, PatientAccount, WalkInAccount}
	out := make(map[string]seeded, len(accounts))
	for _, acct := range accounts {
		s, ensureErr := ensureAccount(ctx, svcs, acct, hash)
		if ensureErr != nil {
			return res, ensureErr
		}
		out[acct.Email] = s
		if s.created {
			res.Created = append(res.Created, acct.Email)
		} else {
			res.Existing = append(res.Existing, acct.Email)
		}
	}

	doctor := out[DoctorAccount.Email].record
	nurse := out[NurseAccount.Email].record

	if p := out[PatientAccount.Email]; p.created {
		if err := svcs.Care.AssignCareTeam(ctx, p.record, doctor, nurse); err != nil {
			return res, fmt.Errorf("devseed: assign care team: %w", err)
		}
		for _, rx := range []data.PrescribeRequest{
			{Medication: "Amoxicillin", Dosage: "500mg three times daily"},
			{Medication: "Ibuprofen", Dosage: "200mg as needed"},
		} {
			rx.DoctorID, rx.PatientID = doctor, p.record
			if _, err := svcs.Care.Prescribe(ctx, rx); err != nil {
				return res, fmt.Errorf("devseed: prescribe %s: %w", rx.Medication, err)
			}
		}
	}
	// The walk-in has a doctor but no nurse yet.
	if p := out[WalkInAccount.Email]; p.created {
		if err := svcs.Care.AssignCareTeam(ctx, p.record, doctor, 0); err != nil {
			return res, fmt.Errorf("devseed: assign care team: %w", err)
		}
	}

	logger.InfoContext(ctx, "dev seed complete", "created", len(res.Created), "existing", len(res.Existing))
	return res, nil
}

func ensureAccount(ctx context.Context, svcs Services, acct Account, hash string) (seeded, error) {
	ident, err := svcs.Identities.GetByEmail(ctx, acct.Email)
	created := false
	switch {
	case err == nil:
	case apperrors.IsNotFound(err):
		ident, err = svcs.Identities.Create(ctx, domainauth.NewIdentity{
			Email:          acct.Email,
			DisplayName:    acct.Name,
			Role:           acct.Role,
			CredentialHash: hash,
		})
		if err != nil {
			return seeded{}, fmt.Errorf("devseed: create %s: %w", acct.Email, err)
		}
		created = true
	default:
		return seeded{}, fmt.Errorf("devseed: lookup %s: %w", acct.Email, err)
	}

	rec, err := svcs.Directory.GetRoleRecord(ctx, ident.Role, ident.ID)
	if err != nil {
		return seeded{}, fmt.Errorf("devseed: role record for %s: %w", acct.Email, err)
	}
	if rec == nil {
		return seeded{}, fmt.Errorf("devseed: %s has no %s record", acct.Email, ident.Role)
	}
	return seeded{record: rec.ID, created: created}, nil
}
