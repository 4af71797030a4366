package testutil

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/google/uuid"
)

// IdentityFixture is an identity row plus its role record id.
type IdentityFixture struct {
	ID       string
	Email    string
	Name     string
	Role     domainauth.Role
	RecordID int64
}

// IdentityBuilder inserts identities with a role record directly, bypassing the
// repository so repository tests start from known rows.
type IdentityBuilder struct {
	f            IdentityFixture
	passwordHash string
	skipRecord   bool
}

// NewIdentity starts a patient fixture with a random email.
func NewIdentity() *IdentityBuilder {
	id := uuid.NewString()
	return &IdentityBuilder{
		f: IdentityFixture{
			ID:    id,
			Email: "user-" + id[:8] + "@example.com",
			Name:  "Test User",
			Role:  domainauth.RolePatient,
		},
		passwordHash: "x",
	}
}

// WithEmail sets the email.
func (b *IdentityBuilder) WithEmail(email string) *IdentityBuilder {
	b.f.Email = strings.ToLower(email)
	return b
}

// WithName sets the display name.
func (b *IdentityBuilder) WithName(name string) *IdentityBuilder {
	b.f.Name = name
	return b
}

// WithRole sets the role.
func (b *IdentityBuilder) WithRole(role domainauth.Role) *IdentityBuilder {
	b.f.Role = role
	return b
}

// WithPasswordHash sets the stored credential hash.
func (b *IdentityBuilder) WithPasswordHash(hash string) *IdentityBuilder {
	b.passwordHash = hash
	return b
}

// WithoutRoleRecord leaves the role directory empty for this identity.
func (b *IdentityBuilder) WithoutRoleRecord() *IdentityBuilder {
	b.skipRecord = true
	return b
}

// Insert writes the fixture and returns it with RecordID filled in.
func (b *IdentityBuilder) Insert(t TestingTB, db *sql.DB) IdentityFixture {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx,
		`INSERT INTO identities (id, email, display_name, role) VALUES ($1, $2, $3, $4)`,
		b.f.ID, b.f.Email, b.f.Name, string(b.f.Role),
	); err != nil {
		t.Fatalf("insert identity %s: %v", b.f.Email, err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO credentials (identity_id, password_hash) VALUES ($1, $2)`,
		b.f.ID, b.passwordHash,
	); err != nil {
		t.Fatalf("insert credential %s: %v", b.f.Email, err)
	}
	if b.skipRecord {
		return b.f
	}
	table, err := b.f.Role.DirectoryTable()
	if err != nil {
		t.Fatalf("fixture role: %v", err)
	}
	if err := db.QueryRowContext(ctx,
		`INSERT INTO `+table+` (auth_id) VALUES ($1) RETURNING id`, b.f.ID,
	).Scan(&b.f.RecordID); err != nil {
		t.Fatalf("insert %s record: %v", b.f.Role, err)
	}
	return b.f
}

// AssignCareTeam points a patient record at a doctor and/or nurse record. Zero ids are left NULL.
func AssignCareTeam(t TestingTB, db *sql.DB, patientRecordID, doctorRecordID, nurseRecordID int64) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(),
		`UPDATE patients SET doctor_id = NULLIF($2, 0), nurse_id = NULLIF($3, 0) WHERE id = $1`,
		patientRecordID, doctorRecordID, nurseRecordID,
	); err != nil {
		t.Fatalf("assign care team: %v", err)
	}
}

// InsertPrescription creates the medication if needed and prescribes it.
func InsertPrescription(t TestingTB, db *sql.DB, doctorRecordID, patientRecordID int64, medication, dosage string) int64 {
	t.Helper()
	ctx := context.Background()
	var medID int64
	if err := db.QueryRowContext(ctx, `
		INSERT INTO medications (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, medication,
	).Scan(&medID); err != nil {
		t.Fatalf("insert medication: %v", err)
	}
	var id int64
	if err := db.QueryRowContext(ctx, `
		INSERT INTO prescriptions (prescribed_by, prescribed_to, medication_id, dosage)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		doctorRecordID, patientRecordID, medID, dosage,
	).Scan(&id); err != nil {
		t.Fatalf("insert prescription: %v", err)
	}
	return id
}

// TestTime returns a fixed instant for tests.
func TestTime() time.Time {
	return time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
}
