package ports

// Package ports defines interfaces (hexagonal ports) for identity, session, and role behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/fakehospital/portal/internal/domain/care"
)

// BeginInput carries inputs for initiating an SSO flow.
type BeginInput struct {
	RedirectURL string
}

// AuthProvider initiates and completes an SSO flow against an IdP.
type AuthProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the authenticated principal.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.ProviderIdentity, error)
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// SessionStore persists opaque authentication tokens.
type SessionStore interface {
	Save(ctx context.Context, tok domainauth.AuthToken) error
	Get(ctx context.Context, token string) (domainauth.AuthToken, error)
	Delete(ctx context.Context, token string) error
}

// SessionCache holds enriched sessions keyed by authentication token.
// Get reports a miss with ok=false and a nil error.
type SessionCache interface {
	Get(ctx context.Context, token string) (sess *domainauth.Session, ok bool, err error)
	Set(ctx context.Context, sess domainauth.Session, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}

// IdentityStore is the source of truth for identities and their credentials.
type IdentityStore interface {
	// Create inserts the identity, its credential account, and its role record atomically.
	// A duplicate email yields a conflict error on the "email" field.
	Create(ctx context.Context, in domainauth.NewIdentity) (domainauth.Identity, error)
	GetByID(ctx context.Context, id string) (domainauth.Identity, error)
	GetByEmail(ctx context.Context, email string) (domainauth.Identity, error)
	CredentialHash(ctx context.Context, identityID string) (string, error)
	ListByRoles(ctx context.Context, roles []domainauth.Role, limit int) ([]domainauth.Identity, error)
}

// RoleDirectory reads the per-role directory tables and the care data hanging off them.
type RoleDirectory interface {
	// GetRoleRecord returns (nil, nil) when the identity has no row for role.
	GetRoleRecord(ctx context.Context, role domainauth.Role, identityID string) (*domainauth.RoleRecord, error)
	// ListAssignedPatients lists patients whose doctor_id or nurse_id (per role) equals recordID.
	ListAssignedPatients(ctx context.Context, role domainauth.Role, recordID int64) ([]care.AssignedPatient, error)
	ListPrescriptions(ctx context.Context, patientID int64) ([]care.Prescription, error)
	CareTeam(ctx context.Context, patient domainauth.RoleRecord) (care.CareTeam, error)
}

// TokenSigner mints the downstream data-service credential.
type TokenSigner interface {
	Sign(ctx context.Context, identityID, email string) (string, error)
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}
