package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/fakehospital/portal/internal/domain/care"
	"github.com/fakehospital/portal/internal/ports"
)

// CredentialClearAfter is how long the provisioning page keeps a generated
// credential on screen before clearing it.
const CredentialClearAfter = 10 * time.Second

// StaffConfig carries the credential source and observability hooks.
type StaffConfig struct {
	// Credentials defaults to GenerateCredential.
	Credentials CredentialGenerator
	Obs         Observability
}

// StaffServiceOptions groups dependencies for StaffService.
type StaffServiceOptions struct {
	Identities ports.IdentityStore
	Hasher     ports.PasswordHasher
	Config     StaffConfig
}

// StaffService provisions doctor, nurse, and admin accounts. It performs no
// authorization of its own; routes that reach it are admin-only.
type StaffService struct {
	identities  ports.IdentityStore
	hasher      ports.PasswordHasher
	credentials CredentialGenerator
	obs         Observability
}

// NewStaffService constructs a StaffService.
func NewStaffService(opts StaffServiceOptions) (*StaffService, error) {
	if opts.Identities == nil {
		return nil, errors.New("IdentityStore is required")
	}
	if opts.Hasher == nil {
		return nil, errors.New("PasswordHasher is required")
	}
	gen := opts.Config.Credentials
	if gen == nil {
		gen = GenerateCredential
	}
	return &StaffService{
		identities:  opts.Identities,
		hasher:      opts.Hasher,
		credentials: gen,
		obs:         opts.Config.Obs,
	}, nil
}

// MustNewStaffService is NewStaffService that panics on error.
func MustNewStaffService(opts StaffServiceOptions) *StaffService {
	s, err := NewStaffService(opts)
	if err != nil {
		panic(err)
	}
	return s
}

// StaffInput is a provisioning request.
type StaffInput struct {
	FirstName string
	LastName  string
	Email     string
	Role      domainauth.Role
}

// ProvisionResult is the created identity and the one-time credential applied to it.
type ProvisionResult struct {
	Identity   domainauth.Identity
	Credential string
	ClearAfter time.Duration
}

// Provision validates in with ValidateStaffInput, then creates the identity,
// credential account, and role record in one transaction. The returned
// credential is the account's password and is shown exactly once.
func (s *StaffService) Provision(ctx context.Context, in StaffInput) (*ProvisionResult, error) {
	rec := s.obs.recorder()
	in.Role = domainauth.Role(strings.ToLower(strings.TrimSpace(string(in.Role))))
	if err := firstFieldError(ValidateStaffInput(in)); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)

	credential, err := s.credentials()
	if err != nil {
		rec.StaffProvisioned(string(in.Role), "error")
		return nil, fmt.Errorf("%w: %w", domainauth.ErrProvisioningFailure, err)
	}
	hash, err := s.hasher.Hash(credential)
	if err != nil {
		rec.StaffProvisioned(string(in.Role), "error")
		return nil, fmt.Errorf("%w: %w", domainauth.ErrProvisioningFailure, err)
	}

	ident, err := s.identities.Create(ctx, domainauth.NewIdentity{
		Email:          email,
		DisplayName:    displayName(in.FirstName, in.LastName),
		Role:           in.Role,
		CredentialHash: hash,
	})
	if err != nil {
		err = classifyCreateError(err)
		if errors.Is(err, domainauth.ErrDuplicateEmail) {
			rec.StaffProvisioned(string(in.Role), "duplicate")
		} else {
			rec.StaffProvisioned(string(in.Role), "error")
		}
		return nil, err
	}

	rec.StaffProvisioned(string(in.Role), "success")
	s.obs.logger("staff").InfoContext(ctx, "staff member provisioned",
		"identity_id", ident.ID, "role", string(ident.Role))
	return &ProvisionResult{Identity: ident, Credential: credential, ClearAfter: CredentialClearAfter}, nil
}

// DefaultStaffListLimit caps the admin staff overview.
const DefaultStaffListLimit = 25

// ListStaff returns the most recently created staff identities.
func (s *StaffService) ListStaff(ctx context.Context, limit int) ([]care.StaffMember, error) {
	if limit <= 0 {
		limit = DefaultStaffListLimit
	}
	idents, err := s.identities.ListByRoles(ctx, domainauth.StaffRoles(), limit)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	out := make([]care.StaffMember, len(idents))
	for i, ident := range idents {
		out[i] = care.StaffMember{
			IdentityID: ident.ID,
			Name:       ident.DisplayName,
			Email:      ident.Email,
			Role:       ident.Role,
			CreatedAt:  ident.CreatedAt,
		}
	}
	return out, nil
}
