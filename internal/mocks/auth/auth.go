package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/fakehospital/portal/internal/domain/care"
	apperrors "github.com/fakehospital/portal/internal/errors"
	"github.com/fakehospital/portal/internal/ports"
	"github.com/google/uuid"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider   = (*MockAuthProvider)(nil)
	_ ports.SessionStore   = (*MemorySessionStore)(nil)
	_ ports.SessionCache   = (*MemorySessionCache)(nil)
	_ ports.IdentityStore  = (*MemoryIdentityStore)(nil)
	_ ports.RoleDirectory  = (*MemoryRoleDirectory)(nil)
	_ ports.TokenSigner    = StaticSigner{}
	_ ports.PasswordHasher = PlainHasher{}
)

// MockAuthProvider simulates an IdP for tests with deterministic state/nonce handling.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.ProviderIdentity, error)

	// Deterministic values for predictable testing
	AuthURL     string
	StatePrefix string
	NoncePrefix string
	DefaultUser domainauth.ProviderIdentity

	callCount int
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL:     "https://mock-idp/auth",
		StatePrefix: "state",
		NoncePrefix: "nonce",
		DefaultUser: domainauth.ProviderIdentity{
			Subject:   "mock-user-1",
			FirstName: "Mock",
			LastName:  "Doctor",
			Email:     "mock.doctor@example.com",
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	m.callCount++
	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	statePrefix := m.StatePrefix
	if statePrefix == "" {
		statePrefix = "state"
	}
	noncePrefix := m.NoncePrefix
	if noncePrefix == "" {
		noncePrefix = "nonce"
	}

	return authURL, fmt.Sprintf("%s-%d", statePrefix, m.callCount), fmt.Sprintf("%s-%d", noncePrefix, m.callCount), nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.ProviderIdentity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}

	user := m.DefaultUser
	if user.Subject == "" {
		user = domainauth.ProviderIdentity{
			Subject:   "mock-user-1",
			FirstName: "Mock",
			LastName:  "Doctor",
			Email:     "mock.doctor@example.com",
		}
	}
	user.ExpiresAt = time.Now().Add(time.Hour)
	return user, nil
}

// MemorySessionStore is an in-memory auth token store for unit tests.
type MemorySessionStore struct {
	mu     sync.Mutex
	tokens map[string]domainauth.AuthToken
	// SaveErr, when non-nil, is returned from Save.
	SaveErr error
}

// NewMemorySessionStore creates a new in-memory token store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{tokens: make(map[string]domainauth.AuthToken)}
}

func (m *MemorySessionStore) Save(_ context.Context, tok domainauth.AuthToken) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if tok.Token == "" {
		return errors.New("auth token cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tok.Token] = tok
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, token string) (domainauth.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[token]
	if !ok || tok.Expired(time.Now()) {
		return domainauth.AuthToken{}, ErrNotFound
	}
	return tok, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

// Len reports how many tokens are stored.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// MemorySessionCache is an in-memory session cache. It records the TTL of the
// last Set per token so tests can assert on it.
type MemorySessionCache struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
	TTLs     map[string]time.Duration
	// SetErr, when non-nil, is returned from every Set.
	SetErr error
}

// NewMemorySessionCache creates an empty cache.
func NewMemorySessionCache() *MemorySessionCache {
	return &MemorySessionCache{
		sessions: make(map[string]domainauth.Session),
		TTLs:     make(map[string]time.Duration),
	}
}

func (c *MemorySessionCache) Get(_ context.Context, token string) (*domainauth.Session, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[token]
	if !ok {
		return nil, false, nil
	}
	return &sess, true, nil
}

func (c *MemorySessionCache) Set(_ context.Context, sess domainauth.Session, ttl time.Duration) error {
	if c.SetErr != nil {
		return c.SetErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[sess.Token] = sess
	c.TTLs[sess.Token] = ttl
	return nil
}

func (c *MemorySessionCache) Delete(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, token)
	delete(c.TTLs, token)
	return nil
}

// MemoryIdentityStore keeps identities and credential hashes in memory.
// When Directory is set, Create also inserts the role record there.
type MemoryIdentityStore struct {
	mu         sync.Mutex
	identities map[string]domainauth.Identity
	hashes     map[string]string
	Directory  *MemoryRoleDirectory
	// CreateErr, when non-nil, is returned from Create.
	CreateErr error
}

// NewMemoryIdentityStore creates an empty identity store.
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{
		identities: make(map[string]domainauth.Identity),
		hashes:     make(map[string]string),
	}
}

func (s *MemoryIdentityStore) Create(_ context.Context, in domainauth.NewIdentity) (domainauth.Identity, error) {
	if s.CreateErr != nil {
		return domainauth.Identity{}, s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(in.Email))
	for _, existing := range s.identities {
		if existing.Email == email {
			return domainauth.Identity{}, &apperrors.AppError{Code: apperrors.ErrCodeConflict, Message: "email already exists", Field: "email"}
		}
	}

	now := time.Now().UTC()
	ident := domainauth.Identity{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: in.DisplayName,
		Role:        in.Role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.identities[ident.ID] = ident
	s.hashes[ident.ID] = in.CredentialHash
	if s.Directory != nil {
		s.Directory.AddRecord(domainauth.RoleRecord{Role: in.Role, IdentityID: ident.ID, CreatedAt: now})
	}
	return ident, nil
}

// Put inserts ident directly, bypassing duplicate checks.
func (s *MemoryIdentityStore) Put(ident domainauth.Identity, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[ident.ID] = ident
	s.hashes[ident.ID] = hash
}

func (s *MemoryIdentityStore) GetByID(_ context.Context, id string) (domainauth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ident, ok := s.identities[id]
	if !ok {
		return domainauth.Identity{}, apperrors.NotFound("identity not found")
	}
	return ident, nil
}

func (s *MemoryIdentityStore) GetByEmail(_ context.Context, email string) (domainauth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, ident := range s.identities {
		if ident.Email == email {
			return ident, nil
		}
	}
	return domainauth.Identity{}, apperrors.NotFound("identity not found")
}

func (s *MemoryIdentityStore) CredentialHash(_ context.Context, identityID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashes[identityID]
	if !ok || hash == "" {
		return "", apperrors.NotFound("credential not found")
	}
	return hash, nil
}

func (s *MemoryIdentityStore) ListByRoles(_ context.Context, roles []domainauth.Role, limit int) ([]domainauth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[domainauth.Role]bool, len(roles))
	for _, r := range roles {
		want[r] = true
	}
	out := make([]domainauth.Identity, 0)
	for _, ident := range s.identities {
		if want[ident.Role] {
			out = append(out, ident)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoryRoleDirectory serves role records from memory and counts lookups.
type MemoryRoleDirectory struct {
	mu      sync.Mutex
	records map[domainauth.Role]map[string]domainauth.RoleRecord
	nextID  int64
	Calls   int
	// Err, when non-nil, is returned from every lookup.
	Err error

	Patients      map[int64][]care.AssignedPatient
	Prescriptions map[int64][]care.Prescription
	Teams         map[int64]care.CareTeam
}

// NewMemoryRoleDirectory creates an empty directory.
func NewMemoryRoleDirectory() *MemoryRoleDirectory {
	return &MemoryRoleDirectory{
		records:       make(map[domainauth.Role]map[string]domainauth.RoleRecord),
		Patients:      make(map[int64][]care.AssignedPatient),
		Prescriptions: make(map[int64][]care.Prescription),
		Teams:         make(map[int64]care.CareTeam),
	}
}

// AddRecord stores rec, assigning an id when rec.ID is zero. It returns the stored record.
func (d *MemoryRoleDirectory) AddRecord(rec domainauth.RoleRecord) domainauth.RoleRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rec.ID == 0 {
		d.nextID++
		rec.ID = d.nextID
	}
	if d.records[rec.Role] == nil {
		d.records[rec.Role] = make(map[string]domainauth.RoleRecord)
	}
	d.records[rec.Role][rec.IdentityID] = rec
	return rec
}

func (d *MemoryRoleDirectory) GetRoleRecord(_ context.Context, role domainauth.Role, identityID string) (*domainauth.RoleRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls++
	if d.Err != nil {
		return nil, d.Err
	}
	rec, ok := d.records[role][identityID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (d *MemoryRoleDirectory) ListAssignedPatients(_ context.Context, _ domainauth.Role, recordID int64) ([]care.AssignedPatient, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Patients[recordID], nil
}

func (d *MemoryRoleDirectory) ListPrescriptions(_ context.Context, patientID int64) ([]care.Prescription, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Prescriptions[patientID], nil
}

func (d *MemoryRoleDirectory) CareTeam(_ context.Context, patient domainauth.RoleRecord) (care.CareTeam, error) {
	if d.Err != nil {
		return care.CareTeam{}, d.Err
	}
	return d.Teams[patient.ID], nil
}

// StaticSigner returns "signed:<identityID>" or Err.
type StaticSigner struct {
	Err error
}

func (s StaticSigner) Sign(_ context.Context, identityID, _ string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return "signed:" + identityID, nil
}

// PlainHasher stores credentials as "hash:<plain>". Tests only.
type PlainHasher struct{}

func (PlainHasher) Hash(plain string) (string, error) { return "hash:" + plain, nil }

func (PlainHasher) Compare(hash, plain string) bool { return hash == "hash:"+plain }

// ErrNotFound is returned by mocks when an entity is not present.
var ErrNotFound error = apperrors.NotFound("not found")
