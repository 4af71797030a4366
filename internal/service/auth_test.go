package service

import (
	"context"
	"errors"
	"testing"
	"time"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	apperrors "github.com/fakehospital/portal/internal/errors"
	"github.com/fakehospital/portal/internal/mocks"
	authmocks "github.com/fakehospital/portal/internal/mocks/auth"
	"github.com/fakehospital/portal/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authFixture struct {
	svc        *AuthService
	identities *authmocks.MemoryIdentityStore
	directory  *authmocks.MemoryRoleDirectory
	tokens     *authmocks.MemorySessionStore
	now        time.Time
}

func newAuthFixture(t *testing.T, provider ports.AuthProvider) *authFixture {
	t.Helper()
	f := &authFixture{
		identities: authmocks.NewMemoryIdentityStore(),
		directory:  authmocks.NewMemoryRoleDirectory(),
		tokens:     authmocks.NewMemorySessionStore(),
		now:        time.Now().UTC().Truncate(time.Second),
	}
	f.identities.Directory = f.directory
	svc, err := NewAuthService(AuthServiceOptions{
		Stores:   AuthStores{Identities: f.identities, Tokens: f.tokens},
		Security: AuthSecurity{Hasher: authmocks.PlainHasher{}, Provider: provider},
		Config:   AuthConfig{Now: func() time.Time { return f.now }},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *authFixture) seed(email string, role domainauth.Role, password string) domainauth.Identity {
	ident := domainauth.Identity{ID: "id-" + email, Email: email, DisplayName: "Seeded", Role: role, CreatedAt: f.now}
	f.identities.Put(ident, "hash:"+password)
	return ident
}

func TestNewAuthService_RequiredDependencies(t *testing.T) {
	_, err := NewAuthService(AuthServiceOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IdentityStore is required")

	_, err = NewAuthService(AuthServiceOptions{Stores: AuthStores{Identities: authmocks.NewMemoryIdentityStore()}})
	assert.Contains(t, err.Error(), "SessionStore is required")

	assert.Panics(t, func() { MustNewAuthService(AuthServiceOptions{}) })
}

func TestAuthService_SignUp_CreatesPatientWithRecord(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	ident, err := f.svc.SignUp(ctx, SignUpInput{
		FirstName: "Pat", LastName: "<b>Lee</b>", Email: " Pat.Lee@Example.com ", Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RolePatient, ident.Role)
	assert.Equal(t, "pat.lee@example.com", ident.Email)
	assert.Equal(t, "Pat Lee", ident.DisplayName)

	rec, err := f.directory.GetRoleRecord(ctx, domainauth.RolePatient, ident.ID)
	require.NoError(t, err)
	assert.NotNil(t, rec, "sign-up creates the patient record")
	assert.Zero(t, f.tokens.Len(), "sign-up does not sign in")

	hash, err := f.identities.CredentialHash(ctx, ident.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash:secret123", hash)
}

func TestAuthService_SignUp_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.seed("taken@example.com", domainauth.RolePatient, "pw")

	_, err := f.svc.SignUp(context.Background(), SignUpInput{FirstName: "Pat", LastName: "Lee", Email: "TAKEN@example.com", Password: "secret123"})
	require.ErrorIs(t, err, domainauth.ErrDuplicateEmail)
	assert.NotErrorIs(t, err, domainauth.ErrProvisioningFailure)
}

func TestAuthService_SignUp_OtherFailure(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.identities.CreateErr = errors.New("connection reset")

	_, err := f.svc.SignUp(context.Background(), SignUpInput{FirstName: "Pat", LastName: "Lee", Email: "new@example.com", Password: "secret123"})
	require.ErrorIs(t, err, domainauth.ErrProvisioningFailure)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAuthService_SignUp_ValidatesSanitizedNames(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, err := f.svc.SignUp(context.Background(), SignUpInput{
		FirstName: "<script>alert(1)</script>", LastName: "Lee", Email: "pat@example.com", Password: "secret123",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "firstName", apperrors.GetField(err))

	_, err = f.svc.SignUp(context.Background(), SignUpInput{
		FirstName: "Pat", LastName: "Lee", Email: "pat@example.com", Password: "letters-only",
	})
	assert.Equal(t, "password", apperrors.GetField(err))

	_, err = f.identities.GetByEmail(context.Background(), "pat@example.com")
	assert.Error(t, err, "nothing is stored for rejected input")
}

func TestAuthService_SignIn_Success(t *testing.T) {
	f := newAuthFixture(t, nil)
	doc := f.seed("doc@fakehospital.com", domainauth.RoleDoctor, "correct horse")

	res, err := f.svc.SignIn(context.Background(), "Doc@FakeHospital.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, res.Identity.ID)
	assert.Equal(t, "/doctors", res.Destination)
	assert.Equal(t, f.now.Add(DefaultTokenLifetime), res.Token.ExpiresAt)
	assert.Len(t, res.Token.Token, 36)

	stored, err := f.tokens.Get(context.Background(), res.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, stored.IdentityID)
}

func TestAuthService_SignIn_GenericFailure(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.seed("nurse@fakehospital.com", domainauth.RoleNurse, "right")

	for _, tc := range []struct{ email, password string }{
		{"nurse@fakehospital.com", "wrong"},
		{"nobody@fakehospital.com", "right"},
		{"", "right"},
		{"nurse@fakehospital.com", ""},
	} {
		_, err := f.svc.SignIn(context.Background(), tc.email, tc.password)
		assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials, "email=%q", tc.email)
	}
	assert.Zero(t, f.tokens.Len())
}

func TestAuthService_SignIn_UnknownEmailStillComparesAHash(t *testing.T) {
	ctrl := gomock.NewController(t)
	hasher := mocks.NewMockPasswordHasher(ctrl)
	hasher.EXPECT().Hash(gomock.Any()).Return("decoy-hash", nil).Times(1)
	hasher.EXPECT().Compare("decoy-hash", "guess").Return(false).Times(2)

	svc := MustNewAuthService(AuthServiceOptions{
		Stores:   AuthStores{Identities: authmocks.NewMemoryIdentityStore(), Tokens: authmocks.NewMemorySessionStore()},
		Security: AuthSecurity{Hasher: hasher},
	})
	for range 2 {
		_, err := svc.SignIn(context.Background(), "ghost@fakehospital.com", "guess")
		assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	}
}

func TestAuthService_SignIn_StoreFailureIsTransient(t *testing.T) {
	ctrl := gomock.NewController(t)
	identities := mocks.NewMockIdentityStore(ctrl)
	identities.EXPECT().GetByEmail(gomock.Any(), "a@b.co").Return(domainauth.Identity{}, errors.New("db down"))

	svc := MustNewAuthService(AuthServiceOptions{
		Stores:   AuthStores{Identities: identities, Tokens: authmocks.NewMemorySessionStore()},
		Security: AuthSecurity{Hasher: authmocks.PlainHasher{}},
	})
	_, err := svc.SignIn(context.Background(), "a@b.co", "pw")
	require.ErrorIs(t, err, domainauth.ErrTransientLookup)
	assert.NotErrorIs(t, err, domainauth.ErrInvalidCredentials)
}

func TestAuthService_SignIn_TokenSaveFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := mocks.NewMockSessionStore(ctrl)
	tokens.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	identities := authmocks.NewMemoryIdentityStore()
	identities.Put(domainauth.Identity{ID: "id-1", Email: "a@b.co", Role: domainauth.RoleAdmin}, "hash:pw")

	svc := MustNewAuthService(AuthServiceOptions{
		Stores:   AuthStores{Identities: identities, Tokens: tokens},
		Security: AuthSecurity{Hasher: authmocks.PlainHasher{}},
	})
	_, err := svc.SignIn(context.Background(), "a@b.co", "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save auth token")
}

func TestAuthService_LookupToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	ident := f.seed("admin@fakehospital.com", domainauth.RoleAdmin, "pw")

	res, err := f.svc.SignIn(ctx, ident.Email, "pw")
	require.NoError(t, err)

	got, exp, err := f.svc.LookupToken(ctx, res.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, ident.ID, got.ID)
	assert.Equal(t, res.Token.ExpiresAt, exp)

	_, _, err = f.svc.LookupToken(ctx, "")
	assert.ErrorIs(t, err, domainauth.ErrAuthenticationAbsent)
	_, _, err = f.svc.LookupToken(ctx, "unknown")
	assert.ErrorIs(t, err, domainauth.ErrAuthenticationAbsent)

	f.now = res.Token.ExpiresAt
	_, _, err = f.svc.LookupToken(ctx, res.Token.Token)
	assert.ErrorIs(t, err, domainauth.ErrAuthenticationAbsent)
}

func TestAuthService_LookupToken_OrphanedTokenIsRevoked(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.tokens.Save(ctx, domainauth.AuthToken{
		Token: "orphan", IdentityID: "gone", ExpiresAt: time.Now().Add(time.Hour),
	}))

	_, _, err := f.svc.LookupToken(ctx, "orphan")
	require.ErrorIs(t, err, domainauth.ErrAuthenticationAbsent)
	assert.Zero(t, f.tokens.Len())
}

func TestAuthService_LookupToken_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := mocks.NewMockSessionStore(ctrl)
	tokens.EXPECT().Get(gomock.Any(), "tok").Return(domainauth.AuthToken{}, errors.New("i/o timeout"))

	svc := MustNewAuthService(AuthServiceOptions{
		Stores:   AuthStores{Identities: authmocks.NewMemoryIdentityStore(), Tokens: tokens},
		Security: AuthSecurity{Hasher: authmocks.PlainHasher{}},
	})
	_, _, err := svc.LookupToken(context.Background(), "tok")
	require.ErrorIs(t, err, domainauth.ErrTransientLookup)
}

func TestAuthService_SignOut(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	f.seed("p@example.com", domainauth.RolePatient, "pw")
	res, err := f.svc.SignIn(ctx, "p@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, f.svc.SignOut(ctx, res.Token.Token))
	_, _, err = f.svc.LookupToken(ctx, res.Token.Token)
	assert.ErrorIs(t, err, domainauth.ErrAuthenticationAbsent)
	assert.NoError(t, f.svc.SignOut(ctx, ""))
}

func TestAuthService_SSO_Disabled(t *testing.T) {
	f := newAuthFixture(t, nil)
	assert.False(t, f.svc.SSOEnabled())

	_, err := f.svc.BeginLogin(context.Background(), "http://localhost/auth/callback")
	assert.ErrorIs(t, err, ErrSSODisabled)
	_, err = f.svc.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
	assert.ErrorIs(t, err, ErrSSODisabled)
}

func TestAuthService_BeginLogin(t *testing.T) {
	f := newAuthFixture(t, authmocks.NewMockAuthProvider())

	res, err := f.svc.BeginLogin(context.Background(), "http://localhost/auth/callback")
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", res.AuthURL)
	assert.Equal(t, "state-1", res.State)
	assert.Equal(t, "nonce-1", res.Nonce)

	_, err = f.svc.BeginLogin(context.Background(), "")
	assert.Error(t, err)
}

func TestAuthService_CompleteLogin_MatchesExistingIdentity(t *testing.T) {
	provider := authmocks.NewMockAuthProvider()
	f := newAuthFixture(t, provider)
	doc := f.seed("mock.doctor@example.com", domainauth.RoleDoctor, "unused")

	res, err := f.svc.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, res.Identity.ID)
	assert.Equal(t, "/doctors", res.Destination)
	assert.Equal(t, 1, f.tokens.Len())
}

func TestAuthService_CompleteLogin_UnknownEmailRejected(t *testing.T) {
	f := newAuthFixture(t, authmocks.NewMockAuthProvider())

	_, err := f.svc.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
	require.ErrorIs(t, err, domainauth.ErrAuthenticationAbsent)
	assert.Zero(t, f.tokens.Len())
	_, lookupErr := f.identities.GetByEmail(context.Background(), "mock.doctor@example.com")
	assert.True(t, apperrors.IsNotFound(lookupErr), "SSO never creates identities")
}

func TestAuthService_CompleteLogin_MissingParams(t *testing.T) {
	f := newAuthFixture(t, authmocks.NewMockAuthProvider())
	for _, in := range []CompleteLoginInput{
		{State: "s", Nonce: "n"},
		{Code: "c", Nonce: "n"},
		{Code: "c", State: "s"},
	} {
		_, err := f.svc.CompleteLogin(context.Background(), in)
		assert.Error(t, err)
	}
}

func TestAuthService_CompleteLogin_ExchangeError(t *testing.T) {
	provider := &authmocks.MockAuthProvider{
		ExchangeFunc: func(context.Context, ports.ExchangeInput) (domainauth.ProviderIdentity, error) {
			return domainauth.ProviderIdentity{}, errors.New("state mismatch")
		},
	}
	f := newAuthFixture(t, provider)
	_, err := f.svc.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange authorization code")
}
