package ports_test

import (
	"testing"

	"github.com/fakehospital/portal/internal/adapters/devauth"
	"github.com/fakehospital/portal/internal/adapters/jwtsigner"
	"github.com/fakehospital/portal/internal/adapters/oidc"
	"github.com/fakehospital/portal/internal/adapters/passhash"
	redisadapter "github.com/fakehospital/portal/internal/adapters/redis"
	"github.com/fakehospital/portal/internal/data"
	mocks "github.com/fakehospital/portal/internal/mocks/auth"
	"github.com/fakehospital/portal/internal/ports"
)

// Compile-time conformance of the production adapters and the test doubles.
func TestImplementationsSatisfyPorts(t *testing.T) {
	t.Helper()

	var _ ports.IdentityStore = (*data.IdentityRepo)(nil)
	var _ ports.RoleDirectory = (*data.RoleDirectoryRepo)(nil)
	var _ ports.SessionStore = (*redisadapter.SessionStore)(nil)
	var _ ports.SessionCache = (*redisadapter.SessionCache)(nil)
	var _ ports.TokenSigner = (*jwtsigner.Signer)(nil)
	var _ ports.PasswordHasher = (*passhash.Bcrypt)(nil)
	var _ ports.AuthProvider = (*oidc.Provider)(nil)
	var _ ports.AuthProvider = (*devauth.Provider)(nil)

	var _ ports.AuthProvider = (*mocks.MockAuthProvider)(nil)
	var _ ports.SessionStore = (*mocks.MemorySessionStore)(nil)
	var _ ports.IdentityStore = (*mocks.MemoryIdentityStore)(nil)
}
