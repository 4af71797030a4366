// Package mocks holds gomock mocks for the interfaces in internal/ports.
//
// To regenerate after an interface change, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockIdentityStore(ctrl)
//	store.EXPECT().GetByEmail(gomock.Any(), "dana@fakehospital.com").Return(ident, nil)
//
// Stateful in-memory doubles live in internal/mocks/auth.
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/fakehospital/portal/internal/ports IdentityStore,PasswordHasher,RoleDirectory,SessionCache,SessionStore,TokenSigner
