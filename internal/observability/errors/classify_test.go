package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"wrapped sentinel", fmt.Errorf("resolve: %w", domainauth.ErrRoleMismatch), "role_mismatch"},
		{"joined transient", errors.Join(domainauth.ErrTransientLookup, errors.New("dial tcp")), "transient_lookup"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), "timeout"},
		{"pg error type", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "XX000"}), "pgconn_pgerror"},
		{"plain", errors.New("boom"), "errors_errorstring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
