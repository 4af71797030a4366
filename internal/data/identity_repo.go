package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fakehospital/portal/internal/data/database"
	"github.com/fakehospital/portal/internal/data/pgxutil"
	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	apperrors "github.com/fakehospital/portal/internal/errors"
	"github.com/google/uuid"
)

const identityColumns = `id, email, display_name, email_verified, role, created_at, updated_at`

// IdentityRepo is the PostgreSQL identity store. Identities, credential accounts,
// and role records are written together in one transaction.
type IdentityRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	newID        func() string
}

// NewIdentityRepo creates a new IdentityRepo with real time provider.
func NewIdentityRepo(db *sql.DB) *IdentityRepo {
	return &IdentityRepo{DB: db, timeProvider: RealTimeProvider{}, newID: uuid.NewString}
}

// NewIdentityRepoWithTimeProvider creates an IdentityRepo with a custom time provider (useful for tests).
func NewIdentityRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *IdentityRepo {
	return &IdentityRepo{DB: db, timeProvider: tp, newID: uuid.NewString}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (domainauth.Identity, error) {
	var (
		ident domainauth.Identity
		role  string
	)
	if err := row.Scan(
		&ident.ID,
		&ident.Email,
		&ident.DisplayName,
		&ident.EmailVerified,
		&role,
		&ident.CreatedAt,
		&ident.UpdatedAt,
	); err != nil {
		return domainauth.Identity{}, err
	}
	// Rows are constrained by CHECK (role IN ...); an unknown value falls back to no role
	// so DestinationFor routes the holder to sign-in.
	if r, err := domainauth.ParseRole(role); err == nil {
		ident.Role = r
	}
	return ident, nil
}

// Create inserts the identity, its credential account, and the role record for in.Role.
func (r *IdentityRepo) Create(ctx context.Context, in domainauth.NewIdentity) (domainauth.Identity, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return domainauth.Identity{}, apperrors.ValidationField("email", "email is required")
	}
	role := in.Role
	if role == "" {
		role = domainauth.DefaultRole
	}
	table, err := role.DirectoryTable()
	if err != nil {
		return domainauth.Identity{}, apperrors.ValidationField("role", err.Error())
	}
	if in.CredentialHash == "" {
		return domainauth.Identity{}, apperrors.ValidationField("password", "credential hash is required")
	}

	now := r.timeProvider.Now().UTC()
	var out domainauth.Identity
	err = pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO identities (id, email, display_name, email_verified, role, created_at, updated_at)
			VALUES ($1, $2, $3, FALSE, $4, $5, $5)
			RETURNING `+identityColumns,
			r.newID(), email, strings.TrimSpace(in.DisplayName), string(role), now,
		)
		ident, scanErr := scanIdentity(row)
		if scanErr != nil {
			return scanErr
		}
		if _, execErr := tx.ExecContext(ctx,
			`INSERT INTO credentials (identity_id, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $3)`,
			ident.ID, in.CredentialHash, now,
		); execErr != nil {
			return execErr
		}
		// table comes from the closed Role set, never from input.
		if _, execErr := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (auth_id, created_at) VALUES ($1, $2)`, table),
			ident.ID, now,
		); execErr != nil {
			return execErr
		}
		out = ident
		return nil
	}})
	if err != nil {
		return domainauth.Identity{}, apperrors.MapDBError(err)
	}
	return out, nil
}

// GetByID retrieves an identity by id.
func (r *IdentityRepo) GetByID(ctx context.Context, id string) (domainauth.Identity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domainauth.Identity{}, ErrIdentityNotFound
	}
	row := r.DB.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return r.scanOne(row)
}

// GetByEmail retrieves an identity by case-insensitive email.
func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (domainauth.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domainauth.Identity{}, ErrIdentityNotFound
	}
	row := r.DB.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)
	return r.scanOne(row)
}

func (r *IdentityRepo) scanOne(row *sql.Row) (domainauth.Identity, error) {
	ident, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domainauth.Identity{}, ErrIdentityNotFound
	}
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("get identity: %w", apperrors.MapDBError(err))
	}
	return ident, nil
}

// CredentialHash returns the stored credential hash for identityID.
func (r *IdentityRepo) CredentialHash(ctx context.Context, identityID string) (string, error) {
	var hash string
	err := r.DB.QueryRowContext(ctx,
		`SELECT password_hash FROM credentials WHERE identity_id = $1`, identityID,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrCredentialNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get credential: %w", apperrors.MapDBError(err))
	}
	return hash, nil
}

// ListByRoles lists the most recently created identities holding any of roles.
func (r *IdentityRepo) ListByRoles(ctx context.Context, roles []domainauth.Role, limit int) ([]domainauth.Identity, error) {
	if len(roles) == 0 {
		return []domainauth.Identity{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	vals := make([]string, len(roles))
	for i, role := range roles {
		vals[i] = string(role)
	}
	query, args := database.BuildListQuery(database.NewListQueryOptions("identities",
		database.WithColumns("id", "email", "display_name", "email_verified", "role", "created_at", "updated_at"),
		database.WithCondition(database.WhereCond("role", database.In, vals)),
		database.WithOrderBy("created_at", "DESC"),
		database.WithLimit(limit),
	))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	out := make([]domainauth.Identity, 0, limit)
	for rows.Next() {
		ident, scanErr := scanIdentity(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan identity: %w", scanErr)
		}
		out = append(out, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}
